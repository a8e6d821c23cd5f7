package toc

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/inful/mdfp"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"git.home.luguber.info/inful/nbtoc/internal/foundation/errors"
)

// DefaultListClass is the class attribute of the outer list.
const DefaultListClass = "toc"

// RenderOptions controls Render.
type RenderOptions struct {
	// ListClass is set as the class of the outer <ol>. Empty selects
	// DefaultListClass; "-" omits the attribute.
	ListClass string
}

// Render writes the HTML form of tree to w.
func Render(w io.Writer, tree *Tree, opts RenderOptions) error {
	root := element(atom.Ol)
	switch opts.ListClass {
	case "":
		root.Attr = append(root.Attr, html.Attribute{Key: "class", Val: DefaultListClass})
	case "-":
	default:
		root.Attr = append(root.Attr, html.Attribute{Key: "class", Val: opts.ListClass})
	}

	if tree != nil {
		for _, e := range tree.Entries {
			item := element(atom.Li)
			if e.Synthetic {
				item.Attr = append(item.Attr, html.Attribute{Key: "class", Val: "toc-orphans"})
			} else {
				item.AppendChild(&html.Node{Type: html.TextNode, Data: strconv.Itoa(e.Number) + " "})
				item.AppendChild(link(e.Anchor, e.Content))
			}
			root.AppendChild(item)

			nested := element(atom.Ul)
			nested.Attr = append(nested.Attr, html.Attribute{Key: "id", Val: e.ListKey})
			for _, c := range e.Children {
				child := element(atom.Li)
				child.AppendChild(link(c.Anchor, c.Content))
				nested.AppendChild(child)
			}
			root.AppendChild(nested)
		}
	}

	if err := html.Render(w, root); err != nil {
		return errors.WrapError(err, errors.CategoryRender, "failed to render table of contents").Build()
	}
	return nil
}

// RenderBytes renders tree into a new byte slice.
func RenderBytes(tree *Tree, opts RenderOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, tree, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Fingerprint returns a stable content hash of rendered output.
func Fingerprint(rendered []byte) string {
	return mdfp.CalculateFingerprintFromParts("", string(rendered))
}

func element(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a}
}

// link builds <a href="#anchor">content</a>. Content is parsed as markup in
// the context of an anchor element; unparsable content is kept as text.
// Links inside content are unwrapped, since anchors cannot nest.
func link(anchor, content string) *html.Node {
	a := element(atom.A)
	a.Attr = append(a.Attr, html.Attribute{Key: "href", Val: "#" + anchor})

	nodes, err := html.ParseFragment(strings.NewReader(content), element(atom.A))
	if err != nil {
		a.AppendChild(&html.Node{Type: html.TextNode, Data: content})
		return a
	}
	for _, n := range nodes {
		a.AppendChild(n)
	}
	unwrapLinks(a)
	return a
}

// unwrapLinks replaces every <a> below n by its children.
func unwrapLinks(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && c.DataAtom == atom.A {
			first := c.FirstChild
			for gc := c.FirstChild; gc != nil; gc = c.FirstChild {
				c.RemoveChild(gc)
				n.InsertBefore(gc, c)
			}
			n.RemoveChild(c)
			if first != nil {
				// Hoisted children may hold links of their own.
				next = first
			}
		} else {
			unwrapLinks(c)
		}
		c = next
	}
}
