package document

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"git.home.luguber.info/inful/nbtoc/internal/foundation/errors"
	"git.home.luguber.info/inful/nbtoc/internal/toc"
)

// HTMLPage is an HTML file acting as both heading source and container.
// The container is the element whose id attribute equals containerID.
type HTMLPage struct {
	path        string
	containerID string
	mu          sync.Mutex
}

// NewHTMLPage returns a page backed by the file at path.
func NewHTMLPage(path, containerID string) *HTMLPage {
	return &HTMLPage{path: path, containerID: containerID}
}

func (p *HTMLPage) Name() string { return p.path }

// Headings parses the page and scans it.
func (p *HTMLPage) Headings(ctx context.Context, q Query) ([]toc.Heading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root, err := p.load()
	if err != nil {
		return nil, err
	}
	return ScanHTML(root, q), nil
}

// Replace swaps the children of the container element for content and
// writes the page back. Nothing is written when the container already holds
// equivalent markup.
func (p *HTMLPage) Replace(ctx context.Context, content []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	root, err := p.load()
	if err != nil {
		return false, err
	}

	target := FindByID(root, p.containerID)
	if target == nil {
		return false, ErrContainerNotFound.
			WithContext("container", p.containerID).
			WithContext("path", p.path)
	}

	parent := &html.Node{Type: html.ElementNode, Data: target.Data, DataAtom: target.DataAtom}
	nodes, err := html.ParseFragment(bytes.NewReader(content), parent)
	if err != nil {
		return false, errors.WrapError(err, errors.CategoryRender, "failed to parse table of contents markup").Build()
	}

	next, err := renderNodes(nodes)
	if err != nil {
		return false, err
	}
	current, err := InnerHTML(target)
	if err != nil {
		return false, err
	}
	if current == next {
		return false, nil
	}

	for c := target.FirstChild; c != nil; c = target.FirstChild {
		target.RemoveChild(c)
	}
	for _, n := range nodes {
		target.AppendChild(n)
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return false, errors.WrapError(err, errors.CategoryRender, "failed to render page").
			WithContext("path", p.path).
			Build()
	}
	if err := writeFileAtomic(p.path, buf.Bytes()); err != nil {
		return false, err
	}
	return true, nil
}

func (p *HTMLPage) load() (*html.Node, error) {
	f, err := os.Open(filepath.Clean(p.path))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryDocument, "failed to open page").
			NextTick().
			WithContext("path", p.path).
			Build()
	}
	defer func() {
		_ = f.Close() // read-only
	}()

	root, err := html.Parse(f)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryDocument, "failed to parse page").
			NextTick().
			WithContext("path", p.path).
			Build()
	}
	return root, nil
}

// ScanHTML returns the h1/h2 elements below root in document order. The
// element whose id equals q.ExcludeID is skipped. Content is NFC-normalized
// so that visually equal headings render identically.
func ScanHTML(root *html.Node, q Query) []toc.Heading {
	var headings []toc.Heading

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level, ok := toc.LevelFromTag(n.Data); ok {
				id := getAttr(n, "id")
				if q.ExcludeID == "" || id != q.ExcludeID {
					headings = append(headings, toc.Heading{
						ID:      id,
						Level:   level,
						Content: headingContent(n, q.IgnoreClass),
					})
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return headings
}

// FindByID returns the first element whose id attribute equals id.
func FindByID(n *html.Node, id string) *html.Node {
	if id == "" {
		return nil
	}
	if n.Type == html.ElementNode && getAttr(n, "id") == id {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := FindByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

// InnerHTML renders the children of n.
func InnerHTML(n *html.Node) (string, error) {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", errors.WrapError(err, errors.CategoryRender, "failed to render element").Build()
		}
	}
	return buf.String(), nil
}

func headingContent(n *html.Node, ignoreClass string) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if ignoreClass != "" && c.Type == html.ElementNode && hasClass(c, ignoreClass) {
			continue
		}
		// Rendering into a bytes.Buffer only fails on invalid trees.
		_ = html.Render(&buf, c)
	}
	return norm.NFC.String(strings.TrimSpace(buf.String()))
}

func renderNodes(nodes []*html.Node) (string, error) {
	var buf bytes.Buffer
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", errors.WrapError(err, errors.CategoryRender, "failed to render markup").Build()
		}
	}
	return buf.String(), nil
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	return slices.Contains(strings.Fields(getAttr(n, "class")), class)
}
