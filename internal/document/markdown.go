package document

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"golang.org/x/text/unicode/norm"

	"git.home.luguber.info/inful/nbtoc/internal/foundation/errors"
	"git.home.luguber.info/inful/nbtoc/internal/toc"
)

// MarkdownFile is a read-only heading source backed by a Markdown file.
type MarkdownFile struct {
	path string
}

func NewMarkdownFile(path string) *MarkdownFile {
	return &MarkdownFile{path: path}
}

func (m *MarkdownFile) Name() string { return m.path }

func (m *MarkdownFile) Headings(ctx context.Context, q Query) ([]toc.Heading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := os.ReadFile(filepath.Clean(m.path))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryDocument, "failed to read markdown file").
			NextTick().
			WithContext("path", m.path).
			Build()
	}
	return ScanMarkdown(body, q)
}

// ScanMarkdown parses body and returns its level 1 and 2 headings in order.
//
// Headings without an explicit {#id} attribute get a slug of their text;
// duplicates are suffixed -1, -2, ... in document order.
func ScanMarkdown(body []byte, q Query) ([]toc.Heading, error) {
	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithAttribute(),
		),
	)
	pctx := parser.NewContext(parser.WithIDs(newSlugIDs()))
	root := md.Parser().Parse(text.NewReader(body), parser.WithContext(pctx))

	var headings []toc.Heading
	err := gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		h, ok := n.(*gmast.Heading)
		if !ok {
			return gmast.WalkContinue, nil
		}
		if h.Level > int(toc.LevelSecondary) {
			return gmast.WalkSkipChildren, nil
		}

		id := headingID(h)
		if q.ExcludeID != "" && id == q.ExcludeID {
			return gmast.WalkSkipChildren, nil
		}

		var buf bytes.Buffer
		for c := h.FirstChild(); c != nil; c = c.NextSibling() {
			if err := md.Renderer().Render(&buf, body, c); err != nil {
				return gmast.WalkStop, errors.WrapError(err, errors.CategoryRender, "failed to render heading").
					WithContext("id", id).
					Build()
			}
		}

		headings = append(headings, toc.Heading{
			ID:      id,
			Level:   toc.Level(h.Level),
			Content: norm.NFC.String(strings.TrimSpace(buf.String())),
		})
		return gmast.WalkSkipChildren, nil
	})
	if err != nil {
		return nil, err
	}
	return headings, nil
}

func headingID(h *gmast.Heading) string {
	v, ok := h.AttributeString("id")
	if !ok {
		return ""
	}
	switch id := v.(type) {
	case []byte:
		return string(id)
	case string:
		return id
	default:
		return ""
	}
}

// slugIDs implements parser.IDs with gosimple/slug.
type slugIDs struct {
	used map[string]struct{}
}

func newSlugIDs() *slugIDs {
	return &slugIDs{used: make(map[string]struct{})}
}

func (s *slugIDs) Generate(value []byte, kind gmast.NodeKind) []byte {
	base := slug.Make(string(value))
	if base == "" {
		if kind == gmast.KindHeading {
			base = "heading"
		} else {
			base = "id"
		}
	}
	id := base
	for i := 1; ; i++ {
		if _, taken := s.used[id]; !taken {
			break
		}
		id = fmt.Sprintf("%s-%d", base, i)
	}
	s.used[id] = struct{}{}
	return []byte(id)
}

func (s *slugIDs) Put(value []byte) {
	s.used[string(value)] = struct{}{}
}
