package document

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/nbtoc/internal/foundation/errors"
	"git.home.luguber.info/inful/nbtoc/internal/toc"
)

// Notebook is a read-only heading source backed by a Jupyter .ipynb file
// (nbformat 4). Markdown cells are joined in order and scanned as one
// Markdown document, so heading IDs are unique across cells.
type Notebook struct {
	path string
}

func NewNotebook(path string) *Notebook {
	return &Notebook{path: path}
}

func (n *Notebook) Name() string { return n.path }

func (n *Notebook) Headings(ctx context.Context, q Query) ([]toc.Heading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(filepath.Clean(n.path))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryDocument, "failed to read notebook").
			NextTick().
			WithContext("path", n.path).
			Build()
	}
	body, err := NotebookMarkdown(raw)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryDocument, "failed to decode notebook").
			NextTick().
			WithContext("path", n.path).
			Build()
	}
	return ScanMarkdown(body, q)
}

type notebookFile struct {
	Cells []notebookCell `json:"cells"`
}

type notebookCell struct {
	CellType string     `json:"cell_type"`
	Source   cellSource `json:"source"`
}

// cellSource accepts both encodings nbformat allows: a string or a list of
// lines.
type cellSource string

func (s *cellSource) UnmarshalJSON(data []byte) error {
	var lines []string
	if err := json.Unmarshal(data, &lines); err == nil {
		*s = cellSource(strings.Join(lines, ""))
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*s = cellSource(single)
	return nil
}

// NotebookMarkdown extracts the markdown cells of an .ipynb document,
// separated by blank lines.
func NotebookMarkdown(raw []byte) ([]byte, error) {
	var nb notebookFile
	if err := json.Unmarshal(raw, &nb); err != nil {
		return nil, err
	}

	var b strings.Builder
	for _, cell := range nb.Cells {
		if cell.CellType != "markdown" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(strings.TrimRight(string(cell.Source), "\n"))
	}
	return []byte(b.String()), nil
}
