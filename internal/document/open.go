package document

import (
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/nbtoc/internal/foundation/errors"
	"git.home.luguber.info/inful/nbtoc/internal/foundation/normalization"
)

// Kind selects a document implementation.
type Kind string

const (
	KindHTML     Kind = "html"
	KindMarkdown Kind = "markdown"
	KindNotebook Kind = "notebook"
)

var kindNormalizer = normalization.NewNormalizer("document kind", map[string]Kind{
	"html":     KindHTML,
	"htm":      KindHTML,
	"markdown": KindMarkdown,
	"md":       KindMarkdown,
	"notebook": KindNotebook,
	"ipynb":    KindNotebook,
}, "")

// ParseKind normalizes a configured kind. The empty string means "detect
// from the file extension".
func ParseKind(raw string) (Kind, error) {
	kind, err := kindNormalizer.NormalizeWithError(raw)
	if err != nil {
		return "", ErrUnsupportedSource.WithContext("kind", raw)
	}
	return kind, nil
}

// DetectKind infers the kind from a file extension.
func DetectKind(path string) (Kind, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return "", ErrUnsupportedSource.WithContext("path", path)
	}
	kind, err := kindNormalizer.NormalizeWithError(ext)
	if err != nil {
		return "", ErrUnsupportedSource.WithContext("path", path)
	}
	return kind, nil
}

// OpenOptions describes where headings come from and where the table of
// contents goes.
type OpenOptions struct {
	Kind        string
	Path        string
	ContainerID string
	// Output, when set, sends the rendered table of contents to a fragment
	// file instead of the page itself. Required for Markdown and notebooks.
	Output string
}

// OpenSource returns a read-only Source for the document at path. An empty
// kind is detected from the extension.
func OpenSource(kind, path string) (Source, error) {
	k, err := resolveKind(kind, path)
	if err != nil {
		return nil, err
	}
	switch k {
	case KindHTML:
		return NewHTMLPage(path, ""), nil
	case KindMarkdown:
		return NewMarkdownFile(path), nil
	case KindNotebook:
		return NewNotebook(path), nil
	default:
		return nil, ErrUnsupportedSource.WithContext("kind", string(k))
	}
}

func resolveKind(raw, path string) (Kind, error) {
	if path == "" {
		return "", errors.ConfigError("document path is required").Build()
	}
	kind, err := ParseKind(raw)
	if err != nil {
		return "", err
	}
	if kind == "" {
		return DetectKind(path)
	}
	return kind, nil
}

// Open returns the Source and Container described by opts.
func Open(opts OpenOptions) (Source, Container, error) {
	kind, err := resolveKind(opts.Kind, opts.Path)
	if err != nil {
		return nil, nil, err
	}

	var src Source
	switch kind {
	case KindHTML:
		page := NewHTMLPage(opts.Path, opts.ContainerID)
		if opts.Output == "" {
			if opts.ContainerID == "" {
				return nil, nil, errors.ConfigError("container id is required for html documents").
					WithContext("path", opts.Path).
					Build()
			}
			return page, page, nil
		}
		src = page
	case KindMarkdown:
		src = NewMarkdownFile(opts.Path)
	case KindNotebook:
		src = NewNotebook(opts.Path)
	default:
		return nil, nil, ErrUnsupportedSource.WithContext("kind", string(kind))
	}

	if opts.Output == "" {
		return nil, nil, errors.ConfigError("output path is required for this document kind").
			WithContext("kind", string(kind)).
			WithContext("path", opts.Path).
			Build()
	}
	return src, NewFragmentFile(opts.Output), nil
}
