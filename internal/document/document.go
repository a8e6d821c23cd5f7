// Package document provides the host-document capabilities the table of
// contents is generated from and written into.
//
// A Source lists heading elements in document order; a Container is the
// element whose content the rendered table of contents replaces. The HTML
// page implements both; Markdown and notebook files are read-only sources
// paired with a FragmentFile container.
package document

import (
	"context"

	"git.home.luguber.info/inful/nbtoc/internal/foundation/errors"
	"git.home.luguber.info/inful/nbtoc/internal/toc"
)

// Query narrows a heading scan.
type Query struct {
	// ExcludeID names the title heading, which is never returned.
	ExcludeID string
	// IgnoreClass drops child elements carrying this class from heading
	// content (HTML pages only), e.g. permalink anchors.
	IgnoreClass string
}

// Source yields the primary and secondary headings of a document in order.
type Source interface {
	Name() string
	Headings(ctx context.Context, q Query) ([]toc.Heading, error)
}

// Container receives rendered table-of-contents markup, replacing whatever
// it held before. Replace reports whether it wrote; a container already
// holding equivalent markup is left alone.
type Container interface {
	Replace(ctx context.Context, content []byte) (bool, error)
}

var (
	ErrContainerNotFound = errors.DocumentError("output container not found").Build()
	ErrUnsupportedSource = errors.ConfigError("unsupported document kind").Build()
)
