package toc

import (
	"fmt"
	"strings"
)

// Level is the outline level of a heading. Exactly two levels are recognized.
type Level int

const (
	LevelPrimary   Level = 1
	LevelSecondary Level = 2
)

func (l Level) String() string {
	switch l {
	case LevelPrimary:
		return "primary"
	case LevelSecondary:
		return "secondary"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// MarshalText encodes the level by name.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText accepts "primary", "secondary", "h1" or "h2".
func (l *Level) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "primary", "h1":
		*l = LevelPrimary
	case "secondary", "h2":
		*l = LevelSecondary
	default:
		return fmt.Errorf("unknown heading level %q", string(b))
	}
	return nil
}

// LevelFromTag maps an HTML heading tag name to a Level.
func LevelFromTag(tag string) (Level, bool) {
	switch strings.ToLower(tag) {
	case "h1":
		return LevelPrimary, true
	case "h2":
		return LevelSecondary, true
	default:
		return 0, false
	}
}

// Heading is one heading element of the host document.
type Heading struct {
	ID      string `json:"id"`
	Level   Level  `json:"level"`
	Content string `json:"content"` // inner HTML, may contain markup
}

// Entry is a node of the generated table of contents. Primary entries carry
// a 1-based Number and a ListKey naming their nested list; secondary entries
// only an anchor and content.
type Entry struct {
	Anchor    string  `json:"anchor,omitempty"`
	Number    int     `json:"number,omitempty"`
	Content   string  `json:"content"`
	ListKey   string  `json:"list_key,omitempty"`
	Synthetic bool    `json:"synthetic,omitempty"`
	Children  []Entry `json:"children,omitempty"`
}

// IsPrimary reports whether the entry owns a nested list.
func (e Entry) IsPrimary() bool {
	return e.ListKey != ""
}

// Label is the visible text of the entry: "N content" for primary entries,
// the bare content otherwise.
func (e Entry) Label() string {
	if e.IsPrimary() && !e.Synthetic {
		return fmt.Sprintf("%d %s", e.Number, e.Content)
	}
	return e.Content
}

// Tree is a complete table of contents.
type Tree struct {
	Entries []Entry `json:"entries"`
}

// Counts returns the number of primary and secondary entries. The synthetic
// root used for orphaned headings is not counted as primary.
func (t *Tree) Counts() (primary, secondary int) {
	if t == nil {
		return 0, 0
	}
	for _, e := range t.Entries {
		if !e.Synthetic {
			primary++
		}
		secondary += len(e.Children)
	}
	return primary, secondary
}
