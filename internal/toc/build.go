package toc

import (
	"strconv"

	"git.home.luguber.info/inful/nbtoc/internal/foundation/normalization"
)

// DefaultListKeyPrefix prefixes the counter in the key of each nested list.
const DefaultListKeyPrefix = "toc-h1-"

// OrphanPolicy decides what happens to a secondary heading that appears
// before any primary heading.
type OrphanPolicy string

const (
	// OrphanFail rejects the document with ErrOrphanSecondary.
	OrphanFail OrphanPolicy = "fail"
	// OrphanSkip drops the heading.
	OrphanSkip OrphanPolicy = "skip"
	// OrphanRoot collects orphans under a synthetic entry numbered 0.
	OrphanRoot OrphanPolicy = "root"
)

var orphanPolicies = normalization.NewNormalizer("orphan policy", map[string]OrphanPolicy{
	"fail": OrphanFail,
	"skip": OrphanSkip,
	"root": OrphanRoot,
}, OrphanFail)

// ParseOrphanPolicy parses a policy name; the empty string selects OrphanFail.
func ParseOrphanPolicy(raw string) (OrphanPolicy, error) {
	return orphanPolicies.NormalizeWithError(raw)
}

// Options controls Build.
type Options struct {
	ListKeyPrefix string
	Orphans       OrphanPolicy
}

func (o Options) withDefaults() Options {
	if o.ListKeyPrefix == "" {
		o.ListKeyPrefix = DefaultListKeyPrefix
	}
	if o.Orphans == "" {
		o.Orphans = OrphanFail
	}
	return o
}

// Build turns headings, given in document order, into a Tree.
func Build(headings []Heading, opts Options) (*Tree, error) {
	opts = opts.withDefaults()

	tree := &Tree{Entries: make([]Entry, 0, len(headings))}
	counter := 0
	current := -1 // index of the most recent primary entry

	for i, h := range headings {
		if h.ID == "" {
			return nil, ErrMissingIdentifier.
				WithContext("index", i).
				WithContext("content", h.Content)
		}

		switch h.Level {
		case LevelPrimary:
			counter++
			tree.Entries = append(tree.Entries, Entry{
				Anchor:  h.ID,
				Number:  counter,
				Content: h.Content,
				ListKey: opts.ListKeyPrefix + strconv.Itoa(counter),
			})
			current = len(tree.Entries) - 1

		case LevelSecondary:
			if current < 0 {
				switch opts.Orphans {
				case OrphanSkip:
					continue
				case OrphanRoot:
					tree.Entries = append(tree.Entries, Entry{
						ListKey:   opts.ListKeyPrefix + "0",
						Synthetic: true,
					})
					current = 0
				default:
					return nil, ErrOrphanSecondary.
						WithContext("index", i).
						WithContext("id", h.ID)
				}
			}
			tree.Entries[current].Children = append(tree.Entries[current].Children, Entry{
				Anchor:  h.ID,
				Content: h.Content,
			})

		default:
			return nil, ErrUnsupportedLevel.
				WithContext("index", i).
				WithContext("level", int(h.Level))
		}
	}

	return tree, nil
}
