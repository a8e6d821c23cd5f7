package document

import (
	"bytes"
	"context"
	"slices"
	"sync"

	"git.home.luguber.info/inful/nbtoc/internal/toc"
)

// Memory is an in-memory Source and Container. It is safe for concurrent
// use, so tests can mutate headings while a refresher is running.
type Memory struct {
	mu        sync.Mutex
	headings  []toc.Heading
	content   []byte
	container bool
	writes    int
}

// NewMemory returns a document with the given headings and an empty
// container.
func NewMemory(headings ...toc.Heading) *Memory {
	return &Memory{headings: slices.Clone(headings), container: true}
}

func (m *Memory) Name() string { return "memory" }

// SetHeadings replaces the document's headings.
func (m *Memory) SetHeadings(headings ...toc.Heading) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headings = slices.Clone(headings)
}

// Insert places h at index i, clamped to the valid range.
func (m *Memory) Insert(i int, h toc.Heading) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i = max(0, min(i, len(m.headings)))
	m.headings = slices.Insert(m.headings, i, h)
}

// RemoveContainer makes subsequent Replace calls fail with
// ErrContainerNotFound.
func (m *Memory) RemoveContainer() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.container = false
	m.content = nil
}

func (m *Memory) Headings(ctx context.Context, q Query) ([]toc.Heading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]toc.Heading, 0, len(m.headings))
	for _, h := range m.headings {
		if q.ExcludeID != "" && h.ID == q.ExcludeID {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

func (m *Memory) Replace(ctx context.Context, content []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.container {
		return false, ErrContainerNotFound.WithContext("container", "memory")
	}
	if m.writes > 0 && bytes.Equal(m.content, content) {
		return false, nil
	}
	m.content = bytes.Clone(content)
	m.writes++
	return true, nil
}

// SetContent overwrites the container without counting a write, as an
// outside edit would.
func (m *Memory) SetContent(content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content = bytes.Clone(content)
}

// Content returns the container's current content.
func (m *Memory) Content() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return bytes.Clone(m.content)
}

// Writes counts the Replace calls that changed the container.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
