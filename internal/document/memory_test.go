package document

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/nbtoc/internal/toc"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(
		toc.Heading{ID: "title", Level: toc.LevelPrimary, Content: "Title"},
		toc.Heading{ID: "a", Level: toc.LevelPrimary, Content: "A"},
	)

	got, err := m.Headings(ctx, Query{ExcludeID: "title"})
	require.NoError(t, err)
	assert.Equal(t, []toc.Heading{{ID: "a", Level: toc.LevelPrimary, Content: "A"}}, got)

	m.Insert(1, toc.Heading{ID: "z", Level: toc.LevelSecondary, Content: "Z"})
	got, err = m.Headings(ctx, Query{ExcludeID: "title"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "z", got[0].ID)

	wrote, err := m.Replace(ctx, []byte("<ol></ol>"))
	require.NoError(t, err)
	assert.True(t, wrote)
	wrote, err = m.Replace(ctx, []byte("<ol></ol>"))
	require.NoError(t, err)
	assert.False(t, wrote)
	assert.Equal(t, 1, m.Writes())
	assert.Equal(t, "<ol></ol>", string(m.Content()))

	// An outside edit is undone by the next write.
	m.SetContent([]byte("<ol>stale</ol>"))
	wrote, err = m.Replace(ctx, []byte("<ol></ol>"))
	require.NoError(t, err)
	assert.True(t, wrote)
	assert.Equal(t, 2, m.Writes())

	m.RemoveContainer()
	_, err = m.Replace(ctx, []byte("<ol></ol>"))
	require.ErrorIs(t, err, ErrContainerNotFound)
}

func TestFragmentFile_Replace(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out", "toc.html")
	f := NewFragmentFile(path)

	wrote, err := f.Replace(ctx, []byte("<ol></ol>"))
	require.NoError(t, err)
	assert.True(t, wrote)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<ol></ol>", string(raw))

	wrote, err = f.Replace(ctx, []byte(`<ol class="toc"></ol>`))
	require.NoError(t, err)
	assert.True(t, wrote)
	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `<ol class="toc"></ol>`, string(raw))

	wrote, err = f.Replace(ctx, []byte(`<ol class="toc"></ol>`))
	require.NoError(t, err)
	assert.False(t, wrote)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files left behind")
}
