package revision

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevision_OutsideRepository(t *testing.T) {
	r, err := NewResolver(filepath.Join(t.TempDir(), "notebook.html"))
	require.NoError(t, err)

	rev, err := r.Revision()
	require.NoError(t, err)
	assert.Empty(t, rev)
}

func TestRevision_FollowsHead(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	sub := filepath.Join(dir, "notes")
	require.NoError(t, os.MkdirAll(sub, 0o750))
	doc := filepath.Join(sub, "notebook.html")

	r, err := NewResolver(doc)
	require.NoError(t, err)

	// No commits yet.
	rev, err := r.Revision()
	require.NoError(t, err)
	assert.Empty(t, rev)

	wt, err := repo.Worktree()
	require.NoError(t, err)
	commit := func(content string) string {
		t.Helper()
		require.NoError(t, os.WriteFile(doc, []byte(content), 0o600))
		_, err := wt.Add("notes/notebook.html")
		require.NoError(t, err)
		hash, err := wt.Commit("update", &git.CommitOptions{
			Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()},
		})
		require.NoError(t, err)
		return hash.String()
	}

	first := commit("<h1 id=\"a\">A</h1>")
	rev, err = r.Revision()
	require.NoError(t, err)
	assert.Equal(t, first, rev)

	second := commit("<h1 id=\"a\">A</h1><h1 id=\"b\">B</h1>")
	rev, err = r.Revision()
	require.NoError(t, err)
	assert.Equal(t, second, rev)
}
