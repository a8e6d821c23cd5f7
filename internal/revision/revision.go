// Package revision reports the git commit a document is checked out at.
package revision

import (
	stderrors "errors"
	"path/filepath"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/nbtoc/internal/foundation/errors"
)

// Resolver finds the repository enclosing a document and reads its HEAD.
// Documents outside any repository resolve to the empty revision.
type Resolver struct {
	dir string

	mu   sync.Mutex
	repo *git.Repository
}

// NewResolver returns a Resolver for the document at path.
func NewResolver(path string) (*Resolver, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to resolve document path").
			WithContext("path", path).
			Build()
	}
	return &Resolver{dir: filepath.Dir(abs)}, nil
}

// Revision returns the HEAD commit hash, or "" when the document is not in
// a repository or the repository has no commits yet.
func (r *Resolver) Revision() (string, error) {
	repo, err := r.open()
	if err != nil || repo == nil {
		return "", err
	}

	ref, err := repo.Head()
	if err != nil {
		if stderrors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", nil
		}
		return "", errors.WrapError(err, errors.CategoryStorage, "failed to read HEAD").
			NextTick().
			WithContext("dir", r.dir).
			Build()
	}
	return ref.Hash().String(), nil
}

// open caches the repository once found. A missing repository is looked up
// again on the next call, since one may be initialized later.
func (r *Resolver) open() (*git.Repository, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.repo != nil {
		return r.repo, nil
	}
	repo, err := git.PlainOpenWithOptions(r.dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if stderrors.Is(err, git.ErrRepositoryNotExists) {
			return nil, nil
		}
		return nil, errors.WrapError(err, errors.CategoryStorage, "failed to open git repository").
			NextTick().
			WithContext("dir", r.dir).
			Build()
	}
	r.repo = repo
	return repo, nil
}
