package document

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/nbtoc/internal/foundation/errors"
)

// FragmentFile is a container that holds the rendered table of contents as a
// standalone HTML fragment file.
type FragmentFile struct {
	path string
}

func NewFragmentFile(path string) *FragmentFile {
	return &FragmentFile{path: path}
}

func (f *FragmentFile) Path() string { return f.path }

// Replace writes content unless the file already holds exactly that.
func (f *FragmentFile) Replace(ctx context.Context, content []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	current, err := os.ReadFile(filepath.Clean(f.path))
	switch {
	case err == nil:
		if bytes.Equal(current, content) {
			return false, nil
		}
	case !os.IsNotExist(err):
		return false, errors.WrapError(err, errors.CategoryFileSystem, "failed to read fragment file").
			WithContext("path", f.path).
			Build()
	}
	if err := writeFileAtomic(f.path, content); err != nil {
		return false, err
	}
	return true, nil
}

// writeFileAtomic replaces path via a temp file in the same directory and a
// rename. An existing file's mode is preserved.
func writeFileAtomic(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to create output directory").
			WithContext("path", dir).
			Build()
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to create temp file").
			WithContext("path", path).
			Build()
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write temp file").
			WithContext("path", path).
			Build()
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to close temp file").
			WithContext("path", path).
			Build()
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		cleanup()
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to set file mode").
			WithContext("path", path).
			Build()
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to replace file").
			WithContext("path", path).
			Build()
	}
	return nil
}
