package encode

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// AtomicFile writes to a temporary sibling of the destination and renames it
// into place on Commit, so readers never observe a partial animation.
type AtomicFile struct {
	path string
	tmp  string
	f    *os.File
	done bool
}

// CreateAtomic opens a temporary file next to path.
func CreateAtomic(path string) (*AtomicFile, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &EncodeError{Path: path, Op: "create", Err: err}
	}
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, &EncodeError{Path: path, Op: "create", Err: err}
	}
	return &AtomicFile{path: path, tmp: tmp, f: f}, nil
}

// Path returns the final destination.
func (a *AtomicFile) Path() string {
	return a.path
}

func (a *AtomicFile) Write(p []byte) (int, error) {
	if a.done {
		return 0, os.ErrClosed
	}
	return a.f.Write(p)
}

// Commit syncs the temporary file and renames it over the destination.
func (a *AtomicFile) Commit() error {
	if a.done {
		return &EncodeError{Path: a.path, Op: "commit", Err: os.ErrClosed}
	}
	a.done = true
	err := a.f.Sync()
	if cerr := a.f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(a.tmp, a.path)
	}
	if err != nil {
		_ = os.Remove(a.tmp)
		return &EncodeError{Path: a.path, Op: "commit", Err: err}
	}
	return nil
}

// Abort discards the temporary file. It is a no-op after Commit.
func (a *AtomicFile) Abort() error {
	if a.done {
		return nil
	}
	a.done = true
	cerr := a.f.Close()
	rerr := os.Remove(a.tmp)
	if errors.Is(rerr, os.ErrNotExist) {
		rerr = nil
	}
	return errors.Join(cerr, rerr)
}
