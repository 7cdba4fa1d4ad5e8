// Package preview serves an assembled tree read-only over NFS so the
// result of a run can be inspected without exporting it. The served
// filesystem is swappable, so re-assembly can replace the tree under a
// live mount.
package preview

import (
	"fmt"
	"os"

	billy "github.com/go-git/go-billy/v5"
)

var errReadOnly = fmt.Errorf("read-only filesystem")

// ReadOnly wraps a billy filesystem and rejects every mutation. A
// preview mount must never write back into a run's assembly store.
type ReadOnly struct {
	inner billy.Filesystem
}

var _ billy.Filesystem = (*ReadOnly)(nil)

// NewReadOnly wraps fs.
func NewReadOnly(fs billy.Filesystem) *ReadOnly {
	return &ReadOnly{inner: fs}
}

// --- billy.Basic ---

func (fs *ReadOnly) Create(filename string) (billy.File, error) {
	return nil, &os.PathError{Op: "create", Path: filename, Err: errReadOnly}
}

func (fs *ReadOnly) Open(filename string) (billy.File, error) {
	return fs.inner.Open(filename)
}

func (fs *ReadOnly) OpenFile(filename string, flag int, perm os.FileMode) (billy.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND) != 0 {
		return nil, &os.PathError{Op: "open", Path: filename, Err: errReadOnly}
	}
	return fs.inner.OpenFile(filename, flag, perm)
}

func (fs *ReadOnly) Stat(filename string) (os.FileInfo, error) {
	return fs.inner.Stat(filename)
}

func (fs *ReadOnly) Rename(oldpath, newpath string) error {
	return &os.PathError{Op: "rename", Path: oldpath, Err: errReadOnly}
}

func (fs *ReadOnly) Remove(filename string) error {
	return &os.PathError{Op: "remove", Path: filename, Err: errReadOnly}
}

func (fs *ReadOnly) Join(elem ...string) string {
	return fs.inner.Join(elem...)
}

// --- billy.TempFile ---

func (fs *ReadOnly) TempFile(dir, prefix string) (billy.File, error) {
	return nil, &os.PathError{Op: "tempfile", Path: dir, Err: errReadOnly}
}

// --- billy.Dir ---

func (fs *ReadOnly) ReadDir(path string) ([]os.FileInfo, error) {
	return fs.inner.ReadDir(path)
}

func (fs *ReadOnly) MkdirAll(filename string, perm os.FileMode) error {
	return &os.PathError{Op: "mkdir", Path: filename, Err: errReadOnly}
}

// --- billy.Symlink ---

func (fs *ReadOnly) Lstat(filename string) (os.FileInfo, error) {
	return fs.inner.Lstat(filename)
}

func (fs *ReadOnly) Symlink(target, link string) error {
	return &os.PathError{Op: "symlink", Path: link, Err: errReadOnly}
}

func (fs *ReadOnly) Readlink(link string) (string, error) {
	return fs.inner.Readlink(link)
}

// --- billy.Chroot ---

func (fs *ReadOnly) Chroot(path string) (billy.Filesystem, error) {
	sub, err := fs.inner.Chroot(path)
	if err != nil {
		return nil, err
	}
	return NewReadOnly(sub), nil
}

func (fs *ReadOnly) Root() string {
	return fs.inner.Root()
}
