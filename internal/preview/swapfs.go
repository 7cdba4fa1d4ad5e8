package preview

import (
	"os"
	"sync"

	billy "github.com/go-git/go-billy/v5"
)

// SwapFS is a thread-safe filesystem handle whose backing tree can be
// replaced atomically. NFS clients holding the mount see the new tree on
// their next operation; no remount is needed after re-assembly.
type SwapFS struct {
	mu      sync.RWMutex
	current billy.Filesystem
}

var _ billy.Filesystem = (*SwapFS)(nil)

// NewSwapFS starts serving initial.
func NewSwapFS(initial billy.Filesystem) *SwapFS {
	return &SwapFS{current: initial}
}

// Swap atomically replaces the served filesystem.
func (s *SwapFS) Swap(next billy.Filesystem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = next
}

func (s *SwapFS) fs() billy.Filesystem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *SwapFS) Create(filename string) (billy.File, error) {
	return s.fs().Create(filename)
}

func (s *SwapFS) Open(filename string) (billy.File, error) {
	return s.fs().Open(filename)
}

func (s *SwapFS) OpenFile(filename string, flag int, perm os.FileMode) (billy.File, error) {
	return s.fs().OpenFile(filename, flag, perm)
}

func (s *SwapFS) Stat(filename string) (os.FileInfo, error) {
	return s.fs().Stat(filename)
}

func (s *SwapFS) Rename(oldpath, newpath string) error {
	return s.fs().Rename(oldpath, newpath)
}

func (s *SwapFS) Remove(filename string) error {
	return s.fs().Remove(filename)
}

func (s *SwapFS) Join(elem ...string) string {
	return s.fs().Join(elem...)
}

func (s *SwapFS) TempFile(dir, prefix string) (billy.File, error) {
	return s.fs().TempFile(dir, prefix)
}

func (s *SwapFS) ReadDir(path string) ([]os.FileInfo, error) {
	return s.fs().ReadDir(path)
}

func (s *SwapFS) MkdirAll(filename string, perm os.FileMode) error {
	return s.fs().MkdirAll(filename, perm)
}

func (s *SwapFS) Lstat(filename string) (os.FileInfo, error) {
	return s.fs().Lstat(filename)
}

func (s *SwapFS) Symlink(target, link string) error {
	return s.fs().Symlink(target, link)
}

func (s *SwapFS) Readlink(link string) (string, error) {
	return s.fs().Readlink(link)
}

func (s *SwapFS) Chroot(path string) (billy.Filesystem, error) {
	return s.fs().Chroot(path)
}

func (s *SwapFS) Root() string {
	return s.fs().Root()
}
