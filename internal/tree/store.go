// Package tree holds the assembly store: the project file tree a run
// accumulates before it is exported, previewed, or published.
package tree

import (
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/agentic-research/loom/api"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidPath = errors.New("invalid path")
)

// WalkFunc is called once per file. Paths are slash-separated and
// relative to the store root.
type WalkFunc func(path string, info os.FileInfo) error

// Tree is the surface the assembly pipeline needs from a file tree.
// *Store implements it over any billy backend.
type Tree interface {
	WriteFile(path string, content []byte) error
	ReadFile(path string) ([]byte, error)
	Exists(path string) bool
	List(dir string) ([]string, error)
	Walk(fn WalkFunc) error
}

// Store is a project tree keyed by POSIX-style relative paths. One run
// owns one store; nothing here is safe for concurrent writers.
type Store struct {
	fs billy.Filesystem
}

var _ Tree = (*Store)(nil)

// NewMemory returns the in-memory store used while a run assembles.
func NewMemory() *Store {
	return &Store{fs: memfs.New()}
}

// NewDir returns a store backed by a real directory. Used for the final
// export step, never during assembly.
func NewDir(root string) *Store {
	return &Store{fs: osfs.New(root)}
}

// Filesystem exposes the underlying billy filesystem, for consumers that
// serve the tree directly (preview mounts).
func (s *Store) Filesystem() billy.Filesystem {
	return s.fs
}

// cleanPath normalizes p to a relative POSIX path inside the store.
// Anything that would resolve to the root itself or climb above it is
// rejected.
func cleanPath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	c := path.Clean(strings.TrimLeft(p, "/"))
	if c == "." || c == ".." || strings.HasPrefix(c, "../") {
		return "", fmt.Errorf("%w: %q escapes the assembly root", ErrInvalidPath, p)
	}
	return c, nil
}

// WriteFile creates or overwrites the file at p, creating parent
// directories as needed.
func (s *Store) WriteFile(p string, content []byte) error {
	c, err := cleanPath(p)
	if err != nil {
		return err
	}
	if dir := path.Dir(c); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	if err := util.WriteFile(s.fs, c, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", c, err)
	}
	return nil
}

// ReadFile returns the content at p, or ErrNotFound.
func (s *Store) ReadFile(p string) ([]byte, error) {
	c, err := cleanPath(p)
	if err != nil {
		return nil, err
	}
	content, err := util.ReadFile(s.fs, c)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", c, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", c, err)
	}
	return content, nil
}

// Exists reports whether a file or directory exists at p.
func (s *Store) Exists(p string) bool {
	c, err := cleanPath(p)
	if err != nil {
		return false
	}
	_, err = s.fs.Stat(c)
	return err == nil
}

// List returns the sorted entry names directly under dir. The store root
// is addressed as ".".
func (s *Store) List(dir string) ([]string, error) {
	d := "."
	if dir != "" && dir != "." && dir != "/" {
		c, err := cleanPath(dir)
		if err != nil {
			return nil, err
		}
		d = c
	}
	infos, err := s.fs.ReadDir(d)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", d, ErrNotFound)
		}
		return nil, fmt.Errorf("list %s: %w", d, err)
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Walk visits every file in the store. Directory entries are skipped;
// visit order follows the underlying filesystem, so callers needing a
// stable order sort the collected paths themselves.
func (s *Store) Walk(fn WalkFunc) error {
	return util.Walk(s.fs, "/", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		return fn(strings.TrimLeft(p, "/"), info)
	})
}

// Manifest walks the store and returns the sorted file listing.
func Manifest(t Tree) (api.Manifest, error) {
	files := []api.FileInfo{}
	err := t.Walk(func(p string, info os.FileInfo) error {
		files = append(files, api.FileInfo{Path: p, Size: info.Size()})
		return nil
	})
	if err != nil {
		return api.Manifest{}, fmt.Errorf("manifest: %w", err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return api.Manifest{Files: files}, nil
}
