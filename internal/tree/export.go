package tree

import (
	"fmt"
	"os"
)

// Export writes every file in the store to dir on the real filesystem,
// recreating directories as needed. The store is left untouched, so a
// failed downstream publish can retry the export independently.
func Export(s *Store, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("export target %s: %w", dir, err)
	}
	out := NewDir(dir)
	return s.Walk(func(p string, _ os.FileInfo) error {
		content, err := s.ReadFile(p)
		if err != nil {
			return err
		}
		if err := out.WriteFile(p, content); err != nil {
			return fmt.Errorf("export %s: %w", p, err)
		}
		return nil
	})
}
