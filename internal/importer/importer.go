// Package importer copies pre-built component packages from the real
// filesystem into the assembly store, deciding each file's destination
// through glob path mappings and falling back to packaging rules when no
// mapping matches.
package importer

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/agentic-research/loom/api"
	"github.com/agentic-research/loom/internal/layout"
	"github.com/agentic-research/loom/internal/patch"
	"github.com/agentic-research/loom/internal/tree"
)

// Directories never worth importing: version control, dependency caches,
// build output.
var skipDirs = map[string]bool{
	".git":         true,
	".svn":         true,
	".hg":          true,
	"node_modules": true,
	"target":       true,
	"dist":         true,
	"build":        true,
	"out":          true,
	".next":        true,
	"coverage":     true,
	"__pycache__":  true,
}

var skipFiles = map[string]bool{
	".DS_Store": true,
}

// Matches reports whether the package-relative path rel matches pattern.
// Patterns are anchored to the full path; `*` matches within one path
// segment, `**` crosses segments. Malformed patterns never match.
func Matches(pattern, rel string) bool {
	ok, err := doublestar.Match(pattern, rel)
	return err == nil && ok
}

func isDoc(rel string) bool {
	switch strings.ToLower(path.Ext(rel)) {
	case ".md", ".mdx":
		return true
	}
	return false
}

// Import walks the component package at spec.Dir and writes every kept
// file into the store. Destination conflicts with content already in the
// store go through the merge engine rather than overwriting.
func Import(store tree.Tree, spec api.ComponentSpec, pc api.PathContext) ([]api.Warning, error) {
	info, err := os.Stat(spec.Dir)
	if err != nil {
		return nil, fmt.Errorf("component package %s: %w", spec.Dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("component package %s: not a directory", spec.Dir)
	}

	strategy := spec.Strategy
	if strategy == "" {
		if len(spec.Mappings) > 0 {
			strategy = api.ImportMapped
		} else {
			strategy = api.ImportPackage
		}
	}

	var warnings []api.Warning
	mappings := make([]api.PathMapping, 0, len(spec.Mappings))
	for _, m := range spec.Mappings {
		if !doublestar.ValidatePattern(m.Pattern) {
			warnings = append(warnings, api.Warning{
				Stage:   "import",
				Path:    m.Pattern,
				Message: "invalid glob pattern, mapping skipped",
			})
			continue
		}
		mappings = append(mappings, m)
	}

	err = filepath.WalkDir(spec.Dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != spec.Dir && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if skipFiles[d.Name()] {
			return nil
		}
		rel, err := filepath.Rel(spec.Dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		dest, ok := destFor(strategy, spec, mappings, rel, pc)
		if !ok {
			return nil
		}
		content, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		content, note := normalize(rel, content)
		if note != "" {
			warnings = append(warnings, api.Warning{Stage: "import", Path: dest, Message: note})
		}
		mergeWarnings, err := patch.MergeInto(store, dest, content)
		if err != nil {
			return fmt.Errorf("import %s: %w", rel, err)
		}
		warnings = append(warnings, mergeWarnings...)
		return nil
	})
	if err != nil {
		return warnings, err
	}
	return warnings, nil
}

// destFor decides where one package file lands, or reports that it is
// dropped.
func destFor(strategy api.ImportStrategy, spec api.ComponentSpec, mappings []api.PathMapping, rel string, pc api.PathContext) (string, bool) {
	switch strategy {
	case api.ImportPackage:
		return path.Join("packages", spec.Name, rel), true
	case api.ImportLegacySrcMerge:
		return legacyDest(spec, rel, pc)
	default:
		for _, m := range mappings {
			if Matches(m.Pattern, rel) {
				return layout.Resolve(rel, m.Category, pc), true
			}
		}
		if isDoc(rel) {
			return path.Join("docs", spec.Name, rel), true
		}
		return "", false
	}
}

// legacyDest is the pre-mapping behavior kept for old component packages:
// src/ merges into the frontend source root with subfolders preserved and
// loose files collapsed into lib/, documentation takes the docs fallback,
// everything else is packaged intact.
func legacyDest(spec api.ComponentSpec, rel string, pc api.PathContext) (string, bool) {
	if inside, ok := strings.CutPrefix(rel, "src/"); ok {
		if strings.Contains(inside, "/") {
			return path.Join(pc.FrontendBase, inside), true
		}
		return path.Join(pc.FrontendBase, "lib", inside), true
	}
	if isDoc(rel) {
		return path.Join("docs", spec.Name, rel), true
	}
	return path.Join("packages", spec.Name, rel), true
}
