// Package patch applies positional text operations and content merges to
// files already present in the assembly store. Nothing in this package
// aborts a run: a missed marker or an unmergeable conflict degrades to a
// warning on the run result.
package patch

import (
	"fmt"
	"strings"

	"github.com/agentic-research/loom/api"
	"github.com/agentic-research/loom/internal/tree"
)

// ApplyOps folds ops left-to-right over content. Operations whose marker
// or search text is absent leave the content unchanged and contribute a
// miss message.
func ApplyOps(content string, ops []api.PatchOperation) (string, []string) {
	var misses []string
	for _, op := range ops {
		next, miss := applyOp(content, op)
		if miss != "" {
			misses = append(misses, miss)
		}
		content = next
	}
	return content, misses
}

func applyOp(content string, op api.PatchOperation) (string, string) {
	switch op.Kind {
	case api.PatchInsert:
		return applyInsert(content, op)
	case api.PatchReplace:
		return applyReplace(content, op.Search, op.Replace, op.All)
	case api.PatchDelete:
		return applyReplace(content, op.Search, "", false)
	default:
		return content, fmt.Sprintf("unknown patch kind %q", op.Kind)
	}
}

func applyInsert(content string, op api.PatchOperation) (string, string) {
	switch op.Position {
	case api.InsertStart:
		return op.Content + "\n" + content, ""
	case api.InsertEnd:
		return content + "\n" + op.Content, ""
	case api.InsertAfter, api.InsertBefore:
		if op.Marker == "" {
			return content, "insert with empty marker"
		}
		i := strings.Index(content, op.Marker)
		if i < 0 {
			return content, fmt.Sprintf("marker %q not found", op.Marker)
		}
		if op.Position == api.InsertAfter {
			i += len(op.Marker)
		}
		return content[:i] + op.Content + content[i:], ""
	default:
		return content, fmt.Sprintf("unknown insert position %q", op.Position)
	}
}

func applyReplace(content, search, replace string, all bool) (string, string) {
	if search == "" {
		return content, "replace with empty search"
	}
	if !strings.Contains(content, search) {
		return content, fmt.Sprintf("search text %q not found", search)
	}
	if all {
		return strings.ReplaceAll(content, search, replace), ""
	}
	return strings.Replace(content, search, replace, 1), ""
}

// Apply runs one file patch against the store. A missing target skips the
// whole patch with a warning; misses inside an existing file surface as
// warnings while the remaining operations still apply.
func Apply(store tree.Tree, fp api.FilePatch) []api.Warning {
	if !store.Exists(fp.Path) {
		return []api.Warning{{
			Stage:   "patch",
			Path:    fp.Path,
			Message: "target file does not exist, patch skipped",
		}}
	}
	content, err := store.ReadFile(fp.Path)
	if err != nil {
		return []api.Warning{{Stage: "patch", Path: fp.Path, Message: err.Error()}}
	}
	next, misses := ApplyOps(string(content), fp.Ops)
	var warnings []api.Warning
	for _, m := range misses {
		warnings = append(warnings, api.Warning{Stage: "patch", Path: fp.Path, Message: m})
	}
	if next == string(content) {
		return warnings
	}
	if err := store.WriteFile(fp.Path, []byte(next)); err != nil {
		warnings = append(warnings, api.Warning{Stage: "patch", Path: fp.Path, Message: err.Error()})
	}
	return warnings
}
