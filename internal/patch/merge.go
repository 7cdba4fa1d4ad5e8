package patch

import (
	"bytes"
	"fmt"
	"path"
	"reflect"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/ohler55/ojg/oj"
	"gopkg.in/yaml.v3"

	"github.com/agentic-research/loom/api"
	"github.com/agentic-research/loom/internal/tree"
)

// Filenames merged by line union rather than structural parsing.
var ignoreFiles = map[string]bool{
	".gitignore":      true,
	".dockerignore":   true,
	".npmignore":      true,
	".prettierignore": true,
}

func isEnvFile(base string) bool {
	return base == ".env" || strings.HasPrefix(base, ".env.")
}

// Mergeable reports whether two files at p can be combined instead of
// conflicting. The policy is filename-based: structured manifests and
// config files merge, source code does not.
func Mergeable(p string) bool {
	base := path.Base(p)
	if isEnvFile(base) || ignoreFiles[base] {
		return true
	}
	switch strings.ToLower(path.Ext(base)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// Merge combines existing and incoming content for the file at p. When
// the filename policy has no merge rule, or the content defeats the rule,
// the existing bytes are returned unchanged with a warning: data loss
// must be visible, never silent.
func Merge(p string, existing, incoming []byte) (merged []byte, warnings []api.Warning, mergeable bool) {
	if bytes.Equal(existing, incoming) {
		return existing, nil, true
	}
	base := path.Base(p)
	switch {
	case isEnvFile(base):
		return mergeEnv(p, existing, incoming)
	case ignoreFiles[base]:
		return mergeLines(existing, incoming)
	}
	switch strings.ToLower(path.Ext(base)) {
	case ".json":
		return mergeJSON(p, existing, incoming)
	case ".yaml", ".yml":
		return mergeYAML(p, existing, incoming)
	}
	return existing, []api.Warning{mergeWarn(p, "conflicting content, existing file kept")}, false
}

// MergeInto writes incoming at p, merging when the path already holds
// content from an earlier source. The returned error covers store
// failures only; merge conflicts come back as warnings.
func MergeInto(store tree.Tree, p string, incoming []byte) ([]api.Warning, error) {
	if !store.Exists(p) {
		return nil, store.WriteFile(p, incoming)
	}
	existing, err := store.ReadFile(p)
	if err != nil {
		return nil, err
	}
	merged, warnings, _ := Merge(p, existing, incoming)
	if !bytes.Equal(merged, existing) {
		if err := store.WriteFile(p, merged); err != nil {
			return warnings, err
		}
	}
	return warnings, nil
}

func mergeWarn(p, msg string) api.Warning {
	return api.Warning{Stage: "merge", Path: p, Message: msg}
}

// --- JSON ---

func mergeJSON(p string, existing, incoming []byte) ([]byte, []api.Warning, bool) {
	ev, err := oj.Parse(existing)
	if err != nil {
		return existing, []api.Warning{mergeWarn(p, "existing content is not valid JSON, kept as-is")}, false
	}
	iv, err := oj.Parse(incoming)
	if err != nil {
		return existing, []api.Warning{mergeWarn(p, "incoming content is not valid JSON, existing kept")}, false
	}
	var conflicts []string
	merged := mergeValue("", ev, iv, &conflicts)
	sort.Strings(conflicts)
	warnings := make([]api.Warning, 0, len(conflicts))
	for _, key := range conflicts {
		warnings = append(warnings, mergeWarn(p, fmt.Sprintf("conflicting JSON value at %s, existing kept", key)))
	}
	out := oj.JSON(merged, &oj.Options{Sort: true, Indent: 2}) + "\n"
	return []byte(out), warnings, true
}

// mergeValue unions two parsed JSON values. Objects union recursively,
// arrays union with duplicate suppression, and on any other disagreement
// the existing value wins and the key path is recorded.
func mergeValue(prefix string, existing, incoming any, conflicts *[]string) any {
	switch ev := existing.(type) {
	case map[string]any:
		iv, ok := incoming.(map[string]any)
		if !ok {
			*conflicts = append(*conflicts, keyPath(prefix))
			return existing
		}
		out := make(map[string]any, len(ev)+len(iv))
		for k, v := range ev {
			out[k] = v
		}
		for k, v := range iv {
			if cur, dup := out[k]; dup {
				out[k] = mergeValue(childKey(prefix, k), cur, v, conflicts)
			} else {
				out[k] = v
			}
		}
		return out
	case []any:
		iv, ok := incoming.([]any)
		if !ok {
			*conflicts = append(*conflicts, keyPath(prefix))
			return existing
		}
		return unionArray(ev, iv)
	default:
		if oj.JSON(existing) != oj.JSON(incoming) {
			*conflicts = append(*conflicts, keyPath(prefix))
		}
		return existing
	}
}

func unionArray(a, b []any) []any {
	seen := make(map[string]bool, len(a))
	out := make([]any, 0, len(a)+len(b))
	for _, v := range a {
		seen[oj.JSON(v)] = true
		out = append(out, v)
	}
	for _, v := range b {
		key := oj.JSON(v)
		if !seen[key] {
			seen[key] = true
			out = append(out, v)
		}
	}
	return out
}

func childKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func keyPath(prefix string) string {
	if prefix == "" {
		return "(document)"
	}
	return prefix
}

// --- dotenv ---

func mergeEnv(p string, existing, incoming []byte) ([]byte, []api.Warning, bool) {
	em, err := godotenv.Unmarshal(string(existing))
	if err != nil {
		return existing, []api.Warning{mergeWarn(p, "existing content is not parseable dotenv, kept as-is")}, false
	}
	im, err := godotenv.Unmarshal(string(incoming))
	if err != nil {
		return existing, []api.Warning{mergeWarn(p, "incoming content is not parseable dotenv, existing kept")}, false
	}
	keys := make([]string, 0, len(im))
	for k := range im {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var warnings []api.Warning
	for _, k := range keys {
		if cur, ok := em[k]; ok {
			if cur != im[k] {
				warnings = append(warnings, mergeWarn(p, fmt.Sprintf("conflicting value for %s, existing kept", k)))
			}
			continue
		}
		em[k] = im[k]
	}
	out, err := godotenv.Marshal(em)
	if err != nil {
		return existing, []api.Warning{mergeWarn(p, "dotenv serialization failed, existing kept")}, false
	}
	return []byte(out + "\n"), warnings, true
}

// --- ignore files ---

func mergeLines(existing, incoming []byte) ([]byte, []api.Warning, bool) {
	out := splitLines(existing)
	have := make(map[string]bool, len(out))
	for _, ln := range out {
		have[strings.TrimSpace(ln)] = true
	}
	for _, ln := range splitLines(incoming) {
		t := strings.TrimSpace(ln)
		if t == "" || have[t] {
			continue
		}
		have[t] = true
		out = append(out, ln)
	}
	return []byte(strings.Join(out, "\n") + "\n"), nil, true
}

func splitLines(b []byte) []string {
	s := strings.TrimRight(string(b), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// --- YAML ---

func mergeYAML(p string, existing, incoming []byte) ([]byte, []api.Warning, bool) {
	var em, im map[string]any
	if err := yaml.Unmarshal(existing, &em); err != nil {
		return existing, []api.Warning{mergeWarn(p, "existing content is not a YAML mapping, kept as-is")}, false
	}
	if err := yaml.Unmarshal(incoming, &im); err != nil {
		return existing, []api.Warning{mergeWarn(p, "incoming content is not a YAML mapping, existing kept")}, false
	}
	if em == nil {
		em = map[string]any{}
	}
	keys := make([]string, 0, len(im))
	for k := range im {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var warnings []api.Warning
	for _, k := range keys {
		if cur, ok := em[k]; ok {
			if !reflect.DeepEqual(cur, im[k]) {
				warnings = append(warnings, mergeWarn(p, fmt.Sprintf("conflicting value for %s, existing kept", k)))
			}
			continue
		}
		em[k] = im[k]
	}
	out, err := yaml.Marshal(em)
	if err != nil {
		return existing, []api.Warning{mergeWarn(p, "yaml serialization failed, existing kept")}, false
	}
	return out, warnings, true
}
