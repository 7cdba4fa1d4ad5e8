package importer

import (
	"bytes"
	"strings"

	"mvdan.cc/gofumpt/format"
)

// normalize cleans file content on its way into the store. Go sources run
// through gofumpt; other text files get a trailing newline. Binary
// content passes through untouched. The returned note is non-empty when
// normalization was wanted but not possible.
func normalize(rel string, content []byte) ([]byte, string) {
	if strings.HasSuffix(rel, ".go") {
		out, err := format.Source(content, format.Options{})
		if err != nil {
			// Normalization is cosmetic, never fatal.
			return content, "imported Go source does not parse, copied as-is"
		}
		return out, ""
	}
	if len(content) == 0 || bytes.IndexByte(content, 0) >= 0 {
		return content, ""
	}
	if content[len(content)-1] != '\n' {
		content = append(content, '\n')
	}
	return content, ""
}
