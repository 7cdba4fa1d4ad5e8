package plugin

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"unicode"
)

var tmplFuncs = template.FuncMap{
	"lower":  strings.ToLower,
	"upper":  strings.ToUpper,
	"pascal": pascalCase,
	"kebab":  kebabCase,
}

// pascalCase turns "demo token" or "demo-token" into "DemoToken", the
// form used for generated type and contract names.
func pascalCase(s string) string {
	var b strings.Builder
	upperNext := true
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upperNext = true
			continue
		}
		if upperNext {
			b.WriteRune(unicode.ToUpper(r))
			upperNext = false
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// kebabCase turns "Demo Token" into "demo-token", the form used for
// package and crate names.
func kebabCase(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			if b.Len() > 0 {
				pendingDash = true
			}
			continue
		}
		if pendingDash {
			b.WriteByte('-')
			pendingDash = false
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// snakeCase turns "Demo Token" into "demo_token", the form used for Rust
// crate identifiers.
func snakeCase(s string) string {
	return strings.ReplaceAll(kebabCase(s), "-", "_")
}

// render executes a code template against the node's typed config.
func render(name, text string, data any) (string, error) {
	t, err := template.New(name).Funcs(tmplFuncs).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}
