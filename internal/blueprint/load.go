// Package blueprint loads, validates and lints blueprint definitions
// before they reach the scheduler.
package blueprint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/agentic-research/loom/api"
)

// Load reads a blueprint definition, picking the format from the file
// extension: .json, .yaml/.yml or .hcl.
func Load(path string) (*api.Blueprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read blueprint: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".hcl":
		return ParseHCL(filepath.Base(path), data)
	default:
		return nil, fmt.Errorf("unsupported blueprint format %q", filepath.Ext(path))
	}
}

// ParseJSON decodes a JSON blueprint document.
func ParseJSON(data []byte) (*api.Blueprint, error) {
	var bp api.Blueprint
	if err := json.Unmarshal(data, &bp); err != nil {
		return nil, fmt.Errorf("parse blueprint json: %w", err)
	}
	return &bp, nil
}

// ParseYAML decodes a YAML blueprint document.
func ParseYAML(data []byte) (*api.Blueprint, error) {
	var bp api.Blueprint
	if err := yaml.Unmarshal(data, &bp); err != nil {
		return nil, fmt.Errorf("parse blueprint yaml: %w", err)
	}
	return &bp, nil
}
