// Package layout derives the target project's shape from the node set and
// routes categorized files to their destination paths inside it.
package layout

import (
	"github.com/agentic-research/loom/api"
)

// Base directories are fixed conventions. They do not depend on how many
// nodes of a kind the blueprint contains, only on whether routing later
// needs them.
const (
	frontendBasePath  = "apps/web/src"
	backendBasePath   = "apps/api/src"
	contractsBasePath = "contracts"
	docsBasePath      = "docs"
)

// Node types that mark the project as having each side. A type appears in
// at most one set.
var (
	frontendTypes = map[string]bool{
		"scaffold": true,
		"wallet":   true,
		"frontend": true,
	}
	backendTypes = map[string]bool{
		"api":     true,
		"backend": true,
	}
	contractTypes = map[string]bool{
		"erc20":    true,
		"erc721":   true,
		"contract": true,
	}
)

// BuildContext classifies the node types in a single pass and returns the
// path context for the run. It is computed once, before any plugin
// executes, and shared read-only across all node executions.
func BuildContext(nodes []api.Node) api.PathContext {
	pc := api.PathContext{
		FrontendBase:  frontendBasePath,
		BackendBase:   backendBasePath,
		ContractsBase: contractsBasePath,
	}
	for _, n := range nodes {
		switch {
		case frontendTypes[n.Type]:
			pc.HasFrontend = true
		case backendTypes[n.Type]:
			pc.HasBackend = true
		case contractTypes[n.Type]:
			pc.HasContracts = true
		}
	}
	return pc
}
