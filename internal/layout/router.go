package layout

import (
	"path"

	"github.com/agentic-research/loom/api"
)

// dest describes where one file category lands. Basename rules keep only
// the final path element and place it under the category subdirectory;
// subtree rules preserve the declared relative path under the base.
type dest struct {
	base    func(api.PathContext) string
	sub     string
	subtree bool
}

func frontendBase(pc api.PathContext) string  { return pc.FrontendBase }
func backendBase(pc api.PathContext) string   { return pc.BackendBase }
func contractsBase(pc api.PathContext) string { return pc.ContractsBase }
func docsBase(api.PathContext) string         { return docsBasePath }
func projectRoot(api.PathContext) string      { return "" }

var routes = map[api.FileCategory]dest{
	api.CategoryFrontendComponent: {base: frontendBase, sub: "components"},
	api.CategoryFrontendPage:      {base: frontendBase, sub: "app", subtree: true},
	api.CategoryFrontendHook:      {base: frontendBase, sub: "hooks"},
	api.CategoryFrontendLib:       {base: frontendBase, sub: "lib"},
	api.CategoryFrontendStyle:     {base: frontendBase, sub: "styles"},

	api.CategoryBackendRoute:      {base: backendBase, sub: "routes"},
	api.CategoryBackendService:    {base: backendBase, sub: "services"},
	api.CategoryBackendMiddleware: {base: backendBase, sub: "middleware"},

	api.CategoryContractSource: {base: contractsBase, subtree: true},
	api.CategoryContractABI:    {base: contractsBase, sub: "abi"},
	api.CategoryContractScript: {base: contractsBase, sub: "scripts"},

	api.CategoryDocs: {base: docsBase, subtree: true},
	api.CategoryRoot: {base: projectRoot},
}

// Resolve computes the destination path for a file declared at path p with
// the given category. Categories without a table entry pass through
// unchanged, keeping the plugin-declared path. Resolution is pure: the
// same inputs always produce the same destination.
func Resolve(p string, category api.FileCategory, pc api.PathContext) string {
	d, ok := routes[category]
	if !ok {
		return p
	}
	if d.subtree {
		return path.Join(d.base(pc), d.sub, p)
	}
	return path.Join(d.base(pc), d.sub, path.Base(p))
}
