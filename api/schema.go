package api

// Blueprint is the unit of execution: a user-authored graph of component
// nodes connected by dependency edges. It must be acyclic.
type Blueprint struct {
	// ID identifies the blueprint across runs.
	ID string `json:"id" yaml:"id" validate:"required"`
	// Name is the human project name; used for root manifest synthesis.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// Nodes are the components to assemble, in declaration order.
	Nodes []Node `json:"nodes" yaml:"nodes" validate:"dive"`
	// Edges are directed dependencies between nodes.
	Edges []Edge `json:"edges,omitempty" yaml:"edges,omitempty" validate:"dive"`
	// Config holds blueprint-level settings passed through to plugins.
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// Node is one buildable component. Type selects the plugin that generates
// its code. Immutable once scheduling begins.
type Node struct {
	ID     string         `json:"id" yaml:"id" validate:"required"`
	Type   string         `json:"type" yaml:"type" validate:"required"`
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// Edge is a directed dependency: Target conceptually depends on / comes
// after Source.
type Edge struct {
	Source string `json:"source" yaml:"source" validate:"required"`
	Target string `json:"target" yaml:"target" validate:"required"`
}

// PathContext describes the overall shape of the target project. It is
// derived once per run, before any plugin executes, and is read-only
// afterward; every routing decision in a run sees the same snapshot.
type PathContext struct {
	HasFrontend  bool `json:"has_frontend"`
	HasBackend   bool `json:"has_backend"`
	HasContracts bool `json:"has_contracts"`

	FrontendBase  string `json:"frontend_base"`
	BackendBase   string `json:"backend_base"`
	ContractsBase string `json:"contracts_base"`
}

// FileCategory is the routing tag attached to a generated file. The Output
// Router resolves it against PathContext; unknown categories pass through
// with the file's declared path unchanged.
type FileCategory string

const (
	CategoryNone FileCategory = ""

	CategoryFrontendComponent FileCategory = "frontend-component"
	CategoryFrontendPage      FileCategory = "frontend-page"
	CategoryFrontendHook      FileCategory = "frontend-hook"
	CategoryFrontendLib       FileCategory = "frontend-lib"
	CategoryFrontendStyle     FileCategory = "frontend-style"

	CategoryBackendRoute      FileCategory = "backend-route"
	CategoryBackendService    FileCategory = "backend-service"
	CategoryBackendMiddleware FileCategory = "backend-middleware"

	CategoryContractSource FileCategory = "contract-source"
	CategoryContractABI    FileCategory = "contract-abi"
	CategoryContractScript FileCategory = "contract-script"

	CategoryDocs FileCategory = "docs"
	CategoryRoot FileCategory = "root"
)

// GeneratedFile is one file emitted by a plugin. Path is relative and
// POSIX-style; when Category is set the final destination is computed by
// the Output Router, otherwise the file is written verbatim at Path.
type GeneratedFile struct {
	Path     string       `json:"path"`
	Content  []byte       `json:"content"`
	Category FileCategory `json:"category,omitempty"`
}

// PatchKind discriminates the patch-operation union.
type PatchKind string

const (
	PatchInsert  PatchKind = "insert"
	PatchReplace PatchKind = "replace"
	PatchDelete  PatchKind = "delete"
)

// InsertPosition says where an insert lands in the target file.
type InsertPosition string

const (
	InsertStart  InsertPosition = "start"
	InsertEnd    InsertPosition = "end"
	InsertAfter  InsertPosition = "after"
	InsertBefore InsertPosition = "before"
)

// PatchOperation is one textual mutation of a file already present in the
// assembly store. Operations fold left-to-right over the file's current
// content. A missing marker or search string makes the operation a no-op
// surfaced as a warning, never an error: patches are best-effort cosmetic
// insertions, not required transformations.
type PatchOperation struct {
	Kind PatchKind `json:"kind"`

	// Insert fields.
	Position InsertPosition `json:"position,omitempty"`
	Marker   string         `json:"marker,omitempty"`
	Content  string         `json:"content,omitempty"`

	// Replace/Delete fields.
	Search  string `json:"search,omitempty"`
	Replace string `json:"replace,omitempty"`
	All     bool   `json:"all,omitempty"`
}

// FilePatch groups the operations a plugin wants applied to one file.
type FilePatch struct {
	Path string           `json:"path"`
	Ops  []PatchOperation `json:"ops"`
}

// InsertStartOp prepends content (plus a newline) to the file.
func InsertStartOp(content string) PatchOperation {
	return PatchOperation{Kind: PatchInsert, Position: InsertStart, Content: content}
}

// InsertEndOp appends a newline plus content to the file.
func InsertEndOp(content string) PatchOperation {
	return PatchOperation{Kind: PatchInsert, Position: InsertEnd, Content: content}
}

// InsertAfterOp inserts content immediately after the first occurrence of
// marker.
func InsertAfterOp(marker, content string) PatchOperation {
	return PatchOperation{Kind: PatchInsert, Position: InsertAfter, Marker: marker, Content: content}
}

// InsertBeforeOp inserts content immediately before the first occurrence
// of marker.
func InsertBeforeOp(marker, content string) PatchOperation {
	return PatchOperation{Kind: PatchInsert, Position: InsertBefore, Marker: marker, Content: content}
}

// ReplaceOp substitutes search with replace; first occurrence only unless
// all is set.
func ReplaceOp(search, replace string, all bool) PatchOperation {
	return PatchOperation{Kind: PatchReplace, Search: search, Replace: replace, All: all}
}

// DeleteOp removes the first occurrence of search.
func DeleteOp(search string) PatchOperation {
	return PatchOperation{Kind: PatchDelete, Search: search}
}

// EnvVar is a run-level environment variable contributed by a plugin.
// Variables are deduplicated by Key across the run; the first writer wins.
type EnvVar struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// ScriptCommand is a package.json-style script contributed by a plugin.
// Scripts are deduplicated by Name across the run; the first writer wins.
type ScriptCommand struct {
	Name    string `json:"name"`
	Command string `json:"command"`
}

// CodegenOutput is everything one plugin invocation produces.
type CodegenOutput struct {
	Files   []GeneratedFile `json:"files,omitempty"`
	Patches []FilePatch     `json:"patches,omitempty"`
	EnvVars []EnvVar        `json:"env_vars,omitempty"`
	Scripts []ScriptCommand `json:"scripts,omitempty"`
	// Docs is optional markdown describing the generated component,
	// consumed by the documentation renderer.
	Docs string `json:"docs,omitempty"`
}

// PathMapping routes files of an imported component package: the first
// pattern that matches a file's package-relative path decides its
// category. Pattern grammar: `*` matches within one path segment, `**`
// crosses segments; patterns are anchored to the full relative path.
type PathMapping struct {
	Pattern  string       `json:"pattern"`
	Category FileCategory `json:"category"`
}

// ImportStrategy selects how a component package lands in the tree.
type ImportStrategy string

const (
	// ImportMapped routes each file through the package's PathMappings.
	ImportMapped ImportStrategy = "mapped"
	// ImportPackage copies the tree intact under packages/<name>.
	ImportPackage ImportStrategy = "package"
	// ImportLegacySrcMerge is the deprecated pre-mapping behavior: the
	// package's src/ merges into the frontend source root, loose files
	// collapse into lib/. Kept as an explicit opt-in strategy entry so
	// the importer stays data-driven.
	ImportLegacySrcMerge ImportStrategy = "legacy-src-merge"
)

// ComponentSpec describes a pre-built package directory a plugin wants
// imported into the assembled tree.
type ComponentSpec struct {
	// Dir is the package root on the real filesystem.
	Dir string `json:"dir"`
	// Name becomes the packages/<Name> subtree for the package strategy
	// and the docs/<Name> prefix for fallback documentation routing.
	Name string `json:"name"`
	// Mappings are consulted in order; first match wins.
	Mappings []PathMapping `json:"mappings,omitempty"`
	// Strategy defaults to ImportMapped when Mappings are present and
	// ImportPackage otherwise.
	Strategy ImportStrategy `json:"strategy,omitempty"`
}

// Warning records a recoverable issue (skipped patch, merge conflict,
// duplicate env key) attached to an otherwise successful run.
type Warning struct {
	Stage   string `json:"stage"`
	NodeID  string `json:"node_id,omitempty"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// FileInfo is one manifest entry.
type FileInfo struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Manifest summarizes the final assembled tree, sorted by path.
type Manifest struct {
	Files []FileInfo `json:"files"`
}

// RunStatus is the lifecycle state of one assembly run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// Result is the structured outcome of a completed run.
type Result struct {
	RunID    string          `json:"run_id"`
	Status   RunStatus       `json:"status"`
	Manifest Manifest        `json:"manifest"`
	EnvVars  []EnvVar        `json:"env_vars,omitempty"`
	Scripts  []ScriptCommand `json:"scripts,omitempty"`
	Warnings []Warning       `json:"warnings,omitempty"`
	// RepoURL is set when the run was asked to publish the tree.
	RepoURL string `json:"repo_url,omitempty"`
}
