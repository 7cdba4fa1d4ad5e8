package api

import "context"

// FieldError pinpoints one invalid config field on a node.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult is the outcome of validating one node's config.
type ValidationResult struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors,omitempty"`
}

// Valid returns a passing result.
func Valid() ValidationResult {
	return ValidationResult{Valid: true}
}

// Invalid returns a failing result carrying the given field errors.
func Invalid(errs ...FieldError) ValidationResult {
	return ValidationResult{Valid: false, Errors: errs}
}

// ExecutionContext is the per-run state handed to every plugin call.
// NodeOutputs holds the outputs of every node that precedes the current
// one in the scheduled order, never outputs of nodes that come after.
type ExecutionContext struct {
	RunID     string
	Blueprint *Blueprint
	Path      PathContext
	// NodeOutputs maps node ID to that node's CodegenOutput. Plugins may
	// read upstream artifacts here (e.g. a frontend plugin reading a
	// contract plugin's ABI) but must treat entries as read-only.
	NodeOutputs map[string]*CodegenOutput
}

// Output returns a predecessor's output, or nil when the node has not run
// (or does not exist).
func (ec *ExecutionContext) Output(nodeID string) *CodegenOutput {
	if ec == nil {
		return nil
	}
	return ec.NodeOutputs[nodeID]
}

// Plugin generates the code for one node type. Implementations are black
// boxes behind this contract; the engine never inspects what they emit
// beyond routing, merging and patching it.
type Plugin interface {
	// Type is the node type string this plugin handles.
	Type() string
	// Validate checks a node's config before generation. A failing
	// result aborts the run with per-field detail.
	Validate(node Node, ec *ExecutionContext) ValidationResult
	// Generate produces the node's files, patches and side-channel data.
	// It may block on external work; the context carries cancellation.
	Generate(ctx context.Context, node Node, ec *ExecutionContext) (*CodegenOutput, error)
}

// ComponentProvider is implemented by plugins that bundle a pre-built
// component package to be imported alongside their generated output.
type ComponentProvider interface {
	// Component describes the package to import, or nil for none this
	// invocation.
	Component(node Node) *ComponentSpec
}
