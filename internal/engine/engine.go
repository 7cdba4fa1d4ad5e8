// Package engine drives one blueprint run end to end: scheduling, path
// context, per-node plugin execution, routing, merging, patching,
// component import, root-file synthesis and export.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/agentic-research/loom/api"
	"github.com/agentic-research/loom/internal/blueprint"
	"github.com/agentic-research/loom/internal/docs"
	"github.com/agentic-research/loom/internal/importer"
	"github.com/agentic-research/loom/internal/layout"
	"github.com/agentic-research/loom/internal/patch"
	"github.com/agentic-research/loom/internal/plugin"
	"github.com/agentic-research/loom/internal/publish"
	"github.com/agentic-research/loom/internal/runstore"
	"github.com/agentic-research/loom/internal/schedule"
	"github.com/agentic-research/loom/internal/tree"
)

// Engine coordinates runs. All collaborators are injected; the registry
// is an explicit value shared read-only across runs.
type Engine struct {
	registry  *plugin.Registry
	runs      runstore.Store
	publisher publish.Publisher
	log       *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRunStore sets the persistence collaborator. Defaults to a no-op.
func WithRunStore(s runstore.Store) Option {
	return func(e *Engine) { e.runs = s }
}

// WithPublisher sets the repository publisher used when a run asks to
// publish. Defaults to the local git publisher.
func WithPublisher(p publish.Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New builds an engine around the given plugin registry.
func New(registry *plugin.Registry, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		runs:     runstore.Nop{},
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.publisher == nil {
		e.publisher = publish.NewGit(e.log)
	}
	return e
}

// Options configures one run.
type Options struct {
	// ExportDir, when set, receives the assembled tree after a
	// successful run.
	ExportDir string
	// Publish, when set, pushes the assembled tree into a git
	// repository after a successful run.
	Publish *publish.Config
}

// Run executes the blueprint and returns the structured result together
// with the assembled tree. A fatal error (cycle, missing plugin, config
// validation, collaborator failure) aborts the run; the returned result
// always carries the final status. The store returned on failure holds
// whatever was assembled before the abort and is safe to inspect.
func (e *Engine) Run(ctx context.Context, bp *api.Blueprint, opts Options) (*api.Result, *tree.Store, error) {
	runID := uuid.NewString()
	log := e.log.With("run", runID, "blueprint", bp.ID)
	result := &api.Result{RunID: runID, Status: api.RunPending}

	e.persist(runID, func() error { return e.runs.Start(runID, bp.ID) })
	result.Status = api.RunRunning

	fail := func(err error) (*api.Result, *tree.Store, error) {
		result.Status = api.RunFailed
		log.Error("run failed", "error", err)
		e.persist(runID, func() error { return e.runs.Fail(runID, err.Error()) })
		return result, nil, err
	}

	if err := blueprint.Validate(bp); err != nil {
		return fail(err)
	}
	ordered, err := schedule.Schedule(bp.Nodes, bp.Edges)
	if err != nil {
		return fail(err)
	}

	// Path context is derived exactly once, before any plugin runs;
	// every routing decision in this run sees the same snapshot.
	pc := layout.BuildContext(ordered)
	log.Info("run scheduled", "nodes", len(ordered),
		"frontend", pc.HasFrontend, "backend", pc.HasBackend, "contracts", pc.HasContracts)

	store := tree.NewMemory()
	ec := &api.ExecutionContext{
		RunID:       runID,
		Blueprint:   bp,
		Path:        pc,
		NodeOutputs: make(map[string]*api.CodegenOutput, len(ordered)),
	}
	acc := newAccumulator()

	for _, node := range ordered {
		if err := ctx.Err(); err != nil {
			result.Status = api.RunCancelled
			log.Warn("run cancelled", "node", node.ID)
			e.persist(runID, func() error { return e.runs.Cancel(runID) })
			return result, store, err
		}

		if err := e.executeNode(ctx, node, ec, store, acc, result, log); err != nil {
			result.Status = api.RunFailed
			e.persist(runID, func() error { return e.runs.Fail(runID, err.Error()) })
			return result, store, err
		}
	}

	rootWarnings, err := synthesizeRoot(store, bp, pc, acc.envVars(), acc.scripts())
	if err != nil {
		result.Status = api.RunFailed
		e.persist(runID, func() error { return e.runs.Fail(runID, err.Error()) })
		return result, store, err
	}
	result.Warnings = append(result.Warnings, rootWarnings...)

	manifest, err := tree.Manifest(store)
	if err != nil {
		result.Status = api.RunFailed
		e.persist(runID, func() error { return e.runs.Fail(runID, err.Error()) })
		return result, store, err
	}
	result.Manifest = manifest
	result.EnvVars = acc.envVars()
	result.Scripts = acc.scripts()
	for _, f := range manifest.Files {
		e.persist(runID, func() error {
			return e.runs.AddArtifact(runID, runstore.Artifact{Path: f.Path, Size: f.Size})
		})
	}

	if opts.ExportDir != "" {
		if err := tree.Export(store, opts.ExportDir); err != nil {
			result.Status = api.RunFailed
			e.persist(runID, func() error { return e.runs.Fail(runID, err.Error()) })
			return result, store, err
		}
		log.Info("exported", "dir", opts.ExportDir, "files", len(manifest.Files))
	}

	if opts.Publish != nil {
		url, err := e.publisher.Create(ctx, *opts.Publish, store)
		if err != nil {
			// The store itself is intact; export can be retried.
			result.Status = api.RunFailed
			e.persist(runID, func() error { return e.runs.Fail(runID, err.Error()) })
			return result, store, fmt.Errorf("publish: %w", err)
		}
		result.RepoURL = url
	}

	result.Status = api.RunCompleted
	log.Info("run completed", "files", len(manifest.Files), "warnings", len(result.Warnings))
	e.persist(runID, func() error { return e.runs.Complete(runID) })
	return result, store, nil
}

// executeNode runs one node through the full per-node pipeline:
// validate, generate, route, write, import, patch, accumulate.
func (e *Engine) executeNode(
	ctx context.Context,
	node api.Node,
	ec *api.ExecutionContext,
	store *tree.Store,
	acc *accumulator,
	result *api.Result,
	log *slog.Logger,
) error {
	nlog := log.With("node", node.ID, "type", node.Type)

	plug, ok := e.registry.Get(node.Type)
	if !ok {
		return fmt.Errorf("node %q: no plugin registered for type %q", node.ID, node.Type)
	}

	if vr := plug.Validate(node, ec); !vr.Valid {
		details := make([]string, 0, len(vr.Errors))
		for _, fe := range vr.Errors {
			details = append(details, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
		}
		return fmt.Errorf("node %q (%s): invalid config: %s", node.ID, node.Type, strings.Join(details, "; "))
	}

	out, err := plug.Generate(ctx, node, ec)
	if err != nil {
		return fmt.Errorf("node %q (%s): generate: %w", node.ID, node.Type, err)
	}
	nlog.Info("generated", "files", len(out.Files), "patches", len(out.Patches))
	e.logRun(ec.RunID, "info", fmt.Sprintf("node %s generated %d files", node.ID, len(out.Files)))

	for _, f := range out.Files {
		dest := layout.Resolve(f.Path, f.Category, ec.Path)
		warnings, err := patch.MergeInto(store, dest, f.Content)
		if err != nil {
			return fmt.Errorf("node %q: write %s: %w", node.ID, dest, err)
		}
		result.Warnings = append(result.Warnings, tagNode(warnings, node.ID)...)
	}

	if provider, ok := plug.(api.ComponentProvider); ok {
		if spec := provider.Component(node); spec != nil {
			warnings, err := importer.Import(store, *spec, ec.Path)
			if err != nil {
				return fmt.Errorf("node %q: import component %s: %w", node.ID, spec.Name, err)
			}
			nlog.Info("imported component", "package", spec.Name)
			result.Warnings = append(result.Warnings, tagNode(warnings, node.ID)...)
		}
	}

	for _, fp := range out.Patches {
		warnings := patch.Apply(store, fp)
		for _, w := range warnings {
			nlog.Warn("patch warning", "path", w.Path, "message", w.Message)
		}
		result.Warnings = append(result.Warnings, tagNode(warnings, node.ID)...)
	}

	result.Warnings = append(result.Warnings, acc.add(node.ID, out)...)

	// Only now does the node become visible to its successors.
	ec.NodeOutputs[node.ID] = out
	return nil
}

// RunWithDocs dispatches the code run and the documentation run
// concurrently. Each owns its run ID and its store; results are merged
// only after both complete.
func (e *Engine) RunWithDocs(ctx context.Context, bp *api.Blueprint, opts Options) (*DualResult, error) {
	var dual DualResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result, store, err := e.Run(gctx, bp, opts)
		dual.Code, dual.CodeStore = result, store
		return err
	})
	g.Go(func() error {
		result, store, err := e.runDocs(gctx, bp)
		dual.Docs, dual.DocsStore = result, store
		return err
	})
	if err := g.Wait(); err != nil {
		return &dual, err
	}
	return &dual, nil
}

// DualResult pairs the outcomes of a concurrent code + docs dispatch.
type DualResult struct {
	Code      *api.Result
	Docs      *api.Result
	CodeStore *tree.Store
	DocsStore *tree.Store
}

// runDocs executes the plugins against a documentation-only consumer:
// outputs are collected and rendered as a skills tree instead of being
// routed into a project tree.
func (e *Engine) runDocs(ctx context.Context, bp *api.Blueprint) (*api.Result, *tree.Store, error) {
	runID := uuid.NewString()
	log := e.log.With("run", runID, "blueprint", bp.ID, "mode", "docs")
	result := &api.Result{RunID: runID, Status: api.RunRunning}
	e.persist(runID, func() error { return e.runs.Start(runID, bp.ID) })

	fail := func(err error) (*api.Result, *tree.Store, error) {
		result.Status = api.RunFailed
		log.Error("docs run failed", "error", err)
		e.persist(runID, func() error { return e.runs.Fail(runID, err.Error()) })
		return result, nil, err
	}

	if err := blueprint.Validate(bp); err != nil {
		return fail(err)
	}
	ordered, err := schedule.Schedule(bp.Nodes, bp.Edges)
	if err != nil {
		return fail(err)
	}
	pc := layout.BuildContext(ordered)
	ec := &api.ExecutionContext{
		RunID:       runID,
		Blueprint:   bp,
		Path:        pc,
		NodeOutputs: make(map[string]*api.CodegenOutput, len(ordered)),
	}

	for _, node := range ordered {
		if err := ctx.Err(); err != nil {
			result.Status = api.RunCancelled
			e.persist(runID, func() error { return e.runs.Cancel(runID) })
			return result, nil, err
		}
		plug, ok := e.registry.Get(node.Type)
		if !ok {
			return fail(fmt.Errorf("node %q: no plugin registered for type %q", node.ID, node.Type))
		}
		if vr := plug.Validate(node, ec); !vr.Valid {
			return fail(fmt.Errorf("node %q (%s): invalid config", node.ID, node.Type))
		}
		out, err := plug.Generate(ctx, node, ec)
		if err != nil {
			return fail(fmt.Errorf("node %q (%s): generate: %w", node.ID, node.Type, err))
		}
		ec.NodeOutputs[node.ID] = out
	}

	store, err := docs.Render(bp, ordered, ec.NodeOutputs)
	if err != nil {
		return fail(err)
	}
	manifest, err := tree.Manifest(store)
	if err != nil {
		return fail(err)
	}
	result.Manifest = manifest
	result.Status = api.RunCompleted
	log.Info("docs run completed", "files", len(manifest.Files))
	e.persist(runID, func() error { return e.runs.Complete(runID) })
	return result, store, nil
}

// persist degrades run-store failures to log lines: observability must
// never abort an assembly.
func (e *Engine) persist(runID string, fn func() error) {
	if err := fn(); err != nil {
		e.log.Warn("run store write failed", "run", runID, "error", err)
	}
}

func (e *Engine) logRun(runID, level, message string) {
	e.persist(runID, func() error {
		return e.runs.AddLog(runID, runstore.LogEntry{Level: level, Message: message})
	})
}

func tagNode(warnings []api.Warning, nodeID string) []api.Warning {
	for i := range warnings {
		if warnings[i].NodeID == "" {
			warnings[i].NodeID = nodeID
		}
	}
	return warnings
}

// accumulator collects run-level env vars and scripts, deduplicated by
// key. The first writer wins; a later conflicting value is a warning.
type accumulator struct {
	env        map[string]api.EnvVar
	envOrder   []string
	script     map[string]api.ScriptCommand
	scriptOrds []string
}

func newAccumulator() *accumulator {
	return &accumulator{
		env:    make(map[string]api.EnvVar),
		script: make(map[string]api.ScriptCommand),
	}
}

func (a *accumulator) add(nodeID string, out *api.CodegenOutput) []api.Warning {
	var warnings []api.Warning
	for _, ev := range out.EnvVars {
		cur, ok := a.env[ev.Key]
		if !ok {
			a.env[ev.Key] = ev
			a.envOrder = append(a.envOrder, ev.Key)
			continue
		}
		if cur.Value != ev.Value {
			warnings = append(warnings, api.Warning{
				Stage:   "env",
				NodeID:  nodeID,
				Message: fmt.Sprintf("env var %s redefined with a different value, keeping first", ev.Key),
			})
		}
	}
	for _, sc := range out.Scripts {
		cur, ok := a.script[sc.Name]
		if !ok {
			a.script[sc.Name] = sc
			a.scriptOrds = append(a.scriptOrds, sc.Name)
			continue
		}
		if cur.Command != sc.Command {
			warnings = append(warnings, api.Warning{
				Stage:   "scripts",
				NodeID:  nodeID,
				Message: fmt.Sprintf("script %s redefined with a different command, keeping first", sc.Name),
			})
		}
	}
	return warnings
}

func (a *accumulator) envVars() []api.EnvVar {
	out := make([]api.EnvVar, 0, len(a.envOrder))
	for _, k := range a.envOrder {
		out = append(out, a.env[k])
	}
	return out
}

func (a *accumulator) scripts() []api.ScriptCommand {
	out := make([]api.ScriptCommand, 0, len(a.scriptOrds))
	for _, n := range a.scriptOrds {
		out = append(out, a.script[n])
	}
	return out
}
