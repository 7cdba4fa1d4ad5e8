// Package plugin bundles the reference plugins shipped with the engine
// and the registry that serves them to the pipeline coordinator.
package plugin

import (
	"sort"

	"github.com/agentic-research/loom/api"
)

// Registry maps node types to plugins. It is constructed once at process
// start and handed to the coordinator; nothing in this package keeps
// mutable global state.
type Registry struct {
	plugins map[string]api.Plugin
}

// NewRegistry builds a registry from the given plugins. A later plugin
// with the same type replaces an earlier one.
func NewRegistry(plugins ...api.Plugin) *Registry {
	r := &Registry{plugins: make(map[string]api.Plugin, len(plugins))}
	for _, p := range plugins {
		r.plugins[p.Type()] = p
	}
	return r
}

// Default returns a registry holding every built-in plugin.
func Default() *Registry {
	return NewRegistry(
		NewERC20(),
		NewERC721(),
		NewScaffold(),
		NewWallet(),
		NewAPI(),
	)
}

// Get returns the plugin serving the given node type.
func (r *Registry) Get(nodeType string) (api.Plugin, bool) {
	p, ok := r.plugins[nodeType]
	return p, ok
}

// Has reports whether a plugin is registered for the node type.
func (r *Registry) Has(nodeType string) bool {
	_, ok := r.plugins[nodeType]
	return ok
}

// Types returns the registered node types, sorted.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.plugins))
	for t := range r.plugins {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
