// Command blueprint-fuzz generates randomized blueprint JSON files for
// exercising the loader, scheduler and engine. Each generated blueprint
// is structurally valid JSON but may carry cycles, unknown node types,
// duplicate edges or hostile config values, so the consumer is expected
// to reject a share of the corpus cleanly.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
)

var nodeTypes = []string{
	"erc20", "erc721", "scaffold", "wallet", "api",
	// Unknown types keep the registry lookup path honest.
	"teleporter", "",
}

var configKeys = []string{"name", "symbol", "port", "chain_id", "provider", "max_supply"}

var configValues = []any{
	"Demo", "DEMO", "", "injected", "../escape", "a/b/../../c",
	0, -1, 4000, 1e9, true, nil,
	map[string]any{"nested": []any{1, "two"}},
}

func main() {
	count := flag.Int("count", 20, "Number of blueprints to generate")
	outDir := flag.String("out", "corpus", "Output directory")
	seed := flag.Int64("seed", 1, "RNG seed for reproducible corpora")
	maxNodes := flag.Int("max-nodes", 8, "Maximum nodes per blueprint")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fatal(err)
	}

	for i := 0; i < *count; i++ {
		bp := generate(rng, *maxNodes, i)
		raw, err := json.MarshalIndent(bp, "", "  ")
		if err != nil {
			fatal(err)
		}
		path := filepath.Join(*outDir, fmt.Sprintf("bp-%03d.json", i))
		if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
			fatal(err)
		}
	}
	fmt.Printf("wrote %d blueprints to %s (seed %d)\n", *count, *outDir, *seed)
}

func generate(rng *rand.Rand, maxNodes, idx int) map[string]any {
	n := 1 + rng.Intn(maxNodes)
	nodes := make([]map[string]any, 0, n)
	ids := make([]string, 0, n)
	for j := 0; j < n; j++ {
		id := fmt.Sprintf("n%d", j)
		// Occasional duplicate IDs probe validation.
		if j > 0 && rng.Intn(10) == 0 {
			id = ids[rng.Intn(len(ids))]
		}
		ids = append(ids, id)
		nodes = append(nodes, map[string]any{
			"id":     id,
			"type":   nodeTypes[rng.Intn(len(nodeTypes))],
			"config": randomConfig(rng),
		})
	}

	var edges []map[string]any
	for j := 0; j < rng.Intn(2*n); j++ {
		edges = append(edges, map[string]any{
			"source": ids[rng.Intn(len(ids))],
			"target": ids[rng.Intn(len(ids))],
		})
	}
	// Sometimes point an edge at a node that does not exist.
	if rng.Intn(5) == 0 {
		edges = append(edges, map[string]any{"source": ids[0], "target": "ghost"})
	}

	return map[string]any{
		"id":    fmt.Sprintf("fuzz-%03d", idx),
		"name":  fmt.Sprintf("Fuzz Blueprint %d", idx),
		"nodes": nodes,
		"edges": edges,
	}
}

func randomConfig(rng *rand.Rand) map[string]any {
	cfg := make(map[string]any)
	for j := 0; j < rng.Intn(len(configKeys)); j++ {
		cfg[configKeys[rng.Intn(len(configKeys))]] = configValues[rng.Intn(len(configValues))]
	}
	return cfg
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
