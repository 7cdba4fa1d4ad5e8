package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agentic-research/loom/api"
	"github.com/agentic-research/loom/internal/blueprint"
	"github.com/agentic-research/loom/internal/engine"
	"github.com/agentic-research/loom/internal/plugin"
	"github.com/agentic-research/loom/internal/publish"
	"github.com/agentic-research/loom/internal/runstore"
	"github.com/agentic-research/loom/internal/tree"
)

var (
	assembleOut     string
	assembleRunsDB  string
	assemblePublish string
	assembleDocs    bool
)

func init() {
	assembleCmd.Flags().StringVarP(&assembleOut, "out", "o", "", "Export the assembled tree to this directory")
	assembleCmd.Flags().StringVar(&assembleRunsDB, "runs-db", "", "SQLite runs database (default <config dir>/runs.db)")
	assembleCmd.Flags().StringVar(&assemblePublish, "publish", "", "Publish the tree as a git repository into this directory")
	assembleCmd.Flags().BoolVar(&assembleDocs, "docs", false, "Also render the documentation tree alongside the code")
	rootCmd.AddCommand(assembleCmd)
}

var assembleCmd = &cobra.Command{
	Use:   "assemble [blueprint]",
	Short: "Assemble a project from a blueprint file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger()

		bp, err := blueprint.Load(args[0])
		if err != nil {
			return err
		}

		runsDB := assembleRunsDB
		if runsDB == "" {
			dir, err := defaultConfigDir()
			if err != nil {
				return err
			}
			runsDB = filepath.Join(dir, "runs.db")
		}
		var runs runstore.Store
		if sqlStore, err := runstore.OpenSQLite(runsDB); err != nil {
			// Persistence is observability; keep assembling without it.
			log.Warn("runs database unavailable", "path", runsDB, "error", err)
			runs = runstore.Nop{}
		} else {
			runs = sqlStore
			defer func() { _ = sqlStore.Close() }()
		}

		e := engine.New(plugin.Default(),
			engine.WithRunStore(runs),
			engine.WithLogger(log),
		)

		opts := engine.Options{ExportDir: assembleOut}
		if assemblePublish != "" {
			opts.Publish = &publish.Config{Dir: assemblePublish}
		}

		if assembleDocs {
			dual, err := e.RunWithDocs(cmd.Context(), bp, opts)
			if err != nil {
				return err
			}
			printResult(cmd, dual.Code.Manifest, dual.Code.Warnings)
			if assembleOut != "" {
				docsDir := assembleOut + "-docs"
				if err := tree.Export(dual.DocsStore, docsDir); err != nil {
					return err
				}
				cmd.Printf("Documentation exported to %s\n", docsDir)
			}
			return nil
		}

		result, _, err := e.Run(cmd.Context(), bp, opts)
		if err != nil {
			return err
		}
		printResult(cmd, result.Manifest, result.Warnings)
		if result.RepoURL != "" {
			cmd.Printf("Published: %s\n", result.RepoURL)
		}
		return nil
	},
}

func printResult(cmd *cobra.Command, manifest api.Manifest, warnings []api.Warning) {
	var total int64
	for _, f := range manifest.Files {
		total += f.Size
	}
	cmd.Printf("Assembled %d files (%d bytes)\n", len(manifest.Files), total)
	for _, w := range warnings {
		if w.NodeID != "" {
			cmd.Printf("  warning [%s/%s] %s: %s\n", w.Stage, w.NodeID, w.Path, w.Message)
			continue
		}
		cmd.Printf("  warning [%s] %s: %s\n", w.Stage, w.Path, w.Message)
	}
}
