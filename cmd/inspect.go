package cmd

import (
	"github.com/spf13/cobra"

	"github.com/agentic-research/loom/internal/blueprint"
	"github.com/agentic-research/loom/internal/layout"
	"github.com/agentic-research/loom/internal/plugin"
	"github.com/agentic-research/loom/internal/schedule"
)

func init() {
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [blueprint]",
	Short: "Show the execution plan for a blueprint without assembling",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bp, err := blueprint.Load(args[0])
		if err != nil {
			return err
		}
		if err := blueprint.Validate(bp); err != nil {
			return err
		}

		ordered, err := schedule.Schedule(bp.Nodes, bp.Edges)
		if err != nil {
			return err
		}
		cmd.Printf("Blueprint %s: %d nodes, %d edges\n\n", bp.ID, len(bp.Nodes), len(bp.Edges))
		cmd.Println("Execution order:")
		for i, n := range ordered {
			cmd.Printf("  %d. %s (%s)\n", i+1, n.ID, n.Type)
		}

		pc := layout.BuildContext(ordered)
		cmd.Println("\nProject shape:")
		if pc.HasFrontend {
			cmd.Printf("  frontend  -> %s\n", pc.FrontendBase)
		}
		if pc.HasBackend {
			cmd.Printf("  backend   -> %s\n", pc.BackendBase)
		}
		if pc.HasContracts {
			cmd.Printf("  contracts -> %s\n", pc.ContractsBase)
		}
		if !pc.HasFrontend && !pc.HasBackend && !pc.HasContracts {
			cmd.Println("  (no recognized component categories)")
		}

		reg := plugin.Default()
		diags := blueprint.Lint(bp, reg.Has)
		if len(diags) > 0 {
			cmd.Println("\nLint:")
			for _, d := range diags {
				cmd.Printf("  %s\n", d)
			}
		}
		return nil
	},
}
