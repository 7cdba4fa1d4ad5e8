package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/agentic-research/loom/internal/blueprint"
	"github.com/agentic-research/loom/internal/engine"
	"github.com/agentic-research/loom/internal/layout"
	"github.com/agentic-research/loom/internal/plugin"
	"github.com/agentic-research/loom/internal/schedule"
)

const mcpVersion = "0.1.0"

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve loom as an MCP stdio server for AI assistants",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger()
		reg := plugin.Default()
		e := engine.New(reg, engine.WithLogger(log))

		s := server.NewMCPServer(
			"loom",
			mcpVersion,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
			server.WithInstructions(
				"Loom assembles multi-file projects from blueprint graphs. "+
					"Use inspect_blueprint to check a blueprint's execution plan, "+
					"then assemble_blueprint to generate the project. "+
					"Available node types: "+strings.Join(reg.Types(), ", ")+"."),
		)

		s.AddTool(
			mcp.NewTool("inspect_blueprint",
				mcp.WithDescription("Validate a blueprint file and report its execution order, project shape and lint findings."),
				mcp.WithString("path", mcp.Required(), mcp.Description("Path to the blueprint file (.json, .yaml or .hcl)")),
			),
			func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				path, err := req.RequireString("path")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				return inspectTool(reg, path), nil
			},
		)

		s.AddTool(
			mcp.NewTool("assemble_blueprint",
				mcp.WithDescription("Assemble a blueprint into a project tree, optionally exporting it to a directory. Returns the file manifest and any warnings."),
				mcp.WithString("path", mcp.Required(), mcp.Description("Path to the blueprint file (.json, .yaml or .hcl)")),
				mcp.WithString("out", mcp.Description("Directory to export the assembled tree into")),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				path, err := req.RequireString("path")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				bp, err := blueprint.Load(path)
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				result, _, err := e.Run(ctx, bp, engine.Options{
					ExportDir: req.GetString("out", ""),
				})
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				payload, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				return mcp.NewToolResultText(string(payload)), nil
			},
		)

		return server.ServeStdio(s)
	},
}

func inspectTool(reg *plugin.Registry, path string) *mcp.CallToolResult {
	bp, err := blueprint.Load(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	if err := blueprint.Validate(bp); err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	ordered, err := schedule.Schedule(bp.Nodes, bp.Edges)
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	pc := layout.BuildContext(ordered)

	var b strings.Builder
	fmt.Fprintf(&b, "Blueprint %s: %d nodes, %d edges\n", bp.ID, len(bp.Nodes), len(bp.Edges))
	b.WriteString("Execution order:\n")
	for i, n := range ordered {
		fmt.Fprintf(&b, "  %d. %s (%s)\n", i+1, n.ID, n.Type)
	}
	fmt.Fprintf(&b, "Shape: frontend=%v backend=%v contracts=%v\n",
		pc.HasFrontend, pc.HasBackend, pc.HasContracts)
	for _, d := range blueprint.Lint(bp, reg.Has) {
		fmt.Fprintf(&b, "lint: %s\n", d)
	}
	return mcp.NewToolResultText(b.String())
}
