package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agentic-research/loom/internal/blueprint"
	"github.com/agentic-research/loom/internal/engine"
	"github.com/agentic-research/loom/internal/plugin"
	"github.com/agentic-research/loom/internal/preview"
)

var previewListen string

func init() {
	previewCmd.Flags().StringVar(&previewListen, "listen", ":0", "NFS listen address")
	rootCmd.AddCommand(previewCmd)
}

var previewCmd = &cobra.Command{
	Use:   "preview [blueprint]",
	Short: "Assemble a blueprint and serve the tree read-only over NFS",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger()

		bp, err := blueprint.Load(args[0])
		if err != nil {
			return err
		}

		e := engine.New(plugin.Default(), engine.WithLogger(log))
		result, store, err := e.Run(cmd.Context(), bp, engine.Options{})
		if err != nil {
			return err
		}

		srv, err := preview.NewServer(store, previewListen)
		if err != nil {
			return err
		}
		defer func() { _ = srv.Close() }()

		cmd.Printf("Assembled %d files; serving read-only on port %d\n",
			len(result.Manifest.Files), srv.Port())
		cmd.Printf("Mount with:\n  %s\n", preview.MountCommand(srv.Port(), "<mountpoint>"))
		cmd.Println("Press Ctrl-C to stop.")

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		select {
		case <-sig:
		case <-cmd.Context().Done():
		}
		return nil
	},
}
