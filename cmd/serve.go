package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/finlens/internal/assistant"
	"github.com/KaramelBytes/finlens/internal/logger"
	"github.com/KaramelBytes/finlens/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard JSON and PNG API over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		addr := c.ServerAddr
		if cmd.Flags().Changed("addr") && serveAddr != "" {
			addr = serveAddr
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		loader, err := newLoader()
		if err != nil {
			return err
		}
		// The dataset must be available before accepting requests.
		ds, err := loader.Load(ctx)
		if err != nil {
			return err
		}
		log := logger.WithComponent("serve")
		log.WithFields(logger.Fields{
			"snapshot_id": ds.ID(),
			"records":     ds.Len(),
			"source":      ds.Source(),
		}).Info("dataset loaded")

		var asker assistant.Asker
		if gw, err := newGateway(); err != nil {
			fmt.Fprintf(os.Stderr, "⚠ Warning: assistant disabled: %v\n", err)
		} else {
			asker = gw
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Serving %d companies on %s\n", ds.Len(), addr)
		return server.New(loader, asker).ListenAndServe(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server_addr)")
}
