package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/api"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/engine"
)

func newServeCmd() *cobra.Command {
	var (
		addr string
		root string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analyzer over Connect RPC (HTTP/1.1 and h2c)",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(cmd, "info")
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			h := api.NewAnalyzerServiceHandler(engine.New(log), root, log)
			return api.Serve(ctx, addr, h, log)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flags().StringVar(&root, "root", "", "Directory that path requests may scan below (disabled when empty)")
	return cmd
}
