package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/obelisk-rag/obelisk/api"
	"github.com/obelisk-rag/obelisk/internal/observability"
)

var serveWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Starts the OpenAI-compatible API, health probes, and the Ollama
proxy. With --watch, vault changes are reindexed live.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "reindex vault files as they change")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTLPEndpoint, "obelisk", Version)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	svc, cleanup, err := buildService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if serveWatch {
		if err := svc.StartWatcher(ctx); err != nil {
			return err
		}
		defer svc.StopWatcher()
	}

	server := api.NewServer(svc, api.ServerConfig{
		Addr:      cfg.APIAddr(),
		OllamaURL: cfg.OllamaURL,
	}, logger)
	return server.Run(ctx)
}
