// Package cmd implements the obelisk command line interface.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/obelisk-rag/obelisk/internal/config"
	"github.com/obelisk-rag/obelisk/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "obelisk",
	Short: "RAG middleware for markdown vaults",
	Long: `Obelisk indexes a markdown vault into a pgvector store and answers
questions over it through local or hosted language models. It exposes an
OpenAI-compatible HTTP API and a context-injecting proxy for native Ollama
clients.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger; DEBUG=1 raises verbosity.
func newLogger() log.Logger {
	cfg := log.Config{Level: slog.LevelInfo, JSON: false}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
		cfg.AddSource = true
	}
	return log.New(cfg)
}

// loadConfig loads and validates configuration for a command.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}
