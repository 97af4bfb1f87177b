package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Reindex the vault into the vector store",
	RunE:  runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	logger := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	svc, cleanup, err := buildService(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	files, chunks, err := svc.ProcessVault(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Indexed %d files into %d chunks from %s\n", files, chunks, cfg.VaultDir)
	return nil
}
