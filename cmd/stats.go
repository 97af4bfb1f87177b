package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index and pipeline status",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
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

	out, err := json.MarshalIndent(svc.Stats(cmd.Context()), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
