package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/obelisk-rag/obelisk/internal/provider"
	"github.com/obelisk-rag/obelisk/internal/rag"
)

var (
	queryProvider    string
	queryModel       string
	queryTemperature float64
	queryMaxTokens   int
	queryTopK        int
	queryNoContext   bool
	queryShowSources bool
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Ask a question over the indexed vault",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryProvider, "provider", "", "answer through a specific provider (router, ollama, openai)")
	queryCmd.Flags().StringVar(&queryModel, "model", "", "override the generation model")
	queryCmd.Flags().Float64Var(&queryTemperature, "temperature", -1, "override the sampling temperature")
	queryCmd.Flags().IntVar(&queryMaxTokens, "max-tokens", 0, "cap the answer length in tokens")
	queryCmd.Flags().IntVar(&queryTopK, "top-k", 0, "number of chunks to retrieve")
	queryCmd.Flags().BoolVar(&queryNoContext, "no-context", false, "skip retrieval and ask the model directly")
	queryCmd.Flags().BoolVar(&queryShowSources, "sources", true, "print the source documents behind the answer")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	question := args[0]
	if question == "" {
		return errors.New("question must not be empty")
	}

	svc, cleanup, err := buildService(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	var opts []rag.QueryOption
	if queryProvider != "" {
		opts = append(opts, rag.WithProvider(provider.Kind(queryProvider)))
	}
	if queryModel != "" {
		opts = append(opts, rag.WithModel(queryModel))
	}
	if queryTemperature >= 0 {
		opts = append(opts, rag.WithTemperature(queryTemperature))
	}
	if queryMaxTokens > 0 {
		opts = append(opts, rag.WithMaxTokens(queryMaxTokens))
	}
	if queryTopK > 0 {
		opts = append(opts, rag.WithTopK(queryTopK))
	}
	if queryNoContext {
		opts = append(opts, rag.WithNoContext())
	}

	answer, err := svc.Query(cmd.Context(), question, opts...)
	if err != nil {
		return err
	}

	fmt.Println(answer.Text)
	if queryShowSources && len(answer.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, s := range answer.Sources {
			fmt.Printf("  %s (%.2f)\n", s.Path, s.Similarity)
		}
	}
	return nil
}
