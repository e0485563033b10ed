package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-edu/internal/core/domain"
	"github.com/custodia-labs/sercha-edu/internal/runtime"
)

var (
	searchSubject   string
	searchTopK      int
	searchThreshold float64
	searchJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search a subject semantically",
	Long: `Embeds the query and returns the chunks of the subject whose
similarity score reaches the threshold, best first.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchSubject, "subject", "s", "", "subject namespace (required)")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "n", domain.DefaultSearchTopK, "maximum number of candidates")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", domain.DefaultSearchThreshold, "minimum similarity score")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	_ = searchCmd.MarkFlagRequired("subject")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	opts := domain.SearchOptions{TopK: searchTopK}
	// left unset, the server default applies
	if cmd.Flags().Changed("threshold") {
		opts.Threshold = domain.ScoreThreshold(searchThreshold)
	}

	return withApp(cmd, func(ctx context.Context, app *runtime.App) error {
		result, err := app.Retrieval.Search(ctx, args[0], searchSubject, opts)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		if searchJSON {
			return printJSON(cmd, result)
		}
		return outputSearchTable(cmd, result)
	})
}

func outputSearchTable(cmd *cobra.Command, result *domain.SearchResult) error {
	if result.Empty() {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, m := range result.Matches {
		cmd.Printf("  [%d] %s #%d (%.2f)\n", i+1, m.Title, m.ChunkIndex, m.Score)
		cmd.Printf("      %s\n", snippet(m.Text, 160))
		cmd.Println()
	}
	return nil
}

func snippet(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
