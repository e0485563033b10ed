package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-edu/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-edu/internal/runtime"
)

var (
	ingestSubject    string
	ingestTitle      string
	ingestDifficulty string
	ingestAsync      bool
	ingestJSON       bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest a document into a subject",
	Long: `Extracts text from a PDF or plain text file, splits it into chunks,
embeds them and stores them under the subject namespace.

Re-ingesting a title replaces its previous chunks. With --async the
document is queued for a worker instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestSubject, "subject", "s", "", "subject namespace (required)")
	ingestCmd.Flags().StringVar(&ingestTitle, "title", "", "override the document title")
	ingestCmd.Flags().StringVar(&ingestDifficulty, "difficulty", "", "difficulty stored with each chunk")
	ingestCmd.Flags().BoolVar(&ingestAsync, "async", false, "queue the document for a worker")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output result as JSON")
	_ = ingestCmd.MarkFlagRequired("subject")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	req := driving.IngestRequest{
		Path:       args[0],
		Subject:    ingestSubject,
		Title:      ingestTitle,
		Difficulty: ingestDifficulty,
	}

	return withApp(cmd, func(ctx context.Context, app *runtime.App) error {
		if ingestAsync {
			task, err := app.Tasks.SubmitIngest(ctx, req)
			if err != nil {
				return fmt.Errorf("queue failed: %w", err)
			}
			if ingestJSON {
				return printJSON(cmd, task)
			}
			cmd.Printf("Queued task %s\n", task.ID)
			return nil
		}

		result, err := app.Ingestion.Ingest(ctx, req)
		if err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}
		if ingestJSON {
			return printJSON(cmd, result)
		}
		cmd.Printf("Ingested %q into %s: %d chunks", result.Title, result.Subject, result.ChunkCount)
		if result.StaleRemoved > 0 {
			cmd.Printf(", %d stale removed", result.StaleRemoved)
		}
		cmd.Printf(" (%s)\n", result.Duration)
		return nil
	})
}
