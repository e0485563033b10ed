package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-edu/internal/core/domain"
	"github.com/custodia-labs/sercha-edu/internal/runtime"
)

var (
	docSubject string
	docTopK    int
	docJSON    bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [title]",
	Short: "Print a stored document",
	Long:  `Fetches every chunk of a title in order and prints the rebuilt text.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runFetch,
}

var subjectsCmd = &cobra.Command{
	Use:   "subjects",
	Short: "List subjects",
	Args:  cobra.NoArgs,
	RunE:  runSubjects,
}

var titlesCmd = &cobra.Command{
	Use:   "titles",
	Short: "List document titles in a subject",
	Args:  cobra.NoArgs,
	RunE:  runTitles,
}

func init() {
	for _, c := range []*cobra.Command{fetchCmd, titlesCmd} {
		c.Flags().StringVarP(&docSubject, "subject", "s", "", "subject namespace (required)")
		_ = c.MarkFlagRequired("subject")
	}
	titlesCmd.Flags().IntVarP(&docTopK, "top-k", "n", 0, "records to scan (0 uses the configured default)")
	for _, c := range []*cobra.Command{fetchCmd, subjectsCmd, titlesCmd} {
		c.Flags().BoolVar(&docJSON, "json", false, "output as JSON")
		rootCmd.AddCommand(c)
	}
}

func runFetch(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, app *runtime.App) error {
		passages, err := app.Retrieval.Fetch(ctx, docSubject, args[0])
		if err != nil {
			return fmt.Errorf("fetch failed: %w", err)
		}
		if docJSON {
			return printJSON(cmd, passages)
		}
		if len(passages) == 0 {
			cmd.Printf("No document titled %q in %s.\n", args[0], docSubject)
			return nil
		}
		cmd.Println(domain.ReconstructText(passages))
		return nil
	})
}

func runSubjects(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, app *runtime.App) error {
		subjects, err := app.Retrieval.ListSubjects(ctx)
		if err != nil {
			return fmt.Errorf("list subjects failed: %w", err)
		}
		return printList(cmd, subjects, "No subjects found.")
	})
}

func runTitles(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, app *runtime.App) error {
		titles, err := app.Retrieval.ListTitles(ctx, docSubject, docTopK)
		if err != nil {
			return fmt.Errorf("list titles failed: %w", err)
		}
		return printList(cmd, titles, "No titles found.")
	})
}

func printList(cmd *cobra.Command, items []string, empty string) error {
	if docJSON {
		if items == nil {
			items = []string{}
		}
		return printJSON(cmd, items)
	}
	if len(items) == 0 {
		cmd.Println(empty)
		return nil
	}
	for _, item := range items {
		cmd.Println(item)
	}
	return nil
}
