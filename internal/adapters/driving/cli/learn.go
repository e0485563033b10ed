package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-edu/internal/core/domain"
	"github.com/custodia-labs/sercha-edu/internal/runtime"
)

var (
	learnSubject  string
	learnQuestion string
	learnCount    int
	learnType     string
	learnJSON     bool
)

var grammarCmd = &cobra.Command{
	Use:   "grammar [text]",
	Short: "Check English text sentence by sentence",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGrammar,
}

var answerCmd = &cobra.Command{
	Use:   "answer [answer]",
	Short: "Validate an answer against a subject's material",
	Long: `Searches the subject for material relevant to the question and asks
the language model whether the answer agrees with it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnswer,
}

var questionsCmd = &cobra.Command{
	Use:   "questions [title]",
	Short: "Generate study questions from a document",
	Long: `Picks a topic from the stored document and generates questions about it.

Types: mcq, true_false, text_based, fill_in_the_blank`,
	Args: cobra.ExactArgs(1),
	RunE: runQuestions,
}

func init() {
	answerCmd.Flags().StringVarP(&learnSubject, "subject", "s", "", "subject namespace (required)")
	answerCmd.Flags().StringVarP(&learnQuestion, "question", "q", "", "the question being answered (required)")
	_ = answerCmd.MarkFlagRequired("subject")
	_ = answerCmd.MarkFlagRequired("question")

	questionsCmd.Flags().StringVarP(&learnSubject, "subject", "s", "", "subject namespace (required)")
	questionsCmd.Flags().IntVarP(&learnCount, "count", "n", domain.DefaultQuestionCount, "number of questions")
	questionsCmd.Flags().StringVarP(&learnType, "type", "t", string(domain.QuestionTypeTextBased), "question type")
	_ = questionsCmd.MarkFlagRequired("subject")

	for _, c := range []*cobra.Command{grammarCmd, answerCmd, questionsCmd} {
		c.Flags().BoolVar(&learnJSON, "json", false, "output as JSON")
		rootCmd.AddCommand(c)
	}
}

func runGrammar(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")

	return withApp(cmd, func(ctx context.Context, app *runtime.App) error {
		report, err := app.Grammar.Check(ctx, text)
		if err != nil {
			return fmt.Errorf("grammar check failed: %w", err)
		}
		if learnJSON {
			return printJSON(cmd, report)
		}
		for _, s := range report.Sentences {
			if len(s.Errors) == 0 {
				cmd.Printf("ok   %s\n", s.Sentence)
				continue
			}
			cmd.Printf("fix  %s\n", s.Sentence)
			cmd.Printf("  -> %s\n", s.CorrectedSentence)
			for _, e := range s.Errors {
				cmd.Printf("     - %s\n", e)
			}
		}
		return nil
	})
}

func runAnswer(cmd *cobra.Command, args []string) error {
	answer := strings.Join(args, " ")

	return withApp(cmd, func(ctx context.Context, app *runtime.App) error {
		result, err := app.Answer.Validate(ctx, learnQuestion, answer, learnSubject)
		if err != nil {
			return fmt.Errorf("answer validation failed: %w", err)
		}
		if learnJSON {
			return printJSON(cmd, result)
		}
		verdict := "incorrect"
		if result.IsCorrect {
			verdict = "correct"
		}
		cmd.Printf("Answer is %s (score %.2f)\n", verdict, result.Score)
		for _, f := range result.IncorrectFacts {
			cmd.Printf("  - %s: %s\n", f.Statement, f.Explanation)
		}
		return nil
	})
}

func runQuestions(cmd *cobra.Command, args []string) error {
	req := domain.QuestionRequest{
		Title:        args[0],
		Subject:      learnSubject,
		NumQuestions: learnCount,
		Type:         domain.QuestionType(learnType),
	}
	if !req.Type.Valid() {
		return fmt.Errorf("unknown question type %q", learnType)
	}

	return withApp(cmd, func(ctx context.Context, app *runtime.App) error {
		generated, err := app.Questions.Generate(ctx, req)
		if err != nil {
			return fmt.Errorf("question generation failed: %w", err)
		}
		if learnJSON {
			return printJSON(cmd, generated)
		}
		cmd.Printf("%s: %s / %s\n", generated.Title, generated.MainTopic, generated.Subtopic)
		cmd.Println()
		for i, q := range generated.Questions {
			cmd.Printf("%d. %s\n", i+1, q.Question)
			for _, o := range q.Options {
				cmd.Printf("   - %s\n", o)
			}
			cmd.Printf("   Answer: %s\n", q.Answer)
		}
		return nil
	})
}
