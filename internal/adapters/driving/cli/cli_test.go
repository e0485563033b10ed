package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/sercha-edu/internal/core/domain"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-edu/internal/runtime"
)

// Mock services

type mockIngestion struct {
	ingestFn func(ctx context.Context, req driving.IngestRequest) (*domain.IngestResult, error)
}

func (m *mockIngestion) Ingest(ctx context.Context, req driving.IngestRequest) (*domain.IngestResult, error) {
	return m.ingestFn(ctx, req)
}

type mockTasks struct {
	submitFn func(ctx context.Context, req driving.IngestRequest) (*domain.Task, error)
}

func (m *mockTasks) SubmitIngest(ctx context.Context, req driving.IngestRequest) (*domain.Task, error) {
	return m.submitFn(ctx, req)
}

func (m *mockTasks) Get(ctx context.Context, id string) (*domain.Task, error) {
	return nil, domain.ErrNotFound
}

type mockRetrieval struct {
	fetchFn    func(ctx context.Context, subject, title string) ([]domain.Passage, error)
	searchFn   func(ctx context.Context, query, subject string, opts domain.SearchOptions) (*domain.SearchResult, error)
	subjectsFn func(ctx context.Context) ([]string, error)
	titlesFn   func(ctx context.Context, subject string, topK int) ([]string, error)
}

func (m *mockRetrieval) Fetch(ctx context.Context, subject, title string) ([]domain.Passage, error) {
	return m.fetchFn(ctx, subject, title)
}

func (m *mockRetrieval) Search(ctx context.Context, query, subject string, opts domain.SearchOptions) (*domain.SearchResult, error) {
	return m.searchFn(ctx, query, subject, opts)
}

func (m *mockRetrieval) ListSubjects(ctx context.Context) ([]string, error) {
	return m.subjectsFn(ctx)
}

func (m *mockRetrieval) ListTitles(ctx context.Context, subject string, topK int) ([]string, error) {
	return m.titlesFn(ctx, subject, topK)
}

type mockGrammar struct {
	checkFn func(ctx context.Context, text string) (*domain.GrammarReport, error)
}

func (m *mockGrammar) Check(ctx context.Context, text string) (*domain.GrammarReport, error) {
	return m.checkFn(ctx, text)
}

type mockAnswer struct {
	validateFn func(ctx context.Context, question, answer, subject string) (*domain.AnswerValidation, error)
}

func (m *mockAnswer) Validate(ctx context.Context, question, answer, subject string) (*domain.AnswerValidation, error) {
	return m.validateFn(ctx, question, answer, subject)
}

type mockQuestions struct {
	generateFn func(ctx context.Context, req domain.QuestionRequest) (*domain.GeneratedQuestions, error)
}

func (m *mockQuestions) Generate(ctx context.Context, req domain.QuestionRequest) (*domain.GeneratedQuestions, error) {
	return m.generateFn(ctx, req)
}

// useApp makes every command run against app and restores the real factory
// when the test ends
func useApp(t *testing.T, app *runtime.App) {
	t.Helper()
	if app.Services == nil {
		app.Services = runtime.NewServices()
	}
	if app.Logger == nil {
		app.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if app.Config == nil {
		app.Config = &runtime.Config{}
	}
	original := appFactory
	appFactory = func(ctx context.Context) (*runtime.App, error) { return app, nil }
	t.Cleanup(func() { appFactory = original })
}

func failApp(t *testing.T, err error) {
	t.Helper()
	original := appFactory
	appFactory = func(ctx context.Context) (*runtime.App, error) { return nil, err }
	t.Cleanup(func() { appFactory = original })
}

// execute runs the root command with args and returns everything printed
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, c := range rootCmd.Commands() {
		resetFlags(c)
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags undoes values left behind by earlier executions
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
}
