package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/custodia-labs/sercha-edu/internal/core/domain"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driving"
)

// Ensure answerService implements AnswerService
var _ driving.AnswerService = (*answerService)(nil)

const answerSystemPrompt = "Validate the user's answer based on the given context. " +
	"For each incorrect fact, give the corrected statement and an explanation " +
	"with the correct information and the reason. " +
	"Provide a score between 0 and 1."

// answerService grounds answer checks on material stored for the subject
type answerService struct {
	retrieval driving.RetrievalService
	llm       driven.LLMService
	logger    *slog.Logger
}

// NewAnswerService creates a new AnswerService
func NewAnswerService(retrieval driving.RetrievalService, llm driven.LLMService, logger *slog.Logger) driving.AnswerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &answerService{
		retrieval: retrieval,
		llm:       llm,
		logger:    logger,
	}
}

// Validate searches the subject for the question and asks the model to grade the answer
func (s *answerService) Validate(ctx context.Context, question, answer, subject string) (*domain.AnswerValidation, error) {
	if strings.TrimSpace(question) == "" || strings.TrimSpace(answer) == "" {
		return nil, fmt.Errorf("%w: question and answer are required", domain.ErrInvalidInput)
	}
	if s.llm == nil {
		return nil, fmt.Errorf("%w: language model not configured", domain.ErrServiceUnavailable)
	}

	result, err := s.retrieval.Search(ctx, question, subject, domain.SearchOptions{})
	if err != nil {
		return nil, err
	}
	if result.Empty() {
		return nil, fmt.Errorf("%w: no relevant context found for validation", domain.ErrNoRelevantContext)
	}

	texts := make([]string, len(result.Matches))
	for i, m := range result.Matches {
		texts[i] = m.Text
	}

	prompt := fmt.Sprintf("Question: %s\nUser Answer: %s\nContext: %s\n\nValidate the user's answer.",
		question, answer, strings.Join(texts, "\n\n"))

	var validation domain.AnswerValidation
	req := driven.CompletionRequest{
		System:     answerSystemPrompt,
		Prompt:     prompt,
		SchemaName: "answer_validation",
	}
	if err := s.llm.Complete(ctx, req, &validation); err != nil {
		return nil, fmt.Errorf("validate answer: %w", err)
	}

	validation.ClampScore()
	if validation.IncorrectFacts == nil {
		validation.IncorrectFacts = []domain.IncorrectFact{}
	}

	s.logger.Debug("answer validated",
		"subject", subject,
		"context_matches", len(result.Matches),
		"correct", validation.IsCorrect,
		"score", validation.Score)

	return &validation, nil
}
