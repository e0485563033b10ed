package driving

import (
	"context"

	"github.com/custodia-labs/sercha-edu/internal/core/domain"
)

// GrammarService checks English text sentence by sentence
type GrammarService interface {
	Check(ctx context.Context, text string) (*domain.GrammarReport, error)
}

// AnswerService validates a user's answer against stored material
type AnswerService interface {
	// Validate returns domain.ErrNoRelevantContext when the subject holds
	// nothing relevant to the question
	Validate(ctx context.Context, question, answer, subject string) (*domain.AnswerValidation, error)
}

// QuestionService generates study questions from a stored document
type QuestionService interface {
	Generate(ctx context.Context, req domain.QuestionRequest) (*domain.GeneratedQuestions, error)
}
