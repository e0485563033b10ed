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

// Ensure questionService implements QuestionService
var _ driving.QuestionService = (*questionService)(nil)

const topicPrompt = `Extract main topics and subtopics from the following text:
%s

Must be specific and remain relevant to the text. Don't include any irrelevant information.
Use normal vocabulary. Topics should be generalized enough to explain the text.`

const questionPrompt = `Generate %d %s questions based on the following information:

Main Topic: %s
Subtopic: %s
Context: %s

These questions are for educational purposes and should be relevant to the given information.
- Questions should be clear and concise.
- If multiple-choice, provide four options and specify the correct answer.
- If true/false, provide a statement and indicate if it's true or false.
- If fill-in-the-blank, create a sentence with a missing word and provide the answer.
- If text-based, create a short-answer question.`

// questionService generates questions in two model calls: topic
// extraction over the whole document, then generation for the first two topics
type questionService struct {
	retrieval driving.RetrievalService
	llm       driven.LLMService
	logger    *slog.Logger
}

// NewQuestionService creates a new QuestionService
func NewQuestionService(retrieval driving.RetrievalService, llm driven.LLMService, logger *slog.Logger) driving.QuestionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &questionService{
		retrieval: retrieval,
		llm:       llm,
		logger:    logger,
	}
}

// Generate fetches the document text, extracts its topics and asks for questions
func (s *questionService) Generate(ctx context.Context, req domain.QuestionRequest) (*domain.GeneratedQuestions, error) {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Subject) == "" {
		return nil, fmt.Errorf("%w: book and subject are required", domain.ErrInvalidInput)
	}
	if req.Type == "" {
		req.Type = domain.QuestionTypeTextBased
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown question type %q", domain.ErrInvalidInput, req.Type)
	}
	if req.NumQuestions <= 0 {
		req.NumQuestions = domain.DefaultQuestionCount
	}
	if req.NumQuestions > domain.MaxQuestionCount {
		return nil, fmt.Errorf("%w: at most %d questions per request", domain.ErrInvalidInput, domain.MaxQuestionCount)
	}
	if s.llm == nil {
		return nil, fmt.Errorf("%w: language model not configured", domain.ErrServiceUnavailable)
	}

	passages, err := s.retrieval.Fetch(ctx, req.Subject, req.Title)
	if err != nil {
		return nil, err
	}
	text := domain.ReconstructText(passages)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: no text stored for %q in %q", domain.ErrNotFound, req.Title, req.Subject)
	}

	var topics domain.TopicExtraction
	if err := s.llm.Complete(ctx, driven.CompletionRequest{
		System:     "Extract structured topics from documents.",
		Prompt:     fmt.Sprintf(topicPrompt, text),
		SchemaName: "topic_extraction",
	}, &topics); err != nil {
		return nil, fmt.Errorf("extract topics: %w", err)
	}
	if len(topics.MainTopics) < 2 {
		return nil, fmt.Errorf("%w: got %d", domain.ErrNotEnoughTopics, len(topics.MainTopics))
	}

	mainTopic := topics.MainTopics[0].Topic
	subtopic := topics.MainTopics[1].Topic

	var set domain.QuestionSet
	if err := s.llm.Complete(ctx, driven.CompletionRequest{
		System:     "Generate educational questions.",
		Prompt:     fmt.Sprintf(questionPrompt, req.NumQuestions, req.Type, mainTopic, subtopic, text),
		SchemaName: "question_set",
	}, &set); err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}

	questions := make([]domain.Question, 0, len(set.Questions))
	for _, q := range set.Questions {
		if q.Type == "" {
			q.Type = req.Type
		}
		questions = append(questions, q)
	}

	s.logger.Info("questions generated",
		"subject", req.Subject,
		"title", req.Title,
		"type", req.Type,
		"requested", req.NumQuestions,
		"generated", len(questions))

	return &domain.GeneratedQuestions{
		Title:     req.Title,
		Subject:   req.Subject,
		MainTopic: mainTopic,
		Subtopic:  subtopic,
		Questions: questions,
	}, nil
}
