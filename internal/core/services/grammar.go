package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-edu/internal/core/domain"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driving"
)

// Ensure grammarService implements GrammarService
var _ driving.GrammarService = (*grammarService)(nil)

const grammarSystemPrompt = "Correct only the grammatical errors in the provided sentence. " +
	"Do not change or remove any factual information, even if it appears incorrect. " +
	"Focus solely on grammar, punctuation, and capitalization. " +
	"Return the original sentence, the corrected sentence and a list of the errors found."

// grammarService checks text one sentence per model call
type grammarService struct {
	llm         driven.LLMService
	concurrency int
	logger      *slog.Logger
}

// NewGrammarService creates a new GrammarService.
// concurrency bounds the sentences checked at once.
func NewGrammarService(llm driven.LLMService, concurrency int, logger *slog.Logger) driving.GrammarService {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &grammarService{
		llm:         llm,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Check splits English text into sentences and corrects each of them
func (s *grammarService) Check(ctx context.Context, text string) (*domain.GrammarReport, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is required", domain.ErrInvalidInput)
	}
	if s.llm == nil {
		return nil, fmt.Errorf("%w: language model not configured", domain.ErrServiceUnavailable)
	}

	info := whatlanggo.Detect(text)
	if info.Lang != whatlanggo.Eng {
		return nil, fmt.Errorf("%w: detected %q", domain.ErrUnsupportedLanguage, info.Lang.Iso6391())
	}

	sentences := SplitSentences(text)
	results := make([]domain.GrammarResult, len(sentences))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, sentence := range sentences {
		g.Go(func() error {
			var out domain.GrammarResult
			req := driven.CompletionRequest{
				System:     grammarSystemPrompt,
				Prompt:     sentence,
				SchemaName: "grammar_result",
			}
			if err := s.llm.Complete(gctx, req, &out); err != nil {
				return fmt.Errorf("check sentence %d: %w", i, err)
			}
			out.Sentence = sentence
			if out.CorrectedSentence == "" {
				out.CorrectedSentence = sentence
			}
			if out.Errors == nil {
				out.Errors = []string{}
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Debug("grammar checked", "sentences", len(sentences))
	return &domain.GrammarReport{Language: "en", Sentences: results}, nil
}

// SplitSentences cuts text after . ! ? , : ; and … when whitespace follows.
// Empty pieces are dropped.
func SplitSentences(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	var sentences []string
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isSentenceBreak(runes[i]) || i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if piece := strings.TrimSpace(string(runes[start : i+1])); piece != "" {
			sentences = append(sentences, piece)
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	if piece := strings.TrimSpace(string(runes[start:])); piece != "" {
		sentences = append(sentences, piece)
	}
	return sentences
}

func isSentenceBreak(r rune) bool {
	switch r {
	case '.', '!', '?', ',', ':', ';', '…':
		return true
	}
	return false
}
