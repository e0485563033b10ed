package domain

// GrammarResult is the model's verdict on one sentence
type GrammarResult struct {
	Sentence          string   `json:"sentence"`
	CorrectedSentence string   `json:"corrected_sentence"`
	Errors            []string `json:"errors"`
}

// GrammarReport collects per-sentence results in input order
type GrammarReport struct {
	Language  string          `json:"language"`
	Sentences []GrammarResult `json:"sentences"`
}

// IncorrectFact is one statement of an answer contradicted by the context
type IncorrectFact struct {
	Statement   string `json:"statement"`
	Explanation string `json:"explanation"`
}

// AnswerValidation is the model's assessment of a user answer
type AnswerValidation struct {
	IsCorrect      bool            `json:"is_correct"`
	Score          float64         `json:"score"`
	IncorrectFacts []IncorrectFact `json:"incorrect_facts"`
}

// ClampScore keeps the score inside [0, 1]
func (a *AnswerValidation) ClampScore() {
	if a.Score < 0 {
		a.Score = 0
	}
	if a.Score > 1 {
		a.Score = 1
	}
}

// Topic is one main topic with its subtopics
type Topic struct {
	Topic     string   `json:"topic"`
	Subtopics []string `json:"subtopics"`
}

// TopicExtraction is the model's topic outline of a document
type TopicExtraction struct {
	MainTopics []Topic `json:"main_topics"`
}

// QuestionType selects the style of generated questions
type QuestionType string

const (
	QuestionTypeMCQ         QuestionType = "mcq"
	QuestionTypeTrueFalse   QuestionType = "true_false"
	QuestionTypeTextBased   QuestionType = "text_based"
	QuestionTypeFillInBlank QuestionType = "fill_in_the_blank"
)

// Valid reports whether the question type is one the generator supports
func (q QuestionType) Valid() bool {
	switch q {
	case QuestionTypeMCQ, QuestionTypeTrueFalse, QuestionTypeTextBased, QuestionTypeFillInBlank:
		return true
	}
	return false
}

const (
	// DefaultQuestionCount is used when a request does not set one
	DefaultQuestionCount = 5
	// MaxQuestionCount caps a single generation request
	MaxQuestionCount = 50
)

// Question is a single generated question
type Question struct {
	Type     QuestionType `json:"type"`
	Question string       `json:"question"`
	Options  []string     `json:"options,omitempty"`
	Answer   string       `json:"answer"`
}

// QuestionSet is the model output for a generation request
type QuestionSet struct {
	Questions []Question `json:"questions"`
}

// QuestionRequest asks for questions about one stored document
type QuestionRequest struct {
	Title        string       `json:"book"`
	Subject      string       `json:"subject"`
	NumQuestions int          `json:"num_questions"`
	Type         QuestionType `json:"type"`
}

// GeneratedQuestions is returned to callers of question generation
type GeneratedQuestions struct {
	Title     string     `json:"book"`
	Subject   string     `json:"subject"`
	MainTopic string     `json:"main_topic"`
	Subtopic  string     `json:"subtopic"`
	Questions []Question `json:"questions"`
}
