// Package knowledge generates learning outlines and quiz question collections
// with hosted LLMs, in batch or streaming mode.
package knowledge

// Language selects the prompt locale.
type Language string

const (
	LanguageZH Language = "zh"
	LanguageEN Language = "en"
)

// Level is the target learner level of an outline.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// QuestionType is the kind of a generated question.
type QuestionType string

const (
	QuestionSingleChoice   QuestionType = "single_choice"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionFill           QuestionType = "fill"
	QuestionEssay          QuestionType = "essay"
	QuestionMixed          QuestionType = "mixed"
)

// IsChoice reports whether answers are picked from options.
func (t QuestionType) IsChoice() bool {
	return t == QuestionSingleChoice || t == QuestionMultipleChoice
}

// Difficulty is the difficulty of a question or collection.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyMixed  Difficulty = "mixed"
)

// OutlineTopic is one sub-topic of an outline.
type OutlineTopic struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	KeyPoints     []string `json:"keyPoints"`
	EstimatedTime string   `json:"estimatedTime"`
}

// OutlineMetadata is stamped by the generator after the model answers.
type OutlineMetadata struct {
	TotalTopics        int    `json:"totalTopics"`
	EstimatedTotalTime string `json:"estimatedTotalTime"`
	GeneratedAt        string `json:"generatedAt"`
	Model              string `json:"model"`
}

// Outline is a structured learning plan.
type Outline struct {
	ID        string          `json:"id"`
	Topic     string          `json:"topic"`
	Level     Level           `json:"level"`
	Structure []OutlineTopic  `json:"structure"`
	Metadata  OutlineMetadata `json:"metadata"`
}

type QuestionOption struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

type Question struct {
	ID          string           `json:"id"`
	Type        QuestionType     `json:"type"`
	Title       string           `json:"title"`
	Options     []QuestionOption `json:"options"`
	Answer      string           `json:"answer"`
	Explanation string           `json:"explanation"`
	Difficulty  Difficulty       `json:"difficulty"`
	Tags        []string         `json:"tags"`
}

type QuestionMetadata struct {
	TotalQuestions int            `json:"totalQuestions"`
	QuestionTypes  []QuestionType `json:"questionTypes"`
	Difficulty     Difficulty     `json:"difficulty"`
	OutlineID      string         `json:"outlineId"`
	GeneratedAt    string         `json:"generatedAt"`
	Model          string         `json:"model"`
}

// QuestionCollection is a set of generated questions.
type QuestionCollection struct {
	ID        string           `json:"id"`
	Questions []Question       `json:"questions"`
	Metadata  QuestionMetadata `json:"metadata"`
}
