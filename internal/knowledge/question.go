package knowledge

import (
	"fmt"
	"strings"

	"github.com/wd-ai-tools/ai-gateway/internal/observability"
)

const questionSystemPrompt = "You are an experienced exam author. Answer only with JSON that matches the requested schema."

// QuestionGenerator produces question collections.
type QuestionGenerator = Generator[QuestionRequest, QuestionCollection]

// NewQuestionGenerator returns the question pipeline bound to resolver.
func NewQuestionGenerator(resolver Resolver, recorder observability.Recorder) *QuestionGenerator {
	return NewGenerator(resolver, Pipeline[QuestionRequest, QuestionCollection]{
		Name:         "questions",
		Schema:       QuestionSchema(),
		SystemPrompt: questionSystemPrompt,
		Prompt:       BuildQuestionPrompt,
		Stamp:        stampQuestions,
		Check:        checkQuestions,
	}, recorder)
}

func stampQuestions(out *QuestionCollection, req QuestionRequest, s Stamp) {
	out.Metadata.TotalQuestions = len(out.Questions)
	out.Metadata.QuestionTypes = req.QuestionTypes
	out.Metadata.Difficulty = req.Difficulty
	out.Metadata.OutlineID = req.OutlineID
	out.Metadata.GeneratedAt = s.GeneratedAt
	out.Metadata.Model = s.Model
}

// checkQuestions trims extra questions and rejects short or malformed collections.
func checkQuestions(out *QuestionCollection, req QuestionRequest) error {
	if len(out.Questions) < req.Count {
		return fmt.Errorf("expected %d questions, got %d", req.Count, len(out.Questions))
	}
	out.Questions = out.Questions[:req.Count]

	for i, q := range out.Questions {
		if strings.TrimSpace(q.Title) == "" {
			return fmt.Errorf("question %d has an empty title", i)
		}
		if q.Type.IsChoice() && len(q.Options) < 2 {
			return fmt.Errorf("question %d is %s but has %d options", i, q.Type, len(q.Options))
		}
	}
	return nil
}
