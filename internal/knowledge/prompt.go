package knowledge

import (
	"strings"

	"github.com/wd-ai-tools/ai-gateway/internal/prompt"
)

var levelText = map[Level]string{
	LevelBeginner:     "初学者",
	LevelIntermediate: "中级",
	LevelAdvanced:     "高级",
}

var questionTypeText = map[QuestionType]string{
	QuestionSingleChoice:   "单选题",
	QuestionMultipleChoice: "多选题",
	QuestionFill:           "填空题",
	QuestionEssay:          "问答题",
	QuestionMixed:          "混合题型",
}

var questionTypeTextEN = map[QuestionType]string{
	QuestionSingleChoice:   "single_choice",
	QuestionMultipleChoice: "multiple_choice",
	QuestionFill:           "fill",
	QuestionEssay:          "essay",
	QuestionMixed:          "Mix of different types",
}

var difficultyText = map[Difficulty]string{
	DifficultyEasy:   "简单",
	DifficultyMedium: "中等",
	DifficultyHard:   "困难",
	DifficultyMixed:  "混合难度",
}

var difficultyTextEN = map[Difficulty]string{
	DifficultyEasy:   "easy",
	DifficultyMedium: "medium",
	DifficultyHard:   "hard",
	DifficultyMixed:  "Mixed difficulty levels",
}

type outlinePromptData struct {
	OutlineRequest
	LevelText string
}

type questionPromptData struct {
	QuestionRequest
	TypeText       string
	DifficultyText string
}

// BuildOutlinePrompt renders the outline instruction for req's language.
func BuildOutlinePrompt(req OutlineRequest) (string, error) {
	name := prompt.OutlineZH
	if req.Language == LanguageEN {
		name = prompt.OutlineEN
	}
	return prompt.Render(name, outlinePromptData{
		OutlineRequest: req,
		LevelText:      levelText[req.Level],
	})
}

// BuildQuestionPrompt renders the question instruction for req's language.
func BuildQuestionPrompt(req QuestionRequest) (string, error) {
	name := prompt.QuestionZH
	types, difficulties := questionTypeText, difficultyText
	sep := "、"
	if req.Language == LanguageEN {
		name = prompt.QuestionEN
		types, difficulties = questionTypeTextEN, difficultyTextEN
		sep = ", "
	}

	typeNames := make([]string, 0, len(req.QuestionTypes))
	for _, t := range req.QuestionTypes {
		typeNames = append(typeNames, types[t])
	}

	return prompt.Render(name, questionPromptData{
		QuestionRequest: req,
		TypeText:        strings.Join(typeNames, sep),
		DifficultyText:  difficulties[req.Difficulty],
	})
}
