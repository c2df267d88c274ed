package knowledge

func stringArray() map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
}

func object(properties map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

func enum(values ...string) map[string]any {
	return map[string]any{"type": "string", "enum": values}
}

// OutlineSchema returns the JSON schema the model answers outline requests with.
func OutlineSchema() map[string]any {
	topic := object(map[string]any{
		"id":            map[string]any{"type": "string"},
		"title":         map[string]any{"type": "string", "minLength": 1},
		"description":   map[string]any{"type": "string"},
		"keyPoints":     stringArray(),
		"estimatedTime": map[string]any{"type": "string"},
	}, "id", "title", "description", "keyPoints", "estimatedTime")

	metadata := object(map[string]any{
		"totalTopics":        map[string]any{"type": "integer"},
		"estimatedTotalTime": map[string]any{"type": "string"},
	}, "totalTopics", "estimatedTotalTime")

	return object(map[string]any{
		"id":        map[string]any{"type": "string"},
		"topic":     map[string]any{"type": "string"},
		"level":     enum(string(LevelBeginner), string(LevelIntermediate), string(LevelAdvanced)),
		"structure": map[string]any{"type": "array", "minItems": 1, "items": topic},
		"metadata":  metadata,
	}, "id", "topic", "level", "structure", "metadata")
}

// QuestionSchema returns the JSON schema the model answers question requests with.
func QuestionSchema() map[string]any {
	option := object(map[string]any{
		"id":        map[string]any{"type": "string"},
		"text":      map[string]any{"type": "string"},
		"isCorrect": map[string]any{"type": "boolean"},
	}, "id", "text", "isCorrect")

	question := object(map[string]any{
		"id":          map[string]any{"type": "string"},
		"type":        enum(string(QuestionSingleChoice), string(QuestionMultipleChoice), string(QuestionFill), string(QuestionEssay)),
		"title":       map[string]any{"type": "string", "minLength": 1},
		"options":     map[string]any{"type": "array", "items": option},
		"answer":      map[string]any{"type": "string"},
		"explanation": map[string]any{"type": "string"},
		"difficulty":  enum(string(DifficultyEasy), string(DifficultyMedium), string(DifficultyHard)),
		"tags":        stringArray(),
	}, "id", "type", "title", "options", "answer", "explanation", "difficulty", "tags")

	return object(map[string]any{
		"id":        map[string]any{"type": "string"},
		"questions": map[string]any{"type": "array", "minItems": 1, "items": question},
	}, "id", "questions")
}
