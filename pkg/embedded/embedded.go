package embedded

import (
	"embed"
)

// Prompts holds every prompt template, keyed by file name under data/prompts.
//
//go:embed data/prompts/*.tmpl
var Prompts embed.FS

// PromptDir is the directory of the prompt templates inside Prompts.
const PromptDir = "data/prompts"
