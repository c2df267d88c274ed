package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/wd-ai-tools/ai-gateway/pkg/embedded"
)

// Template names
const (
	OutlineZH       = "outline_zh"
	OutlineEN       = "outline_en"
	QuestionZH      = "question_zh"
	QuestionEN      = "question_en"
	PrincipleSystem = "principle_system"
	PrincipleUser   = "principle_user"
	Image           = "image"
)

const templateExt = ".tmpl"

var funcs = template.FuncMap{
	"upper": strings.ToUpper,
}

type Loader struct {
	templates *template.Template
}

var (
	defaultLoader *Loader
	defaultErr    error
	defaultOnce   sync.Once
)

// NewPromptLoader parses the embedded prompt templates.
func NewPromptLoader() (*Loader, error) {
	tmpl, err := template.New("prompts").
		Funcs(funcs).
		Option("missingkey=error").
		ParseFS(embedded.Prompts, embedded.PromptDir+"/*"+templateExt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt templates: %w", err)
	}
	return &Loader{templates: tmpl}, nil
}

// Default returns the process-wide loader, parsed on first use.
func Default() (*Loader, error) {
	defaultOnce.Do(func() {
		defaultLoader, defaultErr = NewPromptLoader()
	})
	return defaultLoader, defaultErr
}

// Render executes the named template and trims surrounding whitespace.
func (l *Loader) Render(name string, data any) (string, error) {
	tmpl := l.templates.Lookup(name + templateExt)
	if tmpl == nil {
		return "", fmt.Errorf("prompt template %q not found", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %q: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Render executes a template with the default loader.
func Render(name string, data any) (string, error) {
	loader, err := Default()
	if err != nil {
		return "", err
	}
	return loader.Render(name, data)
}
