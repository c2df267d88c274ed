package knowledge

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wd-ai-tools/ai-gateway/internal/observability"
)

const outlineSystemPrompt = "You are an experienced curriculum designer. Answer only with JSON that matches the requested schema."

// OutlineGenerator produces learning outlines.
type OutlineGenerator = Generator[OutlineRequest, Outline]

// NewOutlineGenerator returns the outline pipeline bound to resolver.
func NewOutlineGenerator(resolver Resolver, recorder observability.Recorder) *OutlineGenerator {
	return NewGenerator(resolver, Pipeline[OutlineRequest, Outline]{
		Name:         "outline",
		Schema:       OutlineSchema(),
		SystemPrompt: outlineSystemPrompt,
		Prompt:       BuildOutlinePrompt,
		Stamp:        stampOutline,
		Check:        checkOutline,
	}, recorder)
}

func stampOutline(out *Outline, req OutlineRequest, s Stamp) {
	if out.Topic == "" {
		out.Topic = req.Topic
	}
	if out.Level == "" {
		out.Level = req.Level
	}
	out.Metadata.TotalTopics = len(out.Structure)
	out.Metadata.GeneratedAt = s.GeneratedAt
	out.Metadata.Model = s.Model
}

func checkOutline(out *Outline, _ OutlineRequest) error {
	if len(out.Structure) == 0 {
		return errors.New("outline has no topics")
	}
	for i, topic := range out.Structure {
		if strings.TrimSpace(topic.Title) == "" {
			return fmt.Errorf("topic %d has an empty title", i)
		}
	}
	return nil
}
