package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"iter"
	"strings"
	"sync/atomic"
	"time"

	"github.com/wd-ai-tools/ai-gateway/internal/apperrors"
	"github.com/wd-ai-tools/ai-gateway/internal/llm"
	"github.com/wd-ai-tools/ai-gateway/internal/observability"
	"github.com/wd-ai-tools/ai-gateway/internal/partialjson"
)

// ErrStreamConsumed is yielded when a StreamResult is iterated a second time.
var ErrStreamConsumed = errors.New("stream result already consumed")

var errConsumerStopped = errors.New("consumer stopped reading")

// Resolver turns a provider selection into a callable handle.
type Resolver interface {
	Resolve(ctx context.Context, sel llm.Selection) (*llm.Handle, error)
}

// Stamp is the generator-owned metadata written into every result.
type Stamp struct {
	GeneratedAt string
	Model       string
}

// Pipeline describes one kind of structured generation.
type Pipeline[Req Request, Out any] struct {
	Name         string
	Schema       map[string]any
	SystemPrompt string
	Prompt       func(Req) (string, error)
	// Stamp writes metadata and derived counts. It runs on every batch result and stream partial.
	Stamp func(*Out, Req, Stamp)
	// Check enforces shape constraints on a complete batch result. It may trim the value.
	Check func(*Out, Req) error
}

// Result is either a *BatchResult or a *StreamResult.
type Result[Out any] interface {
	isResult()
}

// BatchResult holds one complete value.
type BatchResult[Out any] struct {
	Value *Out
}

func (*BatchResult[Out]) isResult() {}

// StreamResult yields successively more complete values. The upstream call
// starts on the first iteration and stops when the consumer breaks out.
// It can be iterated only once.
type StreamResult[Out any] struct {
	run      func(yield func(*Out, error) bool)
	consumed atomic.Bool
}

func (*StreamResult[Out]) isResult() {}

// All returns the partial values. An upstream failure ends the sequence with a
// (nil, GenerationError) pair.
func (s *StreamResult[Out]) All() iter.Seq2[*Out, error] {
	return func(yield func(*Out, error) bool) {
		if s.consumed.Swap(true) {
			yield(nil, ErrStreamConsumed)
			return
		}
		s.run(yield)
	}
}

// Generator runs a Pipeline against the provider chosen by each request.
type Generator[Req Request, Out any] struct {
	resolver Resolver
	pipeline Pipeline[Req, Out]
	recorder observability.Recorder
	now      func() time.Time
}

// NewGenerator creates a generator. A nil recorder discards run records.
func NewGenerator[Req Request, Out any](resolver Resolver, pipeline Pipeline[Req, Out], recorder observability.Recorder) *Generator[Req, Out] {
	if recorder == nil {
		recorder = observability.NopRecorder{}
	}
	return &Generator[Req, Out]{
		resolver: resolver,
		pipeline: pipeline,
		recorder: recorder,
		now:      time.Now,
	}
}

// Name returns the pipeline name.
func (g *Generator[Req, Out]) Name() string {
	return g.pipeline.Name
}

// Generate validates req, resolves its provider and returns a batch or stream
// result depending on req.Streaming(). Validation, prompt and provider errors
// are returned here, before any streaming starts.
func (g *Generator[Req, Out]) Generate(ctx context.Context, req Req) (Result[Out], error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	prompt, err := g.pipeline.Prompt(req)
	if err != nil {
		return nil, apperrors.NewInternal("failed to build prompt", err)
	}

	handle, err := g.resolver.Resolve(ctx, req.Selection())
	if err != nil {
		return nil, err
	}

	genReq := handle.Request(g.pipeline.SystemPrompt, prompt, &llm.OutputSchema{
		Name:        g.pipeline.Name,
		Description: g.pipeline.Name + " response",
		Schema:      g.pipeline.Schema,
	})

	if req.Streaming() {
		return g.stream(ctx, req, handle, genReq), nil
	}

	value, err := g.batch(ctx, req, handle, genReq)
	if err != nil {
		return nil, err
	}
	return &BatchResult[Out]{Value: value}, nil
}

func (g *Generator[Req, Out]) batch(ctx context.Context, req Req, handle *llm.Handle, genReq *llm.GenerationRequest) (*Out, error) {
	start := g.now()
	record := g.newRecord(handle, genReq, observability.ModeBatch, start)

	finish := func(output string, usage llm.Usage, err error) {
		record.Output = output
		record.Usage = usage
		record.Err = err
		record.Duration = time.Since(start)
		g.recorder.RecordGeneration(ctx, record)
	}

	resp, err := handle.Provider.Generate(ctx, genReq)
	if err != nil {
		genErr := apperrors.NewGeneration(g.pipeline.Name+" generation failed", err)
		finish("", llm.Usage{}, genErr)
		return nil, genErr
	}

	var out Out
	if err := json.Unmarshal([]byte(resp.RawOutput), &out); err != nil {
		genErr := apperrors.NewGeneration("model returned malformed JSON", err)
		finish(resp.RawOutput, resp.Usage, genErr)
		return nil, genErr
	}

	if g.pipeline.Check != nil {
		if err := g.pipeline.Check(&out, req); err != nil {
			genErr := apperrors.NewGeneration("model output does not match the requested shape", err)
			finish(resp.RawOutput, resp.Usage, genErr)
			return nil, genErr
		}
	}

	g.stamp(&out, req, handle)
	finish(resp.RawOutput, resp.Usage, nil)
	return &out, nil
}

func (g *Generator[Req, Out]) stream(ctx context.Context, req Req, handle *llm.Handle, genReq *llm.GenerationRequest) *StreamResult[Out] {
	run := func(yield func(*Out, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		start := g.now()
		record := g.newRecord(handle, genReq, observability.ModeStream, start)

		var (
			buf      strings.Builder
			acc      map[string]any
			last     []byte
			stopped  bool
			partials int
		)

		onEvent := func(event llm.StreamEvent) error {
			if event.Type != llm.EventTextDelta {
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			buf.WriteString(event.Message)

			text, ok := partialjson.Complete(buf.String())
			if !ok {
				return nil
			}
			var snapshot map[string]any
			if err := json.Unmarshal([]byte(text), &snapshot); err != nil {
				return nil
			}
			acc = partialjson.Merge(acc, snapshot)

			merged, err := json.Marshal(acc)
			if err != nil || bytes.Equal(merged, last) {
				return nil
			}
			last = merged

			var out Out
			if err := json.Unmarshal(merged, &out); err != nil {
				// Field still being written with a type the struct cannot hold yet.
				return nil
			}
			g.stamp(&out, req, handle)
			partials++
			if !yield(&out, nil) {
				stopped = true
				cancel()
				return errConsumerStopped
			}
			return nil
		}

		resp, err := handle.Provider.GenerateStream(ctx, genReq, onEvent)

		record.Output = buf.String()
		record.Duration = time.Since(start)
		if resp != nil {
			record.Usage = resp.Usage
		}

		if stopped {
			g.recorder.RecordGeneration(ctx, record)
			return
		}
		if err == nil && partials == 0 {
			err = errors.New("stream ended without any JSON output")
		}
		if err != nil {
			genErr := apperrors.NewGeneration(g.pipeline.Name+" stream failed", err)
			record.Err = genErr
			g.recorder.RecordGeneration(ctx, record)
			yield(nil, genErr)
			return
		}
		if err := decodeComplete[Out](record.Output); err != nil {
			genErr := apperrors.NewGeneration("model returned malformed JSON", err)
			record.Err = genErr
			g.recorder.RecordGeneration(ctx, record)
			yield(nil, genErr)
			return
		}
		g.recorder.RecordGeneration(ctx, record)
	}

	return &StreamResult[Out]{run: run}
}

// decodeComplete checks that a finished stream holds one whole JSON document
// that decodes into Out.
func decodeComplete[Out any](text string) error {
	cleaned := []byte(llm.StripCodeFences(text))
	if !json.Valid(cleaned) {
		return errors.New("stream ended before the JSON document was complete")
	}
	var out Out
	return json.Unmarshal(cleaned, &out)
}

func (g *Generator[Req, Out]) stamp(out *Out, req Req, handle *llm.Handle) {
	if g.pipeline.Stamp == nil {
		return
	}
	g.pipeline.Stamp(out, req, Stamp{
		GeneratedAt: g.now().UTC().Format(time.RFC3339),
		Model:       handle.ModelID,
	})
}

func (g *Generator[Req, Out]) newRecord(handle *llm.Handle, genReq *llm.GenerationRequest, mode string, start time.Time) observability.GenerationRecord {
	return observability.GenerationRecord{
		Pipeline:     g.pipeline.Name,
		Provider:     handle.Provider.Name(),
		Model:        handle.Model,
		ModelID:      handle.ModelID,
		Mode:         mode,
		SystemPrompt: genReq.SystemPrompt,
		Prompt:       promptText(genReq),
		StartTime:    start,
	}
}

func promptText(genReq *llm.GenerationRequest) string {
	for _, item := range genReq.InputArray {
		if content, ok := item["content"].(string); ok {
			return content
		}
	}
	return ""
}
