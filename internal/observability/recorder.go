package observability

import (
	"context"
	"time"

	"github.com/wd-ai-tools/ai-gateway/internal/llm"
	"github.com/wd-ai-tools/ai-gateway/internal/logger"
	"github.com/wd-ai-tools/ai-gateway/internal/metrics"
)

// Generation modes
const (
	ModeBatch  = "batch"
	ModeStream = "stream"
)

// GenerationRecord describes one finished generation run.
type GenerationRecord struct {
	Pipeline     string
	Provider     string
	Model        string
	ModelID      string
	Mode         string
	SystemPrompt string
	Prompt       string
	Output       string
	Usage        llm.Usage
	StartTime    time.Time
	Duration     time.Duration
	Err          error
}

// Recorder receives every finished generation run.
type Recorder interface {
	RecordGeneration(ctx context.Context, record GenerationRecord)
}

// NopRecorder discards records.
type NopRecorder struct{}

func (NopRecorder) RecordGeneration(context.Context, GenerationRecord) {}

// GenerationRecorder fans a record out to logs, Prometheus, Sentry, CloudWatch and Langfuse.
type GenerationRecorder struct {
	sentry     *metrics.SentryMetrics
	cloudwatch *metrics.Client
	langfuse   *LangfuseClient
}

// NewGenerationRecorder builds a recorder. A nil CloudWatch client is allowed.
func NewGenerationRecorder(cloudwatch *metrics.Client, lf *LangfuseClient) *GenerationRecorder {
	if lf == nil {
		lf = GetClient()
	}
	return &GenerationRecorder{
		sentry:     metrics.NewSentryMetrics(),
		cloudwatch: cloudwatch,
		langfuse:   lf,
	}
}

// RecordGeneration implements Recorder.
func (r *GenerationRecorder) RecordGeneration(ctx context.Context, rec GenerationRecord) {
	success := rec.Err == nil
	cost := CalculateCost(rec.Model, rec.Usage.InputTokens, rec.Usage.OutputTokens)

	fields := logger.Fields{
		"pipeline": rec.Pipeline,
		"provider": rec.Provider,
		"mode":     rec.Mode,
		"success":  success,
		"cost_usd": FormatCost(cost),
	}
	if success {
		logger.LogGenerationRequest(ctx, rec.ModelID, rec.Duration, rec.Usage.AsMap(), fields)
	} else {
		fields["model"] = rec.ModelID
		fields["duration_ms"] = rec.Duration.Milliseconds()
		logger.Error("Generation failed", rec.Err, fields)
	}

	metrics.ObserveGeneration(rec.Pipeline, rec.Provider, rec.Mode, rec.Duration, success)
	metrics.ObserveTokens(rec.Provider, rec.Model, rec.Usage.InputTokens, rec.Usage.OutputTokens)

	r.sentry.RecordGenerationDuration(ctx, rec.Pipeline, rec.Duration, success)
	r.sentry.RecordTokenUsage(ctx, rec.Provider, rec.Model, rec.Usage.InputTokens, rec.Usage.OutputTokens, rec.Usage.TotalTokens)

	r.cloudwatch.RecordGenerationDuration(rec.Pipeline, rec.Duration, success)
	r.cloudwatch.RecordTokenUsage(rec.Provider, rec.Model, rec.Usage.InputTokens, rec.Usage.OutputTokens, rec.Usage.TotalTokens)

	if r.langfuse.IsEnabled() {
		go r.sendLangfuse(rec, cost)
	}
}

func (r *GenerationRecorder) sendLangfuse(rec GenerationRecord, cost float64) {
	trace := r.langfuse.StartTrace(context.Background(), rec.Pipeline, map[string]interface{}{
		"provider": rec.Provider,
		"mode":     rec.Mode,
	})
	defer trace.Finish()

	gen := trace.Generation(rec.Pipeline+".generate", rec.StartTime, map[string]interface{}{
		"model_id": rec.ModelID,
		"cost_usd": cost,
	})
	gen.Model(rec.Model)
	gen.Input([]map[string]string{
		{"role": "system", "content": rec.SystemPrompt},
		{"role": "user", "content": rec.Prompt},
	})
	if rec.Output != "" {
		gen.Output(rec.Output)
	}
	usage := rec.Usage.AsMap()
	usage["cost_usd"] = cost
	gen.Usage(usage)
	if rec.Err != nil {
		gen.SetLevel("ERROR")
	}
	gen.Finish()
}
