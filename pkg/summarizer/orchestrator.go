package summarizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pario-ai/briefbench/pkg/cache"
	"github.com/pario-ai/briefbench/pkg/models"
	"github.com/pario-ai/briefbench/pkg/ollama"
)

// ErrConfiguration means the request is missing a required value.
var ErrConfiguration = errors.New("invalid configuration")

// ReuseFlag is the positional argument that forces cache reuse.
const ReuseFlag = "REPEATED"

// Inference is the subset of the inference client the orchestrator drives.
type Inference interface {
	CheckReachable(ctx context.Context) error
	CheckModelAvailable(ctx context.Context, model string) error
	UnloadAll(ctx context.Context) ollama.UnloadReport
	Generate(ctx context.Context, model, prompt string, timeout time.Duration) (string, error)
}

// ContentResolver returns article text for a URL.
type ContentResolver interface {
	Resolve(ctx context.Context, url string, forceReuse bool) (string, error)
}

// CacheReader exposes cache lookups.
type CacheReader interface {
	Read(key string) (content string, ageHours float64, ok bool, err error)
	IsFresh(ageHours float64, forceReuse bool) bool
}

// Request is one summarization run.
type Request struct {
	URL          string
	Model        string
	TargetLength int
	// ForceReuse reprocesses the article even when the cache is fresh, and
	// accepts a cached copy of any age instead of refetching.
	ForceReuse bool
}

// Validate rejects requests that cannot be run.
func (r Request) Validate() error {
	switch {
	case r.URL == "":
		return fmt.Errorf("%w: url is required", ErrConfiguration)
	case r.Model == "":
		return fmt.Errorf("%w: model is required", ErrConfiguration)
	case r.TargetLength <= 0:
		return fmt.Errorf("%w: summary length must be positive, got %d", ErrConfiguration, r.TargetLength)
	}
	return nil
}

// CheckHost validates an inference host before any connection is made.
func CheckHost(host string) error {
	if _, err := ollama.BaseURL(host); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return nil
}

// Orchestrator runs the summarization pipeline.
type Orchestrator struct {
	inference       Inference
	content         ContentResolver
	cache           CacheReader
	generateTimeout time.Duration
	onSummary       func(models.SummaryResult)
	logger          *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithGenerateTimeout bounds the generation call.
func WithGenerateTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.generateTimeout = d }
}

// WithLogger sets the narration logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// OnSummary registers a callback invoked with the validated summary before
// the final unload.
func OnSummary(fn func(models.SummaryResult)) Option {
	return func(o *Orchestrator) { o.onSummary = fn }
}

// New creates an Orchestrator.
func New(inference Inference, content ContentResolver, c CacheReader, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		inference:       inference,
		content:         content,
		cache:           c,
		generateTimeout: 30 * time.Second,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the pipeline for req. A fresh cache entry without forced
// reuse short-circuits with a Reused outcome.
func (o *Orchestrator) Run(ctx context.Context, req Request) (models.Outcome, error) {
	if err := req.Validate(); err != nil {
		return models.Outcome{}, err
	}
	log := o.logger.With(zap.String("url", req.URL), zap.String("model", req.Model))

	log.Info("checking ollama server status")
	if err := o.inference.CheckReachable(ctx); err != nil {
		return models.Outcome{}, err
	}
	log.Info("ollama server is reachable", zap.String("state", "server_checked"))

	if err := o.inference.CheckModelAvailable(ctx, req.Model); err != nil {
		return models.Outcome{}, err
	}
	log.Info("model is available", zap.String("state", "model_checked"))

	key := cache.KeyFor(req.URL)
	_, age, ok, err := o.cache.Read(key)
	if err != nil {
		return models.Outcome{}, err
	}
	if ok && o.cache.IsFresh(age, false) && !req.ForceReuse {
		log.Info("fresh cache entry found, skipping",
			zap.String("state", "short_circuit_reuse"),
			zap.Float64("age_hours", age))
		return models.Outcome{Kind: models.Reused}, nil
	}
	log.Info("cache resolved",
		zap.String("state", "cache_resolved"),
		zap.Bool("cached", ok),
		zap.Bool("force_reuse", req.ForceReuse))

	content, err := o.content.Resolve(ctx, req.URL, req.ForceReuse)
	if err != nil {
		return models.Outcome{}, err
	}
	log.Info("content resolved", zap.String("state", "content_resolved"), zap.Int("chars", len(content)))

	o.inference.UnloadAll(ctx)
	log.Info("models unloaded", zap.String("state", "models_unloaded"))

	sreq := models.SummaryRequest{
		Model:          req.Model,
		TargetLength:   req.TargetLength,
		SourceText:     content,
		PromptTemplate: BuildPrompt(req.TargetLength),
	}
	log.Info("generating summary", zap.Int("target_length", req.TargetLength))
	start := time.Now()
	raw, err := o.inference.Generate(ctx, sreq.Model, ComposePrompt(sreq), o.generateTimeout)
	if err != nil {
		return models.Outcome{}, err
	}
	log.Info("summary generated", zap.String("state", "summary_generated"), zap.Duration("took", time.Since(start)))

	res := Validate(raw, req.TargetLength)
	if res.IsFallback {
		log.Warn("model returned no usable text")
	}
	if !res.WithinBudget {
		log.Warn("summary exceeds target length",
			zap.Int("length", res.Length),
			zap.Int("target_length", req.TargetLength))
	}
	log.Info("summary validated", zap.String("state", "validated"), zap.Int("length", res.Length))

	if o.onSummary != nil {
		o.onSummary(res)
	}

	o.inference.UnloadAll(ctx)
	log.Info("done", zap.String("state", "done"))
	return models.Outcome{Kind: models.Produced, Summary: &res}, nil
}
