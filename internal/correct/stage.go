package correct

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MrWong99/captionforge/internal/batch"
	"github.com/MrWong99/captionforge/internal/resilience"
	"github.com/MrWong99/captionforge/pkg/provider/llm"
	"github.com/MrWong99/captionforge/pkg/segment"
)

const (
	// DefaultBatchSize is the number of core segments sent per LLM call.
	DefaultBatchSize = 10

	// DefaultContextWindow is the number of read-only surrounding segments
	// included per batch.
	DefaultContextWindow = 1

	// DefaultConcurrency bounds in-flight LLM calls per file.
	DefaultConcurrency = 2

	// DefaultRequestTimeout bounds a single model call; a batch of a dozen
	// short lines that takes longer than this is stuck, not slow.
	DefaultRequestTimeout = 2 * time.Minute

	// defaultTemperature keeps cleanup output near-deterministic.
	defaultTemperature = 0.1
)

// Config holds the validated parameters for the correction stage.
type Config struct {
	// Level selects the cleanup intensity. Empty means [LevelStandard].
	Level Level

	// CustomPrompt is the instruction block for [LevelCustom]. Required for
	// that level, ignored otherwise.
	CustomPrompt string

	// Glossary lists canonical spellings (names, places, jargon) applied as
	// a phonetic pre-pass before any LLM call. Empty disables the pre-pass.
	Glossary []string

	// BatchSize, ContextWindow, and Concurrency tune the batch windower.
	// Zero selects the package defaults.
	BatchSize     int
	ContextWindow int
	Concurrency   int

	// RequestTimeout bounds each individual model call. Zero selects
	// [DefaultRequestTimeout].
	RequestTimeout time.Duration

	// RetryAttempts and RetryBackoff tune the per-call retry. Zero selects
	// the resilience package defaults.
	RetryAttempts int
	RetryBackoff  time.Duration

	// Temperature overrides the near-zero default passed to the model.
	Temperature float64
}

// Stage corrects transcript text in batches through an LLM provider.
type Stage struct {
	provider llm.Provider
	matcher  *Matcher
	cfg      Config
}

// NewStage builds a correction stage. The provider is required; cleanup
// levels and batch bounds are validated up front so a bad configuration
// fails before any external call.
func NewStage(provider llm.Provider, cfg Config) (*Stage, error) {
	if provider == nil {
		return nil, &segment.ConfigurationError{
			Param:  "provider",
			Reason: "correction requires an LLM provider",
		}
	}
	if cfg.Level == "" {
		cfg.Level = LevelStandard
	}
	if !cfg.Level.Valid() {
		return nil, &segment.ConfigurationError{
			Param:  "cleanup_level",
			Reason: fmt.Sprintf("unknown level %q", cfg.Level),
		}
	}
	if cfg.Level == LevelCustom && strings.TrimSpace(cfg.CustomPrompt) == "" {
		return nil, &segment.ConfigurationError{
			Param:  "custom_prompt",
			Reason: "required when cleanup_level is custom",
		}
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchSize < 0 {
		return nil, &segment.ConfigurationError{
			Param:  "batch_size",
			Reason: fmt.Sprintf("must be at least 1, got %d", cfg.BatchSize),
		}
	}
	if cfg.ContextWindow < 0 {
		return nil, &segment.ConfigurationError{
			Param:  "context_window",
			Reason: fmt.Sprintf("must not be negative, got %d", cfg.ContextWindow),
		}
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}

	st := &Stage{provider: provider, cfg: cfg}
	if len(cfg.Glossary) > 0 {
		st.matcher = NewMatcher(cfg.Glossary)
	}
	return st, nil
}

// Run corrects every segment of col and returns the corrected copy. Timing,
// speakers, and metadata pass through untouched; only text changes.
//
// The cleanup prompts are written for English speech, so non-English
// collections get the glossary pre-pass only. This mirrors the rest of the
// pipeline's ordering: correction runs before translation, never after.
func (st *Stage) Run(ctx context.Context, col *segment.Collection) (*segment.Collection, error) {
	working := col
	if st.matcher != nil {
		working = st.matcher.ApplyGlossary(col)
	}
	if working.Len() == 0 {
		return working.Clone(), nil
	}
	if col.Language != "" && col.Language != "en" {
		slog.Info("skipping LLM cleanup for non-English transcript",
			"source", col.Source, "language", col.Language)
		return working.Clone(), nil
	}

	batches, err := batch.Window(working, st.cfg.BatchSize, st.cfg.ContextWindow)
	if err != nil {
		return nil, err
	}

	system := systemPrompt(st.cfg.Level, st.cfg.CustomPrompt)
	results, err := batch.Dispatch(ctx, batches, st.cfg.Concurrency, func(ctx context.Context, b segment.Batch) ([]string, error) {
		return st.correctBatch(ctx, system, b)
	})
	if err != nil {
		return nil, err
	}

	return batch.Merge(working, batches, results, "correct")
}

// correctBatch sends one batch to the model and parses the numbered reply.
func (st *Stage) correctBatch(ctx context.Context, system string, b segment.Batch) ([]string, error) {
	prompt := batchPrompt(b)
	resp, err := st.complete(ctx, llm.CompletionRequest{
		SystemPrompt: system,
		Messages:     []llm.Message{{Role: "user", Content: prompt}},
		Temperature:  st.cfg.Temperature,
		MaxTokens:    2 * len(strings.Fields(prompt)),
	})
	if err != nil {
		return nil, &segment.CollaboratorError{Collaborator: "correct", Err: err}
	}
	return parseNumberedLines("correct", resp.Content, b.Size())
}

// complete issues one model call with a per-attempt timeout and bounded
// retry, so a transient provider hiccup does not fail the whole stage.
func (st *Stage) complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return resilience.RetryWithResult(ctx, resilience.RetryConfig{
		Name:        "correct llm",
		MaxAttempts: st.cfg.RetryAttempts,
		Backoff:     st.cfg.RetryBackoff,
	}, func() (*llm.CompletionResponse, error) {
		callCtx, cancel := context.WithTimeout(ctx, st.cfg.RequestTimeout)
		defer cancel()
		return st.provider.Complete(callCtx, req)
	})
}
