// Package translate implements the translation stage. Segment texts are
// batched, joined with an explicit separator marker, sent to an LLM
// provider, and split back one-for-one. A response whose separator count
// does not match the batch is an alignment failure and aborts the stage;
// padding or truncating a mismatched reply would silently desynchronise
// text from timing.
package translate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MrWong99/captionforge/internal/batch"
	"github.com/MrWong99/captionforge/internal/resilience"
	"github.com/MrWong99/captionforge/pkg/provider/llm"
	"github.com/MrWong99/captionforge/pkg/segment"
)

// Separator delimits segment texts inside one translation request and its
// reply. Models occasionally localise the marker, so the splitter also
// accepts close variants (see splitResponse).
const Separator = "---SEGMENT---"

const (
	// DefaultBatchSize is the number of segments sent per LLM call.
	DefaultBatchSize = 10

	// DefaultConcurrency bounds in-flight LLM calls per file.
	DefaultConcurrency = 2

	// DefaultRequestTimeout bounds a single model call.
	DefaultRequestTimeout = 2 * time.Minute

	// defaultTemperature trades a little fluency for run-to-run consistency.
	defaultTemperature = 0.3
)

// languageNames maps ISO 639-1 codes to the names used in prompts. Unknown
// codes fall back to the code itself, title-cased.
var languageNames = map[string]string{
	"en": "English", "es": "Spanish", "fr": "French", "de": "German",
	"it": "Italian", "pt": "Portuguese", "zh": "Chinese (Simplified)",
	"zh-tw": "Chinese (Traditional)", "ja": "Japanese", "ko": "Korean",
	"ru": "Russian", "ar": "Arabic", "hi": "Hindi", "nl": "Dutch",
	"sv": "Swedish", "no": "Norwegian", "da": "Danish", "fi": "Finnish",
	"pl": "Polish", "tr": "Turkish", "he": "Hebrew", "th": "Thai",
	"vi": "Vietnamese",
}

// LanguageName returns the prompt-friendly name for an ISO 639-1 code.
func LanguageName(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	if code == "" {
		return "Unknown"
	}
	return strings.ToUpper(code[:1]) + code[1:]
}

// Config holds the validated parameters for the translation stage.
type Config struct {
	// TargetLanguage is the ISO 639-1 code to translate into. Required.
	TargetLanguage string

	// BatchSize and Concurrency tune the batch windower. Zero selects the
	// package defaults. Translation batches carry no context window; the
	// separator protocol leaves no room for read-only lines.
	BatchSize   int
	Concurrency int

	// RequestTimeout bounds each individual model call. Zero selects
	// [DefaultRequestTimeout].
	RequestTimeout time.Duration

	// RetryAttempts and RetryBackoff tune the per-call retry. Zero selects
	// the resilience package defaults.
	RetryAttempts int
	RetryBackoff  time.Duration

	// Temperature overrides the default passed to the model.
	Temperature float64
}

// Stage translates transcript text through an LLM provider.
type Stage struct {
	provider llm.Provider
	cfg      Config
}

// NewStage builds a translation stage. The provider and a target language
// are required.
func NewStage(provider llm.Provider, cfg Config) (*Stage, error) {
	if provider == nil {
		return nil, &segment.ConfigurationError{
			Param:  "provider",
			Reason: "translation requires an LLM provider",
		}
	}
	if strings.TrimSpace(cfg.TargetLanguage) == "" {
		return nil, &segment.ConfigurationError{
			Param:  "target_language",
			Reason: "must not be empty",
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
	if cfg.Concurrency == 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	return &Stage{provider: provider, cfg: cfg}, nil
}

// Run translates every segment of col and returns the translated copy with
// Language set to the target code. Timing, speakers, and metadata pass
// through untouched.
func (st *Stage) Run(ctx context.Context, col *segment.Collection) (*segment.Collection, error) {
	if col.Len() == 0 {
		out := col.Clone()
		out.Language = st.cfg.TargetLanguage
		return out, nil
	}

	batches, err := batch.Window(col, st.cfg.BatchSize, 0)
	if err != nil {
		return nil, err
	}

	system := systemPrompt(st.cfg.TargetLanguage, col.Language)
	results, err := batch.Dispatch(ctx, batches, st.cfg.Concurrency, func(ctx context.Context, b segment.Batch) ([]string, error) {
		return st.translateBatch(ctx, system, b)
	})
	if err != nil {
		return nil, err
	}

	out, err := batch.Merge(col, batches, results, "translate")
	if err != nil {
		return nil, err
	}
	out.Language = st.cfg.TargetLanguage
	return out, nil
}

// translateBatch sends one batch to the model and splits the reply back into
// per-segment texts.
func (st *Stage) translateBatch(ctx context.Context, system string, b segment.Batch) ([]string, error) {
	texts := make([]string, len(b.Core))
	for i, s := range b.Core {
		texts[i] = s.Text
	}
	combined := strings.Join(texts, "\n"+Separator+"\n")

	resp, err := st.complete(ctx, llm.CompletionRequest{
		SystemPrompt: system,
		Messages:     []llm.Message{{Role: "user", Content: combined}},
		Temperature:  st.cfg.Temperature,
		// Allow for language expansion.
		MaxTokens: 2 * len(strings.Fields(combined)),
	})
	if err != nil {
		return nil, &segment.CollaboratorError{Collaborator: "translate", Err: err}
	}

	parts := splitResponse(resp.Content)
	if len(parts) != len(texts) {
		return nil, &segment.AlignmentError{
			Stage:  "translate",
			Want:   len(texts),
			Got:    len(parts),
			Reason: "translated segment count does not match batch",
		}
	}
	return parts, nil
}

// complete issues one model call with a per-attempt timeout and bounded
// retry, so a transient provider hiccup does not fail the whole stage.
func (st *Stage) complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return resilience.RetryWithResult(ctx, resilience.RetryConfig{
		Name:        "translate llm",
		MaxAttempts: st.cfg.RetryAttempts,
		Backoff:     st.cfg.RetryBackoff,
	}, func() (*llm.CompletionResponse, error) {
		callCtx, cancel := context.WithTimeout(ctx, st.cfg.RequestTimeout)
		defer cancel()
		return st.provider.Complete(callCtx, req)
	})
}

// systemPrompt builds the translation instruction for the target language.
func systemPrompt(target, source string) string {
	targetName := LanguageName(target)
	sourceName := "the source language"
	if source != "" {
		sourceName = LanguageName(source)
	}
	return fmt.Sprintf(`You are a professional translator. Translate the following %[1]s text to %[2]s.

REQUIREMENTS:
1. Maintain the meaning and tone of the original text
2. Use natural, fluent %[2]s that sounds native
3. Preserve any technical terms appropriately
4. Keep punctuation and formatting consistent
5. Do NOT add explanations or notes - provide ONLY the translation
6. If translating speech, maintain conversational tone
7. For unclear segments, provide the best natural translation
8. Segments are separated by the marker %[3]q on its own line. Keep the
marker EXACTLY as is between translated segments; never translate, move,
or drop it.`, sourceName, targetName, Separator)
}

// splitResponse splits a model reply on the separator marker, tolerating the
// common localised variant and stray marker residue inside segments.
func splitResponse(text string) []string {
	text = strings.TrimSpace(text)
	sep := Separator
	if !strings.Contains(text, sep) && strings.Contains(text, "---SEGMENTO---") {
		sep = "---SEGMENTO---"
	}
	raw := strings.Split(text, sep)
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.ReplaceAll(p, "---SEGMENTO---", "")
		parts = append(parts, strings.TrimSpace(p))
	}
	return parts
}
