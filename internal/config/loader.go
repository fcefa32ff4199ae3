package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/captionforge/internal/render"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm": {"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"stt": {"whisper"},
}

// validCleanupLevels mirrors the correction stage's level set.
var validCleanupLevels = []string{"minimal", "standard", "aggressive", "custom"}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}
	if cfg.OutputDir == "" {
		errs = append(errs, errors.New("output_dir is required"))
	}
	if cfg.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers %d must not be negative", cfg.Workers))
	}

	// Providers.
	validateProviderName("llm", cfg.Providers.LLM.Name)
	for _, fb := range cfg.Providers.LLMFallbacks {
		validateProviderName("llm", fb.Name)
	}
	validateProviderName("stt", cfg.Providers.STT.Name)
	if cfg.Providers.STT.Name == "" {
		errs = append(errs, errors.New("providers.stt.name is required; every run starts with transcription"))
	}
	if len(cfg.Providers.LLMFallbacks) > 0 && cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm_fallbacks is set but providers.llm is not configured"))
	}

	// Artifacts.
	if cfg.Artifacts.Backend != "" && !cfg.Artifacts.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("artifacts.backend %q is invalid; valid values: none, filesystem, postgres", cfg.Artifacts.Backend))
	}
	if cfg.Artifacts.Backend == ArtifactFilesystem && cfg.Artifacts.Dir == "" {
		errs = append(errs, errors.New("artifacts.dir is required when artifacts.backend is filesystem"))
	}
	if cfg.Artifacts.Backend == ArtifactPostgres && cfg.Artifacts.PostgresDSN == "" {
		errs = append(errs, errors.New("artifacts.postgres_dsn is required when artifacts.backend is postgres"))
	}

	// Diarization.
	if cfg.Diarize.MinSpeakers > 0 && cfg.Diarize.MaxSpeakers > 0 && cfg.Diarize.MinSpeakers > cfg.Diarize.MaxSpeakers {
		errs = append(errs, fmt.Errorf("diarize.min_speakers %d exceeds diarize.max_speakers %d", cfg.Diarize.MinSpeakers, cfg.Diarize.MaxSpeakers))
	}
	if cfg.Diarize.MinPause < 0 {
		errs = append(errs, fmt.Errorf("diarize.min_pause %.2f must not be negative", cfg.Diarize.MinPause))
	}

	// Correction.
	if cfg.Correct.Enabled {
		if cfg.Correct.Level != "" && !slices.Contains(validCleanupLevels, cfg.Correct.Level) {
			errs = append(errs, fmt.Errorf("correct.level %q is invalid; valid values: %v", cfg.Correct.Level, validCleanupLevels))
		}
		if cfg.Correct.Level == "custom" && cfg.Correct.CustomPrompt == "" {
			errs = append(errs, errors.New("correct.custom_prompt is required when correct.level is custom"))
		}
		if cfg.Providers.LLM.Name == "" {
			errs = append(errs, errors.New("correct is enabled but providers.llm is not configured"))
		}
	}

	// Translation.
	if cfg.Translate.Enabled {
		if cfg.Translate.TargetLanguage == "" {
			errs = append(errs, errors.New("translate.target_language is required when translate is enabled"))
		}
		if cfg.Providers.LLM.Name == "" {
			errs = append(errs, errors.New("translate is enabled but providers.llm is not configured"))
		}
	}

	// Rechunking.
	if cfg.Rechunk.MaxDuration < 0 {
		errs = append(errs, fmt.Errorf("rechunk.max_duration %.2f must not be negative", cfg.Rechunk.MaxDuration))
	}
	if cfg.Rechunk.MaxChars < 0 {
		errs = append(errs, fmt.Errorf("rechunk.max_chars %d must not be negative", cfg.Rechunk.MaxChars))
	}
	if cfg.Rechunk.MergeGap < 0 {
		errs = append(errs, fmt.Errorf("rechunk.merge_gap %.2f must not be negative", cfg.Rechunk.MergeGap))
	}

	// Rendering.
	if len(cfg.Render.Formats) == 0 {
		errs = append(errs, errors.New("render.formats must list at least one output format"))
	}
	known := render.Formats()
	for _, f := range cfg.Render.Formats {
		if f != "md" && !slices.Contains(known, f) {
			errs = append(errs, fmt.Errorf("render.formats entry %q is invalid; valid values: %v", f, known))
		}
	}
	if cfg.Render.FrameRate < 0 {
		errs = append(errs, fmt.Errorf("render.frame_rate %.3f must not be negative", cfg.Render.FrameRate))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
