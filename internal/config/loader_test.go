package config_test

import (
	"strings"
	"testing"

	"github.com/MrWong99/captionforge/internal/config"
)

const validYAML = `
log_level: info
output_dir: ./out
workers: 4
providers:
  llm:
    name: openai
    api_key: sk-test
    model: gpt-4o
  stt:
    name: whisper
    model: ./models/ggml-base.en.bin
artifacts:
  backend: filesystem
  dir: ./artifacts
transcribe:
  language: en
diarize:
  enabled: true
  max_speakers: 4
correct:
  enabled: true
  level: standard
  glossary: [Eldrinax, "Tower of Whispers"]
translate:
  enabled: true
  target_language: es
rechunk:
  max_duration: 5.0
  max_chars: 60
render:
  formats: [fcpxml, itt, markdown]
  frame_rate: 29.97
  include_timecodes: true
  include_speakers: true
`

func TestLoadFromReader_ValidConfig(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Providers.LLM.Name != "openai" {
		t.Errorf("llm name = %q, want openai", cfg.Providers.LLM.Name)
	}
	if cfg.Providers.STT.Model != "./models/ggml-base.en.bin" {
		t.Errorf("stt model = %q", cfg.Providers.STT.Model)
	}
	if !cfg.Correct.Enabled || cfg.Correct.Level != "standard" {
		t.Errorf("correct = %+v", cfg.Correct)
	}
	if cfg.Translate.TargetLanguage != "es" {
		t.Errorf("target language = %q, want es", cfg.Translate.TargetLanguage)
	}
	if len(cfg.Render.Formats) != 3 {
		t.Errorf("formats = %v, want 3 entries", cfg.Render.Formats)
	}
	if cfg.Artifacts.Backend != config.ArtifactFilesystem {
		t.Errorf("artifacts backend = %q", cfg.Artifacts.Backend)
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	yaml := `
output_dir: ./out
speling_mistake: true
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	t.Parallel()

	yaml := `
log_level: loud
workers: -1
correct:
  enabled: true
  level: brutal
translate:
  enabled: true
render:
  formats: [vhs]
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected validation errors, got nil")
	}
	for _, want := range []string{
		"log_level",
		"output_dir is required",
		"workers -1",
		"providers.stt.name is required",
		`correct.level "brutal"`,
		"translate.target_language is required",
		`render.formats entry "vhs"`,
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q, got: %v", want, err)
		}
	}
}

func TestValidate_Cases(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "custom level without prompt",
			yaml: `
output_dir: ./out
providers:
  llm: {name: openai}
  stt: {name: whisper}
correct:
  enabled: true
  level: custom
render:
  formats: [json]
`,
			wantErr: "correct.custom_prompt is required",
		},
		{
			name: "correction without llm provider",
			yaml: `
output_dir: ./out
providers:
  stt: {name: whisper}
correct:
  enabled: true
render:
  formats: [json]
`,
			wantErr: "correct is enabled but providers.llm",
		},
		{
			name: "min speakers above max",
			yaml: `
output_dir: ./out
providers:
  stt: {name: whisper}
diarize:
  enabled: true
  min_speakers: 5
  max_speakers: 2
render:
  formats: [json]
`,
			wantErr: "diarize.min_speakers 5 exceeds",
		},
		{
			name: "postgres backend without dsn",
			yaml: `
output_dir: ./out
providers:
  stt: {name: whisper}
artifacts:
  backend: postgres
render:
  formats: [json]
`,
			wantErr: "artifacts.postgres_dsn is required",
		},
		{
			name: "fallbacks without primary",
			yaml: `
output_dir: ./out
providers:
  stt: {name: whisper}
  llm_fallbacks:
    - {name: ollama}
render:
  formats: [json]
`,
			wantErr: "llm_fallbacks is set but providers.llm",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.LoadFromReader(strings.NewReader(tc.yaml))
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tc.wantErr)
			}
		})
	}
}

func TestValidate_MdAliasAccepted(t *testing.T) {
	t.Parallel()

	yaml := `
output_dir: ./out
providers:
  stt: {name: whisper}
render:
  formats: [md]
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err != nil {
		t.Fatalf("md alias should be accepted: %v", err)
	}
}
