package translate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/captionforge/pkg/provider/llm"
	"github.com/MrWong99/captionforge/pkg/provider/llm/mock"
	"github.com/MrWong99/captionforge/pkg/segment"
)

func makeCollection(t *testing.T, texts ...string) *segment.Collection {
	t.Helper()
	segs := make([]segment.Segment, len(texts))
	for i, text := range texts {
		s, err := segment.New(float64(i), float64(i)+1, text)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		s.Speaker = "SPEAKER_00"
		segs[i] = s
	}
	return segment.NewCollection("test.wav", "en", 0, segs)
}

// echoBracketed replies to any request by wrapping each separated segment in
// angle brackets, preserving the separator.
func echoBracketed(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	parts := strings.Split(req.Messages[0].Content, "\n"+Separator+"\n")
	for i, p := range parts {
		parts[i] = "<" + strings.TrimSpace(p) + ">"
	}
	return &llm.CompletionResponse{Content: strings.Join(parts, "\n"+Separator+"\n")}, nil
}

func TestNewStage_Validation(t *testing.T) {
	t.Parallel()

	var cerr *segment.ConfigurationError

	_, err := NewStage(nil, Config{TargetLanguage: "es"})
	if !errors.As(err, &cerr) {
		t.Errorf("nil provider: error = %v, want *ConfigurationError", err)
	}
	_, err = NewStage(&mock.Provider{}, Config{})
	if !errors.As(err, &cerr) {
		t.Errorf("missing target language: error = %v, want *ConfigurationError", err)
	}
	_, err = NewStage(&mock.Provider{}, Config{TargetLanguage: "es", BatchSize: -2})
	if !errors.As(err, &cerr) {
		t.Errorf("negative batch size: error = %v, want *ConfigurationError", err)
	}
}

func TestStage_TranslatesAndRetagsLanguage(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{RespondFunc: echoBracketed}
	st, err := NewStage(p, Config{TargetLanguage: "es", BatchSize: 2})
	if err != nil {
		t.Fatalf("NewStage: %v", err)
	}

	col := makeCollection(t, "one", "two", "three")
	out, err := st.Run(context.Background(), col)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if out.Language != "es" {
		t.Errorf("language %q, want es", out.Language)
	}
	want := []string{"<one>", "<two>", "<three>"}
	for i, s := range out.Segments {
		if s.Text != want[i] {
			t.Errorf("segment %d text %q, want %q", i, s.Text, want[i])
		}
		if s.Speaker != "SPEAKER_00" {
			t.Errorf("segment %d speaker %q changed", i, s.Speaker)
		}
	}
	if col.Language != "en" || col.Segments[0].Text != "one" {
		t.Error("Run mutated its input")
	}
}

func TestStage_CountMismatchIsAlignmentError(t *testing.T) {
	t.Parallel()

	// Three segments answered with two.
	p := &mock.Provider{Responses: []llm.CompletionResponse{
		{Content: "uno\n" + Separator + "\ndos"},
	}}
	st, err := NewStage(p, Config{TargetLanguage: "es"})
	if err != nil {
		t.Fatalf("NewStage: %v", err)
	}

	_, err = st.Run(context.Background(), makeCollection(t, "one", "two", "three"))
	var aerr *segment.AlignmentError
	if !errors.As(err, &aerr) {
		t.Fatalf("Run error = %v, want *AlignmentError", err)
	}
	if aerr.Want != 3 || aerr.Got != 2 {
		t.Errorf("AlignmentError %+v, want Want=3 Got=2", aerr)
	}
}

func TestStage_ProviderFailureIsCollaboratorError(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{Err: errors.New("quota exceeded")}
	st, err := NewStage(p, Config{TargetLanguage: "fr", RetryBackoff: time.Millisecond})
	if err != nil {
		t.Fatalf("NewStage: %v", err)
	}

	_, err = st.Run(context.Background(), makeCollection(t, "hello"))
	var cerr *segment.CollaboratorError
	if !errors.As(err, &cerr) {
		t.Fatalf("Run error = %v, want *CollaboratorError", err)
	}
	// The call is retried before the stage gives up.
	if len(p.Calls) != 3 {
		t.Errorf("got %d LLM calls, want 3 attempts before failing", len(p.Calls))
	}
}

func TestStage_RetriesTransientProviderFailure(t *testing.T) {
	t.Parallel()

	attempts := 0
	p := &mock.Provider{RespondFunc: func(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		attempts++
		if attempts < 2 {
			return nil, errors.New("quota exceeded")
		}
		return echoBracketed(req)
	}}
	st, err := NewStage(p, Config{TargetLanguage: "es", RetryBackoff: time.Millisecond})
	if err != nil {
		t.Fatalf("NewStage: %v", err)
	}

	out, err := st.Run(context.Background(), makeCollection(t, "hello"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Segments[0].Text != "<hello>" {
		t.Errorf("text %q, want <hello>", out.Segments[0].Text)
	}
	if attempts != 2 {
		t.Errorf("provider called %d times, want 2", attempts)
	}
}

func TestStage_ModelCallCarriesDeadline(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{RespondFunc: echoBracketed}
	st, err := NewStage(p, Config{TargetLanguage: "es"})
	if err != nil {
		t.Fatalf("NewStage: %v", err)
	}
	if _, err := st.Run(context.Background(), makeCollection(t, "hello")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(p.Calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(p.Calls))
	}
	if _, ok := p.Calls[0].Ctx.Deadline(); !ok {
		t.Error("model call context carries no deadline")
	}
}

func TestSplitResponse_LocalisedSeparator(t *testing.T) {
	t.Parallel()

	parts := splitResponse("hola\n---SEGMENTO---\nadiós")
	if len(parts) != 2 || parts[0] != "hola" || parts[1] != "adiós" {
		t.Errorf("parts = %q, want [hola adiós]", parts)
	}
}

func TestLanguageName(t *testing.T) {
	t.Parallel()

	if got := LanguageName("de"); got != "German" {
		t.Errorf("de → %q, want German", got)
	}
	if got := LanguageName("xx"); got != "Xx" {
		t.Errorf("xx → %q, want Xx", got)
	}
}

func TestStage_EmptyCollectionPassesThrough(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{}
	st, err := NewStage(p, Config{TargetLanguage: "ja"})
	if err != nil {
		t.Fatalf("NewStage: %v", err)
	}
	out, err := st.Run(context.Background(), makeCollection(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Language != "ja" || out.Len() != 0 {
		t.Errorf("unexpected output: lang=%q len=%d", out.Language, out.Len())
	}
	if len(p.Calls) != 0 {
		t.Errorf("expected no LLM calls, got %d", len(p.Calls))
	}
}
