package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/captionforge/pkg/provider/llm"
	llmmock "github.com/MrWong99/captionforge/pkg/provider/llm/mock"
)

func TestLLMFallback_Complete_PrimarySuccess(t *testing.T) {
	primary := &llmmock.Provider{
		Responses: []llm.CompletionResponse{{Content: "hello from primary"}},
	}
	secondary := &llmmock.Provider{
		Responses: []llm.CompletionResponse{{Content: "hello from secondary"}},
	}

	fb := NewLLMFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	resp, err := fb.Complete(context.Background(), llm.CompletionRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hello from primary" {
		t.Fatalf("content = %q, want 'hello from primary'", resp.Content)
	}
	if len(primary.Calls) != 1 {
		t.Fatalf("primary called %d times, want 1", len(primary.Calls))
	}
	if len(secondary.Calls) != 0 {
		t.Fatalf("secondary called %d times, want 0", len(secondary.Calls))
	}
}

func TestLLMFallback_Complete_Failover(t *testing.T) {
	primary := &llmmock.Provider{
		Err: errors.New("primary down"),
	}
	secondary := &llmmock.Provider{
		Responses: []llm.CompletionResponse{{Content: "hello from secondary"}},
	}

	fb := NewLLMFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	resp, err := fb.Complete(context.Background(), llm.CompletionRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hello from secondary" {
		t.Fatalf("content = %q, want 'hello from secondary'", resp.Content)
	}
}

func TestLLMFallback_Complete_AllFail(t *testing.T) {
	primary := &llmmock.Provider{Err: errors.New("primary down")}
	secondary := &llmmock.Provider{Err: errors.New("secondary down")}

	fb := NewLLMFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	_, err := fb.Complete(context.Background(), llm.CompletionRequest{})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestLLMFallback_Complete_RequestForwarded(t *testing.T) {
	primary := &llmmock.Provider{
		Responses: []llm.CompletionResponse{{Content: "ok"}},
	}

	fb := NewLLMFallback(primary, "primary", FallbackConfig{})

	req := llm.CompletionRequest{
		SystemPrompt: "You are a transcript editor.",
		Messages:     []llm.Message{{Role: "user", Content: "1: hello"}},
		Temperature:  0.1,
	}
	if _, err := fb.Complete(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := primary.Calls[0].Req.SystemPrompt; got != req.SystemPrompt {
		t.Fatalf("forwarded system prompt = %q, want %q", got, req.SystemPrompt)
	}
	if got := primary.Calls[0].Req.Temperature; got != 0.1 {
		t.Fatalf("forwarded temperature = %v, want 0.1", got)
	}
}
