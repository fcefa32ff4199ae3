package resilience

import (
	"context"

	"github.com/MrWong99/captionforge/pkg/provider/stt"
	"github.com/MrWong99/captionforge/pkg/segment"
)

// STTFallback implements [stt.Provider] with automatic failover across multiple
// transcription backends. Each backend has its own circuit breaker. A whole-file
// transcription that fails on the primary is retried in full against the next
// healthy fallback; partial results from a failed backend are discarded.
type STTFallback struct {
	group *FallbackGroup[stt.Provider]
}

// Compile-time interface assertion.
var _ stt.Provider = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred backend.
func NewSTTFallback(primary stt.Provider, primaryName string, cfg FallbackConfig) *STTFallback {
	return &STTFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional STT provider as a fallback.
func (f *STTFallback) AddFallback(name string, provider stt.Provider) {
	f.group.AddFallback(name, provider)
}

// Transcribe runs the request against the first healthy provider and returns
// its collection. If the primary fails, subsequent fallbacks are tried with the
// same request.
func (f *STTFallback) Transcribe(ctx context.Context, req stt.Request) (*segment.Collection, error) {
	return ExecuteWithResult(f.group, func(p stt.Provider) (*segment.Collection, error) {
		return p.Transcribe(ctx, req)
	})
}
