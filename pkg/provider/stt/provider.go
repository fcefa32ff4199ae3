// Package stt defines the Provider interface for Speech-to-Text backends.
//
// An STT provider turns decoded audio samples into a timed transcript
// ([segment.Collection]). The pipeline extracts and resamples audio up front
// (see internal/media), so providers receive normalised 16 kHz mono float32
// PCM and never touch the source media themselves.
//
// Implementations must be safe for concurrent use; the pipeline may
// transcribe several files against one provider at a time.
package stt

import (
	"context"

	"github.com/MrWong99/captionforge/pkg/segment"
)

// Request carries the audio and recognition hints for one transcription.
type Request struct {
	// Samples is 16 kHz mono PCM normalised to [-1.0, 1.0].
	Samples []float32

	// Language is the ISO 639-1 language code of the speech (e.g., "en",
	// "de"). An empty string lets the provider auto-detect, if supported.
	Language string

	// Source is the path of the original media file. It is recorded on the
	// returned collection and never opened by the provider.
	Source string
}

// Provider is the abstraction over any STT backend.
type Provider interface {
	// Transcribe runs recognition over the full audio and returns the timed
	// segments in playback order. The returned collection is non-nil exactly
	// when error is nil; a silent file yields a collection with zero
	// segments, not an error.
	Transcribe(ctx context.Context, req Request) (*segment.Collection, error)
}
