// Package whisper provides a local STT provider backed by the whisper.cpp
// CGO bindings. The whisper.cpp static library (libwhisper.a) and headers
// (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH environment variables.
//
// The model is loaded once at startup and shared across all transcriptions;
// each Transcribe call creates its own whisper context, so concurrent calls
// do not interfere.
//
// Usage:
//
//	p, err := whisper.New("/models/ggml-base.en.bin", whisper.WithLanguage("en"))
//	col, err := p.Transcribe(ctx, stt.Request{Samples: samples, Source: "talk.mp4"})
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/MrWong99/captionforge/pkg/provider/stt"
	"github.com/MrWong99/captionforge/pkg/segment"
)

const defaultLanguage = "en"

// Provider implements stt.Provider using the whisper.cpp Go bindings.
type Provider struct {
	model    whisperlib.Model
	language string
	threads  uint
}

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithLanguage sets the default ISO 639-1 language code for transcription
// (e.g., "en", "de", "fr"). Defaults to "en". A per-request language takes
// precedence.
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// WithThreads sets the number of inference threads. Zero lets whisper.cpp
// pick based on the host CPU.
func WithThreads(n uint) Option {
	return func(p *Provider) { p.threads = n }
}

// New creates a Provider that loads the whisper.cpp model from the given
// file path. The caller must call Close when the provider is no longer
// needed.
func New(modelPath string, opts ...Option) (*Provider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	p := &Provider{model: model, language: defaultLanguage}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model.
func (p *Provider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// Transcribe implements stt.Provider. Zero-duration segments reported by the
// model are dropped; they carry no usable timing.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (*segment.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("whisper: context already cancelled: %w", err)
	}

	lang := req.Language
	if lang == "" {
		lang = p.language
	}

	// Each whisper context is NOT thread-safe, but the model can be shared
	// across goroutines.
	wctx, err := p.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(lang); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", lang, "error", err)
	}
	if p.threads > 0 {
		wctx.SetThreads(p.threads)
	}

	if err := wctx.Process(req.Samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("whisper: process audio: %w", err)
	}

	var segs []segment.Segment
	for {
		ws, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(ws.Text)
		if text == "" || ws.End <= ws.Start {
			continue
		}
		s, err := segment.New(ws.Start.Seconds(), ws.End.Seconds(), text)
		if err != nil {
			return nil, fmt.Errorf("whisper: segment %d: %w", ws.Num, err)
		}
		segs = append(segs, s)
	}

	return segment.NewCollection(req.Source, lang, 0, segs), nil
}

var _ stt.Provider = (*Provider)(nil)
