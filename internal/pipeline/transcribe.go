package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/MrWong99/captionforge/internal/media"
	"github.com/MrWong99/captionforge/pkg/provider/stt"
	"github.com/MrWong99/captionforge/pkg/segment"
)

// Transcriber produces the initial collection for a media file. The returned
// audioPath is the extracted mono WAV used by model-backed diarization, and
// cleanup removes it; both may be empty/nil when the implementation keeps no
// intermediate file.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaPath string) (col *segment.Collection, audioPath string, cleanup func(), err error)
}

// TranscribeStage is the default [Transcriber]: it extracts a normalised
// audio track with ffmpeg, decodes it, and feeds the samples to an
// [stt.Provider].
type TranscribeStage struct {
	provider stt.Provider
	language string
	tmpDir   string
}

// NewTranscribeStage builds the transcription stage. language is the ISO
// 639-1 hint passed to the provider; tmpDir is where extracted WAVs live
// (empty selects the OS temp directory).
func NewTranscribeStage(provider stt.Provider, language, tmpDir string) (*TranscribeStage, error) {
	if provider == nil {
		return nil, &segment.ConfigurationError{
			Param:  "provider",
			Reason: "transcription requires an STT provider",
		}
	}
	return &TranscribeStage{provider: provider, language: language, tmpDir: tmpDir}, nil
}

// Transcribe implements [Transcriber].
func (st *TranscribeStage) Transcribe(ctx context.Context, mediaPath string) (*segment.Collection, string, func(), error) {
	audioPath, err := media.ExtractAudio(ctx, mediaPath, st.tmpDir)
	if err != nil {
		return nil, "", nil, err
	}
	cleanup := func() { _ = os.Remove(audioPath) }

	samples, rate, err := media.LoadSamples(audioPath)
	if err != nil {
		cleanup()
		return nil, "", nil, err
	}
	if rate != media.SampleRate {
		cleanup()
		return nil, "", nil, fmt.Errorf("pipeline: extracted audio has rate %d Hz, want %d", rate, media.SampleRate)
	}

	col, err := st.provider.Transcribe(ctx, stt.Request{
		Samples:  samples,
		Language: st.language,
		Source:   mediaPath,
	})
	if err != nil {
		cleanup()
		return nil, "", nil, &segment.CollaboratorError{Collaborator: "stt", Err: err}
	}
	return col, audioPath, cleanup, nil
}
