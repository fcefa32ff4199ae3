// Package diarize defines the Provider interface for speaker diarization
// backends.
//
// A diarization provider analyses the source audio and returns speaker
// intervals — spans of time attributed to anonymous speaker labels
// ("SPEAKER_00", "SPEAKER_01", ...). The intervals are independent of
// transcript segmentation; mapping them onto transcript segments is the
// speaker assigner's job, not the provider's.
//
// Implementations must be safe for concurrent use.
package diarize

import (
	"context"
	"errors"

	"github.com/MrWong99/captionforge/pkg/segment"
)

// ErrMissingCredentials is returned by providers that require an API token
// (e.g. a hosted diarization model) when none is configured. The diarization
// stage treats it as the signal to fall back to the silence-gap heuristic.
var ErrMissingCredentials = errors.New("diarize: missing credentials")

// Request describes one diarization run over a single audio file.
type Request struct {
	// AudioPath is the path to a mono 16 kHz WAV file.
	AudioPath string

	// MinSpeakers and MaxSpeakers bound the number of distinct speaker
	// labels the provider may emit. Zero means unconstrained.
	MinSpeakers int
	MaxSpeakers int
}

// Provider is the abstraction over any diarization backend.
type Provider interface {
	// Diarize analyses the audio and returns speaker intervals in
	// non-decreasing start order. Intervals may overlap across speakers
	// (simultaneous speech) but never within one speaker.
	//
	// Returns [ErrMissingCredentials] (possibly wrapped) when the backend
	// requires an unconfigured token. An empty interval list with a nil
	// error means the backend found no speech.
	Diarize(ctx context.Context, req Request) ([]segment.SpeakerInterval, error)
}
