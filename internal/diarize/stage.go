package diarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrWong99/captionforge/pkg/provider/diarize"
	"github.com/MrWong99/captionforge/pkg/segment"
)

// Strategy identifies how speaker intervals are obtained for a run.
type Strategy string

const (
	// StrategyModel uses a diarization model backend.
	StrategyModel Strategy = "model"

	// StrategySilence synthesizes intervals from silence gaps.
	StrategySilence Strategy = "silence"
)

// Config holds the validated parameters for the diarization stage.
type Config struct {
	// MinSpeakers and MaxSpeakers bound the speaker count passed to the
	// model backend. Zero means unconstrained. The assigner itself never
	// enforces cardinality, only placement.
	MinSpeakers int
	MaxSpeakers int

	// MinPause is the silence-gap threshold in seconds for the heuristic
	// strategy. Zero selects [DefaultMinPause].
	MinPause float64
}

// Stage attributes speakers to a transcript collection. The strategy —
// model-backed or silence heuristic — is decided once at construction and
// logged, never per call: a missing provider selects the heuristic up
// front rather than being discovered through failed calls mid-run.
type Stage struct {
	provider diarize.Provider
	strategy Strategy
	cfg      Config
}

// NewStage builds a diarization stage. provider may be nil, which selects
// the silence-gap heuristic. A MinSpeakers above MaxSpeakers (both set) is a
// *segment.ConfigurationError.
func NewStage(provider diarize.Provider, cfg Config) (*Stage, error) {
	if cfg.MinSpeakers > 0 && cfg.MaxSpeakers > 0 && cfg.MinSpeakers > cfg.MaxSpeakers {
		return nil, &segment.ConfigurationError{
			Param:  "min_speakers",
			Reason: fmt.Sprintf("min_speakers %d exceeds max_speakers %d", cfg.MinSpeakers, cfg.MaxSpeakers),
		}
	}

	strategy := StrategySilence
	if provider != nil {
		strategy = StrategyModel
	}
	slog.Info("diarization strategy selected", "strategy", strategy)

	return &Stage{provider: provider, strategy: strategy, cfg: cfg}, nil
}

// Strategy returns the strategy chosen at construction.
func (st *Stage) Strategy() Strategy { return st.strategy }

// Run assigns a speaker label to every segment of col and returns the
// labelled copy. audioPath is the extracted mono WAV for the source file,
// used only by the model strategy.
//
// When the model backend reports missing credentials or returns no
// intervals, the stage falls back to the silence heuristic for this file —
// an internal stage policy, logged, never a silent cross-stage skip.
func (st *Stage) Run(ctx context.Context, audioPath string, col *segment.Collection) (*segment.Collection, error) {
	intervals, err := st.intervals(ctx, audioPath, col)
	if err != nil {
		return nil, err
	}
	return AssignSpeakers(col, intervals), nil
}

func (st *Stage) intervals(ctx context.Context, audioPath string, col *segment.Collection) ([]segment.SpeakerInterval, error) {
	if st.strategy == StrategySilence {
		return SynthesizeIntervals(col, st.cfg.MinPause, st.cfg.MaxSpeakers), nil
	}

	intervals, err := st.provider.Diarize(ctx, diarize.Request{
		AudioPath:   audioPath,
		MinSpeakers: st.cfg.MinSpeakers,
		MaxSpeakers: st.cfg.MaxSpeakers,
	})
	switch {
	case errors.Is(err, diarize.ErrMissingCredentials):
		slog.Warn("diarization model unavailable, falling back to silence heuristic",
			"source", col.Source, "reason", err)
	case err != nil:
		return nil, &segment.CollaboratorError{Collaborator: "diarize", Err: err}
	case len(intervals) == 0:
		slog.Warn("diarization model returned no intervals, falling back to silence heuristic",
			"source", col.Source)
	default:
		return intervals, nil
	}
	return SynthesizeIntervals(col, st.cfg.MinPause, st.cfg.MaxSpeakers), nil
}
