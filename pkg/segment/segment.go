// Package segment defines the timestamped-segment data model that flows
// through every stage of the CaptionForge pipeline, together with the error
// taxonomy shared by the stages and the JSON interchange form used at stage
// boundaries and on disk.
//
// A [Segment] is one timestamped unit of transcript text. A [Collection] is
// an ordered sequence of segments plus file-level metadata (source, language,
// duration). Collections flow by value between stages: each stage calls
// [Collection.Clone] and emits a new collection rather than mutating its
// input, so a failed stage can never corrupt the last-known-good artifact.
package segment

import (
	"fmt"
	"maps"
	"math"
)

// SpeakerUnknown is the reserved speaker label assigned when diarization ran
// but no speaker interval overlaps a segment. It is distinct from an empty
// Speaker field, which means diarization has not run at all.
const SpeakerUnknown = "SPEAKER_UNKNOWN"

// MetaOverflow is the metadata key set to true on segments that exceed the
// re-chunker's character budget but cannot be split further (a single word
// longer than the budget).
const MetaOverflow = "overflow"

// Segment is the atomic unit flowing through the pipeline: one span of
// transcribed (or corrected, or translated) text with its timing.
type Segment struct {
	// Start and End are the segment boundaries in seconds from the start of
	// the source media. Always 0 <= Start < End.
	Start float64
	End   float64

	// Text is the transcript text for the interval. Never empty after the
	// transcription stage; empty-text segments are dropped before leaving it.
	Text string

	// Speaker is the diarization label (e.g. "SPEAKER_00"). Empty until the
	// diarization stage runs; [SpeakerUnknown] when diarization ran but found
	// no overlapping interval.
	Speaker string

	// Confidence is the recognition confidence in [0, 1]. Nil means unknown —
	// it never defaults to zero.
	Confidence *float64

	// Index is the stable sequence index within a collection, assigned by
	// [Collection.Renumber]. Used for deterministic output ordering.
	Index int

	// Metadata carries per-segment annotations added by stages. Additive
	// only: stages may add keys but never remove keys written earlier.
	Metadata map[string]any
}

// New constructs a validated Segment. It returns a *ValidationError when the
// timestamps are malformed: NaN, Start < 0, or Start >= End.
func New(start, end float64, text string) (Segment, error) {
	if math.IsNaN(start) || math.IsNaN(end) {
		return Segment{}, &ValidationError{Field: "timestamps", Reason: "NaN timestamp"}
	}
	if start < 0 {
		return Segment{}, &ValidationError{Field: "start", Reason: fmt.Sprintf("negative start %v", start)}
	}
	if start >= end {
		return Segment{}, &ValidationError{Field: "end", Reason: fmt.Sprintf("start %v >= end %v", start, end)}
	}
	return Segment{Start: start, End: end, Text: text}, nil
}

// Duration returns End - Start in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Contains reports whether t falls within the half-open interval [Start, End).
func (s Segment) Contains(t float64) bool {
	return t >= s.Start && t < s.End
}

// Overlap returns the overlap duration between the segment and the interval
// [start, end), clamped at zero.
func (s Segment) Overlap(start, end float64) float64 {
	o := math.Min(s.End, end) - math.Max(s.Start, start)
	if o < 0 {
		return 0
	}
	return o
}

// SetMeta records a per-segment annotation, creating the metadata map on
// first use. Existing keys written by earlier stages must not be overwritten
// with a different meaning; there is deliberately no delete operation.
func (s *Segment) SetMeta(key string, value any) {
	if s.Metadata == nil {
		s.Metadata = make(map[string]any, 1)
	}
	s.Metadata[key] = value
}

// Meta returns the metadata value for key and whether it is present.
func (s Segment) Meta(key string) (any, bool) {
	v, ok := s.Metadata[key]
	return v, ok
}

// Clone returns a deep copy of the segment, including its metadata map and
// confidence pointer.
func (s Segment) Clone() Segment {
	out := s
	if s.Confidence != nil {
		c := *s.Confidence
		out.Confidence = &c
	}
	if s.Metadata != nil {
		out.Metadata = maps.Clone(s.Metadata)
	}
	return out
}

// Validate re-checks the timestamp invariants on an already-constructed
// segment (e.g. one decoded from interchange form).
func (s Segment) Validate() error {
	_, err := New(s.Start, s.End, s.Text)
	return err
}

// SpeakerInterval is one diarization result: a span of audio attributed to a
// single speaker. Intervals are independent of transcript segmentation and
// are consumed only by the speaker assigner; they are never stored inside a
// Segment directly.
type SpeakerInterval struct {
	Start   float64
	End     float64
	Speaker string
}

// Duration returns End - Start in seconds.
func (iv SpeakerInterval) Duration() float64 {
	return iv.End - iv.Start
}
