package segment

import (
	"fmt"
)

// Collection is an ordered sequence of segments plus file-level metadata.
//
// Invariants maintained by the pipeline:
//   - Segments are in non-decreasing Start order.
//   - Segments of the same speaker never overlap in time. Cross-speaker
//     overlap (simultaneous speech) is permitted and preserved.
//   - Duration is at least the End of the last segment.
type Collection struct {
	// Source is the originating media file name.
	Source string

	// Language is the detected or declared BCP-47 language tag.
	Language string

	// Duration is the audio duration in seconds.
	Duration float64

	// Segments is the ordered segment sequence.
	Segments []Segment
}

// NewCollection creates a collection over the given segments, renumbered.
// Duration is raised to cover the last segment if needed.
func NewCollection(source, language string, duration float64, segs []Segment) *Collection {
	c := &Collection{Source: source, Language: language, Duration: duration, Segments: segs}
	if last := c.lastEnd(); last > c.Duration {
		c.Duration = last
	}
	c.Renumber()
	return c
}

// Len returns the number of segments.
func (c *Collection) Len() int { return len(c.Segments) }

// TotalDuration returns the collection duration: the declared audio duration
// or the end of the last segment, whichever is greater.
func (c *Collection) TotalDuration() float64 {
	if last := c.lastEnd(); last > c.Duration {
		return last
	}
	return c.Duration
}

func (c *Collection) lastEnd() float64 {
	var last float64
	for _, s := range c.Segments {
		if s.End > last {
			last = s.End
		}
	}
	return last
}

// SegmentAt returns the first segment whose [Start, End) interval contains t,
// or false when no segment covers t.
func (c *Collection) SegmentAt(t float64) (Segment, bool) {
	for _, s := range c.Segments {
		if s.Contains(t) {
			return s, true
		}
		if s.Start > t {
			break
		}
	}
	return Segment{}, false
}

// Renumber reassigns stable sequence indices in order. Call after any
// re-chunking or filtering so output ordering stays deterministic.
func (c *Collection) Renumber() {
	for i := range c.Segments {
		c.Segments[i].Index = i
	}
}

// Clone returns a deep copy of the collection. Stages clone their input and
// transform the copy, leaving the caller's collection untouched.
func (c *Collection) Clone() *Collection {
	out := &Collection{
		Source:   c.Source,
		Language: c.Language,
		Duration: c.Duration,
	}
	if c.Segments != nil {
		out.Segments = make([]Segment, len(c.Segments))
		for i, s := range c.Segments {
			out.Segments[i] = s.Clone()
		}
	}
	return out
}

// Validate checks the collection invariants: per-segment timestamp validity,
// non-decreasing start order, no same-speaker time overlap, and duration
// covering the last segment. It returns the first violation found.
func (c *Collection) Validate() error {
	lastEndBySpeaker := make(map[string]float64)
	var prevStart float64
	for i, s := range c.Segments {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
		if s.Start < prevStart {
			return &ValidationError{
				Field:  "start",
				Reason: fmt.Sprintf("segment %d starts at %v before previous segment at %v", i, s.Start, prevStart),
			}
		}
		prevStart = s.Start
		if s.Speaker != "" {
			if end, ok := lastEndBySpeaker[s.Speaker]; ok && s.Start < end {
				return &ValidationError{
					Field:  "start",
					Reason: fmt.Sprintf("segment %d overlaps previous segment of speaker %s", i, s.Speaker),
				}
			}
			if s.End > lastEndBySpeaker[s.Speaker] {
				lastEndBySpeaker[s.Speaker] = s.End
			}
		}
	}
	if last := c.lastEnd(); c.Duration < last {
		return &ValidationError{
			Field:  "duration",
			Reason: fmt.Sprintf("collection duration %v is shorter than last segment end %v", c.Duration, last),
		}
	}
	return nil
}

// Speakers returns the distinct speaker labels present, in first-appearance
// order. Segments with an empty Speaker field are skipped.
func (c *Collection) Speakers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range c.Segments {
		if s.Speaker == "" || seen[s.Speaker] {
			continue
		}
		seen[s.Speaker] = true
		out = append(out, s.Speaker)
	}
	return out
}
