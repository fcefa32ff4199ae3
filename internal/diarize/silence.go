package diarize

import (
	"fmt"

	"github.com/MrWong99/captionforge/pkg/segment"
)

// DefaultMinPause is the silence duration that suggests a speaker change in
// the gap heuristic. Two seconds separates conversational turn-taking from
// ordinary sentence pauses reasonably well in practice.
const DefaultMinPause = 2.0

// SynthesizeIntervals derives speaker intervals from silence gaps in the
// transcript timing, for runs without a diarization model. Consecutive
// segments separated by less than minPause form one speaker turn; a gap of
// minPause or more starts a new turn with the next label in the
// SPEAKER_00, SPEAKER_01, ... sequence, cycling after maxSpeakers labels
// when maxSpeakers is positive.
//
// This is a best-effort heuristic, not an accuracy guarantee: it detects
// turn boundaries, not voices, and works best for clear back-and-forth
// conversation. minPause values at or below zero fall back to
// [DefaultMinPause].
func SynthesizeIntervals(col *segment.Collection, minPause float64, maxSpeakers int) []segment.SpeakerInterval {
	if len(col.Segments) == 0 {
		return nil
	}
	if minPause <= 0 {
		minPause = DefaultMinPause
	}

	label := func(n int) string {
		if maxSpeakers > 0 {
			n %= maxSpeakers
		}
		return fmt.Sprintf("SPEAKER_%02d", n)
	}

	var intervals []segment.SpeakerInterval
	turn := 0
	cur := segment.SpeakerInterval{
		Start:   col.Segments[0].Start,
		End:     col.Segments[0].End,
		Speaker: label(0),
	}
	for _, s := range col.Segments[1:] {
		if s.Start-cur.End >= minPause {
			intervals = append(intervals, cur)
			turn++
			cur = segment.SpeakerInterval{Start: s.Start, End: s.End, Speaker: label(turn)}
			continue
		}
		if s.End > cur.End {
			cur.End = s.End
		}
	}
	return append(intervals, cur)
}
