// Package diarize attributes transcript segments to speakers.
//
// The core algorithm is overlap assignment: each segment receives the label
// of the speaker interval with the greatest temporal overlap, with a
// deterministic tie-break (earliest interval start, then lexically smallest
// label). Intervals come either from a diarization model
// ([diarize.Provider]) or from the silence-gap heuristic in this package.
package diarize

import (
	"sort"

	"github.com/MrWong99/captionforge/pkg/segment"
)

// AssignSpeakers returns a copy of col with every segment's Speaker set from
// the interval with the greatest overlap. Ties are broken by the earliest
// interval start time, then by the lexically smallest speaker label, so
// assignment is reproducible for any input order.
//
// Segments with no overlapping interval receive [segment.SpeakerUnknown] —
// never an empty label, so downstream renderers can tell "nothing matched"
// apart from "diarization never ran". A collection with zero segments is
// returned unchanged; zero intervals label everything unknown.
func AssignSpeakers(col *segment.Collection, intervals []segment.SpeakerInterval) *segment.Collection {
	out := col.Clone()
	if len(out.Segments) == 0 {
		return out
	}

	sorted := make([]segment.SpeakerInterval, len(intervals))
	copy(sorted, intervals)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].Speaker < sorted[j].Speaker
	})

	for i := range out.Segments {
		out.Segments[i].Speaker = bestSpeaker(out.Segments[i], sorted)
	}
	return out
}

// bestSpeaker scans the start-ordered intervals and returns the label with
// the strictly greatest overlap. Because candidates are visited in
// (start, label) order and only a strictly larger overlap replaces the
// current best, the tie-break falls out of the scan order.
func bestSpeaker(s segment.Segment, sorted []segment.SpeakerInterval) string {
	best := segment.SpeakerUnknown
	bestOverlap := 0.0
	for _, iv := range sorted {
		if iv.Start >= s.End {
			break
		}
		o := s.Overlap(iv.Start, iv.End)
		if o > bestOverlap {
			bestOverlap = o
			best = iv.Speaker
		}
	}
	return best
}
