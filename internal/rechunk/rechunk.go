// Package rechunk re-splits segments so each satisfies a maximum duration
// and a maximum character count, for rendering to subtitle formats.
//
// Splitting prefers sentence and clause boundaries (punctuation), then
// whitespace, and never breaks inside a word. Timing is interpolated
// linearly from the split point's fractional position in the text. Splitting
// only shrinks segments; merging adjacent short segments is a distinct,
// explicitly requested pass ([Merge]) with its own gap threshold.
package rechunk

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/MrWong99/captionforge/pkg/segment"
)

// Subtitle defaults carried over from the FCPXML rendering profile.
const (
	DefaultMaxDuration = 5.0
	DefaultMaxChars    = 60
)

// splitPunctuation are the rune values treated as sentence/clause boundaries
// when they are immediately followed by a space.
const splitPunctuation = ".!?;:,…"

// Split returns a copy of col in which every segment satisfies
// duration <= maxDuration and at most maxChars characters of text, except
// segments that cannot be split further (a single word over the budget):
// those are emitted as-is with metadata "overflow" set to true. Characters
// are counted as runes, so multibyte scripts get the full budget.
//
// Split preserves total covered time (each split tiles its parent's interval
// exactly) and the in-order concatenation of text. Running Split twice with
// the same bounds is a no-op on the second run.
func Split(col *segment.Collection, maxDuration float64, maxChars int) (*segment.Collection, error) {
	if maxDuration <= 0 {
		return nil, &segment.ConfigurationError{
			Param:  "max_duration",
			Reason: fmt.Sprintf("must be positive, got %v", maxDuration),
		}
	}
	if maxChars <= 0 {
		return nil, &segment.ConfigurationError{
			Param:  "max_chars",
			Reason: fmt.Sprintf("must be positive, got %d", maxChars),
		}
	}

	out := col.Clone()
	result := make([]segment.Segment, 0, len(out.Segments))
	for _, s := range out.Segments {
		result = append(result, splitSegment(s, maxDuration, maxChars)...)
	}
	out.Segments = result
	out.Renumber()
	return out, nil
}

// splitSegment recursively halves s at the best text boundary until both
// bounds hold or no further split is possible. All positions are rune
// indices; byte offsets would misplace boundaries in multibyte text.
func splitSegment(s segment.Segment, maxDuration float64, maxChars int) []segment.Segment {
	runes := []rune(s.Text)
	if s.Duration() <= maxDuration && len(runes) <= maxChars {
		return []segment.Segment{s}
	}

	pos, ok := splitPoint(runes)
	if !ok {
		// Single word over the budget: emit as-is rather than break the word.
		s.SetMeta(segment.MetaOverflow, true)
		return []segment.Segment{s}
	}

	left, right := s.Clone(), s.Clone()
	left.Text = string(runes[:pos])
	right.Text = string(runes[pos+1:]) // drop the boundary space

	// Interpolate the split time from the split's fractional text position.
	frac := float64(pos) / float64(len(runes))
	mid := s.Start + s.Duration()*frac
	if mid <= s.Start || mid >= s.End {
		mid = s.Start + s.Duration()/2
	}
	left.End = mid
	right.Start = mid

	out := splitSegment(left, maxDuration, maxChars)
	return append(out, splitSegment(right, maxDuration, maxChars)...)
}

// splitPoint finds the rune index of the space to split at: the punctuation
// boundary (punctuation rune directly before a space) nearest the midpoint,
// falling back to the space nearest the midpoint. Returns false when the
// text contains no space at all.
func splitPoint(runes []rune) (int, bool) {
	target := len(runes) / 2

	bestPunct, bestSpace := -1, -1
	for i := 1; i < len(runes)-1; i++ {
		if runes[i] != ' ' {
			continue
		}
		if strings.ContainsRune(splitPunctuation, runes[i-1]) {
			if bestPunct < 0 || abs(i-target) < abs(bestPunct-target) {
				bestPunct = i
			}
		}
		if bestSpace < 0 || abs(i-target) < abs(bestSpace-target) {
			bestSpace = i
		}
	}
	if bestPunct >= 0 {
		return bestPunct, true
	}
	if bestSpace >= 0 {
		return bestSpace, true
	}
	return 0, false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Merge combines adjacent segments when the gap between them is at most
// maxGap seconds, they belong to the same speaker, and the combined text
// stays within maxChars. It is an explicit, optional pass — Split never
// grows segments on its own.
func Merge(col *segment.Collection, maxGap float64, maxChars int) (*segment.Collection, error) {
	if maxGap < 0 {
		return nil, &segment.ConfigurationError{
			Param:  "max_gap",
			Reason: fmt.Sprintf("must not be negative, got %v", maxGap),
		}
	}
	if maxChars <= 0 {
		return nil, &segment.ConfigurationError{
			Param:  "max_chars",
			Reason: fmt.Sprintf("must be positive, got %d", maxChars),
		}
	}

	out := col.Clone()
	if len(out.Segments) == 0 {
		return out, nil
	}

	merged := []segment.Segment{out.Segments[0]}
	for _, next := range out.Segments[1:] {
		cur := &merged[len(merged)-1]
		gap := next.Start - cur.End
		combined := cur.Text + " " + next.Text
		if gap >= 0 && gap <= maxGap && cur.Speaker == next.Speaker && utf8.RuneCountInString(combined) <= maxChars {
			cur.Text = combined
			cur.End = next.End
			for k, v := range next.Metadata {
				if _, exists := cur.Metadata[k]; !exists {
					cur.SetMeta(k, v)
				}
			}
			continue
		}
		merged = append(merged, next)
	}
	out.Segments = merged
	out.Renumber()
	return out, nil
}
