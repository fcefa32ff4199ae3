// Package correct implements the transcript correction stage: an optional
// in-process glossary pre-pass that snaps misrecognised proper nouns back to
// their canonical spelling, followed by LLM cleanup of batched segment text.
//
// The glossary matcher proceeds in two steps:
//
//  1. Phonetic candidate filtering: Double Metaphone codes are computed for
//     the input tokens and for each glossary term. A shared code makes the
//     term a phonetic candidate.
//
//  2. Jaro-Winkler ranking: among phonetic candidates, the term with the
//     highest Jaro-Winkler similarity (case-insensitive, on the original
//     strings) wins, provided it clears the phonetic threshold. When no
//     phonetic candidate exists, a secondary pass accepts pure Jaro-Winkler
//     similarity above a stricter fuzzy threshold.
//
// Multi-word terms (e.g., "Tower of Whispers") are supported: the matcher is
// applied to n-gram windows of the segment text, longest window first, so a
// phrase match takes precedence over partial single-word matches.
package correct

import (
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/captionforge/pkg/segment"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// MatcherOption is a functional option for configuring a [Matcher].
type MatcherOption func(*Matcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched term to be accepted. Default: 0.70.
func WithPhoneticThreshold(threshold float64) MatcherOption {
	return func(m *Matcher) {
		m.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic match is found and the matcher falls back to pure string
// similarity. Default: 0.85.
func WithFuzzyThreshold(threshold float64) MatcherOption {
	return func(m *Matcher) {
		m.fuzzyThreshold = threshold
	}
}

// Matcher matches transcript tokens against a glossary of canonical terms.
// It is read-only after construction and safe for concurrent use.
type Matcher struct {
	terms             []string
	maxTermWords      int
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// NewMatcher returns a [Matcher] for the given glossary terms. Blank terms
// are dropped.
func NewMatcher(terms []string, opts ...MatcherOption) *Matcher {
	m := &Matcher{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		m.terms = append(m.terms, t)
		if n := len(strings.Fields(t)); n > m.maxTermWords {
			m.maxTermWords = n
		}
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Match attempts to find the glossary term most phonetically similar to
// phrase. phrase may be a single word or a space-separated n-gram. When
// matched is false, corrected equals phrase unchanged and confidence is 0.
func (m *Matcher) Match(phrase string) (corrected string, confidence float64, matched bool) {
	if len(m.terms) == 0 || strings.TrimSpace(phrase) == "" {
		return phrase, 0, false
	}

	phraseLower := strings.ToLower(strings.TrimSpace(phrase))
	phraseTokens := strings.Fields(phraseLower)
	phraseCodes := codesForTokens(phraseTokens)

	type candidate struct {
		term     string
		score    float64
		phonetic bool
	}
	var best candidate

	for _, term := range m.terms {
		termLower := strings.ToLower(term)
		termTokens := strings.Fields(termLower)

		phoneticMatch := codesOverlap(phraseCodes, codesForTokens(termTokens))
		jwScore := bestJWScore(phraseTokens, termTokens, phraseLower, termLower)

		if phoneticMatch {
			if jwScore >= m.phoneticThreshold {
				if !best.phonetic || jwScore > best.score {
					best = candidate{term: term, score: jwScore, phonetic: true}
				}
			}
		} else if !best.phonetic {
			if jwScore >= m.fuzzyThreshold && jwScore > best.score {
				best = candidate{term: term, score: jwScore, phonetic: false}
			}
		}
	}

	if best.term != "" {
		return best.term, best.score, true
	}
	return phrase, 0, false
}

// ApplyGlossary returns a copy of col with every segment's text rewritten so
// that tokens (and n-grams up to the longest glossary phrase) matching a
// glossary term are replaced by the term's canonical spelling. Exact
// case-insensitive hits are replaced too, normalising capitalisation.
func (m *Matcher) ApplyGlossary(col *segment.Collection) *segment.Collection {
	out := col.Clone()
	if len(m.terms) == 0 {
		return out
	}
	for i := range out.Segments {
		out.Segments[i].Text = m.correctText(out.Segments[i].Text)
	}
	return out
}

// correctText walks the whitespace tokens of text, trying n-gram windows from
// the longest glossary phrase length down to 1. The longest matching window
// wins and the cursor advances past it; punctuation attached to the last
// token of a window is preserved.
func (m *Matcher) correctText(text string) string {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return text
	}

	var output []string
	i := 0
	for i < len(tokens) {
		maxN := m.maxTermWords
		if i+maxN > len(tokens) {
			maxN = len(tokens) - i
		}

		matched := false
		for n := maxN; n >= 1; n-- {
			window := strings.Join(tokens[i:i+n], " ")
			core, trail := splitTrailingPunct(window)
			term, _, ok := m.Match(core)
			if !ok {
				continue
			}
			output = append(output, strings.Fields(term+trail)...)
			i += n
			matched = true
			break
		}
		if !matched {
			output = append(output, tokens[i])
			i++
		}
	}
	return strings.Join(output, " ")
}

// splitTrailingPunct separates trailing sentence punctuation from a phrase so
// "Eldrinax," can match the term "Eldrinax" and keep its comma.
func splitTrailingPunct(s string) (core, trail string) {
	core = strings.TrimRight(s, ".,!?;:…")
	return core, s[len(core):]
}

// codesForTokens returns the union of all Double Metaphone codes for the
// given tokens. Empty codes are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap returns true if the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestJWScore computes the highest Jaro-Winkler similarity between the input
// and the term using three strategies: full strings, space-stripped strings,
// and the best pairwise token score.
func bestJWScore(inputTokens, termTokens []string, inputFull, termFull string) float64 {
	score := matchr.JaroWinkler(inputFull, termFull, false)

	if len(inputTokens) > 1 || len(termTokens) > 1 {
		concat1 := strings.Join(inputTokens, "")
		concat2 := strings.Join(termTokens, "")
		if s := matchr.JaroWinkler(concat1, concat2, false); s > score {
			score = s
		}
	}

	for _, it := range inputTokens {
		for _, tt := range termTokens {
			if s := matchr.JaroWinkler(it, tt, false); s > score {
				score = s
			}
		}
	}

	return score
}
