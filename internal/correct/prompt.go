package correct

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/MrWong99/captionforge/pkg/segment"
)

// Level selects how invasive the LLM cleanup is.
type Level string

const (
	// LevelMinimal fixes only unambiguous recognition errors and keeps all
	// disfluencies.
	LevelMinimal Level = "minimal"

	// LevelStandard improves readability while keeping the speaker's voice.
	LevelStandard Level = "standard"

	// LevelAggressive produces polished, publication-ready text.
	LevelAggressive Level = "aggressive"

	// LevelCustom uses a caller-supplied instruction block.
	LevelCustom Level = "custom"
)

// Valid reports whether l names a known cleanup level.
func (l Level) Valid() bool {
	switch l {
	case LevelMinimal, LevelStandard, LevelAggressive, LevelCustom:
		return true
	}
	return false
}

const lineProtocol = `The transcript is given as numbered lines, one segment per line. Lines marked
[context] are read-only surroundings; do not return them. Return ONLY the
numbered lines, one corrected segment per line, keeping the exact same
numbering and line count. Never merge, split, drop, or reorder lines.`

const minimalPrompt = `You are a transcript correction assistant. Fix only obvious transcription errors while preserving authentic speech.

WHAT TO FIX:
- Clear homophone errors: there/their/they're, your/you're, its/it's, to/too/two, etc.
- Obvious word misrecognitions where context makes the intended word clear
- Basic contraction errors (cant/can't, wont/won't)

WHAT TO PRESERVE:
- All filler words ("um", "uh", "like")
- Informal grammar and casual speech patterns
- Speaker's exact style, pace, and personality
- Repetitions, false starts, and natural speech disfluencies

NEVER add words, topics, or information not in the original speech.`

const standardPrompt = `You are a transcript cleanup assistant. Improve readability while preserving the speaker's authentic voice and meaning.

WHAT TO FIX:
- Homophone and grammar errors (there/their, your/you're, etc.)
- Word misrecognitions where context clearly indicates the intended word
- Basic punctuation and capitalization
- Some excessive filler words ("um", "uh") but preserve some for natural flow

WHAT TO PRESERVE:
- Speaker's intended meaning and core message
- Informal language and personal speaking style
- Meaningful uses of "like", "you know", etc.
- The speaker's level of formality and personality

NEVER:
- Add topics, facts, or details not mentioned by the speaker
- Change the speaker's intended meaning or opinions
- Make assumptions about what they "meant to say"`

const aggressivePrompt = `You are a transcript cleanup assistant. Create a polished, publication-ready transcript while preserving the speaker's core message.

WHAT TO ENHANCE:
- Fix all grammar, punctuation, and word recognition errors
- Remove most filler words and speech disfluencies
- Improve sentence structure and flow for readability
- Fix run-on sentences and sentence fragments
- Standardize formatting and capitalization

WHAT TO PRESERVE:
- The speaker's actual ideas, opinions, and key points
- Technical terms, names, and specific details mentioned
- The logical flow and structure of their argument
- Their level of expertise and knowledge demonstrated

NEVER:
- Add information, examples, or details the speaker didn't provide
- Change their conclusions, opinions, or factual claims
- Assume knowledge or context beyond what was spoken
- Insert explanations or clarifications not in the original`

// systemPrompt returns the system prompt for the given cleanup level.
// customPrompt is only consulted for [LevelCustom].
func systemPrompt(level Level, customPrompt string) string {
	var base string
	switch level {
	case LevelMinimal:
		base = minimalPrompt
	case LevelAggressive:
		base = aggressivePrompt
	case LevelCustom:
		base = "You are a transcript cleanup assistant. Follow these specific instructions:\n\n" + customPrompt
	default:
		base = standardPrompt
	}
	return base + "\n\n" + lineProtocol
}

// batchPrompt renders one batch as the user message: context lines first and
// last, core lines numbered 1..n.
func batchPrompt(b segment.Batch) string {
	var sb strings.Builder
	sb.WriteString("Clean up this transcript:\n\n")
	for _, s := range b.Leading {
		sb.WriteString("[context] ")
		sb.WriteString(s.Text)
		sb.WriteByte('\n')
	}
	for i, s := range b.Core {
		fmt.Fprintf(&sb, "%d: %s\n", i+1, s.Text)
	}
	for _, s := range b.Trailing {
		sb.WriteString("[context] ")
		sb.WriteString(s.Text)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// parseNumberedLines extracts the corrected texts from a model response that
// follows the line protocol. It tolerates surrounding chatter and code
// fences, but the numbered lines themselves must be exactly 1..want in
// order; anything else is an *segment.AlignmentError.
func parseNumberedLines(stage, response string, want int) ([]string, error) {
	var texts []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "[context]") || strings.HasPrefix(line, "```") {
			continue
		}
		num, rest, ok := splitLineNumber(line)
		if !ok {
			continue
		}
		if num != len(texts)+1 {
			return nil, &segment.AlignmentError{
				Stage:  stage,
				Want:   want,
				Got:    len(texts),
				Reason: fmt.Sprintf("response line numbered %d out of order", num),
			}
		}
		texts = append(texts, rest)
	}
	if len(texts) != want {
		return nil, &segment.AlignmentError{
			Stage:  stage,
			Want:   want,
			Got:    len(texts),
			Reason: "response line count does not match batch size",
		}
	}
	return texts, nil
}

// splitLineNumber splits a "12: text" / "12. text" / "12) text" line into its
// number and remainder.
func splitLineNumber(line string) (num int, rest string, ok bool) {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(line) {
		return 0, "", false
	}
	sep := line[i]
	if sep != ':' && sep != '.' && sep != ')' {
		return 0, "", false
	}
	n, err := strconv.Atoi(line[:i])
	if err != nil {
		return 0, "", false
	}
	return n, strings.TrimSpace(line[i+1:]), true
}
