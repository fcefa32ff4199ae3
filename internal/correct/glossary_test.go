package correct

import (
	"testing"

	"github.com/MrWong99/captionforge/pkg/segment"
)

func TestMatch_PhoneticHit(t *testing.T) {
	t.Parallel()

	m := NewMatcher([]string{"Eldrinax", "Thornwood"})
	got, conf, ok := m.Match("eldrinacks")
	if !ok {
		t.Fatal("expected a phonetic match")
	}
	if got != "Eldrinax" {
		t.Errorf("matched %q, want Eldrinax", got)
	}
	if conf < defaultPhoneticThreshold {
		t.Errorf("confidence %v below phonetic threshold", conf)
	}
}

func TestMatch_NoMatchForUnrelatedWord(t *testing.T) {
	t.Parallel()

	m := NewMatcher([]string{"Eldrinax"})
	got, conf, ok := m.Match("breakfast")
	if ok {
		t.Fatalf("unexpected match %q (conf %v)", got, conf)
	}
	if got != "breakfast" {
		t.Errorf("unmatched word must pass through unchanged, got %q", got)
	}
}

func TestMatch_MultiWordTerm(t *testing.T) {
	t.Parallel()

	m := NewMatcher([]string{"Tower of Whispers"})
	got, _, ok := m.Match("tower of wispers")
	if !ok || got != "Tower of Whispers" {
		t.Errorf("got %q ok=%v, want multi-word term match", got, ok)
	}
}

func TestApplyGlossary_RewritesSegmentText(t *testing.T) {
	t.Parallel()

	s, err := segment.New(0, 2, "we met eldrinacks at the market.")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	col := segment.NewCollection("a.wav", "en", 0, []segment.Segment{s})

	m := NewMatcher([]string{"Eldrinax"})
	out := m.ApplyGlossary(col)

	if got := out.Segments[0].Text; got != "we met Eldrinax at the market." {
		t.Errorf("text %q, want glossary spelling with punctuation kept", got)
	}
	if col.Segments[0].Text != "we met eldrinacks at the market." {
		t.Error("ApplyGlossary mutated its input")
	}
}

func TestApplyGlossary_EmptyGlossaryIsIdentity(t *testing.T) {
	t.Parallel()

	s, err := segment.New(0, 1, "nothing to do here")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	col := segment.NewCollection("a.wav", "en", 0, []segment.Segment{s})

	out := NewMatcher(nil).ApplyGlossary(col)
	if out.Segments[0].Text != "nothing to do here" {
		t.Errorf("unexpected rewrite: %q", out.Segments[0].Text)
	}
}

func TestParseNumberedLines(t *testing.T) {
	t.Parallel()

	texts, err := parseNumberedLines("correct", "1: Hello there.\n2: How are you?\n", 2)
	if err != nil {
		t.Fatalf("parseNumberedLines: %v", err)
	}
	if texts[0] != "Hello there." || texts[1] != "How are you?" {
		t.Errorf("unexpected texts %q", texts)
	}
}

func TestParseNumberedLines_TolleratesChatterAndFences(t *testing.T) {
	t.Parallel()

	resp := "Here is the cleaned transcript:\n```\n[context] ignored\n1. First line\n2) Second line\n```\n"
	texts, err := parseNumberedLines("correct", resp, 2)
	if err != nil {
		t.Fatalf("parseNumberedLines: %v", err)
	}
	if texts[0] != "First line" || texts[1] != "Second line" {
		t.Errorf("unexpected texts %q", texts)
	}
}

func TestParseNumberedLines_CountMismatch(t *testing.T) {
	t.Parallel()

	_, err := parseNumberedLines("correct", "1: only one\n", 4)
	aerr, ok := err.(*segment.AlignmentError)
	if !ok {
		t.Fatalf("error = %v, want *AlignmentError", err)
	}
	if aerr.Want != 4 || aerr.Got != 1 {
		t.Errorf("AlignmentError %+v, want Want=4 Got=1", aerr)
	}
}

func TestParseNumberedLines_OutOfOrder(t *testing.T) {
	t.Parallel()

	_, err := parseNumberedLines("correct", "2: second\n1: first\n", 2)
	if _, ok := err.(*segment.AlignmentError); !ok {
		t.Fatalf("error = %v, want *AlignmentError for reordered lines", err)
	}
}
