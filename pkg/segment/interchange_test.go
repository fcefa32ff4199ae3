package segment_test

import (
	"strings"
	"testing"

	"github.com/MrWong99/captionforge/pkg/segment"
)

func TestInterchange_RoundTrip(t *testing.T) {
	t.Parallel()

	conf := 0.87
	segs := []segment.Segment{
		{Start: 0.0, End: 3.5, Text: "Hello world", Speaker: "SPEAKER_00", Confidence: &conf},
		{Start: 3.5, End: 7.123456789, Text: "Ünïcode résumé 中文"},
	}
	in := segment.NewCollection("talk.mp4", "en", 10.25, segs)

	data, err := segment.MarshalInterchange(in)
	if err != nil {
		t.Fatalf("MarshalInterchange: %v", err)
	}

	out, err := segment.UnmarshalInterchange(data)
	if err != nil {
		t.Fatalf("UnmarshalInterchange: %v", err)
	}

	if out.Language != in.Language {
		t.Errorf("language %q, want %q", out.Language, in.Language)
	}
	if out.Duration != in.Duration {
		t.Errorf("duration %v, want %v", out.Duration, in.Duration)
	}
	if len(out.Segments) != len(in.Segments) {
		t.Fatalf("segment count %d, want %d", len(out.Segments), len(in.Segments))
	}
	for i := range in.Segments {
		a, b := in.Segments[i], out.Segments[i]
		// Timestamps must be bit-identical, not merely close.
		if a.Start != b.Start || a.End != b.End {
			t.Errorf("segment %d timing [%v,%v), want [%v,%v)", i, b.Start, b.End, a.Start, a.End)
		}
		if a.Text != b.Text {
			t.Errorf("segment %d text %q, want %q", i, b.Text, a.Text)
		}
		if a.Speaker != b.Speaker {
			t.Errorf("segment %d speaker %q, want %q", i, b.Speaker, a.Speaker)
		}
		switch {
		case a.Confidence == nil && b.Confidence != nil:
			t.Errorf("segment %d gained a confidence", i)
		case a.Confidence != nil && (b.Confidence == nil || *a.Confidence != *b.Confidence):
			t.Errorf("segment %d confidence mismatch", i)
		}
	}
}

func TestInterchange_AbsentFieldsOmitted(t *testing.T) {
	t.Parallel()

	col := segment.NewCollection("a.wav", "en", 1, []segment.Segment{{Start: 0, End: 1, Text: "hi"}})
	data, err := segment.MarshalInterchange(col)
	if err != nil {
		t.Fatalf("MarshalInterchange: %v", err)
	}
	if strings.Contains(string(data), "confidence") {
		t.Error("absent confidence was serialized")
	}
	if strings.Contains(string(data), "speaker") {
		t.Error("absent speaker was serialized")
	}
}

func TestInterchange_BareArrayCompat(t *testing.T) {
	t.Parallel()

	data := []byte(`[{"start": 0.0, "end": 2.0, "text": "one"}, {"start": 2.0, "end": 4.0, "text": "two"}]`)
	col, err := segment.UnmarshalInterchange(data)
	if err != nil {
		t.Fatalf("UnmarshalInterchange: %v", err)
	}
	if col.Len() != 2 {
		t.Fatalf("segment count %d, want 2", col.Len())
	}
	if col.Duration != 4.0 {
		t.Errorf("duration %v, want 4 (derived from last end)", col.Duration)
	}
}

func TestInterchange_RejectsBadTimestamps(t *testing.T) {
	t.Parallel()

	data := []byte(`{"language":"en","duration":5,"segments":[{"start":3.0,"end":1.0,"text":"bad"}]}`)
	if _, err := segment.UnmarshalInterchange(data); err == nil {
		t.Error("UnmarshalInterchange accepted start > end")
	}
}
