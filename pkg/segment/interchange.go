package segment

import (
	"encoding/json"
	"fmt"
)

// record is the interchange form of one segment. This is the de facto
// on-disk contract other tooling depends on: stages may add fields over time
// (speaker, confidence) but must never repurpose an existing field's meaning.
// Optional fields are omitted entirely when absent, never emitted as null.
type record struct {
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Text       string   `json:"text"`
	Speaker    string   `json:"speaker,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// document is the interchange form of a collection.
type document struct {
	Language string   `json:"language"`
	Duration float64  `json:"duration"`
	Segments []record `json:"segments"`
}

// MarshalInterchange serializes the collection to its JSON interchange form.
// Timestamps round-trip exactly: encoding/json emits the shortest decimal
// representation that parses back to the identical float64.
func MarshalInterchange(c *Collection) ([]byte, error) {
	doc := document{
		Language: c.Language,
		Duration: c.Duration,
		Segments: make([]record, len(c.Segments)),
	}
	for i, s := range c.Segments {
		doc.Segments[i] = record{
			Start:      s.Start,
			End:        s.End,
			Text:       s.Text,
			Speaker:    s.Speaker,
			Confidence: s.Confidence,
		}
	}
	return json.MarshalIndent(doc, "", "  ")
}

// UnmarshalInterchange parses a collection from its JSON interchange form.
// Two layouts are accepted for compatibility with older tooling: the full
// document with top-level language and duration, and a bare JSON array of
// segment records.
func UnmarshalInterchange(data []byte) (*Collection, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		// Older transcript files are a bare array of records.
		var recs []record
		if arrErr := json.Unmarshal(data, &recs); arrErr != nil {
			return nil, fmt.Errorf("segment: decode interchange: %w", err)
		}
		doc.Segments = recs
	}

	c := &Collection{
		Language: doc.Language,
		Duration: doc.Duration,
		Segments: make([]Segment, len(doc.Segments)),
	}
	for i, r := range doc.Segments {
		s := Segment{
			Start:      r.Start,
			End:        r.End,
			Text:       r.Text,
			Speaker:    r.Speaker,
			Confidence: r.Confidence,
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("segment: interchange record %d: %w", i, err)
		}
		c.Segments[i] = s
	}
	if last := c.lastEnd(); last > c.Duration {
		c.Duration = last
	}
	c.Renumber()
	return c, nil
}
