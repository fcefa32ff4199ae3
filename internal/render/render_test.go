package render

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrWong99/captionforge/pkg/segment"
)

func makeCollection(t *testing.T) *segment.Collection {
	t.Helper()
	a, err := segment.New(0, 2.5, "Hello there, welcome to the show.")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.Speaker = "SPEAKER_00"
	b, err := segment.New(2.5, 5, "Thanks, glad to be here.")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b.Speaker = "SPEAKER_01"
	return segment.NewCollection("talk.mp4", "en", 0, []segment.Segment{a, b})
}

func TestNew_KnownAndUnknownFormats(t *testing.T) {
	t.Parallel()

	for _, format := range Formats() {
		if _, err := New(format, Options{}); err != nil {
			t.Errorf("New(%q): %v", format, err)
		}
	}
	_, err := New("vhs", Options{})
	var cerr *segment.ConfigurationError
	if !errors.As(err, &cerr) {
		t.Errorf("unknown format error = %v, want *ConfigurationError", err)
	}
}

func TestRationalTime(t *testing.T) {
	t.Parallel()

	// NTSC: 1 second is ~29.97 frames, rounded to 30 frames.
	if got := rationalTime(1.0, "1001/30000", 30000); got != "30030/30000s" {
		t.Errorf("NTSC 1s = %q, want 30030/30000s", got)
	}
	if got := rationalTime(2.0, "1/25", 25); got != "50/25s" {
		t.Errorf("PAL 2s = %q, want 50/25s", got)
	}
	if got := rationalTime(0, "1001/30000", 30000); got != "0/30000s" {
		t.Errorf("zero = %q, want 0/30000s", got)
	}
}

func TestIttTime(t *testing.T) {
	t.Parallel()

	if got := ittTime(3661.5, 0); got != "01:01:01.500" {
		t.Errorf("3661.5s = %q, want 01:01:01.500", got)
	}
	// Frame-aware: 1.0s at 29.97 fps snaps to frame 30 → 30/29.97s.
	if got := ittTime(1.0, 29.97); got != "00:00:01.001" {
		t.Errorf("1.0s @29.97 = %q, want 00:00:01.001", got)
	}
}

func TestReadableTimecode(t *testing.T) {
	t.Parallel()

	if got := readableTimecode(75); got != "01:15" {
		t.Errorf("75s = %q, want 01:15", got)
	}
	if got := readableTimecode(3735); got != "01:02:15" {
		t.Errorf("3735s = %q, want 01:02:15", got)
	}
}

func TestWrapSubtitleText(t *testing.T) {
	t.Parallel()

	short := wrapSubtitleText("a few words", maxSubtitleLineChars)
	if strings.Contains(short, "\n") {
		t.Errorf("short text should stay one line: %q", short)
	}

	long := wrapSubtitleText(strings.Repeat("word ", 40), maxSubtitleLineChars)
	if n := strings.Count(long, "\n"); n > 1 {
		t.Errorf("wrapped text has %d line breaks, want at most 1", n)
	}
	if !strings.HasSuffix(long, "...") {
		t.Errorf("overflowing text should end in ellipsis: %q", long)
	}
}

func TestFCPXML_Structure(t *testing.T) {
	t.Parallel()

	r, err := New("fcpxml", Options{FrameRate: 29.97})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	path := filepath.Join(t.TempDir(), "out.fcpxml")
	if err := r.Render(makeCollection(t), path); err != nil {
		t.Fatalf("Render: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	content := string(data)
	for _, want := range []string{
		`<fcpxml version="1.8">`,
		`name="FFVideoFormat1080p2997"`,
		`frameDuration="1001/30000"`,
		`tcFormat="NDF"`,
		`lane="1"`,
		`<!DOCTYPE fcpxml>`,
		"Title 1", "Title 2",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("fcpxml output missing %q", want)
		}
	}
}

func TestITT_Structure(t *testing.T) {
	t.Parallel()

	r, err := New("itt", Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	path := filepath.Join(t.TempDir(), "out.itt")
	if err := r.Render(makeCollection(t), path); err != nil {
		t.Fatalf("Render: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	content := string(data)
	for _, want := range []string{
		`xmlns="http://www.w3.org/ns/ttml"`,
		`begin="00:00:00.000"`,
		`end="00:00:02.500"`,
		"Hello there, welcome to the show.",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("itt output missing %q", want)
		}
	}
}

func TestMarkdown_Content(t *testing.T) {
	t.Parallel()

	r := &markdownRenderer{opts: Options{IncludeTimecodes: true, IncludeSpeakers: true}}
	content := r.content(makeCollection(t))

	for _, want := range []string{
		"# talk.mp4",
		"**Duration:** 00:05",
		"**Segments:** 2",
		"**Speakers:** 2",
		"**00:00** **SPEAKER_00**: Hello there",
		"**00:02** **SPEAKER_01**: Thanks",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("markdown missing %q in:\n%s", want, content)
		}
	}
}

func TestJSON_RoundTrips(t *testing.T) {
	t.Parallel()

	r, err := New("json", Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	path := filepath.Join(t.TempDir(), "out.json")
	col := makeCollection(t)
	if err := r.Render(col, path); err != nil {
		t.Fatalf("Render: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	back, err := segment.UnmarshalInterchange(data)
	if err != nil {
		t.Fatalf("UnmarshalInterchange: %v", err)
	}
	if back.Len() != col.Len() || back.Segments[1].Speaker != "SPEAKER_01" {
		t.Errorf("round trip lost data: %+v", back)
	}
}

func TestRender_RejectsSameSpeakerOverlap(t *testing.T) {
	t.Parallel()

	a, err := segment.New(0, 3, "first")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.Speaker = "SPEAKER_00"
	b, err := segment.New(2, 4, "second")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b.Speaker = "SPEAKER_00"
	col := segment.NewCollection("x.mp4", "en", 0, []segment.Segment{a, b})

	for _, format := range []string{"itt", "markdown", "json"} {
		r, err := New(format, Options{})
		if err != nil {
			t.Fatalf("New(%q): %v", format, err)
		}
		path := filepath.Join(t.TempDir(), "out."+r.Extension())
		if err := r.Render(col, path); err == nil {
			t.Errorf("%s: expected structural validation error for same-speaker overlap", format)
		}
	}
}

func TestDocx_WritesFile(t *testing.T) {
	t.Parallel()

	r, err := New("docx", Options{IncludeTimecodes: true, IncludeSpeakers: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	path := filepath.Join(t.TempDir(), "out.docx")
	if err := r.Render(makeCollection(t), path); err != nil {
		t.Fatalf("Render: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}
	if info.Size() == 0 {
		t.Error("docx output is empty")
	}
}
