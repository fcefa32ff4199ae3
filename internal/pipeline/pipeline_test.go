package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/MrWong99/captionforge/internal/diarize"
	"github.com/MrWong99/captionforge/internal/store"
	"github.com/MrWong99/captionforge/pkg/segment"
)

// fakeTranscriber returns a canned collection without touching ffmpeg.
type fakeTranscriber struct {
	mu    sync.Mutex
	col   *segment.Collection
	fail  func(path string) error
	calls []string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, mediaPath string) (*segment.Collection, string, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, mediaPath)
	if f.fail != nil {
		if err := f.fail(mediaPath); err != nil {
			return nil, "", nil, err
		}
	}
	col := f.col.Clone()
	col.Source = mediaPath
	return col, "", nil, nil
}

func fakeCollection(t *testing.T) *segment.Collection {
	t.Helper()
	a, err := segment.New(0, 2, "hello there everyone")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b, err := segment.New(5, 7, "welcome back to the show")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return segment.NewCollection("placeholder", "en", 0, []segment.Segment{a, b})
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	ft := &fakeTranscriber{col: fakeCollection(t)}
	cases := []struct {
		name string
		t    Transcriber
		cfg  Config
	}{
		{"nil transcriber", nil, Config{OutputDir: "out", Formats: []string{"json"}}},
		{"empty output dir", ft, Config{Formats: []string{"json"}}},
		{"no formats", ft, Config{OutputDir: "out"}},
		{"unknown format", ft, Config{OutputDir: "out", Formats: []string{"vhs"}}},
		{"negative workers", ft, Config{OutputDir: "out", Formats: []string{"json"}, Workers: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tc.t, tc.cfg)
			var cerr *segment.ConfigurationError
			if !errors.As(err, &cerr) {
				t.Errorf("err = %v, want *ConfigurationError", err)
			}
		})
	}
}

func TestProcessFile_RendersAndPersists(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	st, err := store.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}

	dz, err := diarize.NewStage(nil, diarize.Config{})
	if err != nil {
		t.Fatalf("diarize.NewStage: %v", err)
	}

	p, err := New(&fakeTranscriber{col: fakeCollection(t)}, Config{
		OutputDir: outDir,
		Formats:   []string{"json", "markdown"},
	}, WithDiarization(dz), WithStore(st))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	outputs, err := p.ProcessFile(context.Background(), "/media/episode.mp4")
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if len(outputs) != 2 {
		t.Fatalf("outputs = %v, want 2 paths", outputs)
	}
	for _, out := range outputs {
		if _, err := os.Stat(out); err != nil {
			t.Errorf("missing output %s: %v", out, err)
		}
		if filepath.Dir(out) != outDir {
			t.Errorf("output %s not in %s", out, outDir)
		}
		base := filepath.Base(out)
		if !strings.HasPrefix(base, "episode.") {
			t.Errorf("output base = %q, want episode.*", base)
		}
	}

	stages, err := st.Stages(context.Background(), "/media/episode.mp4")
	if err != nil {
		t.Fatalf("Stages: %v", err)
	}
	want := map[string]bool{"transcribe": true, "diarize": true, "rechunk": true}
	for _, s := range stages {
		delete(want, s)
	}
	if len(want) != 0 {
		t.Errorf("missing persisted stages %v, got %v", want, stages)
	}
}

func TestProcessFile_DiarizeLabelsSpeakers(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	dz, err := diarize.NewStage(nil, diarize.Config{})
	if err != nil {
		t.Fatalf("diarize.NewStage: %v", err)
	}
	p, err := New(&fakeTranscriber{col: fakeCollection(t)}, Config{
		OutputDir: outDir,
		Formats:   []string{"json"},
	}, WithDiarization(dz))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	outputs, err := p.ProcessFile(context.Background(), "/media/talk.mp4")
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	data, err := os.ReadFile(outputs[0])
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	col, err := segment.UnmarshalInterchange(data)
	if err != nil {
		t.Fatalf("UnmarshalInterchange: %v", err)
	}
	// The fake collection has a 3s gap, over the silence threshold, so the
	// heuristic assigns two speakers.
	if col.Segments[0].Speaker == "" || col.Segments[len(col.Segments)-1].Speaker == "" {
		t.Errorf("segments missing speaker labels: %+v", col.Segments)
	}
}

func TestRun_IsolatesFailures(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	ft := &fakeTranscriber{
		col: fakeCollection(t),
		fail: func(path string) error {
			if strings.Contains(path, "broken") {
				return errors.New("decode failed")
			}
			return nil
		},
	}
	p, err := New(ft, Config{
		OutputDir: outDir,
		Formats:   []string{"json"},
		Workers:   1,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = p.Run(context.Background(), []string{"/media/broken.mp4", "/media/fine.mp4"})
	if err == nil {
		t.Fatal("Run should report the broken file")
	}
	if !strings.Contains(err.Error(), "broken.mp4") {
		t.Errorf("error should name the failed file: %v", err)
	}

	// The healthy sibling still rendered.
	if _, err := os.Stat(filepath.Join(outDir, "fine.json")); err != nil {
		t.Errorf("fine.mp4 output missing: %v", err)
	}
	if len(ft.calls) != 2 {
		t.Errorf("transcriber calls = %d, want 2", len(ft.calls))
	}
}

func TestRun_AllHealthy(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	p, err := New(&fakeTranscriber{col: fakeCollection(t)}, Config{
		OutputDir: outDir,
		Formats:   []string{"itt"},
		Workers:   3,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	files := []string{"/media/a.mp4", "/media/b.mp4", "/media/c.mp4"}
	if err := p.Run(context.Background(), files); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, name := range []string{"a.itt", "b.itt", "c.itt"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}
