package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/captionforge/pkg/segment"
)

// recorder collects handled paths.
type recorder struct {
	mu    sync.Mutex
	paths []string
	seen  chan string
}

func newRecorder() *recorder {
	return &recorder{seen: make(chan string, 16)}
}

func (r *recorder) handle(_ context.Context, path string) error {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
	r.seen <- path
	return nil
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, func(context.Context, string) error { return nil })
	var cerr *segment.ConfigurationError
	if !errors.As(err, &cerr) {
		t.Errorf("empty dir: err = %v, want *ConfigurationError", err)
	}

	_, err = New(Config{Dir: t.TempDir()}, nil)
	if !errors.As(err, &cerr) {
		t.Errorf("nil handler: err = %v, want *ConfigurationError", err)
	}
}

func TestWatcher_HandlesNewMediaFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rec := newRecorder()
	w, err := New(Config{Dir: dir, Settle: time.Millisecond}, rec.handle)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, []byte("fake media"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case got := <-rec.seen:
		if got != path {
			t.Errorf("handled path = %q, want %q", got, path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not called for new media file")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Start returned %v, want context.Canceled", err)
	}
}

func TestWatcher_IgnoresNonMediaFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rec := newRecorder()
	w, err := New(Config{Dir: dir, Settle: time.Millisecond}, rec.handle)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	// A media file afterwards proves the watcher is alive and the text file
	// really was skipped rather than still queued.
	path := filepath.Join(dir, "talk.wav")
	if err := os.WriteFile(path, []byte("fake audio"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case got := <-rec.seen:
		if got != path {
			t.Errorf("handled path = %q, want %q", got, path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not called for media file")
	}

	cancel()
	<-done

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, p := range rec.paths {
		if filepath.Ext(p) == ".txt" {
			t.Errorf("non-media file was handled: %s", p)
		}
	}
}

func TestWatcher_CustomExtensions(t *testing.T) {
	t.Parallel()

	w, err := New(Config{
		Dir:        t.TempDir(),
		Extensions: []string{".opus"},
	}, func(context.Context, string) error { return nil })
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if !w.isMediaFile("a.opus") || !w.isMediaFile("b.OPUS") {
		t.Error("custom extension not matched")
	}
	if w.isMediaFile("c.mp4") {
		t.Error("default extension matched despite override")
	}
}
