// Package watch monitors an input directory and hands newly created media
// files to a handler, typically the pipeline's ProcessFile. Files are
// recognised by extension; a short settle delay lets the writer finish
// before processing starts.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/MrWong99/captionforge/pkg/segment"
)

// DefaultExtensions lists the media extensions handled when none are
// configured.
var DefaultExtensions = []string{
	".mp4", ".mov", ".avi", ".mkv", ".webm", ".m4v", ".flv",
	".mp3", ".wav", ".m4a", ".flac", ".ogg",
}

const (
	// DefaultMaxConcurrent bounds in-flight handler calls.
	DefaultMaxConcurrent = 2

	// DefaultSettle is how long a newly created file must sit before the
	// handler runs, so half-written files are not picked up.
	DefaultSettle = 500 * time.Millisecond
)

// Handler processes one detected media file.
type Handler func(ctx context.Context, path string) error

// Config holds the watcher parameters.
type Config struct {
	// Dir is the directory to monitor. Required.
	Dir string

	// Extensions overrides [DefaultExtensions]. Entries are matched
	// case-insensitively and must include the leading dot.
	Extensions []string

	// MaxConcurrent bounds in-flight handler calls. Zero selects
	// [DefaultMaxConcurrent].
	MaxConcurrent int

	// Settle overrides [DefaultSettle]. Negative disables the delay.
	Settle time.Duration
}

// Watcher monitors a directory and dispatches media files to its handler.
type Watcher struct {
	cfg     Config
	handler Handler
	fs      *fsnotify.Watcher
	sem     chan struct{}
	wg      sync.WaitGroup
}

// New creates a [Watcher] for cfg.Dir. The directory must already exist.
func New(cfg Config, handler Handler) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, &segment.ConfigurationError{Param: "dir", Reason: "must not be empty"}
	}
	if handler == nil {
		return nil, &segment.ConfigurationError{Param: "handler", Reason: "must not be nil"}
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = DefaultExtensions
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.Settle == 0 {
		cfg.Settle = DefaultSettle
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(cfg.Dir); err != nil {
		fs.Close()
		return nil, err
	}

	return &Watcher{
		cfg:     cfg,
		handler: handler,
		fs:      fs,
		sem:     make(chan struct{}, cfg.MaxConcurrent),
	}, nil
}

// Start blocks until ctx is cancelled or the underlying watcher fails. On
// cancellation it waits for in-flight handler calls to finish and returns
// ctx.Err().
func (w *Watcher) Start(ctx context.Context) error {
	slog.Info("watching for media files",
		"dir", w.cfg.Dir,
		"max_concurrent", w.cfg.MaxConcurrent)

	for {
		select {
		case <-ctx.Done():
			slog.Info("waiting for in-flight files before stopping watcher")
			w.wg.Wait()
			return ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				w.wg.Wait()
				return errors.New("watch: events channel closed")
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			if !w.isMediaFile(event.Name) {
				slog.Debug("ignoring non-media file", "path", event.Name)
				continue
			}
			slog.Info("new media file detected", "path", event.Name)

			select {
			case w.sem <- struct{}{}:
				w.wg.Add(1)
				go w.handle(ctx, event.Name)
			case <-ctx.Done():
				w.wg.Wait()
				return ctx.Err()
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				w.wg.Wait()
				return errors.New("watch: errors channel closed")
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

// handle runs the handler for one file after the settle delay.
func (w *Watcher) handle(ctx context.Context, path string) {
	defer w.wg.Done()
	defer func() { <-w.sem }()

	if w.cfg.Settle > 0 {
		select {
		case <-time.After(w.cfg.Settle):
		case <-ctx.Done():
			return
		}
	}
	if err := w.handler(ctx, path); err != nil {
		slog.Error("file processing failed", "path", path, "error", err)
	}
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func (w *Watcher) isMediaFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return slices.Contains(w.cfg.Extensions, ext)
}
