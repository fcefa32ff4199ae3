package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MrWong99/captionforge/pkg/segment"
)

// FSStore persists artifacts as interchange JSON files laid out as
// <dir>/<source>/<stage>.json. The source path is flattened to its base name
// with path separators and other unsafe characters replaced, so two inputs
// with the same base name in different directories collide; use [PGStore]
// when that matters.
type FSStore struct {
	dir string
}

// Compile-time interface assertion.
var _ Store = (*FSStore)(nil)

// NewFS creates an [FSStore] rooted at dir, creating the directory if needed.
func NewFS(dir string) (*FSStore, error) {
	if dir == "" {
		return nil, &segment.ConfigurationError{Param: "dir", Reason: "must not be empty"}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifact store: create %s: %w", dir, err)
	}
	return &FSStore{dir: dir}, nil
}

// Save implements [Store]. The write goes through a temp file and rename so a
// crash mid-write never leaves a truncated artifact behind.
func (s *FSStore) Save(_ context.Context, source, stage string, col *segment.Collection) error {
	data, err := segment.MarshalInterchange(col)
	if err != nil {
		return fmt.Errorf("artifact store: marshal %s/%s: %w", source, stage, err)
	}

	dir := filepath.Join(s.dir, sourceKey(source))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("artifact store: create %s: %w", dir, err)
	}

	path := filepath.Join(dir, stage+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("artifact store: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("artifact store: rename %s: %w", path, err)
	}
	return nil
}

// Load implements [Store].
func (s *FSStore) Load(_ context.Context, source, stage string) (*segment.Collection, error) {
	path := filepath.Join(s.dir, sourceKey(source), stage+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("artifact store: %s/%s: %w", source, stage, ErrNotFound)
		}
		return nil, fmt.Errorf("artifact store: read %s: %w", path, err)
	}
	col, err := segment.UnmarshalInterchange(data)
	if err != nil {
		return nil, fmt.Errorf("artifact store: decode %s: %w", path, err)
	}
	return col, nil
}

// Stages implements [Store]. Artifacts are ordered by modification time so
// the last entry is the most recently completed stage.
func (s *FSStore) Stages(_ context.Context, source string) ([]string, error) {
	dir := filepath.Join(s.dir, sourceKey(source))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("artifact store: list %s: %w", dir, err)
	}

	type stamped struct {
		name string
		mod  int64
	}
	var found []stamped
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".json")
		if !ok || e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("artifact store: stat %s: %w", e.Name(), err)
		}
		found = append(found, stamped{name: name, mod: info.ModTime().UnixNano()})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].mod < found[j].mod })

	stages := make([]string, len(found))
	for i, f := range found {
		stages[i] = f.name
	}
	return stages, nil
}

// Close implements [Store]. It is a no-op for the filesystem store.
func (s *FSStore) Close() {}

// sourceKey flattens a media path into a single safe directory name.
func sourceKey(source string) string {
	base := filepath.Base(source)
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, base)
}
