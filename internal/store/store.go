// Package store persists per-stage pipeline artifacts so that a failed or
// interrupted run can resume from the last completed stage instead of
// re-transcribing the whole file.
//
// Two implementations are provided: [FSStore] writes interchange JSON files
// under a directory tree, and [PGStore] keeps artifacts in a PostgreSQL
// JSONB table. Both key artifacts by (source, stage).
package store

import (
	"context"
	"errors"

	"github.com/MrWong99/captionforge/pkg/segment"
)

// ErrNotFound is returned by [Store.Load] when no artifact exists for the
// given source and stage.
var ErrNotFound = errors.New("artifact not found")

// Store persists stage outputs keyed by media source and stage name.
// Saving over an existing (source, stage) pair replaces the old artifact.
type Store interface {
	// Save persists col as the output of stage for source.
	Save(ctx context.Context, source, stage string, col *segment.Collection) error

	// Load returns the stored artifact for source and stage, or [ErrNotFound].
	Load(ctx context.Context, source, stage string) (*segment.Collection, error)

	// Stages lists the stage names that have a stored artifact for source,
	// oldest first.
	Stages(ctx context.Context, source string) ([]string, error)

	// Close releases any resources held by the store.
	Close()
}
