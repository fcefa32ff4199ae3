package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/captionforge/pkg/segment"
)

// ddlStageArtifacts is idempotent and safe to run on every application start.
const ddlStageArtifacts = `
CREATE TABLE IF NOT EXISTS stage_artifacts (
    source      TEXT         NOT NULL,
    stage       TEXT         NOT NULL,
    payload     JSONB        NOT NULL,
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    PRIMARY KEY (source, stage)
);

CREATE INDEX IF NOT EXISTS idx_stage_artifacts_updated
    ON stage_artifacts (updated_at);
`

// PGStore persists artifacts in a PostgreSQL stage_artifacts table. Unlike
// [FSStore] it keys by the full source path, so identically named files in
// different directories never collide. All methods are safe for concurrent use.
type PGStore struct {
	pool *pgxpool.Pool
}

// Compile-time interface assertion.
var _ Store = (*PGStore)(nil)

// NewPG connects to the PostgreSQL database at dsn and runs [Migrate] to
// ensure the artifact table exists.
func NewPG(ctx context.Context, dsn string) (*PGStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &PGStore{pool: pool}, nil
}

// Migrate creates or ensures the stage_artifacts table exists. It is
// idempotent and safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlStageArtifacts); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}

// Save implements [Store] with an upsert on (source, stage).
func (s *PGStore) Save(ctx context.Context, source, stage string, col *segment.Collection) error {
	data, err := segment.MarshalInterchange(col)
	if err != nil {
		return fmt.Errorf("postgres store: marshal %s/%s: %w", source, stage, err)
	}

	const q = `
		INSERT INTO stage_artifacts (source, stage, payload, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (source, stage)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`

	if _, err := s.pool.Exec(ctx, q, source, stage, data); err != nil {
		return fmt.Errorf("postgres store: save %s/%s: %w", source, stage, err)
	}
	return nil
}

// Load implements [Store].
func (s *PGStore) Load(ctx context.Context, source, stage string) (*segment.Collection, error) {
	const q = `
		SELECT payload
		FROM   stage_artifacts
		WHERE  source = $1 AND stage = $2`

	var data []byte
	if err := s.pool.QueryRow(ctx, q, source, stage).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("postgres store: %s/%s: %w", source, stage, ErrNotFound)
		}
		return nil, fmt.Errorf("postgres store: load %s/%s: %w", source, stage, err)
	}

	col, err := segment.UnmarshalInterchange(data)
	if err != nil {
		return nil, fmt.Errorf("postgres store: decode %s/%s: %w", source, stage, err)
	}
	return col, nil
}

// Stages implements [Store], ordered by update time (oldest first).
func (s *PGStore) Stages(ctx context.Context, source string) ([]string, error) {
	const q = `
		SELECT stage
		FROM   stage_artifacts
		WHERE  source = $1
		ORDER  BY updated_at`

	rows, err := s.pool.Query(ctx, q, source)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list %s: %w", source, err)
	}
	stages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var stage string
		err := row.Scan(&stage)
		return stage, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: list %s: %w", source, err)
	}
	return stages, nil
}

// Ping verifies the database connection is still alive. Used by the
// readiness probe.
func (s *PGStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases all connections held by the underlying pool.
func (s *PGStore) Close() {
	s.pool.Close()
}
