package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// IndexEntry is one embedded document of the semantic index.
type IndexEntry struct {
	ID        uuid.UUID
	Position  int
	Content   string
	Metadata  map[string]any
	Embedding []float32
	Model     string
	Version   uuid.UUID
	CreatedAt time.Time
}

// IndexSnapshot is the full persisted index of one build.
type IndexSnapshot struct {
	Version uuid.UUID
	Model   string
	BuiltAt time.Time
	Entries []IndexEntry
}

// IndexRepository stores index builds. Only the latest build is retained.
type IndexRepository struct {
	db DB
}

// NewIndexRepository creates a new index repository.
func NewIndexRepository(db DB) *IndexRepository {
	return &IndexRepository{db: db}
}

const createIndexEntries = `
	CREATE TABLE IF NOT EXISTS index_entries (
		id         TEXT PRIMARY KEY,
		position   INTEGER NOT NULL,
		content    TEXT NOT NULL,
		metadata   TEXT NOT NULL,
		embedding  TEXT NOT NULL,
		model      TEXT NOT NULL,
		version    TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)
`

// Migrate creates the index table if it does not exist.
func (r *IndexRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createIndexEntries); err != nil {
		return fmt.Errorf("create index_entries: %w", err)
	}
	return nil
}

// Replace atomically swaps the stored index for snap.
func (r *IndexRepository) Replace(ctx context.Context, snap IndexSnapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM index_entries`); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}

	query := `
		INSERT INTO index_entries (id, position, content, metadata, embedding, model, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range snap.Entries {
		metadata, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", e.ID, err)
		}
		embedding, err := json.Marshal(e.Embedding)
		if err != nil {
			return fmt.Errorf("marshal embedding for %s: %w", e.ID, err)
		}

		if _, err := stmt.ExecContext(ctx,
			e.ID.String(), e.Position, e.Content, string(metadata), string(embedding),
			snap.Model, snap.Version.String(), snap.BuiltAt.UTC(),
		); err != nil {
			return fmt.Errorf("insert entry %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit index: %w", err)
	}
	return nil
}

// Load returns the stored index ordered by position, or ErrNotFound when empty.
func (r *IndexRepository) Load(ctx context.Context) (*IndexSnapshot, error) {
	query := `
		SELECT id, position, content, metadata, embedding, model, version, created_at
		FROM index_entries
		ORDER BY position
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	defer rows.Close()

	snap := &IndexSnapshot{}
	for rows.Next() {
		var (
			e                 IndexEntry
			id, version       string
			metadata, vectors string
		)
		if err := rows.Scan(&id, &e.Position, &e.Content, &metadata, &vectors, &e.Model, &version, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan index entry: %w", err)
		}

		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse entry id %q: %w", id, err)
		}
		if e.Version, err = uuid.Parse(version); err != nil {
			return nil, fmt.Errorf("parse version %q: %w", version, err)
		}
		if err := json.Unmarshal([]byte(metadata), &e.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata for %s: %w", id, err)
		}
		if err := json.Unmarshal([]byte(vectors), &e.Embedding); err != nil {
			return nil, fmt.Errorf("unmarshal embedding for %s: %w", id, err)
		}

		snap.Entries = append(snap.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate index: %w", err)
	}

	if len(snap.Entries) == 0 {
		return nil, ErrNotFound
	}

	first := snap.Entries[0]
	snap.Version = first.Version
	snap.Model = first.Model
	snap.BuiltAt = first.CreatedAt
	return snap, nil
}

// Count returns the number of stored entries.
func (r *IndexRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM index_entries`).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count index: %w", err)
	}
	return n, nil
}
