package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const snapshotTable = "session_snapshots"

// ErrNotFound is returned when no snapshot is stored under a key.
var ErrNotFound = errors.New("snapshot not found")

// SnapshotRepository handles persistence for session snapshots.
type SnapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SnapshotRepository) Table() string {
	return snapshotTable
}

func (r *SnapshotRepository) Get(ctx context.Context, key string) ([]byte, error) {
	const query = `
		SELECT payload
		FROM session_snapshots
		WHERE key = $1`
	var payload []byte
	err := r.db.QueryRowContext(ctx, query, key).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return payload, nil
}

func (r *SnapshotRepository) Upsert(ctx context.Context, key, contentType string, payload []byte) error {
	const query = `
		INSERT INTO session_snapshots (key, content_type, payload, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET content_type = EXCLUDED.content_type,
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at`
	_, err := r.db.ExecContext(ctx, query, key, contentType, payload, time.Now())
	return err
}

func (r *SnapshotRepository) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM session_snapshots WHERE key = $1`
	result, err := r.db.ExecContext(ctx, query, key)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
