package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/stackit-qa/apiserver/internal/store"
)

// SnapshotRepository is the row level persistence used by PostgresClient.
type SnapshotRepository interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) ([]byte, error)
	Upsert(ctx context.Context, key, contentType string, payload []byte) error
	Delete(ctx context.Context, key string) error
	Table() string
}

// PostgresClient keeps objects as rows of the session_snapshots table.
type PostgresClient struct {
	repo SnapshotRepository
}

// NewPostgresClient constructs a Postgres backed store.
func NewPostgresClient(repo SnapshotRepository) *PostgresClient {
	return &PostgresClient{repo: repo}
}

// EnsureBucket checks the database is reachable. The table itself is
// created by the migrations.
func (p *PostgresClient) EnsureBucket(ctx context.Context) error {
	return p.repo.Ping(ctx)
}

// Put upserts the object row.
func (p *PostgresClient) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	payload, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return p.repo.Upsert(ctx, key, contentType, payload)
}

// Get reads the object row.
func (p *PostgresClient) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	payload, err := p.repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(payload)), nil
}

// Delete removes the object row.
func (p *PostgresClient) Delete(ctx context.Context, key string) error {
	err := p.repo.Delete(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// Bucket returns the table name.
func (p *PostgresClient) Bucket() string {
	return p.repo.Table()
}
