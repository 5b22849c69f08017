package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/stackit-qa/apiserver/config"
	"github.com/stackit-qa/apiserver/internal/store"
)

// Open builds the session storage selected by cfg.Session.Backend and makes
// sure its bucket exists. sqlDB is only used by the postgres backend.
func Open(ctx context.Context, cfg config.Config, sqlDB *sql.DB) (*Storage, error) {
	var backend ObjectStorage
	switch cfg.Session.Backend {
	case "", config.SessionBackendFile:
		local, err := NewLocalClient(cfg.Session.Dir)
		if err != nil {
			return nil, err
		}
		backend = local
	case config.SessionBackendMinio:
		client, err := NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		backend = client
	case config.SessionBackendGCS:
		client, err := NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		backend = client
	case config.SessionBackendPostgres:
		if sqlDB == nil {
			return nil, errors.New("postgres session backend requires a database connection")
		}
		backend = NewPostgresClient(store.NewSnapshotRepository(sqlDB))
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}

	s := NewStorage(backend)
	if err := s.EnsureBucket(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("prepare session storage %s: %w", s.Bucket(), err)
	}
	return s, nil
}

// Close releases the backend when it holds a client connection.
func (s *Storage) Close() error {
	if closer, ok := s.backend.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
