package core

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/JonMunkholm/bountycatch/internal/config"
	"github.com/JonMunkholm/bountycatch/internal/database"
)

// psql builds PostgreSQL statements with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Service runs domain list operations. Each operation holds one session
// from start to finish, so session settings and temporary tables never
// leak across operations.
type Service struct {
	sessions database.SessionSource
	cfg      config.IngestConfig
}

// NewService creates a Service. Zero-valued tuning fields fall back to
// their defaults.
func NewService(sessions database.SessionSource, cfg config.IngestConfig) *Service {
	return &Service{
		sessions: sessions,
		cfg:      withIngestDefaults(cfg),
	}
}

func withIngestDefaults(cfg config.IngestConfig) config.IngestConfig {
	if cfg.BulkThreshold <= 0 {
		cfg.BulkThreshold = DefaultBulkThreshold
	}
	if cfg.InsertBatchSize <= 0 {
		cfg.InsertBatchSize = 10_000
	}
	if cfg.CopyChunkSize <= 0 {
		cfg.CopyChunkSize = 5_000_000
	}
	if cfg.RemoveBatchSize <= 0 {
		cfg.RemoveBatchSize = 10_000
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = DefaultReadBufferSize
	}
	if cfg.WorkMem == "" {
		cfg.WorkMem = "256MB"
	}
	if cfg.MaintenanceWorkMem == "" {
		cfg.MaintenanceWorkMem = "512MB"
	}
	return cfg
}

// withSession acquires a session, runs fn and releases the session on
// every path.
func (s *Service) withSession(ctx context.Context, fn func(database.Session) error) error {
	sess, err := s.sessions.Acquire(ctx)
	if err != nil {
		return err
	}
	defer sess.Release()
	return fn(sess)
}

// EnsureSchema creates the domains table and index when missing.
func (s *Service) EnsureSchema(ctx context.Context) error {
	return s.withSession(ctx, func(sess database.Session) error {
		return database.EnsureSchema(ctx, sess)
	})
}

// countAll returns the number of rows in the domains table.
func countAll(ctx context.Context, db database.DBTX) (int64, error) {
	query, args, err := psql.Select("COUNT(*)").From(database.Table).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}

	var n int64
	if err := db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count domains: %w", err)
	}
	return n, nil
}

// Ping checks that a session can be acquired and answers a trivial query.
func (s *Service) Ping(ctx context.Context) error {
	return s.withSession(ctx, func(sess database.Session) error {
		var one int
		if err := sess.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
			return fmt.Errorf("ping: %w", err)
		}
		return nil
	})
}
