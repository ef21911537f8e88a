package database

import (
	"context"
	"fmt"
	"io"

	"github.com/JonMunkholm/bountycatch/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool wraps a pgxpool.Pool and hands out Sessions.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool parses the connection settings, applies pool limits from cfg,
// connects and verifies the connection with a ping.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{pool: pool}, nil
}

// Acquire checks out one connection for exclusive use by the caller.
func (p *Pool) Acquire(ctx context.Context) (Session, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &poolSession{Conn: conn}, nil
}

// Close closes every connection in the pool.
func (p *Pool) Close() {
	p.pool.Close()
}

// poolSession adapts *pgxpool.Conn to Session. Exec, Query, QueryRow,
// CopyFrom and Release are promoted from the embedded connection.
type poolSession struct {
	*pgxpool.Conn
}

func (s *poolSession) Begin(ctx context.Context) (Tx, error) {
	return s.Conn.Begin(ctx)
}

func (s *poolSession) CopyTo(ctx context.Context, w io.Writer, sql string) (int64, error) {
	tag, err := s.Conn.Conn().PgConn().CopyTo(ctx, w, sql)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
