// Package database owns the PostgreSQL store handle: the connection pool,
// the per-command session, and the domains table schema.
package database

import (
	"context"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by *pgxpool.Conn, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Tx is a DBTX that must end in Commit or Rollback.
// Satisfied by pgx.Tx.
type Tx interface {
	DBTX
	Commit(context.Context) error
	Rollback(context.Context) error
}

// Session is one connection reserved for a single command invocation.
// Session-level settings and temporary tables live as long as the session;
// callers must Release it on every exit path.
type Session interface {
	DBTX

	// Begin starts a transaction on this session's connection.
	Begin(ctx context.Context) (Tx, error)

	// CopyTo runs a COPY ... TO STDOUT statement and streams its text
	// output into w. Returns the number of rows copied.
	CopyTo(ctx context.Context, w io.Writer, sql string) (int64, error)

	// Release returns the connection to the pool.
	Release()
}

// SessionSource hands out sessions. Satisfied by *Pool.
type SessionSource interface {
	Acquire(ctx context.Context) (Session, error)
}
