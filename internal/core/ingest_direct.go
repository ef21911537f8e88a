package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/bountycatch/internal/database"
)

// PartialInsertError reports a direct insert that failed part way. Batches
// before the failing one were committed and stay in the table.
type PartialInsertError struct {
	Batches int   // Batches committed before the failure
	Rows    int64 // New rows those batches inserted
	Err     error
}

func (e *PartialInsertError) Error() string {
	return fmt.Sprintf("insert batch %d failed (%d batches, %d new rows already committed): %v",
		e.Batches+1, e.Batches, e.Rows, e.Err)
}

func (e *PartialInsertError) Unwrap() error {
	return e.Err
}

// insertDirect inserts domains in batches of batchSize, skipping values
// already present. Each batch is its own statement and commits on its own.
// Returns the number of new rows.
func insertDirect(ctx context.Context, db database.DBTX, domains []string, batchSize int, log *slog.Logger) (int64, error) {
	var inserted int64
	batches := 0

	for start := 0; start < len(domains); start += batchSize {
		end := min(start+batchSize, len(domains))

		n, err := insertBatch(ctx, db, domains[start:end])
		if err != nil {
			return inserted, &PartialInsertError{Batches: batches, Rows: inserted, Err: err}
		}

		inserted += n
		batches++
		log.Debug("batch inserted",
			"batch", batches,
			"rows", end-start,
			"new", n,
		)
	}

	return inserted, nil
}

// insertBatch runs one INSERT ... ON CONFLICT DO NOTHING for batch.
func insertBatch(ctx context.Context, db database.DBTX, batch []string) (int64, error) {
	builder := psql.Insert(database.Table).Columns(database.Column)
	for _, d := range batch {
		builder = builder.Values(d)
	}
	query, args, err := builder.Suffix("ON CONFLICT (" + database.Column + ") DO NOTHING").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	tag, err := db.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
