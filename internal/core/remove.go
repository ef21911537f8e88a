package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/bountycatch/internal/database"
	"github.com/JonMunkholm/bountycatch/internal/logging"
)

const (
	stageTable          = "remove_stage"
	sqlCreateStage      = `CREATE TEMP TABLE remove_stage (domain TEXT) ON COMMIT DROP`
	sqlDeleteStagedRows = `DELETE FROM domains d USING remove_stage s WHERE d.domain = s.domain`
)

// Remove deletes domains using the first mode set on req: a single
// domain, a filter over the whole table, or a list read from a file or
// stdin. Removal values are not validated.
func (s *Service) Remove(ctx context.Context, req RemoveRequest) (RunStats, error) {
	start := time.Now()
	log := logging.WithFields(ctx, "command", "remove")

	var (
		stats RunStats
		err   error
	)
	switch {
	case req.Domain != "":
		err = s.withSession(ctx, func(sess database.Session) error {
			stats, err = removeOne(ctx, sess, req.Domain)
			return err
		})
	case !req.Filter.IsZero():
		log = log.With("filter", req.Filter.String())
		err = s.withSession(ctx, func(sess database.Session) error {
			stats, err = removeMatching(ctx, sess, req.Filter, s.cfg.RemoveBatchSize, log)
			return err
		})
	default:
		var lr *LineReader
		lr, err = OpenInput(req.Input, s.cfg.ReadBufferSize)
		if err != nil {
			return RunStats{}, err
		}
		defer lr.Close()
		log = log.With("input", lr.Name())

		err = s.withSession(ctx, func(sess database.Session) error {
			stats, err = removeStaged(ctx, sess, lr)
			return err
		})
	}

	stats.Duration = time.Since(start)
	if err != nil {
		return stats, err
	}

	log.Info("remove complete",
		"processed", stats.Total,
		"removed", stats.Removed,
		"not_found", stats.NotFound,
		"duration_ms", stats.Duration.Milliseconds(),
	)
	return stats, nil
}

// removeOne deletes a single exact value.
func removeOne(ctx context.Context, db database.DBTX, domain string) (RunStats, error) {
	query, args, err := psql.Delete(database.Table).Where(sq.Eq{database.Column: domain}).ToSql()
	if err != nil {
		return RunStats{}, fmt.Errorf("build delete: %w", err)
	}

	tag, err := db.Exec(ctx, query, args...)
	if err != nil {
		return RunStats{}, fmt.Errorf("delete %q: %w", domain, err)
	}

	removed := tag.RowsAffected()
	return RunStats{Total: 1, Removed: removed, NotFound: 1 - removed}, nil
}

// removeMatching scans the table, collects values accepted by f and
// deletes them in batches of batchSize.
func removeMatching(ctx context.Context, db database.DBTX, f Filter, batchSize int, log *slog.Logger) (RunStats, error) {
	var matches []string
	err := scanDomains(ctx, db, false, func(d string) error {
		if f.Match(d) {
			matches = append(matches, d)
		}
		return nil
	})
	if err != nil {
		return RunStats{}, err
	}
	log.Debug("filter matched", "rows", len(matches))

	stats := RunStats{Total: len(matches)}
	for start := 0; start < len(matches); start += batchSize {
		batch := matches[start:min(start+batchSize, len(matches))]

		n, err := deleteBatch(ctx, db, batch)
		if err != nil {
			return stats, err
		}
		stats.Removed += n
	}
	stats.NotFound = int64(stats.Total) - stats.Removed
	return stats, nil
}

func deleteBatch(ctx context.Context, db database.DBTX, batch []string) (int64, error) {
	query, args, err := psql.Delete(database.Table).Where(sq.Eq{database.Column: batch}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}

	tag, err := db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete batch: %w", err)
	}
	return tag.RowsAffected(), nil
}

// removeStaged copies every line of lr into a temporary staging table and
// deletes the matching rows with one join, all in one transaction. The
// staging table is dropped on commit and discarded on rollback.
func removeStaged(ctx context.Context, sess database.Session, lr *LineReader) (RunStats, error) {
	tx, err := sess.Begin(ctx)
	if err != nil {
		return RunStats{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		// No-op after a successful commit.
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	if _, err := tx.Exec(ctx, sqlCreateStage); err != nil {
		return RunStats{}, fmt.Errorf("create staging table: %w", err)
	}

	staged, err := tx.CopyFrom(ctx,
		pgx.Identifier{stageTable},
		[]string{database.Column},
		pgx.CopyFromFunc(func() ([]any, error) {
			if lr.Next() {
				return []any{lr.Text()}, nil
			}
			if err := lr.Err(); err != nil {
				return nil, err
			}
			return nil, nil
		}),
	)
	if err != nil {
		return RunStats{}, fmt.Errorf("stage removals: %w", err)
	}

	tag, err := tx.Exec(ctx, sqlDeleteStagedRows)
	if err != nil {
		return RunStats{}, fmt.Errorf("delete staged rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return RunStats{}, fmt.Errorf("commit: %w", err)
	}

	removed := tag.RowsAffected()
	return RunStats{
		Total:    int(staged),
		Removed:  removed,
		NotFound: max(staged-removed, 0),
	}, nil
}
