package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/bountycatch/internal/config"
	"github.com/JonMunkholm/bountycatch/internal/database"
)

const (
	sqlDropPrimaryKey     = `ALTER TABLE domains DROP CONSTRAINT IF EXISTS domains_pkey CASCADE`
	sqlDropPatternIndex   = `DROP INDEX IF EXISTS idx_domains_domain`
	sqlDeleteDuplicates   = `DELETE FROM domains a USING domains b WHERE a.ctid < b.ctid AND a.domain = b.domain`
	sqlAddPrimaryKey      = `ALTER TABLE domains ADD CONSTRAINT domains_pkey PRIMARY KEY (domain)`
	sqlCreatePatternIndex = `CREATE INDEX IF NOT EXISTS idx_domains_domain ON domains (domain text_pattern_ops)`
	sqlSetConfig          = `SELECT set_config($1, $2, false)`
)

// DegradedError reports a bulk load that stopped while the table had no
// primary key or pattern index. It matches ErrIndexesDropped with errors.Is.
type DegradedError struct {
	Phase Phase
	Err   error
}

func (e *DegradedError) Error() string {
	return fmt.Sprintf("bulk load failed during %s, %v: %v", e.Phase, ErrIndexesDropped, e.Err)
}

func (e *DegradedError) Unwrap() []error {
	return []error{ErrIndexesDropped, e.Err}
}

func degraded(phase Phase, err error) error {
	return &DegradedError{Phase: phase, Err: err}
}

// bulkLoad appends domains with COPY while the table is unindexed, then
// removes duplicates and rebuilds the constraint and index. It returns the
// number of rows that were new to the table.
//
// Steps run as separate statements on one session. A failure between
// dropping and rebuilding the indexes returns a *DegradedError.
func bulkLoad(ctx context.Context, sess database.Session, domains []string, cfg config.IngestConfig, log *slog.Logger) (int64, error) {
	baseline, err := countAll(ctx, sess)
	if err != nil {
		return 0, err
	}
	log.Debug("baseline counted", "rows", baseline)

	if err := dropIndexes(ctx, sess); err != nil {
		return 0, err
	}

	restore, err := tuneSession(ctx, sess, cfg)
	if err != nil {
		return 0, degraded(PhaseTuning, err)
	}
	defer restore()

	log.Info("loading with COPY", "rows", len(domains), "chunk_size", cfg.CopyChunkSize)
	if err := copyDomains(ctx, sess, domains, cfg.CopyChunkSize, log); err != nil {
		return 0, degraded(PhaseLoading, err)
	}

	log.Info("deduplicating")
	if _, err := sess.Exec(ctx, sqlDeleteDuplicates); err != nil {
		return 0, degraded(PhaseDeduplicating, fmt.Errorf("delete duplicates: %w", err))
	}

	log.Info("rebuilding indexes")
	if err := rebuildIndexes(ctx, sess); err != nil {
		return 0, degraded(PhaseIndexing, err)
	}

	final, err := countAll(ctx, sess)
	if err != nil {
		return 0, err
	}
	return final - baseline, nil
}

// dropIndexes removes the primary key and the pattern index. A failure on
// the second statement leaves the table degraded.
func dropIndexes(ctx context.Context, db database.DBTX) error {
	if _, err := db.Exec(ctx, sqlDropPrimaryKey); err != nil {
		return fmt.Errorf("drop primary key: %w", err)
	}
	if _, err := db.Exec(ctx, sqlDropPatternIndex); err != nil {
		return degraded(PhaseDropIndexes, fmt.Errorf("drop pattern index: %w", err))
	}
	return nil
}

// rebuildIndexes restores the primary key and the pattern index. The table
// must be free of duplicates.
func rebuildIndexes(ctx context.Context, db database.DBTX) error {
	if _, err := db.Exec(ctx, sqlAddPrimaryKey); err != nil {
		return fmt.Errorf("add primary key: %w", err)
	}
	if _, err := db.Exec(ctx, sqlCreatePatternIndex); err != nil {
		return fmt.Errorf("create pattern index: %w", err)
	}
	return nil
}

// copyDomains streams domains with the binary COPY protocol, chunkSize rows
// per COPY. Each chunk completes before the next starts.
func copyDomains(ctx context.Context, db database.DBTX, domains []string, chunkSize int, log *slog.Logger) error {
	var copied int64
	for start := 0; start < len(domains); start += chunkSize {
		chunk := domains[start:min(start+chunkSize, len(domains))]

		n, err := db.CopyFrom(ctx,
			pgx.Identifier{database.Table},
			[]string{database.Column},
			pgx.CopyFromSlice(len(chunk), func(i int) ([]any, error) {
				return []any{chunk[i]}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copy rows %d-%d: %w", start, start+len(chunk), err)
		}

		copied += n
		log.Info("copy progress", "copied", copied, "total", len(domains))
	}
	return nil
}

type sessionSetting struct {
	name  string
	value string
}

// tuneSession applies bulk-load settings to the session and returns a
// function that resets them. Settings applied before a failure are reset
// before returning the error.
func tuneSession(ctx context.Context, db database.DBTX, cfg config.IngestConfig) (func(), error) {
	settings := []sessionSetting{
		{"synchronous_commit", "off"},
		{"work_mem", cfg.WorkMem},
		{"maintenance_work_mem", cfg.MaintenanceWorkMem},
	}

	var applied []string
	restore := func() {
		// The reset must run even when ctx is already cancelled.
		rctx := context.WithoutCancel(ctx)
		for _, name := range applied {
			if _, err := db.Exec(rctx, "RESET "+name); err != nil {
				slog.Warn("reset session setting failed", "setting", name, "error", err)
			}
		}
	}

	for _, s := range settings {
		if _, err := db.Exec(ctx, sqlSetConfig, s.name, s.value); err != nil {
			restore()
			return nil, fmt.Errorf("set %s: %w", s.name, err)
		}
		applied = append(applied, s.name)
	}
	return restore, nil
}
