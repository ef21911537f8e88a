package core

import (
	"context"
	"time"

	"github.com/JonMunkholm/bountycatch/internal/database"
	"github.com/JonMunkholm/bountycatch/internal/logging"
)

// Add reads domains from req.Input and inserts the new ones.
//
// The whole input is read before the database is touched. Below the bulk
// threshold rows are inserted in conflict-tolerant batches; at or above it
// the table is bulk loaded, deduplicated and re-indexed.
func (s *Service) Add(ctx context.Context, req AddRequest) (RunStats, error) {
	lr, err := OpenInput(req.Input, s.cfg.ReadBufferSize)
	if err != nil {
		return RunStats{}, err
	}
	defer lr.Close()

	return s.AddFrom(ctx, lr, !req.NoValidate)
}

// AddFrom ingests every line of lr. When validate is false every non-empty
// line is a candidate.
func (s *Service) AddFrom(ctx context.Context, lr *LineReader, validate bool) (RunStats, error) {
	start := time.Now()
	log := logging.WithFields(ctx, "command", "add", "input", lr.Name())

	stats := RunStats{}
	var candidates []string
	for lr.Next() {
		d := lr.Text()
		stats.Total++
		if validate && !IsValidDomain(d) {
			stats.Invalid++
			continue
		}
		candidates = append(candidates, d)
	}
	if err := lr.Err(); err != nil {
		return stats, err
	}

	stats.Strategy = SelectStrategy(len(candidates), s.cfg.BulkThreshold)
	log = log.With("strategy", stats.Strategy)
	log.Info("input read",
		"lines", stats.Total,
		"candidates", len(candidates),
		"invalid", stats.Invalid,
	)

	if len(candidates) == 0 {
		stats.Duration = time.Since(start)
		return stats, nil
	}

	err := s.withSession(ctx, func(sess database.Session) error {
		var err error
		switch stats.Strategy {
		case StrategyBulk:
			stats.Inserted, err = bulkLoad(ctx, sess, candidates, s.cfg, log)
		default:
			stats.Inserted, err = insertDirect(ctx, sess, candidates, s.cfg.InsertBatchSize, log)
		}
		return err
	})
	stats.Duration = time.Since(start)
	if err != nil {
		return stats, err
	}
	stats.Duplicates = len(candidates) - int(stats.Inserted)

	log.Info("add complete",
		"new", stats.Inserted,
		"duplicates", stats.Duplicates,
		"invalid", stats.Invalid,
		"duration_ms", stats.Duration.Milliseconds(),
	)
	return stats, nil
}
