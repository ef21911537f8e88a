package core

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/JonMunkholm/bountycatch/internal/database"
	"github.com/JonMunkholm/bountycatch/internal/logging"
)

const (
	sqlCopyOut    = `COPY domains (domain) TO STDOUT`
	sqlHasDomains = `SELECT EXISTS(SELECT 1 FROM domains LIMIT 1)`
	sqlTruncate   = `TRUNCATE TABLE domains`
)

// exportWriterSize is the buffer size used when writing export files.
const exportWriterSize = 1024 * 1024

// ExportDocument is the JSON export layout.
type ExportDocument struct {
	DomainCount int      `json:"domain_count"`
	ExportedAt  string   `json:"exported_at"`
	Domains     []string `json:"domains"`
}

// scanDomains calls fn for every stored domain, in sorted order when sorted
// is set. Rows are streamed; fn errors stop the scan.
func scanDomains(ctx context.Context, db database.DBTX, sorted bool, fn func(string) error) error {
	builder := psql.Select(database.Column).From(database.Table)
	if sorted {
		builder = builder.OrderBy(database.Column)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build select: %w", err)
	}

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query domains: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return fmt.Errorf("scan domain: %w", err)
		}
		if err := fn(d); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate domains: %w", err)
	}
	return nil
}

// writeLines writes every domain accepted by opts to w, one per line.
// An unfiltered, unsorted query streams the table with COPY TO.
func writeLines(ctx context.Context, sess database.Session, w io.Writer, opts QueryOptions) (int64, error) {
	if opts.fastPath() {
		n, err := sess.CopyTo(ctx, w, sqlCopyOut)
		if err != nil {
			return n, fmt.Errorf("copy out: %w", err)
		}
		return n, nil
	}

	var n int64
	err := scanDomains(ctx, sess, opts.Sort, func(d string) error {
		if !opts.Filter.Match(d) {
			return nil
		}
		n++
		_, err := io.WriteString(w, d+"\n")
		return err
	})
	return n, err
}

// Print writes the selected domains to w, one per line, and returns how
// many were written.
func (s *Service) Print(ctx context.Context, w io.Writer, opts QueryOptions) (int64, error) {
	var n int64
	err := s.withSession(ctx, func(sess database.Session) error {
		var err error
		n, err = writeLines(ctx, sess, w, opts)
		return err
	})
	return n, err
}

// Count returns the number of domains accepted by f.
func (s *Service) Count(ctx context.Context, f Filter) (int64, error) {
	var n int64
	err := s.withSession(ctx, func(sess database.Session) error {
		if f.IsZero() {
			var err error
			n, err = countAll(ctx, sess)
			return err
		}
		return scanDomains(ctx, sess, false, func(d string) error {
			if f.Match(d) {
				n++
			}
			return nil
		})
	})
	return n, err
}

// ValidateFormat returns ErrUnsupportedFormat for anything other than
// text or json.
func ValidateFormat(format string) error {
	switch format {
	case FormatText, FormatJSON:
		return nil
	default:
		return fmt.Errorf("%w: %q (want %s or %s)", ErrUnsupportedFormat, format, FormatText, FormatJSON)
	}
}

// Export writes the selected domains to the file at path in the given
// format. The format is checked before the file is created; a failed
// export removes the partial file.
func (s *Service) Export(ctx context.Context, path, format string, opts QueryOptions) (int64, error) {
	if err := ValidateFormat(format); err != nil {
		return 0, err
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create export file: %w", err)
	}

	n, err := s.ExportTo(ctx, f, format, opts)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close export file: %w", cerr)
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, err
	}

	logging.WithFields(ctx, "command", "export").Info("export complete",
		"path", path,
		"format", format,
		"domains", n,
	)
	return n, nil
}

// ExportTo writes the selected domains to w in the given format through a
// buffered writer.
func (s *Service) ExportTo(ctx context.Context, w io.Writer, format string, opts QueryOptions) (int64, error) {
	if err := ValidateFormat(format); err != nil {
		return 0, err
	}

	bw := bufio.NewWriterSize(w, exportWriterSize)
	var n int64
	err := s.withSession(ctx, func(sess database.Session) error {
		if format == FormatText {
			var err error
			n, err = writeLines(ctx, sess, bw, opts)
			return err
		}

		doc := ExportDocument{Domains: []string{}}
		err := scanDomains(ctx, sess, opts.Sort, func(d string) error {
			if opts.Filter.Match(d) {
				doc.Domains = append(doc.Domains, d)
			}
			return nil
		})
		if err != nil {
			return err
		}
		doc.DomainCount = len(doc.Domains)
		doc.ExportedAt = time.Now().UTC().Format(time.RFC3339)
		n = int64(doc.DomainCount)

		enc := json.NewEncoder(bw)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("flush export: %w", err)
	}
	return n, nil
}

// DeleteAll truncates the domains table. Unless confirmed, the user is
// asked on prompt and must answer y or yes on in; any other answer returns
// ErrCancelled without touching the table. It returns false when the table
// was already empty.
func (s *Service) DeleteAll(ctx context.Context, confirmed bool, in io.Reader, prompt io.Writer) (bool, error) {
	if !confirmed && !confirm(in, prompt, "Are you sure you want to delete ALL domains from the database? (y/N): ") {
		return false, ErrCancelled
	}

	var deleted bool
	err := s.withSession(ctx, func(sess database.Session) error {
		var hasData bool
		if err := sess.QueryRow(ctx, sqlHasDomains).Scan(&hasData); err != nil {
			return fmt.Errorf("check for domains: %w", err)
		}
		if !hasData {
			return nil
		}
		if _, err := sess.Exec(ctx, sqlTruncate); err != nil {
			return fmt.Errorf("truncate domains: %w", err)
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, err
	}

	logging.WithFields(ctx, "command", "delete-all").Info("delete-all complete", "deleted", deleted)
	return deleted, nil
}

// confirm writes question to prompt and reads one answer line from in.
func confirm(in io.Reader, prompt io.Writer, question string) bool {
	if in == nil {
		return false
	}
	if prompt != nil {
		fmt.Fprint(prompt, question)
	}

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// Repair brings a degraded table back to its indexed state: it drops any
// remaining indexes, removes duplicates and rebuilds the primary key and
// pattern index. Safe to run on a healthy table. Returns the number of
// duplicate rows removed.
func (s *Service) Repair(ctx context.Context) (int64, error) {
	log := logging.WithFields(ctx, "command", "repair")
	var removed int64

	err := s.withSession(ctx, func(sess database.Session) error {
		if err := database.EnsureSchema(ctx, sess); err != nil {
			return err
		}
		if err := dropIndexes(ctx, sess); err != nil {
			return err
		}

		restore, err := tuneSession(ctx, sess, s.cfg)
		if err != nil {
			return degraded(PhaseTuning, err)
		}
		defer restore()

		tag, err := sess.Exec(ctx, sqlDeleteDuplicates)
		if err != nil {
			return degraded(PhaseDeduplicating, fmt.Errorf("delete duplicates: %w", err))
		}
		removed = tag.RowsAffected()

		if err := rebuildIndexes(ctx, sess); err != nil {
			return degraded(PhaseIndexing, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Info("repair complete", "duplicates_removed", removed)
	return removed, nil
}
