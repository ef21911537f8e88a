package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/bountycatch/internal/database"
)

// fakeDB is an in-memory stand-in for the domains table. It understands
// exactly the statements this package issues and tracks the constraint
// state so tests can observe degraded tables.
type fakeDB struct {
	mu sync.Mutex

	tableExists bool
	rows        []string // insertion order stands in for ctid order
	hasPK       bool
	hasIndex    bool
	settings    map[string]string

	stage       []string
	stageExists bool

	statements []string
	failures   []*failRule

	acquired int
	released int
	copyOuts int
}

// failRule fails the statement containing match after skipping skip matches.
type failRule struct {
	match string
	skip  int
	err   error
}

func newFakeDB(rows ...string) *fakeDB {
	return &fakeDB{
		tableExists: true,
		rows:        slices.Clone(rows),
		hasPK:       true,
		hasIndex:    true,
		settings:    map[string]string{},
	}
}

// failOn makes the first statement containing match fail with err.
func (db *fakeDB) failOn(match string, err error) *fakeDB {
	return db.failOnAfter(match, 0, err)
}

// failOnAfter lets skip matching statements succeed before failing.
func (db *fakeDB) failOnAfter(match string, skip int, err error) *fakeDB {
	db.failures = append(db.failures, &failRule{match: match, skip: skip, err: err})
	return db
}

func (db *fakeDB) Acquire(ctx context.Context) (database.Session, error) {
	if err := db.check("ACQUIRE"); err != nil {
		return nil, err
	}
	db.mu.Lock()
	db.acquired++
	db.mu.Unlock()
	return &fakeSession{db: db}, nil
}

// snapshot returns a sorted copy of the stored rows.
func (db *fakeDB) snapshot() []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := slices.Clone(db.rows)
	slices.Sort(out)
	return out
}

func (db *fakeDB) ran(stmt string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, s := range db.statements {
		if strings.Contains(s, stmt) {
			return true
		}
	}
	return false
}

func (db *fakeDB) check(sql string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.statements = append(db.statements, sql)
	for _, f := range db.failures {
		if f.err == nil || !strings.Contains(sql, f.match) {
			continue
		}
		if f.skip > 0 {
			f.skip--
			continue
		}
		err := f.err
		f.err = nil
		return err
	}
	return nil
}

func (db *fakeDB) contains(d string) bool {
	return slices.Contains(db.rows, d)
}

func (db *fakeDB) deleteWhere(keep func(string) bool) int64 {
	var kept []string
	for _, r := range db.rows {
		if keep(r) {
			kept = append(kept, r)
		}
	}
	removed := int64(len(db.rows) - len(kept))
	db.rows = kept
	return removed
}

func tag(s string, n int64) pgconn.CommandTag {
	return pgconn.NewCommandTag(fmt.Sprintf("%s %d", s, n))
}

func (db *fakeDB) exec(sql string, args []any) (pgconn.CommandTag, error) {
	if err := db.check(sql); err != nil {
		return pgconn.CommandTag{}, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	switch {
	case strings.HasPrefix(sql, "CREATE TABLE IF NOT EXISTS domains"):
		if !db.tableExists {
			db.tableExists, db.hasPK = true, true
		}
		return tag("CREATE TABLE", 0), nil

	case strings.HasPrefix(sql, "INSERT INTO domains"):
		if !db.hasPK {
			return pgconn.CommandTag{}, errors.New("ERROR: there is no unique or exclusion constraint matching the ON CONFLICT specification (SQLSTATE 42P10)")
		}
		var n int64
		for _, a := range args {
			d := a.(string)
			if !db.contains(d) {
				db.rows = append(db.rows, d)
				n++
			}
		}
		return tag("INSERT 0", n), nil

	case strings.HasPrefix(sql, "DELETE FROM domains WHERE domain = $1"):
		target := args[0].(string)
		return tag("DELETE", db.deleteWhere(func(r string) bool { return r != target })), nil

	case strings.HasPrefix(sql, "DELETE FROM domains WHERE domain IN ("):
		set := map[string]bool{}
		for _, a := range args {
			set[a.(string)] = true
		}
		return tag("DELETE", db.deleteWhere(func(r string) bool { return !set[r] })), nil

	case sql == sqlDeleteDuplicates:
		seen := map[string]bool{}
		n := db.deleteWhere(func(r string) bool {
			if seen[r] {
				return false
			}
			seen[r] = true
			return true
		})
		return tag("DELETE", n), nil

	case sql == sqlDeleteStagedRows:
		if !db.stageExists {
			return pgconn.CommandTag{}, errors.New(`ERROR: relation "remove_stage" does not exist (SQLSTATE 42P01)`)
		}
		set := map[string]bool{}
		for _, s := range db.stage {
			set[s] = true
		}
		return tag("DELETE", db.deleteWhere(func(r string) bool { return !set[r] })), nil

	case sql == sqlDropPrimaryKey:
		db.hasPK = false
		return tag("ALTER TABLE", 0), nil

	case sql == sqlDropPatternIndex:
		db.hasIndex = false
		return tag("DROP INDEX", 0), nil

	case sql == sqlAddPrimaryKey:
		if db.hasPK {
			return pgconn.CommandTag{}, errors.New(`ERROR: multiple primary keys for table "domains" are not allowed (SQLSTATE 42P16)`)
		}
		seen := map[string]bool{}
		for _, r := range db.rows {
			if seen[r] {
				return pgconn.CommandTag{}, errors.New(`ERROR: could not create unique index "domains_pkey" (SQLSTATE 23505)`)
			}
			seen[r] = true
		}
		db.hasPK = true
		return tag("ALTER TABLE", 0), nil

	case sql == sqlCreatePatternIndex || strings.HasPrefix(sql, "CREATE INDEX IF NOT EXISTS idx_domains_domain"):
		db.hasIndex = true
		return tag("CREATE INDEX", 0), nil

	case sql == sqlSetConfig:
		db.settings[args[0].(string)] = args[1].(string)
		return tag("SELECT", 1), nil

	case strings.HasPrefix(sql, "RESET "):
		delete(db.settings, strings.TrimPrefix(sql, "RESET "))
		return tag("RESET", 0), nil

	case sql == sqlCreateStage:
		if db.stageExists {
			return pgconn.CommandTag{}, errors.New(`ERROR: relation "remove_stage" already exists (SQLSTATE 42P07)`)
		}
		db.stage, db.stageExists = nil, true
		return tag("CREATE TABLE", 0), nil

	case sql == sqlTruncate:
		db.rows = nil
		return tag("TRUNCATE TABLE", 0), nil
	}

	return pgconn.CommandTag{}, fmt.Errorf("fakeDB: unexpected exec %q", sql)
}

func (db *fakeDB) queryRow(sql string) pgx.Row {
	if err := db.check(sql); err != nil {
		return fakeRow{err: err}
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	switch sql {
	case "SELECT COUNT(*) FROM domains":
		return fakeRow{val: int64(len(db.rows))}
	case sqlHasDomains:
		return fakeRow{val: len(db.rows) > 0}
	case `SELECT to_regclass('domains') IS NOT NULL`:
		return fakeRow{val: db.tableExists}
	case "SELECT 1":
		return fakeRow{val: 1}
	}
	return fakeRow{err: fmt.Errorf("fakeDB: unexpected query row %q", sql)}
}

func (db *fakeDB) query(sql string) (pgx.Rows, error) {
	if err := db.check(sql); err != nil {
		return nil, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	switch sql {
	case "SELECT domain FROM domains":
		return &fakeRows{vals: slices.Clone(db.rows)}, nil
	case "SELECT domain FROM domains ORDER BY domain":
		vals := slices.Clone(db.rows)
		slices.Sort(vals)
		return &fakeRows{vals: vals}, nil
	}
	return nil, fmt.Errorf("fakeDB: unexpected query %q", sql)
}

func (db *fakeDB) copyFrom(table pgx.Identifier, src pgx.CopyFromSource) (int64, error) {
	name := table.Sanitize()
	if err := db.check("COPY " + name); err != nil {
		return 0, err
	}

	var vals []string
	for src.Next() {
		row, err := src.Values()
		if err != nil {
			return 0, err
		}
		vals = append(vals, row[0].(string))
	}
	if err := src.Err(); err != nil {
		return 0, err
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	switch name {
	case `"domains"`:
		if db.hasPK {
			for _, v := range vals {
				if db.contains(v) {
					return 0, errors.New(`ERROR: duplicate key value violates unique constraint "domains_pkey" (SQLSTATE 23505)`)
				}
			}
		}
		db.rows = append(db.rows, vals...)
	case `"remove_stage"`:
		if !db.stageExists {
			return 0, errors.New(`ERROR: relation "remove_stage" does not exist (SQLSTATE 42P01)`)
		}
		db.stage = append(db.stage, vals...)
	default:
		return 0, fmt.Errorf("fakeDB: unexpected copy into %s", name)
	}
	return int64(len(vals)), nil
}

// fakeSession implements database.Session on top of fakeDB.
type fakeSession struct {
	db *fakeDB
}

func (s *fakeSession) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return s.db.exec(sql, args)
}

func (s *fakeSession) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	return s.db.query(sql)
}

func (s *fakeSession) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	return s.db.queryRow(sql)
}

func (s *fakeSession) CopyFrom(_ context.Context, table pgx.Identifier, _ []string, src pgx.CopyFromSource) (int64, error) {
	return s.db.copyFrom(table, src)
}

func (s *fakeSession) CopyTo(_ context.Context, w io.Writer, sql string) (int64, error) {
	if err := s.db.check(sql); err != nil {
		return 0, err
	}
	s.db.mu.Lock()
	rows := slices.Clone(s.db.rows)
	s.db.copyOuts++
	s.db.mu.Unlock()

	for _, r := range rows {
		if _, err := io.WriteString(w, r+"\n"); err != nil {
			return 0, err
		}
	}
	return int64(len(rows)), nil
}

func (s *fakeSession) Begin(context.Context) (database.Tx, error) {
	if err := s.db.check("BEGIN"); err != nil {
		return nil, err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return &fakeTx{fakeSession: s, saved: slices.Clone(s.db.rows)}, nil
}

func (s *fakeSession) Release() {
	s.db.mu.Lock()
	s.db.released++
	s.db.mu.Unlock()
}

// fakeTx restores the row set on rollback and drops the staging table on
// either outcome.
type fakeTx struct {
	*fakeSession
	saved []string
	done  bool
}

func (tx *fakeTx) Commit(context.Context) error {
	if tx.done {
		return pgx.ErrTxClosed
	}
	if err := tx.db.check("COMMIT"); err != nil {
		tx.Rollback(context.Background())
		return err
	}
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	tx.done = true
	tx.db.stage, tx.db.stageExists = nil, false
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error {
	if tx.done {
		return pgx.ErrTxClosed
	}
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	tx.done = true
	tx.db.rows = tx.saved
	tx.db.stage, tx.db.stageExists = nil, false
	return nil
}

type fakeRow struct {
	val any
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest[0], r.val)
}

func assign(dest, val any) error {
	switch d := dest.(type) {
	case *int64:
		*d = val.(int64)
	case *int:
		*d = val.(int)
	case *bool:
		*d = val.(bool)
	case *string:
		*d = val.(string)
	default:
		return fmt.Errorf("fakeDB: cannot scan into %T", dest)
	}
	return nil
}

type fakeRows struct {
	vals []string
	pos  int
	cur  string
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return tag("SELECT", int64(len(r.vals))) }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return [][]byte{[]byte(r.cur)} }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.vals) {
		return false
	}
	r.cur = r.vals[r.pos]
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	return assign(dest[0], r.cur)
}

func (r *fakeRows) Values() ([]any, error) {
	return []any{r.cur}, nil
}
