package core

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/JonMunkholm/bountycatch/internal/config"
)

// newTestService returns a Service over db with small batch sizes so that
// short inputs span several batches and chunks.
func newTestService(db *fakeDB, threshold int) *Service {
	return NewService(db, config.IngestConfig{
		BulkThreshold:   threshold,
		InsertBatchSize: 2,
		CopyChunkSize:   2,
		RemoveBatchSize: 2,
	})
}

func addLines(t *testing.T, svc *Service, input string, validate bool) (RunStats, error) {
	t.Helper()
	lr := NewLineReader("test", strings.NewReader(input), 0, 0)
	return svc.AddFrom(context.Background(), lr, validate)
}

func assertReleased(t *testing.T, db *fakeDB) {
	t.Helper()
	if db.acquired != db.released {
		t.Errorf("sessions acquired = %d, released = %d", db.acquired, db.released)
	}
}

func TestAdd_CountsNewAndDuplicates(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
		strategy  Strategy
	}{
		{"direct", 100, StrategyDirect},
		{"bulk", 1, StrategyBulk},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newFakeDB()
			svc := newTestService(db, tt.threshold)

			stats, err := addLines(t, svc, "a.com\na.com\nb.com\n", true)
			if err != nil {
				t.Fatalf("AddFrom() error = %v", err)
			}

			if stats.Strategy != tt.strategy {
				t.Errorf("Strategy = %v, want %v", stats.Strategy, tt.strategy)
			}
			if stats.Total != 3 || stats.Invalid != 0 {
				t.Errorf("Total/Invalid = %d/%d, want 3/0", stats.Total, stats.Invalid)
			}
			if stats.Inserted != 2 {
				t.Errorf("Inserted = %d, want 2", stats.Inserted)
			}
			if stats.Duplicates != 1 {
				t.Errorf("Duplicates = %d, want 1", stats.Duplicates)
			}
			if got, want := db.snapshot(), []string{"a.com", "b.com"}; !reflect.DeepEqual(got, want) {
				t.Errorf("table = %q, want %q", got, want)
			}
			if !db.hasPK || !db.hasIndex {
				t.Errorf("hasPK/hasIndex = %v/%v, want true/true", db.hasPK, db.hasIndex)
			}
			assertReleased(t, db)
		})
	}
}

func TestAdd_ThresholdBoundary(t *testing.T) {
	const threshold = 4
	input := "a.com\nb.com\nc.com\nd.com\n"
	existing := []string{"b.com", "z.com"}

	below := newFakeDB(existing...)
	belowStats, err := addLines(t, newTestService(below, threshold), strings.Join(strings.Split(input, "\n")[:3], "\n"), true)
	if err != nil {
		t.Fatalf("below threshold: AddFrom() error = %v", err)
	}
	if belowStats.Strategy != StrategyDirect {
		t.Errorf("threshold-1 candidates: Strategy = %v, want direct", belowStats.Strategy)
	}

	at := newFakeDB(existing...)
	atStats, err := addLines(t, newTestService(at, threshold), input, true)
	if err != nil {
		t.Fatalf("at threshold: AddFrom() error = %v", err)
	}
	if atStats.Strategy != StrategyBulk {
		t.Errorf("threshold candidates: Strategy = %v, want bulk", atStats.Strategy)
	}

	// Same input through each path leaves the same table.
	direct := newFakeDB(existing...)
	if _, err := addLines(t, newTestService(direct, 100), input, true); err != nil {
		t.Fatalf("direct: AddFrom() error = %v", err)
	}
	if !reflect.DeepEqual(direct.snapshot(), at.snapshot()) {
		t.Errorf("direct table = %q, bulk table = %q", direct.snapshot(), at.snapshot())
	}
	if atStats.Inserted != 3 || atStats.Duplicates != 1 {
		t.Errorf("bulk Inserted/Duplicates = %d/%d, want 3/1", atStats.Inserted, atStats.Duplicates)
	}
}

func TestAdd_BulkOnPopulatedTable(t *testing.T) {
	db := newFakeDB("a.com", "c.com")
	svc := newTestService(db, 1)

	stats, err := addLines(t, svc, "a.com\nb.com\nc.com\nd.com\nd.com\n", true)
	if err != nil {
		t.Fatalf("AddFrom() error = %v", err)
	}

	if stats.Inserted != 2 {
		t.Errorf("Inserted = %d, want 2", stats.Inserted)
	}
	if stats.Duplicates != 3 {
		t.Errorf("Duplicates = %d, want 3", stats.Duplicates)
	}
	if got, want := db.snapshot(), []string{"a.com", "b.com", "c.com", "d.com"}; !reflect.DeepEqual(got, want) {
		t.Errorf("table = %q, want %q", got, want)
	}
	for _, stmt := range []string{sqlDropPrimaryKey, sqlDeleteDuplicates, sqlAddPrimaryKey, sqlCreatePatternIndex} {
		if !db.ran(stmt) {
			t.Errorf("bulk load did not run %q", stmt)
		}
	}
	if len(db.settings) != 0 {
		t.Errorf("session settings not reset: %v", db.settings)
	}
}

func TestAdd_Idempotent(t *testing.T) {
	for _, threshold := range []int{1, 100} {
		db := newFakeDB()
		svc := newTestService(db, threshold)
		input := "a.com\nb.com\nc.com\n"

		if _, err := addLines(t, svc, input, true); err != nil {
			t.Fatalf("first AddFrom() error = %v", err)
		}
		first := db.snapshot()

		stats, err := addLines(t, svc, input, true)
		if err != nil {
			t.Fatalf("second AddFrom() error = %v", err)
		}
		if stats.Inserted != 0 || stats.Duplicates != 3 {
			t.Errorf("threshold %d: second run Inserted/Duplicates = %d/%d, want 0/3",
				threshold, stats.Inserted, stats.Duplicates)
		}
		if !reflect.DeepEqual(db.snapshot(), first) {
			t.Errorf("threshold %d: table changed on re-add: %q", threshold, db.snapshot())
		}
	}
}

func TestAdd_Validation(t *testing.T) {
	input := "a.com\nexample.*\n-x.example.com\n*.b.com\n"

	db := newFakeDB()
	stats, err := addLines(t, newTestService(db, 100), input, true)
	if err != nil {
		t.Fatalf("AddFrom() error = %v", err)
	}
	if stats.Invalid != 2 || stats.Inserted != 2 {
		t.Errorf("Invalid/Inserted = %d/%d, want 2/2", stats.Invalid, stats.Inserted)
	}
	if got, want := db.snapshot(), []string{"*.b.com", "a.com"}; !reflect.DeepEqual(got, want) {
		t.Errorf("table = %q, want %q", got, want)
	}

	raw := newFakeDB()
	stats, err = addLines(t, newTestService(raw, 100), input, false)
	if err != nil {
		t.Fatalf("AddFrom(no validate) error = %v", err)
	}
	if stats.Invalid != 0 || stats.Inserted != 4 {
		t.Errorf("no validate: Invalid/Inserted = %d/%d, want 0/4", stats.Invalid, stats.Inserted)
	}
}

func TestAdd_InvalidUTF8StopsRun(t *testing.T) {
	for _, validate := range []bool{true, false} {
		db := newFakeDB()
		_, err := addLines(t, newTestService(db, 100), "a.com\ncaf\xe9.com\n", validate)
		if !errors.Is(err, ErrInvalidUTF8) {
			t.Fatalf("validate=%v: AddFrom() error = %v, want ErrInvalidUTF8", validate, err)
		}
		if len(db.snapshot()) != 0 {
			t.Errorf("validate=%v: table = %q, want empty", validate, db.snapshot())
		}
		if db.acquired != 0 {
			t.Errorf("validate=%v: acquired %d sessions, want 0", validate, db.acquired)
		}
	}
}

func TestAdd_DirectOnDegradedTableSuggestsRepair(t *testing.T) {
	db := newFakeDB("a.com")
	db.hasPK = false

	_, err := addLines(t, newTestService(db, 100), "b.com\n", true)
	if err == nil {
		t.Fatal("AddFrom() expected error without a primary key")
	}
	if code := MapError(err).Code; code != "BULK001" {
		t.Errorf("MapError(%v).Code = %s, want BULK001", err, code)
	}
}

func TestAdd_EmptyInputSkipsDatabase(t *testing.T) {
	db := newFakeDB()
	stats, err := addLines(t, newTestService(db, 100), "\n\n  \n", true)
	if err != nil {
		t.Fatalf("AddFrom() error = %v", err)
	}
	if stats.Total != 0 || stats.Inserted != 0 {
		t.Errorf("Total/Inserted = %d/%d, want 0/0", stats.Total, stats.Inserted)
	}
	if db.acquired != 0 {
		t.Errorf("acquired %d sessions, want 0", db.acquired)
	}
}

func TestAdd_DirectPartialFailure(t *testing.T) {
	boom := errors.New("connection reset by peer")
	db := newFakeDB().failOnAfter("INSERT INTO domains", 1, boom)
	svc := newTestService(db, 100)

	_, err := addLines(t, svc, "a.com\nb.com\nc.com\nd.com\ne.com\n", true)
	if err == nil {
		t.Fatal("AddFrom() expected error")
	}

	var partial *PartialInsertError
	if !errors.As(err, &partial) {
		t.Fatalf("error = %T %v, want *PartialInsertError", err, err)
	}
	if partial.Batches != 1 || partial.Rows != 2 {
		t.Errorf("Batches/Rows = %d/%d, want 1/2", partial.Batches, partial.Rows)
	}
	if !errors.Is(err, boom) {
		t.Error("PartialInsertError does not unwrap to the cause")
	}
	if got, want := db.snapshot(), []string{"a.com", "b.com"}; !reflect.DeepEqual(got, want) {
		t.Errorf("committed rows = %q, want %q", got, want)
	}
	assertReleased(t, db)
}

func TestAdd_BulkFailureLeavesDegradedState(t *testing.T) {
	tests := []struct {
		name  string
		match string
		skip  int
		phase Phase
	}{
		{"drop index", sqlDropPatternIndex, 0, PhaseDropIndexes},
		{"tuning", sqlSetConfig, 1, PhaseTuning},
		{"copy second chunk", `COPY "domains"`, 1, PhaseLoading},
		{"dedupe", sqlDeleteDuplicates, 0, PhaseDeduplicating},
		{"rebuild", sqlAddPrimaryKey, 0, PhaseIndexing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newFakeDB("a.com").failOnAfter(tt.match, tt.skip, errors.New("connection reset"))
			svc := newTestService(db, 1)

			_, err := addLines(t, svc, "a.com\nb.com\nc.com\n", true)
			if !errors.Is(err, ErrIndexesDropped) {
				t.Fatalf("error = %v, want ErrIndexesDropped", err)
			}

			var degradedErr *DegradedError
			if !errors.As(err, &degradedErr) {
				t.Fatalf("error = %T, want *DegradedError", err)
			}
			if degradedErr.Phase != tt.phase {
				t.Errorf("Phase = %v, want %v", degradedErr.Phase, tt.phase)
			}
			if len(db.settings) != 0 {
				t.Errorf("session settings not reset: %v", db.settings)
			}
			if MapError(err).Code != "BULK001" {
				t.Errorf("MapError code = %q, want BULK001", MapError(err).Code)
			}
			assertReleased(t, db)

			// Repair restores a deduplicated, indexed table.
			if _, err := svc.Repair(context.Background()); err != nil {
				t.Fatalf("Repair() error = %v", err)
			}
			if !db.hasPK || !db.hasIndex {
				t.Errorf("after repair hasPK/hasIndex = %v/%v, want true/true", db.hasPK, db.hasIndex)
			}
			seen := map[string]bool{}
			for _, r := range db.snapshot() {
				if seen[r] {
					t.Errorf("duplicate %q after repair", r)
				}
				seen[r] = true
			}
		})
	}
}

func TestAdd_BulkBaselineFailureIsNotDegraded(t *testing.T) {
	db := newFakeDB("a.com").failOn("SELECT COUNT(*)", errors.New("connection refused"))
	svc := newTestService(db, 1)

	_, err := addLines(t, svc, "b.com\n", true)
	if err == nil {
		t.Fatal("AddFrom() expected error")
	}
	if errors.Is(err, ErrIndexesDropped) {
		t.Errorf("error = %v, should not report dropped indexes", err)
	}
	if !db.hasPK {
		t.Error("primary key dropped despite failing before the drop step")
	}
}

func TestAdd_FromFile(t *testing.T) {
	db := newFakeDB()
	svc := newTestService(db, 100)

	_, err := svc.Add(context.Background(), AddRequest{Input: "/does/not/exist.txt"})
	if err == nil {
		t.Fatal("Add() expected error for missing file")
	}
	if MapError(err).Code != "FILE001" {
		t.Errorf("MapError code = %q, want FILE001", MapError(err).Code)
	}
	if db.acquired != 0 {
		t.Errorf("acquired %d sessions, want 0", db.acquired)
	}
}
