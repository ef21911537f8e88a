package core

import (
	"errors"
	"time"
)

// Strategy names the ingestion path chosen for a run.
type Strategy string

const (
	StrategyDirect Strategy = "direct"
	StrategyBulk   Strategy = "bulk"
)

// Phase names a step of a run. Bulk loads report the phase they failed in.
type Phase string

const (
	PhaseDropIndexes   Phase = "drop_indexes"
	PhaseTuning        Phase = "tuning"
	PhaseLoading       Phase = "loading"
	PhaseDeduplicating Phase = "deduplicating"
	PhaseIndexing      Phase = "indexing"
)

// Export formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Sentinel errors. Callers match them with errors.Is.
var (
	// ErrInvalidPattern is wrapped by NewFilter when the regex does not compile.
	ErrInvalidPattern = errors.New("invalid regex pattern")

	// ErrIndexesDropped marks a bulk load that failed after the primary key
	// and pattern index were dropped. The table may hold duplicates until
	// Repair runs.
	ErrIndexesDropped = errors.New("indexes dropped: table left without primary key")

	// ErrInvalidUTF8 is returned by LineReader for a line that is not valid
	// UTF-8. Such lines are never rewritten, so a run stops instead of
	// storing or removing a different value.
	ErrInvalidUTF8 = errors.New("invalid UTF-8 in input")

	// ErrCancelled is returned when a destructive operation is not confirmed.
	ErrCancelled = errors.New("operation cancelled")

	// ErrUnsupportedFormat is returned for export formats other than text and json.
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// RunStats summarizes one add or remove run.
type RunStats struct {
	Total      int           // Non-empty input lines
	Invalid    int           // Lines rejected by IsValidDomain
	Duplicates int           // Valid lines that were already present (add)
	Inserted   int64         // New rows (add)
	Removed    int64         // Deleted rows (remove)
	NotFound   int64         // Requested values that were absent (remove)
	Strategy   Strategy      // Path taken by add; empty for remove
	Duration   time.Duration // Wall time of the run
}

// Valid returns the number of candidates that passed validation.
func (s RunStats) Valid() int {
	return s.Total - s.Invalid
}

// QueryOptions controls print and export.
type QueryOptions struct {
	Filter Filter
	Sort   bool
}

// fastPath reports whether the query can stream the table with COPY TO.
func (o QueryOptions) fastPath() bool {
	return o.Filter.IsZero() && !o.Sort
}

// RemoveRequest selects one of the removal modes. Precedence is
// Domain, then Filter, then Input.
type RemoveRequest struct {
	Domain string
	Filter Filter
	Input  string // File path; empty or "-" reads stdin
}

// AddRequest describes one ingestion run.
type AddRequest struct {
	Input      string // File path; empty or "-" reads stdin
	NoValidate bool
}
