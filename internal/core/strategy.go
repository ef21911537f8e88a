package core

// DefaultBulkThreshold is the candidate count at which add switches to the
// bulk path.
const DefaultBulkThreshold = 100_000

// SelectStrategy picks the ingestion path for n candidates. Below threshold
// rows are inserted directly; at or above it the table is bulk loaded and
// rebuilt. A non-positive threshold falls back to DefaultBulkThreshold.
func SelectStrategy(n, threshold int) Strategy {
	if threshold <= 0 {
		threshold = DefaultBulkThreshold
	}
	if n < threshold {
		return StrategyDirect
	}
	return StrategyBulk
}
