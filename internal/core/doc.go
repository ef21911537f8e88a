// Package core provides the business logic for managing a large set of
// domain names stored in PostgreSQL.
//
// The package contains all domain logic independent of any UI or transport
// layer. The CLI and the HTTP API both drive it through [Service].
//
// # Architecture
//
//   - Input: [OpenInput] yields trimmed, non-empty lines from a file or
//     stdin through a BOM-stripping, UTF-8-sanitizing, byte-counting reader.
//   - Validation: [IsValidDomain] decides which lines become candidates.
//   - Ingestion: [SelectStrategy] picks a direct insert for small runs and a
//     bulk load plus rebuild for large ones.
//   - Removal: a single value, a [Filter] over the table, or a staged list
//     deleted with one join.
//   - Queries: print, count and export, with COPY TO when no filter or sort
//     applies.
//
// # Ingestion
//
// Add reads the whole input first, then:
//
//  1. Fewer than ingest.bulk_threshold candidates: INSERT ... ON CONFLICT DO
//     NOTHING in batches of ingest.insert_batch_size. Each batch commits on
//     its own; a failure returns [*PartialInsertError].
//  2. Otherwise: count, drop the primary key and pattern index, tune the
//     session, COPY the candidates, delete duplicates, rebuild, count again.
//     A failure while the indexes are gone returns [*DegradedError], which
//     matches [ErrIndexesDropped]; [Service.Repair] restores the table.
//
// # Sessions
//
// Every [Service] method acquires one session, runs all of its statements
// on it and releases it before returning. Session settings changed by a
// bulk load are reset before release.
//
// # Error Handling
//
// Technical errors are mapped to operator-facing messages using [MapError].
// Each category has a code prefix:
//
//   - DB: connection, authentication and privilege errors
//   - BULK: degraded table state
//   - FILE: input and export files
//   - CFG: configuration
//   - REGEX: filter patterns
package core
