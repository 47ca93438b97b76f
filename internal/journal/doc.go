// Package journal keeps an append-only SQLite log of successful registry
// document mutations.
//
// Each row records which operation touched which document, entry and
// field, and a domain-separated hash of the document that was written.
// Values are never stored: the project registry holds key material.
//
// # Ordering
//
// Rows are ordered by seq, a logical clock assigned inside the inserting
// transaction as MAX(seq)+1. Every query orders by seq ASC, id ASC so
// listings are stable. RecordedAt is informational only.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - 5-second busy timeout for lock contention
//   - schema versioned with PRAGMA user_version
package journal
