// Package store provides the SQLite-backed versioned key-value ledger.
//
// The store keeps:
//   - state: latest JSON document per key, with a version counter
//   - history: every committed write per key, oldest first
//   - private_data: restricted collections, readable by key only
//   - transactions: committed transaction ids (replays are rejected)
//   - events: at most one event per committed transaction
//
// # Transactions
//
// Store.Begin returns a Tx that implements ledger.Stub. Reads hit
// committed state and remember the version they observed; writes are
// buffered. Tx.Commit re-checks every remembered version inside one SQL
// transaction and either applies all writes or none. A version mismatch
// yields *ConflictError (errors.Is ErrReadConflict); the caller decides
// whether to resubmit.
//
// # Determinism
//
//   - Documents are stored as RFC 8785 canonical JSON
//   - Queries order by key bytes (COLLATE BINARY)
//   - History orders by insertion id, events by seq
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
