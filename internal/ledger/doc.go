// Package ledger defines the contract between the rental core and the
// versioned key-value ledger it runs on: keys, the per-transaction Stub,
// query records, history entries and events, plus small JSON helpers over
// a Stub.
//
// internal/store provides the SQLite ledger.
package ledger
