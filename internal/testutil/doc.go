// Package testutil provides deterministic clocks, transaction ids and a
// throwaway SQLite ledger for tests.
package testutil
