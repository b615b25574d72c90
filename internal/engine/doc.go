// Package engine runs rental-ledger operations as ledger transactions.
//
// TRANSACTION MODEL:
//
// Every call to Submit opens a transaction stamped with a fresh tx id and a
// timestamp from the engine's Clock, hands it to the operation, and then
// commits. An operation either commits all of its writes and at most one
// event, or nothing at all.
//
// Commit validates the versions of every key the operation read. If another
// transaction committed one of them first, the commit fails with a
// RuntimeError coded MVCC_READ_CONFLICT and none of the writes land. Range
// queries are not part of the read set; uniqueness is always enforced with
// point reads on deterministic keys.
//
// Events are published after the commit is durable. A publisher failure is
// logged, not returned.
//
// Evaluate is the read-only counterpart: same transaction, always
// discarded.
package engine
