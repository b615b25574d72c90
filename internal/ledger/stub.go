package ledger

import (
	"context"
	"encoding/json"
	"iter"
	"time"

	"github.com/roach88/rentledger/internal/queryir"
)

// Stub is the view of the ledger available to a single transaction.
//
// Reads observe committed state as of the moment they are issued; writes
// are buffered and become visible only after the transaction commits.
// A transaction never reads its own pending writes.
//
// Every key read through Get is recorded with its version. At commit, any
// key whose version changed since it was read aborts the transaction with
// a read conflict. Query results are not part of that check.
type Stub interface {
	// TxID returns the transaction identifier.
	TxID() string

	// TxTimestamp returns the transaction timestamp proposed by the caller.
	// Operations use it instead of reading the wall clock.
	TxTimestamp() time.Time

	// Get returns the committed value at key, or nil if absent.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Put buffers a write. The last Put to a key within a transaction wins.
	Put(ctx context.Context, key Key, value []byte) error

	// Query evaluates a selector against committed JSON documents, ordered
	// by key.
	Query(ctx context.Context, selector queryir.Predicate) ([]Record, error)

	// HistoryOf lazily yields every committed write to key, oldest first.
	// The sequence must be drained or abandoned (break) before the next
	// call on the same Stub.
	HistoryOf(ctx context.Context, key Key) iter.Seq2[HistoryEntry, error]

	// PutRestricted buffers a write to a named restricted collection.
	PutRestricted(ctx context.Context, collection string, key Key, value []byte) error

	// GetRestricted returns the committed value in a restricted collection,
	// or nil if absent.
	GetRestricted(ctx context.Context, collection string, key Key) ([]byte, error)

	// Emit sets the transaction's event. Only the last call survives, so an
	// operation emits at most one event.
	Emit(name string, payload []byte) error
}

// Record is one query result.
type Record struct {
	Key     Key
	Value   []byte
	Version int64
}

// HistoryEntry is one historical write to a key.
type HistoryEntry struct {
	TxID      string
	Timestamp time.Time
	IsDelete  bool
	Value     []byte
}

// Event is a committed transaction's outcome notification.
type Event struct {
	Seq       int64           `json:"seq"`
	TxID      string          `json:"txId"`
	Name      string          `json:"name"`
	Payload   json.RawMessage `json:"payload"`
	Digest    string          `json:"digest"`
	Timestamp time.Time       `json:"timestamp"`
}
