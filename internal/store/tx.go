package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/roach88/rentledger/internal/ir"
	"github.com/roach88/rentledger/internal/ledger"
	"github.com/roach88/rentledger/internal/queryir"
)

// ErrTxClosed is returned by any call on a committed or discarded Tx.
var ErrTxClosed = errors.New("transaction already closed")

type privateKey struct {
	collection string
	key        ledger.Key
}

type pendingEvent struct {
	name    string
	payload []byte
}

// Tx is one ledger transaction. It implements ledger.Stub.
//
// Reads go straight to committed state and record the version they saw.
// Writes are buffered until Commit. A Tx is not safe for concurrent use;
// each operation owns its own Tx.
type Tx struct {
	store *Store
	id    string
	ts    time.Time

	reads map[ledger.Key]int64

	writes     map[ledger.Key][]byte
	writeOrder []ledger.Key

	private      map[privateKey][]byte
	privateOrder []privateKey

	event  *pendingEvent
	closed bool
}

var _ ledger.Stub = (*Tx)(nil)

// Begin starts a transaction with the caller-assigned id and timestamp.
func (s *Store) Begin(txID string, ts time.Time) *Tx {
	return &Tx{
		store:   s,
		id:      txID,
		ts:      ts.UTC(),
		reads:   make(map[ledger.Key]int64),
		writes:  make(map[ledger.Key][]byte),
		private: make(map[privateKey][]byte),
	}
}

func (t *Tx) TxID() string           { return t.id }
func (t *Tx) TxTimestamp() time.Time { return t.ts }

// Get returns the committed value at key and records its version in the
// read set. The first observed version is the one validated at commit.
func (t *Tx) Get(ctx context.Context, key ledger.Key) ([]byte, error) {
	if t.closed {
		return nil, ErrTxClosed
	}
	value, version, err := t.store.get(ctx, key)
	if err != nil {
		return nil, err
	}
	if _, seen := t.reads[key]; !seen {
		t.reads[key] = version
	}
	return value, nil
}

// Put buffers a JSON document write. The document is stored canonically.
func (t *Tx) Put(ctx context.Context, key ledger.Key, value []byte) error {
	if t.closed {
		return ErrTxClosed
	}
	if key == "" {
		return fmt.Errorf("put: empty key")
	}
	doc, err := ir.Parse(value)
	if err != nil {
		return fmt.Errorf("put %s: value must be a JSON document: %w", key, err)
	}
	canonical, err := ir.Canonical(doc)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	if _, exists := t.writes[key]; !exists {
		t.writeOrder = append(t.writeOrder, key)
	}
	t.writes[key] = canonical
	return nil
}

// Query evaluates a selector against committed state.
func (t *Tx) Query(ctx context.Context, selector queryir.Predicate) ([]ledger.Record, error) {
	if t.closed {
		return nil, ErrTxClosed
	}
	return t.store.Query(ctx, selector)
}

// HistoryOf yields committed writes to key, oldest first.
func (t *Tx) HistoryOf(ctx context.Context, key ledger.Key) iter.Seq2[ledger.HistoryEntry, error] {
	if t.closed {
		return func(yield func(ledger.HistoryEntry, error) bool) {
			yield(ledger.HistoryEntry{}, ErrTxClosed)
		}
	}
	return t.store.History(ctx, key)
}

// PutRestricted buffers a write to a restricted collection. The value is
// stored as given.
func (t *Tx) PutRestricted(ctx context.Context, collection string, key ledger.Key, value []byte) error {
	if t.closed {
		return ErrTxClosed
	}
	if collection == "" {
		return fmt.Errorf("put restricted: empty collection")
	}
	pk := privateKey{collection: collection, key: key}
	if _, exists := t.private[pk]; !exists {
		t.privateOrder = append(t.privateOrder, pk)
	}
	t.private[pk] = append([]byte(nil), value...)
	return nil
}

// GetRestricted reads a committed restricted value.
func (t *Tx) GetRestricted(ctx context.Context, collection string, key ledger.Key) ([]byte, error) {
	if t.closed {
		return nil, ErrTxClosed
	}
	var value []byte
	err := t.store.db.QueryRowContext(ctx,
		`SELECT value FROM private_data WHERE collection = ? AND key = ?`,
		collection, []byte(key),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get restricted %s/%s: %w", collection, key, err)
	}
	return value, nil
}

// Emit records the transaction's event, replacing any earlier one.
func (t *Tx) Emit(name string, payload []byte) error {
	if t.closed {
		return ErrTxClosed
	}
	if name == "" {
		return fmt.Errorf("emit: empty event name")
	}
	if !json.Valid(payload) {
		return fmt.Errorf("emit %s: payload must be JSON", name)
	}
	t.event = &pendingEvent{name: name, payload: append([]byte(nil), payload...)}
	return nil
}

// Discard abandons the transaction without writing anything.
func (t *Tx) Discard() {
	t.closed = true
}
