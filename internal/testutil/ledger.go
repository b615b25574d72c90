package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/rentledger/internal/ledger"
	"github.com/roach88/rentledger/internal/store"
)

// Epoch is the default transaction time in ledger tests.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// OpenStore opens a fresh SQLite ledger in t.TempDir and closes it when
// the test ends.
func OpenStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// Ledger runs operations as committed transactions against a store, with
// deterministic tx ids and a settable clock.
type Ledger struct {
	Store *store.Store
	Clock *FixedClock
	IDs   *SequentialTxIDs
}

// NewLedger opens a store and starts the clock at Epoch.
func NewLedger(t *testing.T) *Ledger {
	t.Helper()
	return &Ledger{
		Store: OpenStore(t),
		Clock: NewFixedClock(Epoch),
		IDs:   NewSequentialTxIDs(""),
	}
}

// Submit runs fn in a new transaction and commits it when fn succeeds.
// The error is fn's, or the commit's.
func (l *Ledger) Submit(fn func(ctx context.Context, stub ledger.Stub) error) error {
	ctx := context.Background()
	tx := l.Store.Begin(l.IDs.Generate(), l.Clock.Now())
	if err := fn(ctx, tx); err != nil {
		tx.Discard()
		return err
	}
	_, err := tx.Commit(ctx)
	return err
}

// Evaluate runs fn in a transaction that is always discarded.
func (l *Ledger) Evaluate(fn func(ctx context.Context, stub ledger.Stub) error) error {
	tx := l.Store.Begin(l.IDs.Generate(), l.Clock.Now())
	defer tx.Discard()
	return fn(context.Background(), tx)
}

// Events returns every committed event.
func (l *Ledger) Events(t *testing.T) []ledger.Event {
	t.Helper()
	events, err := l.Store.Events(context.Background(), 0)
	require.NoError(t, err)
	return events
}

// Call runs fn through Submit and returns its result.
func Call[T any](l *Ledger, fn func(ctx context.Context, stub ledger.Stub) (T, error)) (T, error) {
	var out T
	err := l.Submit(func(ctx context.Context, stub ledger.Stub) error {
		var err error
		out, err = fn(ctx, stub)
		return err
	})
	return out, err
}

// Read runs fn through Evaluate and returns its result.
func Read[T any](l *Ledger, fn func(ctx context.Context, stub ledger.Stub) (T, error)) (T, error) {
	var out T
	err := l.Evaluate(func(ctx context.Context, stub ledger.Stub) error {
		var err error
		out, err = fn(ctx, stub)
		return err
	})
	return out, err
}
