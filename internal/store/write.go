package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/roach88/rentledger/internal/ir"
	"github.com/roach88/rentledger/internal/ledger"
)

// ErrReadConflict marks a commit rejected by multi-version validation.
var ErrReadConflict = errors.New("mvcc read conflict")

// ErrDuplicateTxID is returned when a transaction id was already committed.
var ErrDuplicateTxID = errors.New("duplicate transaction id")

// ConflictError reports the first key whose version moved between read and
// commit. It unwraps to ErrReadConflict.
type ConflictError struct {
	Key         ledger.Key
	ReadVersion int64
	Version     int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("mvcc read conflict on %s: read version %d, committed version %d",
		e.Key, e.ReadVersion, e.Version)
}

func (e *ConflictError) Unwrap() error { return ErrReadConflict }

// IsReadConflict reports whether err is (or wraps) a read conflict.
func IsReadConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// Receipt summarizes a committed transaction.
type Receipt struct {
	TxID      string
	Timestamp time.Time
	Writes    int
	Event     *ledger.Event
}

// Commit validates the read set and applies buffered writes atomically.
//
// Validation happens inside the same SQL transaction as the writes, and
// the store has a single connection, so no other commit can slip between
// the check and the apply. On any error nothing is written. A Tx can be
// committed at most once; afterwards it is closed whatever the outcome.
func (t *Tx) Commit(ctx context.Context) (*Receipt, error) {
	if t.closed {
		return nil, ErrTxClosed
	}
	t.closed = true

	sqlTx, err := t.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("commit %s: begin: %w", t.id, err)
	}
	defer sqlTx.Rollback()

	if err := t.validateReads(ctx, sqlTx); err != nil {
		return nil, err
	}

	ts := formatTime(t.ts)
	res, err := sqlTx.ExecContext(ctx, `
		INSERT INTO transactions (tx_id, timestamp, write_count, committed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tx_id) DO NOTHING
	`, t.id, ts, len(t.writeOrder)+len(t.privateOrder), formatTime(time.Now()))
	if err != nil {
		return nil, fmt.Errorf("commit %s: record transaction: %w", t.id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("commit %s: %w", t.id, ErrDuplicateTxID)
	}

	for _, key := range t.writeOrder {
		if err := t.applyWrite(ctx, sqlTx, key, t.writes[key], ts); err != nil {
			return nil, err
		}
	}

	for _, pk := range t.privateOrder {
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO private_data (collection, key, value, tx_id)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(collection, key) DO UPDATE SET value = excluded.value, tx_id = excluded.tx_id
		`, pk.collection, []byte(pk.key), t.private[pk], t.id)
		if err != nil {
			return nil, fmt.Errorf("commit %s: write %s/%s: %w", t.id, pk.collection, pk.key, err)
		}
	}

	receipt := &Receipt{TxID: t.id, Timestamp: t.ts, Writes: len(t.writeOrder) + len(t.privateOrder)}

	if t.event != nil {
		digest := ir.EventDigest(t.id, t.event.name, t.event.payload)
		res, err := sqlTx.ExecContext(ctx, `
			INSERT INTO events (tx_id, name, payload, digest, timestamp)
			VALUES (?, ?, ?, ?, ?)
		`, t.id, t.event.name, string(t.event.payload), digest, ts)
		if err != nil {
			return nil, fmt.Errorf("commit %s: write event: %w", t.id, err)
		}
		seq, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("commit %s: event seq: %w", t.id, err)
		}
		receipt.Event = &ledger.Event{
			Seq:       seq,
			TxID:      t.id,
			Name:      t.event.name,
			Payload:   t.event.payload,
			Digest:    digest,
			Timestamp: t.ts,
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit %s: %w", t.id, err)
	}
	return receipt, nil
}

// validateReads compares every recorded read version with the committed
// one. Keys are checked in byte order so the reported conflict is stable.
func (t *Tx) validateReads(ctx context.Context, sqlTx *sql.Tx) error {
	keys := make([]ledger.Key, 0, len(t.reads))
	for k := range t.reads {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		var current int64
		err := sqlTx.QueryRowContext(ctx, `SELECT version FROM state WHERE key = ?`, []byte(key)).Scan(&current)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("commit %s: validate %s: %w", t.id, key, err)
		}
		if current != t.reads[key] {
			return &ConflictError{Key: key, ReadVersion: t.reads[key], Version: current}
		}
	}
	return nil
}

func (t *Tx) applyWrite(ctx context.Context, sqlTx *sql.Tx, key ledger.Key, value []byte, ts string) error {
	digest := ir.DocumentDigest(value)

	_, err := sqlTx.ExecContext(ctx, `
		INSERT INTO state (key, value, version, tx_id, digest, updated_at)
		VALUES (?, ?, 1, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			version = state.version + 1,
			tx_id = excluded.tx_id,
			digest = excluded.digest,
			updated_at = excluded.updated_at
	`, []byte(key), string(value), t.id, digest, ts)
	if err != nil {
		return fmt.Errorf("commit %s: write %s: %w", t.id, key, err)
	}

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO history (key, tx_id, timestamp, is_delete, value, digest)
		VALUES (?, ?, ?, 0, ?, ?)
	`, []byte(key), t.id, ts, string(value), digest)
	if err != nil {
		return fmt.Errorf("commit %s: history %s: %w", t.id, key, err)
	}
	return nil
}

// formatTime renders timestamps as fixed-width UTC so TEXT ordering matches
// chronological ordering.
func formatTime(ts time.Time) string {
	return ts.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

func parseTime(s string) (time.Time, error) {
	return time.Parse("2006-01-02T15:04:05.000000000Z", s)
}
