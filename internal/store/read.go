package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"

	"github.com/roach88/rentledger/internal/ledger"
	"github.com/roach88/rentledger/internal/queryir"
	"github.com/roach88/rentledger/internal/querysql"
)

// get returns the committed value and version for key.
// An absent key has version 0 and a nil value.
func (s *Store) get(ctx context.Context, key ledger.Key) ([]byte, int64, error) {
	var value string
	var version int64
	err := s.db.QueryRowContext(ctx,
		`SELECT value, version FROM state WHERE key = ?`, []byte(key),
	).Scan(&value, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("get %s: %w", key, err)
	}
	return []byte(value), version, nil
}

// Get returns the committed value at key outside any transaction, or nil
// if absent.
func (s *Store) Get(ctx context.Context, key ledger.Key) ([]byte, error) {
	value, _, err := s.get(ctx, key)
	return value, err
}

// Version returns the committed version of key (0 if absent).
func (s *Store) Version(ctx context.Context, key ledger.Key) (int64, error) {
	_, version, err := s.get(ctx, key)
	return version, err
}

// Query evaluates a selector against committed state.
// Results are ordered by key (bytewise). Returns an empty slice, not nil,
// when nothing matches.
func (s *Store) Query(ctx context.Context, selector queryir.Predicate) ([]ledger.Record, error) {
	query, params, err := querysql.NewSQLCompiler().Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	records := []ledger.Record{}
	for rows.Next() {
		var key []byte
		var value string
		var rec ledger.Record
		if err := rows.Scan(&key, &value, &rec.Version); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Key = ledger.Key(key)
		rec.Value = []byte(value)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// History lazily yields committed writes to key, oldest first.
//
// The store has one connection and the iterator holds it while open, so
// callers must finish (or break out of) the loop before issuing another
// read.
func (s *Store) History(ctx context.Context, key ledger.Key) iter.Seq2[ledger.HistoryEntry, error] {
	return func(yield func(ledger.HistoryEntry, error) bool) {
		rows, err := s.db.QueryContext(ctx, `
			SELECT tx_id, timestamp, is_delete, value
			FROM history
			WHERE key = ?
			ORDER BY id ASC
		`, []byte(key))
		if err != nil {
			yield(ledger.HistoryEntry{}, fmt.Errorf("history %s: %w", key, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var (
				entry ledger.HistoryEntry
				ts    string
				value sql.NullString
			)
			if err := rows.Scan(&entry.TxID, &ts, &entry.IsDelete, &value); err != nil {
				yield(ledger.HistoryEntry{}, fmt.Errorf("scan history: %w", err))
				return
			}
			if entry.Timestamp, err = parseTime(ts); err != nil {
				yield(ledger.HistoryEntry{}, fmt.Errorf("history timestamp %q: %w", ts, err))
				return
			}
			if value.Valid {
				entry.Value = []byte(value.String)
			}
			if !yield(entry, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(ledger.HistoryEntry{}, fmt.Errorf("iterate history: %w", err))
		}
	}
}

// Events returns committed events with seq greater than afterSeq, in
// commit order. Returns an empty slice, not nil, when there are none.
func (s *Store) Events(ctx context.Context, afterSeq int64) ([]ledger.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, tx_id, name, payload, digest, timestamp
		FROM events
		WHERE seq > ?
		ORDER BY seq ASC
	`, afterSeq)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []ledger.Event{}
	for rows.Next() {
		var (
			ev      ledger.Event
			payload string
			ts      string
		)
		if err := rows.Scan(&ev.Seq, &ev.TxID, &ev.Name, &payload, &ev.Digest, &ts); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Payload = json.RawMessage(payload)
		if ev.Timestamp, err = parseTime(ts); err != nil {
			return nil, fmt.Errorf("event timestamp %q: %w", ts, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
