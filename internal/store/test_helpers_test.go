package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/rentledger/internal/ledger"
)

var testEpoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// commitPuts writes documents in a single transaction.
func commitPuts(t *testing.T, s *Store, txID string, docs map[ledger.Key]string) *Receipt {
	t.Helper()
	tx := s.Begin(txID, testEpoch)
	for k, v := range docs {
		if err := tx.Put(context.Background(), k, []byte(v)); err != nil {
			t.Fatalf("Put(%s) failed: %v", k, err)
		}
	}
	r, err := tx.Commit(context.Background())
	if err != nil {
		t.Fatalf("Commit(%s) failed: %v", txID, err)
	}
	return r
}

func mustComposite(t *testing.T, ns string, parts ...string) ledger.Key {
	t.Helper()
	k, err := ledger.CompositeKey(ns, parts...)
	if err != nil {
		t.Fatalf("CompositeKey failed: %v", err)
	}
	return k
}
