package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rentledger/internal/ledger"
	"github.com/roach88/rentledger/internal/queryir"
)

func TestTx_PutCommitGet(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	r := commitPuts(t, s, "tx-1", map[ledger.Key]string{
		"C1": `{"status":"PENDING_SIGNATURE","contractId":"C1"}`,
	})
	assert.Equal(t, "tx-1", r.TxID)
	assert.Equal(t, 1, r.Writes)
	assert.Nil(t, r.Event)

	value, err := s.Get(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, `{"contractId":"C1","status":"PENDING_SIGNATURE"}`, string(value), "stored canonically")

	version, err := s.Version(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	commitPuts(t, s, "tx-2", map[ledger.Key]string{"C1": `{"status":"WAIT_DEPOSIT"}`})
	version, err = s.Version(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)
}

func TestTx_GetAbsent(t *testing.T) {
	s := createTestStore(t)
	tx := s.Begin("tx-1", testEpoch)

	value, err := tx.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestTx_DoesNotReadOwnWrites(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	tx := s.Begin("tx-1", testEpoch)

	require.NoError(t, tx.Put(ctx, "C1", []byte(`{"a":1}`)))
	value, err := tx.Get(ctx, "C1")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestTx_LastPutWins(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	tx := s.Begin("tx-1", testEpoch)

	require.NoError(t, tx.Put(ctx, "C1", []byte(`{"a":1}`)))
	require.NoError(t, tx.Put(ctx, "C1", []byte(`{"a":2}`)))
	r, err := tx.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Writes)

	value, err := s.Get(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(value))
}

func TestTx_PutRejectsNonJSON(t *testing.T) {
	s := createTestStore(t)
	tx := s.Begin("tx-1", testEpoch)

	err := tx.Put(context.Background(), "C1", []byte("not json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a JSON document")

	err = tx.Put(context.Background(), "C1", []byte(`{"rent":1.5}`))
	require.Error(t, err)
}

func TestTx_ReadConflict(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	commitPuts(t, s, "seed", map[ledger.Key]string{"C1": `{"status":"WAIT_DEPOSIT"}`})

	// Two transactions read the same version, both write.
	a := s.Begin("tx-a", testEpoch)
	b := s.Begin("tx-b", testEpoch)
	_, err := a.Get(ctx, "C1")
	require.NoError(t, err)
	_, err = b.Get(ctx, "C1")
	require.NoError(t, err)

	require.NoError(t, a.Put(ctx, "C1", []byte(`{"deposit":"landlord"}`)))
	require.NoError(t, b.Put(ctx, "C1", []byte(`{"deposit":"tenant"}`)))

	_, err = a.Commit(ctx)
	require.NoError(t, err)

	_, err = b.Commit(ctx)
	require.Error(t, err)
	assert.True(t, IsReadConflict(err))
	assert.True(t, errors.Is(err, ErrReadConflict))

	var ce *ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ledger.Key("C1"), ce.Key)
	assert.Equal(t, int64(1), ce.ReadVersion)
	assert.Equal(t, int64(2), ce.Version)

	value, err := s.Get(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, `{"deposit":"landlord"}`, string(value), "loser wrote nothing")
}

func TestTx_ReadConflictOnPhantomCreate(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	a := s.Begin("tx-a", testEpoch)
	b := s.Begin("tx-b", testEpoch)
	for _, tx := range []*Tx{a, b} {
		v, err := tx.Get(ctx, "C1")
		require.NoError(t, err)
		require.Nil(t, v)
		require.NoError(t, tx.Put(ctx, "C1", []byte(`{"contractId":"C1"}`)))
	}

	_, err := a.Commit(ctx)
	require.NoError(t, err)
	_, err = b.Commit(ctx)
	assert.True(t, IsReadConflict(err), "second create of the same key must conflict")
}

func TestTx_DuplicateTxID(t *testing.T) {
	s := createTestStore(t)
	commitPuts(t, s, "tx-1", map[ledger.Key]string{"A": `{}`})

	tx := s.Begin("tx-1", testEpoch)
	require.NoError(t, tx.Put(context.Background(), "B", []byte(`{}`)))
	_, err := tx.Commit(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateTxID)

	value, err := s.Get(context.Background(), "B")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestTx_ClosedAfterCommitOrDiscard(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	tx := s.Begin("tx-1", testEpoch)
	_, err := tx.Commit(ctx)
	require.NoError(t, err)

	_, err = tx.Commit(ctx)
	assert.ErrorIs(t, err, ErrTxClosed)
	assert.ErrorIs(t, tx.Put(ctx, "A", []byte(`{}`)), ErrTxClosed)

	d := s.Begin("tx-2", testEpoch)
	d.Discard()
	_, err = d.Get(ctx, "A")
	assert.ErrorIs(t, err, ErrTxClosed)
	assert.ErrorIs(t, d.Emit("X", []byte(`{}`)), ErrTxClosed)
}

func TestTx_EventPersisted(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	tx := s.Begin("tx-1", testEpoch)
	require.NoError(t, tx.Put(ctx, "C1", []byte(`{}`)))
	require.NoError(t, tx.Emit("Draft", []byte(`{"n":1}`)))
	require.NoError(t, tx.Emit("ContractCreated", []byte(`{"contractId":"C1"}`)))
	r, err := tx.Commit(ctx)
	require.NoError(t, err)

	require.NotNil(t, r.Event)
	assert.Equal(t, "ContractCreated", r.Event.Name, "last emit wins")
	assert.Len(t, r.Event.Digest, 64)

	events, err := s.Events(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, r.Event.Seq, events[0].Seq)
	assert.Equal(t, "tx-1", events[0].TxID)
	assert.JSONEq(t, `{"contractId":"C1"}`, string(events[0].Payload))
	assert.True(t, testEpoch.Equal(events[0].Timestamp))

	later, err := s.Events(ctx, events[0].Seq)
	require.NoError(t, err)
	assert.Empty(t, later)
	assert.NotNil(t, later)
}

func TestTx_EmitRejectsNonJSON(t *testing.T) {
	s := createTestStore(t)
	tx := s.Begin("tx-1", testEpoch)
	assert.Error(t, tx.Emit("X", []byte("{")))
	assert.Error(t, tx.Emit("", []byte("{}")))
}

func TestTx_RestrictedCollection(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	tx := s.Begin("tx-1", testEpoch)
	require.NoError(t, tx.PutRestricted(ctx, "contractPrivate", "C1", []byte(`{"iban":"X"}`)))
	_, err := tx.Commit(ctx)
	require.NoError(t, err)

	read := s.Begin("tx-2", testEpoch)
	value, err := read.GetRestricted(ctx, "contractPrivate", "C1")
	require.NoError(t, err)
	assert.Equal(t, `{"iban":"X"}`, string(value))

	value, err = read.GetRestricted(ctx, "otherCollection", "C1")
	require.NoError(t, err)
	assert.Nil(t, value)

	// Restricted values never show up in world-state queries.
	records, err := read.Query(ctx, queryir.And{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestTx_History(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i, doc := range []string{`{"v":1}`, `{"v":2}`, `{"v":3}`} {
		tx := s.Begin([]string{"t1", "t2", "t3"}[i], testEpoch.Add(time.Duration(i)*time.Hour))
		require.NoError(t, tx.Put(ctx, "C1", []byte(doc)))
		_, err := tx.Commit(ctx)
		require.NoError(t, err)
	}

	reader := s.Begin("r", testEpoch)
	var got []ledger.HistoryEntry
	for entry, err := range reader.HistoryOf(ctx, "C1") {
		require.NoError(t, err)
		got = append(got, entry)
	}

	require.Len(t, got, 3)
	assert.Equal(t, "t1", got[0].TxID)
	assert.Equal(t, `{"v":1}`, string(got[0].Value))
	assert.Equal(t, "t3", got[2].TxID)
	assert.True(t, testEpoch.Add(2*time.Hour).Equal(got[2].Timestamp))
	assert.False(t, got[1].IsDelete)
}

func TestTx_HistoryEarlyBreakReleasesConnection(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	commitPuts(t, s, "t1", map[ledger.Key]string{"C1": `{"v":1}`})
	commitPuts(t, s, "t2", map[ledger.Key]string{"C1": `{"v":2}`})

	for range s.History(ctx, "C1") {
		break
	}

	// The single connection must be free again.
	value, err := s.Get(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(value))
}

func TestTx_CommitFailureRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := &Store{db: db}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	tx := s.Begin("tx-1", testEpoch)
	require.NoError(t, tx.Put(context.Background(), "C1", []byte(`{}`)))
	_, err = tx.Commit(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}
