package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rentledger/internal/ledger"
)

func TestSequentialTxIDs(t *testing.T) {
	gen := NewSequentialTxIDs("")
	assert.Equal(t, "tx-000001", gen.Generate())
	assert.Equal(t, "tx-000002", gen.Generate())

	gen.Reset()
	assert.Equal(t, "tx-000001", gen.Generate())

	custom := NewSequentialTxIDs("scn")
	assert.Equal(t, "scn-000001", custom.Generate())
}

func TestSequentialTxIDs_Unique(t *testing.T) {
	gen := NewSequentialTxIDs("")
	const n = 200

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			id := gen.Generate()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, n)
}

func TestLedger_SubmitCommitsOnlyOnSuccess(t *testing.T) {
	l := NewLedger(t)
	key, err := ledger.SimpleKey("doc")
	require.NoError(t, err)

	err = l.Submit(func(ctx context.Context, stub ledger.Stub) error {
		return stub.Put(ctx, key, []byte(`{"n":1}`))
	})
	require.NoError(t, err)

	err = l.Submit(func(ctx context.Context, stub ledger.Stub) error {
		require.NoError(t, stub.Put(ctx, key, []byte(`{"n":2}`)))
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	var got []byte
	require.NoError(t, l.Evaluate(func(ctx context.Context, stub ledger.Stub) error {
		got, err = stub.Get(ctx, key)
		return err
	}))
	assert.JSONEq(t, `{"n":1}`, string(got))
}
