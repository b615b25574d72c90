package testutil

import (
	"fmt"
	"sync"
)

// SequentialTxIDs generates tx-000001, tx-000002, ... in order.
//
// The same scenario with a fresh SequentialTxIDs produces byte-identical
// event logs, which keeps golden traces stable.
//
// Thread-safety: SequentialTxIDs is safe for concurrent use via internal mutex.
type SequentialTxIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialTxIDs creates a generator. An empty prefix means "tx".
func NewSequentialTxIDs(prefix string) *SequentialTxIDs {
	if prefix == "" {
		prefix = "tx"
	}
	return &SequentialTxIDs{prefix: prefix}
}

// Generate returns the next transaction id.
//
// Implements engine.TxIDGenerator interface.
func (g *SequentialTxIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%06d", g.prefix, g.n)
}

// Reset restarts the sequence at 1.
func (g *SequentialTxIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
