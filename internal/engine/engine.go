package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/rentledger/internal/domain"
	"github.com/roach88/rentledger/internal/ledger"
	"github.com/roach88/rentledger/internal/store"
)

// TxIDGenerator generates unique transaction ids.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type TxIDGenerator interface {
	Generate() string
}

// Publisher forwards committed events to an external bus.
type Publisher interface {
	Publish(ctx context.Context, event ledger.Event) error
}

// Op is one ledger operation. It sees a fresh transaction and returns the
// value handed back to the caller.
type Op func(ctx context.Context, stub ledger.Stub) (any, error)

// Result describes a finished transaction.
type Result struct {
	TxID      string
	Timestamp time.Time
	Value     any

	// Event is the committed event, nil for evaluations and for
	// operations that emitted nothing.
	Event *ledger.Event
}

// Engine runs each operation as exactly one ledger transaction.
//
// Submit commits: the read set is validated against the store and, if any
// key moved underneath, the whole transaction is rejected with
// ErrCodeReadConflict. Nothing is retried. Evaluate runs the same way but
// always discards, so queries never write.
//
// The engine holds no locks of its own; concurrency control is entirely
// the store's optimistic validation.
type Engine struct {
	store     *store.Store
	clock     Clock
	txIDs     TxIDGenerator
	publisher Publisher
	logger    *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the transaction timestamp source. Default: SystemClock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithTxIDGenerator sets the transaction id source. Default: UUIDv7Generator.
func WithTxIDGenerator(g TxIDGenerator) Option {
	return func(e *Engine) { e.txIDs = g }
}

// WithPublisher sets where committed events go. Default: nowhere.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithLogger sets the logger. Default: zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine over s.
func New(s *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  s,
		clock:  SystemClock{},
		txIDs:  UUIDv7Generator{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the underlying ledger store.
func (e *Engine) Store() *store.Store { return e.store }

// Submit runs op in a new transaction and commits it.
//
// A committed event is published after the commit. Publish failures are
// logged and never change the outcome: the ledger is the source of truth
// and the event table can be replayed.
func (e *Engine) Submit(ctx context.Context, function string, op Op) (*Result, error) {
	txID := e.txIDs.Generate()
	ts := e.clock.Now()
	log := e.logger.With(zap.String("function", function), zap.String("tx_id", txID))

	tx := e.store.Begin(txID, ts)
	value, err := op(ctx, tx)
	if err != nil {
		tx.Discard()
		log.Warn("transaction rejected", zap.String("error_kind", string(domain.KindOf(err))), zap.Error(err))
		return nil, err
	}

	receipt, err := tx.Commit(ctx)
	if err != nil {
		return nil, e.commitError(log, function, txID, err)
	}

	res := &Result{TxID: receipt.TxID, Timestamp: receipt.Timestamp, Value: value, Event: receipt.Event}
	if receipt.Event != nil {
		log.Debug("transaction committed",
			zap.String("event", receipt.Event.Name),
			zap.Int("writes", receipt.Writes))
		e.publish(ctx, log, *receipt.Event)
	} else {
		log.Debug("transaction committed", zap.Int("writes", receipt.Writes))
	}
	return res, nil
}

// Evaluate runs op in a transaction that is always discarded.
func (e *Engine) Evaluate(ctx context.Context, function string, op Op) (*Result, error) {
	txID := e.txIDs.Generate()
	ts := e.clock.Now()

	tx := e.store.Begin(txID, ts)
	defer tx.Discard()

	value, err := op(ctx, tx)
	if err != nil {
		e.logger.Debug("evaluation failed",
			zap.String("function", function),
			zap.String("tx_id", txID),
			zap.String("error_kind", string(domain.KindOf(err))),
			zap.Error(err))
		return nil, err
	}
	return &Result{TxID: txID, Timestamp: ts, Value: value}, nil
}

func (e *Engine) commitError(log *zap.Logger, function, txID string, err error) error {
	var ce *store.ConflictError
	switch {
	case errors.As(err, &ce):
		log.Warn("mvcc read conflict", zap.String("key", string(ce.Key)), zap.Int64("read_version", ce.ReadVersion),
			zap.Int64("committed_version", ce.Version))
		return &RuntimeError{
			Code:     ErrCodeReadConflict,
			Message:  "a key read by this transaction was modified concurrently",
			Function: function,
			TxID:     txID,
			Key:      ce.Key,
			Err:      err,
		}
	case errors.Is(err, store.ErrDuplicateTxID):
		log.Warn("duplicate transaction id")
		return &RuntimeError{
			Code:     ErrCodeDuplicateTx,
			Message:  "transaction id already committed",
			Function: function,
			TxID:     txID,
			Err:      err,
		}
	default:
		log.Error("commit failed", zap.Error(err))
		return fmt.Errorf("commit %s: %w", function, err)
	}
}

func (e *Engine) publish(ctx context.Context, log *zap.Logger, ev ledger.Event) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, ev); err != nil {
		log.Error("event publish failed", zap.String("event", ev.Name), zap.Int64("seq", ev.Seq), zap.Error(err))
	}
}
