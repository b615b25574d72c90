package events

import (
	"context"
	"errors"

	"github.com/roach88/rentledger/internal/ledger"
)

// Publisher forwards one committed ledger event to a bus.
type Publisher interface {
	Publish(ctx context.Context, event ledger.Event) error
}

// Nop discards every event.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, ledger.Event) error { return nil }

// Multi publishes to every publisher in order. A failing publisher does not
// stop the others; all errors are joined.
type Multi []Publisher

// Publish implements Publisher.
func (m Multi) Publish(ctx context.Context, event ledger.Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
