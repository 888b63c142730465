package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/Skotchmaster/restaurant_orders/internal/bus"
	"github.com/Skotchmaster/restaurant_orders/internal/store"
	"github.com/Skotchmaster/restaurant_orders/pkg/logging"
)

// plan is what one attempt wants to commit. A nil plan commits nothing.
type plan struct {
	changes store.ChangeSet
	events  []bus.Event
}

// mutate runs attempt against freshly read state and commits its plan. When
// another writer got in first the whole attempt is re-run, so the intended
// delta is re-validated against the new state.
func (c *Coordinator) mutate(ctx context.Context, op string, attempt func(ctx context.Context) (*plan, error)) error {
	l := logging.FromContext(ctx).With("op", op)
	attempts := c.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		p, err := attempt(ctx)
		if err != nil {
			return err
		}
		if p == nil || p.changes.Empty() {
			return nil
		}

		err = c.Store.Commit(ctx, p.changes)
		if err == nil {
			c.publish(ctx, p.events)
			return nil
		}
		if !errors.Is(err, store.ErrConcurrentModification) && !errors.Is(err, store.ErrDuplicate) {
			return fromStore(err, op)
		}

		l.Debug("mutation_retry", "attempt", i+1, "error", err)
		if err := c.sleep(ctx, i); err != nil {
			return err
		}
	}

	l.Warn("mutation_conflict", "attempts", attempts)
	return fmt.Errorf("%w: %s lost to concurrent updates %d times, reload and try again", ErrConflict, op, attempts)
}

func (c *Coordinator) sleep(ctx context.Context, attempt int) error {
	if c.Backoff <= 0 {
		return ctx.Err()
	}
	d := c.Backoff * time.Duration(attempt+1)
	d += time.Duration(rand.Int64N(int64(c.Backoff)))
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
