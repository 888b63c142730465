package receiptindex

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Skotchmaster/restaurant_orders/internal/bus"
	"github.com/Skotchmaster/restaurant_orders/internal/domain"
)

var ErrQueueFull = errors.New("receipt index queue full")

const (
	DefaultQueue = 256
	maxAttempts  = 5
)

type putter interface {
	Put(ctx context.Context, r domain.Receipt) error
}

// Indexer is a bus.Publisher that indexes the receipts it sees in the
// background. Publish never waits on Elasticsearch.
type Indexer struct {
	index   putter
	queue   chan domain.Receipt
	log     *slog.Logger
	backoff time.Duration
}

func NewIndexer(index *Index, queue int, log *slog.Logger) *Indexer {
	return newIndexer(index, queue, log)
}

func newIndexer(index putter, queue int, log *slog.Logger) *Indexer {
	if queue <= 0 {
		queue = DefaultQueue
	}
	return &Indexer{
		index:   index,
		queue:   make(chan domain.Receipt, queue),
		log:     log.With("component", "receipt_indexer"),
		backoff: 200 * time.Millisecond,
	}
}

func (x *Indexer) Publish(_ context.Context, evs ...bus.Event) error {
	for _, ev := range evs {
		if ev.Kind != bus.KindReceipt || ev.Receipt == nil {
			continue
		}
		select {
		case x.queue <- ev.Receipt.Clone():
		default:
			x.log.Warn("receipt_index_dropped", "receipt", ev.Receipt.Code)
			return ErrQueueFull
		}
	}
	return nil
}

// Run indexes queued receipts until ctx is done.
func (x *Indexer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case r := <-x.queue:
			x.put(ctx, r)
		}
	}
}

func (x *Indexer) put(ctx context.Context, r domain.Receipt) {
	for attempt := 1; ; attempt++ {
		err := x.index.Put(ctx, r)
		if err == nil {
			x.log.Debug("receipt_indexed", "receipt", r.Code)
			return
		}
		if attempt == maxAttempts || ctx.Err() != nil {
			x.log.Error("receipt_index_error", "receipt", r.Code, "attempts", attempt, "error", err)
			return
		}
		x.log.Warn("receipt_index_retry", "receipt", r.Code, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(x.backoff * time.Duration(attempt)):
		}
	}
}
