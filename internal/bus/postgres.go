package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Skotchmaster/restaurant_orders/internal/domain"
	"github.com/Skotchmaster/restaurant_orders/internal/store"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const DefaultNotifyChannel = "coordinator_events"

// PostgresRelay shares events through LISTEN/NOTIFY on the database the
// coordinator already uses. A notification only carries document references;
// receivers load the current documents from the store.
type PostgresRelay struct {
	hub     *Hub
	origin  string
	db      *gorm.DB
	dsn     string
	channel string
	reader  store.Store
	log     *slog.Logger
}

func NewPostgresRelay(hub *Hub, db *gorm.DB, dsn, channel, origin string, reader store.Store, log *slog.Logger) *PostgresRelay {
	if channel == "" {
		channel = DefaultNotifyChannel
	}
	return &PostgresRelay{
		hub:     hub,
		origin:  origin,
		db:      db,
		dsn:     dsn,
		channel: channel,
		reader:  reader,
		log:     log.With("relay", "postgres", "channel", channel),
	}
}

func (r *PostgresRelay) Publish(ctx context.Context, evs ...Event) error {
	refs := make([]Ref, 0, len(evs))
	for _, ev := range evs {
		refs = append(refs, ev.Ref())
	}
	payload, err := encodeEnvelope(Envelope{Origin: r.origin, Refs: refs})
	if err != nil {
		return fmt.Errorf("postgres: encode refs: %w", err)
	}
	if err := r.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", r.channel, string(payload)).Error; err != nil {
		return fmt.Errorf("postgres: notify: %w", err)
	}
	return nil
}

func (r *PostgresRelay) Run(ctx context.Context) error {
	listener := pq.NewListener(r.dsn, minReconnect, maxReconnect, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventDisconnected:
			r.log.Warn("relay_disconnected", "error", err)
		case pq.ListenerEventReconnected:
			r.log.Info("relay_reconnected")
			r.hub.Resync("")
		case pq.ListenerEventConnectionAttemptFailed:
			r.log.Warn("relay_connect_failed", "error", err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(r.channel); err != nil {
		return fmt.Errorf("postgres: listen %s: %w", r.channel, err)
	}

	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			// nil after a reconnect; the callback already asked for a resync
			if n == nil {
				continue
			}
			r.handle(ctx, n.Extra)
		case <-ping.C:
			if err := listener.Ping(); err != nil {
				r.log.Warn("relay_ping_error", "error", err)
			}
		}
	}
}

func (r *PostgresRelay) handle(ctx context.Context, payload string) {
	env, err := decodeEnvelope([]byte(payload))
	if err != nil {
		r.log.Warn("relay_decode_error", "error", err)
		return
	}
	if env.Origin == r.origin {
		return
	}
	evs := make([]Event, 0, len(env.Refs))
	for _, ref := range env.Refs {
		ev, err := Hydrate(ctx, r.reader, ref)
		if err != nil {
			r.log.Warn("relay_hydrate_error", "kind", ref.Kind, "id", ref.ID, "error", err)
			r.hub.Resync(ref.RestaurantID)
			continue
		}
		evs = append(evs, ev)
	}
	if err := r.hub.Publish(ctx, evs...); err != nil {
		r.log.Warn("relay_publish_error", "events", len(evs), "error", err)
	}
}

func (r *PostgresRelay) Close() error { return nil }

// Hydrate loads the current document behind ref. A document that no longer
// exists becomes a delete event.
func Hydrate(ctx context.Context, st store.Store, ref Ref) (Event, error) {
	switch ref.Kind {
	case KindResync:
		return ResyncEvent(ref.RestaurantID), nil
	case KindTable:
		gone := domain.Table{ID: ref.ID, RestaurantID: ref.RestaurantID, Version: ref.Version}
		if ref.Op == OpDelete {
			return TableEvent(gone, OpDelete), nil
		}
		t, err := st.GetTable(ctx, ref.ID)
		if errors.Is(err, store.ErrNotFound) {
			return TableEvent(gone, OpDelete), nil
		}
		if err != nil {
			return Event{}, err
		}
		return TableEvent(t, OpUpsert), nil
	case KindOrder:
		o, err := st.GetOrder(ctx, ref.ID)
		if err != nil {
			return Event{}, err
		}
		return OrderEvent(o), nil
	case KindReceipt:
		rc, err := st.GetReceiptByOrder(ctx, ref.OrderID)
		if err != nil {
			return Event{}, err
		}
		return ReceiptEvent(rc), nil
	}
	return Event{}, fmt.Errorf("unknown event kind %q", ref.Kind)
}
