// Package bus fans committed changes out to live subscribers and, through a
// relay, to other coordinator instances.
package bus

import (
	"context"
	"time"

	"github.com/Skotchmaster/restaurant_orders/internal/domain"
)

type Kind string

const (
	KindTable   Kind = "table"
	KindOrder   Kind = "order"
	KindReceipt Kind = "receipt"
	// KindResync tells a subscriber its view may be stale and must be
	// rebuilt from a fresh snapshot.
	KindResync Kind = "resync"
)

type Op string

const (
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
)

type Event struct {
	Kind         Kind            `json:"kind"`
	Op           Op              `json:"op,omitempty"`
	RestaurantID string          `json:"restaurant_id,omitempty"`
	ID           string          `json:"id,omitempty"`
	Version      int64           `json:"version,omitempty"`
	Table        *domain.Table   `json:"table,omitempty"`
	Order        *domain.Order   `json:"order,omitempty"`
	Receipt      *domain.Receipt `json:"receipt,omitempty"`
	InView       bool            `json:"in_view"`
	At           time.Time       `json:"at"`
}

// Ref is the document reference carried by transports that cannot hold the
// full document.
type Ref struct {
	Kind         Kind   `json:"kind"`
	Op           Op     `json:"op"`
	RestaurantID string `json:"restaurant_id"`
	ID           string `json:"id"`
	Version      int64  `json:"version"`
	// OrderID locates receipts, which are stored one per order.
	OrderID string `json:"order_id,omitempty"`
}

func (e Event) Ref() Ref {
	r := Ref{Kind: e.Kind, Op: e.Op, RestaurantID: e.RestaurantID, ID: e.ID, Version: e.Version}
	if e.Receipt != nil {
		r.OrderID = e.Receipt.OrderID
	}
	return r
}

type Publisher interface {
	Publish(ctx context.Context, evs ...Event) error
}

func TableEvent(t domain.Table, op Op) Event {
	return Event{Kind: KindTable, Op: op, RestaurantID: t.RestaurantID, ID: t.ID, Version: t.Version, Table: &t, At: time.Now().UTC()}
}

func OrderEvent(o domain.Order) Event {
	c := o.Clone()
	return Event{Kind: KindOrder, Op: OpUpsert, RestaurantID: o.RestaurantID, ID: o.ID, Version: o.Version, Order: &c, At: time.Now().UTC()}
}

func ReceiptEvent(r domain.Receipt) Event {
	c := r.Clone()
	return Event{Kind: KindReceipt, Op: OpUpsert, RestaurantID: r.RestaurantID, ID: r.ID, Receipt: &c, At: time.Now().UTC()}
}

func ResyncEvent(restaurantID string) Event {
	return Event{Kind: KindResync, RestaurantID: restaurantID, At: time.Now().UTC()}
}
