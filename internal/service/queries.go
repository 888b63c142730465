package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Skotchmaster/restaurant_orders/internal/bus"
	"github.com/Skotchmaster/restaurant_orders/internal/domain"
	"github.com/Skotchmaster/restaurant_orders/internal/store"
)

const receiptPageSize = 100

var activeStatuses = []domain.OrderStatus{
	domain.OrderPending, domain.OrderCooking, domain.OrderReady, domain.OrderDelivered,
}

// Snapshot is the full state of a feed at one moment; live events apply on
// top of it.
type Snapshot struct {
	Feed     bus.Feed         `json:"feed"`
	Tables   []TableView      `json:"tables,omitempty"`
	Orders   []domain.Order   `json:"orders,omitempty"`
	Receipts []domain.Receipt `json:"receipts,omitempty"`
}

func (c *Coordinator) enterFeed(a Actor, feed bus.Feed) error {
	if !domain.CanEnter(a.Role, feed.View()) {
		return fmt.Errorf("%w: role %q may not follow the %s feed", ErrForbidden, a.Role, feed)
	}
	return nil
}

func (c *Coordinator) GetOrder(ctx context.Context, a Actor, id string) (domain.Order, error) {
	if !a.Role.Valid() {
		return domain.Order{}, fmt.Errorf("%w: unknown role %q", ErrForbidden, a.Role)
	}
	return c.loadOrder(ctx, a, id)
}

// ListOrders returns the orders currently in the feed's view, oldest first.
func (c *Coordinator) ListOrders(ctx context.Context, a Actor, feed bus.Feed) ([]domain.Order, error) {
	if err := c.enterFeed(a, feed); err != nil {
		return nil, err
	}
	if !feed.Orders() {
		return nil, nil
	}
	f := store.OrderFilter{Statuses: activeStatuses}
	if feed == bus.FeedKitchen {
		f.Statuses = []domain.OrderStatus{domain.OrderPending, domain.OrderCooking}
	}
	orders, err := c.Store.ListOrders(ctx, a.RestaurantID, f)
	if err != nil {
		return nil, fromStore(err, "list orders")
	}
	out := orders[:0]
	for _, o := range orders {
		if feed.OrderInView(o) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (c *Coordinator) Snapshot(ctx context.Context, a Actor, feed bus.Feed) (Snapshot, error) {
	if err := c.enterFeed(a, feed); err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Feed: feed}
	var err error
	if feed.Tables() {
		if snap.Tables, err = c.ListTables(ctx, a); err != nil {
			return Snapshot{}, err
		}
	}
	if feed.Orders() {
		if snap.Orders, err = c.ListOrders(ctx, a, feed); err != nil {
			return Snapshot{}, err
		}
	}
	if feed.Receipts() {
		if snap.Receipts, err = c.Store.ListReceipts(ctx, a.RestaurantID, receiptPageSize); err != nil {
			return Snapshot{}, fromStore(err, "list receipts")
		}
	}
	return snap, nil
}

// ListReceipts returns the newest receipts first.
func (c *Coordinator) ListReceipts(ctx context.Context, a Actor, limit int) ([]domain.Receipt, error) {
	if err := authorize(a, domain.ActViewReceipts); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > receiptPageSize {
		limit = receiptPageSize
	}
	rs, err := c.Store.ListReceipts(ctx, a.RestaurantID, limit)
	if err != nil {
		return nil, fromStore(err, "list receipts")
	}
	return rs, nil
}

func (c *Coordinator) GetReceipt(ctx context.Context, a Actor, code string) (domain.Receipt, error) {
	if err := authorize(a, domain.ActViewReceipts); err != nil {
		return domain.Receipt{}, err
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return domain.Receipt{}, fmt.Errorf("%w: receipt code required", ErrValidation)
	}
	rc, err := c.Store.GetReceiptByCode(ctx, a.RestaurantID, code)
	if err != nil {
		return domain.Receipt{}, fromStore(err, "receipt "+code)
	}
	return rc, nil
}
