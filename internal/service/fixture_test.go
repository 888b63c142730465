package service

import (
	"context"
	"testing"
	"time"

	"github.com/Skotchmaster/restaurant_orders/internal/bus"
	"github.com/Skotchmaster/restaurant_orders/internal/domain"
	"github.com/Skotchmaster/restaurant_orders/internal/store"
	"github.com/stretchr/testify/require"
)

const restaurantID = "r-1"

var (
	waiter  = Actor{UserID: "u-w", Name: "Rosa", Role: domain.RoleWaiter, RestaurantID: restaurantID}
	cook    = Actor{UserID: "u-k", Name: "Mario", Role: domain.RoleKitchen, RestaurantID: restaurantID}
	admin   = Actor{UserID: "u-a", Name: "Ana", Role: domain.RoleAdmin, RestaurantID: restaurantID}
	outside = Actor{UserID: "u-x", Name: "Luis", Role: domain.RoleAdmin, RestaurantID: "r-2"}
)

type fixture struct {
	ctx context.Context
	st  *store.Memory
	hub *bus.Hub
	c   *Coordinator
}

func newFixture(t *testing.T, timing domain.PaymentTiming) *fixture {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.PutRestaurant(ctx, domain.Restaurant{
		ID:                   restaurantID,
		Name:                 "La Cevicheria",
		Currency:             "PEN",
		TakeoutPaymentTiming: timing,
		PaymentMethods: []domain.PaymentMethod{
			{ID: "pm-cash", Name: "Efectivo", Type: domain.MethodCash, IsActive: true},
			{ID: "pm-yape", Name: "Yape", Type: domain.MethodQR, IsActive: false},
		},
	}))
	require.NoError(t, st.PutProducts(ctx,
		domain.Product{ID: "p-lomo", RestaurantID: restaurantID, Name: "Lomo Saltado", Price: 3000, Category: "Fondos", Active: true},
		domain.Product{ID: "p-inca", RestaurantID: restaurantID, Name: "Inca Kola", Price: 800, Category: "Bebidas", Active: true},
		domain.Product{ID: "p-old", RestaurantID: restaurantID, Name: "Causa", Price: 1500, Category: "Entradas", Active: false},
	))

	hub := bus.NewHub(256)
	t.Cleanup(hub.Close)
	c := NewCoordinator(st, hub)
	c.Backoff = time.Millisecond

	f := &fixture{ctx: ctx, st: st, hub: hub, c: c}
	_, err := c.ResizeTables(ctx, admin, 6)
	require.NoError(t, err)
	return f
}

func (f *fixture) table(t *testing.T, n int) domain.Table {
	t.Helper()
	tables, err := f.st.ListTables(f.ctx, restaurantID)
	require.NoError(t, err)
	for _, tb := range tables {
		if tb.Number == n {
			return tb
		}
	}
	t.Fatalf("table %d not found", n)
	return domain.Table{}
}

func lomoAndInca() domain.PendingItems {
	var p domain.PendingItems
	p.Add("p-lomo", 2)
	p.Add("p-inca", 1)
	return p
}

// seatTable5 is the dine-in order used throughout the tests.
func (f *fixture) seatTable5(t *testing.T) domain.Order {
	t.Helper()
	o, err := f.c.AppendItems(f.ctx, waiter, AppendRequest{TableID: f.table(t, 5).ID, Items: lomoAndInca()})
	require.NoError(t, err)
	return o
}

func itemNamed(t *testing.T, o domain.Order, name string) domain.OrderItem {
	t.Helper()
	for _, it := range o.Items {
		if it.Name == name {
			return it
		}
	}
	t.Fatalf("item %s not in order", name)
	return domain.OrderItem{}
}

func (f *fixture) advance(t *testing.T, a Actor, orderID, itemID string, to ...domain.ItemStatus) domain.Order {
	t.Helper()
	var o domain.Order
	var err error
	for _, s := range to {
		o, err = f.c.AdvanceItemStatus(f.ctx, a, orderID, itemID, s)
		require.NoError(t, err)
	}
	return o
}

// flakyStore loses every commit to a concurrent writer.
type flakyStore struct {
	*store.Memory
	commits int
}

func (s *flakyStore) Commit(context.Context, store.ChangeSet) error {
	s.commits++
	return store.ErrConcurrentModification
}
