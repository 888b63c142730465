package service

import (
	"sync"
	"testing"
	"time"

	"github.com/Skotchmaster/restaurant_orders/internal/bus"
	"github.com/Skotchmaster/restaurant_orders/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarioA_OpenDineIn(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.PayAfter)
	sub, err := f.hub.Subscribe(bus.SubscribeRequest{RestaurantID: restaurantID, Feed: bus.FeedFloor})
	require.NoError(t, err)
	defer sub.Close()

	o := f.seatTable5(t)

	assert.EqualValues(t, 6800, o.Total)
	assert.Equal(t, domain.OrderPending, o.Status)
	assert.Equal(t, domain.DineIn, o.Type)
	assert.Equal(t, "5", o.TableNumber)
	assert.EqualValues(t, 1, o.Version)
	for _, it := range o.Items {
		assert.NotEmpty(t, it.ID)
		assert.Equal(t, domain.ItemPending, it.Status)
	}

	tb := f.table(t, 5)
	assert.Equal(t, domain.TableOccupied, tb.Status)
	assert.Equal(t, o.ID, tb.CurrentOrderID)

	stored, err := f.st.GetOrder(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.Total, domain.ComputeTotal(stored.Items))

	var kinds []bus.Kind
	for len(kinds) < 2 {
		select {
		case ev := <-sub.Events():
			kinds = append(kinds, ev.Kind)
		case <-time.After(time.Second):
			t.Fatal("no events")
		}
	}
	assert.ElementsMatch(t, []bus.Kind{bus.KindOrder, bus.KindTable}, kinds)
}

func TestScenarioBC_KitchenAndServiceFlow(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.PayAfter)
	o := f.seatTable5(t)
	lomo := itemNamed(t, o, "Lomo Saltado")
	inca := itemNamed(t, o, "Inca Kola")

	o = f.advance(t, cook, o.ID, lomo.ID, domain.ItemCooking, domain.ItemReady)
	assert.Equal(t, domain.OrderCooking, o.Status, "not every item is ready")
	assert.Equal(t, domain.ItemPending, itemNamed(t, o, "Inca Kola").Status)

	o = f.advance(t, cook, o.ID, inca.ID, domain.ItemCooking, domain.ItemReady)
	assert.Equal(t, domain.OrderReady, o.Status)

	o = f.advance(t, waiter, o.ID, lomo.ID, domain.ItemDelivered)
	assert.Equal(t, domain.OrderReady, o.Status)
	o = f.advance(t, waiter, o.ID, inca.ID, domain.ItemDelivered)
	assert.Equal(t, domain.OrderDelivered, o.Status)

	views, err := f.c.ListTables(f.ctx, waiter)
	require.NoError(t, err)
	require.Len(t, views, 6)
	assert.Equal(t, 5, views[4].Number)
	assert.Equal(t, domain.TablePaying, views[4].Display)
	assert.Equal(t, domain.TableFree, views[0].Display)
}

func TestAdvanceItemStatusRules(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.PayAfter)
	o := f.seatTable5(t)
	lomo := itemNamed(t, o, "Lomo Saltado")

	_, err := f.c.AdvanceItemStatus(f.ctx, cook, o.ID, lomo.ID, domain.ItemReady)
	assert.ErrorIs(t, err, ErrIllegalTransition, "skipping cooking")

	for _, to := range []domain.ItemStatus{"burnt", domain.ItemStatus(domain.OrderCompleted), ""} {
		_, err = f.c.AdvanceItemStatus(f.ctx, cook, o.ID, lomo.ID, to)
		assert.ErrorIs(t, err, ErrIllegalTransition, "target %q", to)
	}

	_, err = f.c.AdvanceItemStatus(f.ctx, waiter, o.ID, lomo.ID, domain.ItemCooking)
	assert.ErrorIs(t, err, ErrForbidden, "waiters do not cook")

	_, err = f.c.AdvanceItemStatus(f.ctx, cook, o.ID, "nope", domain.ItemCooking)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.c.AdvanceItemStatus(f.ctx, cook, "missing", lomo.ID, domain.ItemCooking)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.c.AdvanceItemStatus(f.ctx, Actor{Role: domain.RoleKitchen, RestaurantID: "r-2"}, o.ID, lomo.ID, domain.ItemCooking)
	assert.ErrorIs(t, err, ErrNotFound, "other restaurants cannot see the order")

	o = f.advance(t, cook, o.ID, lomo.ID, domain.ItemCooking)
	_, err = f.c.AdvanceItemStatus(f.ctx, cook, o.ID, lomo.ID, domain.ItemPending)
	assert.ErrorIs(t, err, ErrIllegalTransition, "items never move backwards")

	_, err = f.c.CancelOrder(f.ctx, waiter, o.ID)
	require.NoError(t, err)
	_, err = f.c.AdvanceItemStatus(f.ctx, cook, o.ID, lomo.ID, domain.ItemReady)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestAppendItemsMergesIntoActiveOrder(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.PayAfter)
	o := f.seatTable5(t)
	for _, it := range o.Items {
		o = f.advance(t, cook, o.ID, it.ID, domain.ItemCooking, domain.ItemReady)
	}
	require.Equal(t, domain.OrderReady, o.Status)

	var more domain.PendingItems
	more.AddWithNote("p-inca", 2, "sin hielo")
	merged, err := f.c.AppendItems(f.ctx, waiter, AppendRequest{TableID: f.table(t, 5).ID, Items: more})
	require.NoError(t, err)

	assert.Equal(t, o.ID, merged.ID, "an occupied table keeps its order")
	assert.Len(t, merged.Items, 3)
	assert.EqualValues(t, 6800+1600, merged.Total)
	assert.Equal(t, domain.OrderPending, merged.Status, "new items send the order back to the kitchen")
	assert.EqualValues(t, o.Version+1, merged.Version)

	byOrder, err := f.c.AppendItems(f.ctx, waiter, AppendRequest{OrderID: o.ID, Items: more})
	require.NoError(t, err)
	assert.Len(t, byOrder.Items, 4)

	stored, err := f.st.GetOrder(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, byOrder.Total, domain.ComputeTotal(stored.Items))
	assert.Equal(t, "sin hielo", stored.Items[3].Note)
}

func TestAppendItemsValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.PayAfter)
	tableID := f.table(t, 1).ID

	tests := []struct {
		name  string
		actor Actor
		req   AppendRequest
		want  error
	}{
		{"empty cart", waiter, AppendRequest{TableID: tableID}, ErrValidation},
		{"no target", waiter, AppendRequest{Items: lomoAndInca()}, ErrValidation},
		{"both targets", waiter, AppendRequest{TableID: tableID, OrderID: "o", Items: lomoAndInca()}, ErrValidation},
		{"unknown product", waiter, AppendRequest{TableID: tableID, Items: domain.NewPendingItems(domain.PendingLine{ProductID: "p-x", Quantity: 1})}, ErrNotFound},
		{"inactive product", waiter, AppendRequest{TableID: tableID, Items: domain.NewPendingItems(domain.PendingLine{ProductID: "p-old", Quantity: 1})}, ErrInvalidState},
		{"kitchen cannot take orders", cook, AppendRequest{TableID: tableID, Items: lomoAndInca()}, ErrForbidden},
		{"unknown table", waiter, AppendRequest{TableID: "t-x", Items: lomoAndInca()}, ErrNotFound},
		{"unknown order", waiter, AppendRequest{OrderID: "o-x", Items: lomoAndInca()}, ErrNotFound},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.c.AppendItems(f.ctx, tt.actor, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, domain.TableFree, f.table(t, 1).Status, "rejected requests change nothing")
}

func TestCancelItem(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.PayAfter)
	o := f.seatTable5(t)
	lomo := itemNamed(t, o, "Lomo Saltado")
	inca := itemNamed(t, o, "Inca Kola")

	f.advance(t, cook, o.ID, lomo.ID, domain.ItemCooking)
	_, err := f.c.CancelItem(f.ctx, waiter, o.ID, lomo.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	o, err = f.c.CancelItem(f.ctx, waiter, o.ID, inca.ID)
	require.NoError(t, err)
	assert.Len(t, o.Items, 1)
	assert.EqualValues(t, 6000, o.Total)
	assert.Equal(t, domain.OrderCooking, o.Status)

	_, err = f.c.CancelItem(f.ctx, waiter, o.ID, inca.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelOrderReleasesTable(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.PayAfter)
	o := f.seatTable5(t)

	o, err := f.c.CancelOrder(f.ctx, waiter, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, o.Status)
	require.NotNil(t, o.ClosedAt)

	tb := f.table(t, 5)
	assert.Equal(t, domain.TableFree, tb.Status)
	assert.Empty(t, tb.CurrentOrderID)

	_, err = f.c.CancelOrder(f.ctx, waiter, o.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	next := f.seatTable5(t)
	assert.NotEqual(t, o.ID, next.ID, "a freed table starts a new order")
}

func TestConcurrentDisjointAdvancesBothLand(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.PayAfter)
	o := f.seatTable5(t)
	f.st.SetCommitDelay(20 * time.Millisecond)

	start := make(chan struct{})
	var wg sync.WaitGroup
	errs := make([]error, len(o.Items))
	for i, it := range o.Items {
		wg.Add(1)
		go func(i int, itemID string) {
			defer wg.Done()
			<-start
			_, errs[i] = f.c.AdvanceItemStatus(f.ctx, cook, o.ID, itemID, domain.ItemCooking)
		}(i, it.ID)
	}
	close(start)
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	got, err := f.st.GetOrder(f.ctx, o.ID)
	require.NoError(t, err)
	for _, it := range got.Items {
		assert.Equal(t, domain.ItemCooking, it.Status, "no update was lost")
	}
	assert.Equal(t, domain.OrderCooking, got.Status)
	assert.EqualValues(t, 3, got.Version)
	assert.Positive(t, f.st.Conflicts(), "the writers raced")
}

func TestConcurrentSameItemAdvanceIsRevalidated(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.PayAfter)
	o := f.seatTable5(t)
	lomo := itemNamed(t, o, "Lomo Saltado")
	f.st.SetCommitDelay(20 * time.Millisecond)

	start := make(chan struct{})
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.c.AdvanceItemStatus(f.ctx, cook, o.ID, lomo.ID, domain.ItemCooking)
		}(i)
	}
	close(start)
	wg.Wait()

	var ok, illegal int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrIllegalTransition)
		illegal++
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, illegal, "the loser sees the item already cooking")
}

func TestMutateGivesUpWithConflict(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.PayAfter)
	o := f.seatTable5(t)

	flaky := &flakyStore{Memory: f.st}
	c := NewCoordinator(flaky, nil)
	c.MaxRetries = 3
	c.Backoff = 0

	_, err := c.AdvanceItemStatus(f.ctx, cook, o.ID, o.Items[0].ID, domain.ItemCooking)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 3, flaky.commits)

	got, err := f.st.GetOrder(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemPending, got.Items[0].Status)
}

func TestPendingItemsAreIsolated(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.PayAfter)

	var cartA, cartB domain.PendingItems
	cartA.Add("p-lomo", 1)
	cartB.Add("p-inca", 3)

	var wg sync.WaitGroup
	results := make([]domain.Order, 2)
	errs := make([]error, 2)
	for i, req := range []AppendRequest{
		{TableID: f.table(t, 1).ID, Items: cartA},
		{TableID: f.table(t, 2).ID, Items: cartB},
	} {
		wg.Add(1)
		go func(i int, req AppendRequest) {
			defer wg.Done()
			results[i], errs[i] = f.c.AppendItems(f.ctx, waiter, req)
		}(i, req)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.EqualValues(t, 3000, results[0].Total)
	assert.EqualValues(t, 2400, results[1].Total)
	assert.Equal(t, 1, cartA.Len(), "sending does not consume the caller's cart")
}
