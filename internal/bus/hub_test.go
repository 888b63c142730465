package bus

import (
	"context"
	"testing"

	"github.com/Skotchmaster/restaurant_orders/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func order(id string, st domain.OrderStatus) domain.Order {
	return domain.Order{ID: id, RestaurantID: "r1", Type: domain.DineIn, Status: st, Version: 1}
}

func drain(s *Subscription) []Event {
	var out []Event
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestHubSubscribeValidation(t *testing.T) {
	t.Parallel()
	h := NewHub(4)

	_, err := h.Subscribe(SubscribeRequest{Feed: FeedAll})
	require.Error(t, err)

	_, err = h.Subscribe(SubscribeRequest{RestaurantID: "r1", Feed: "bar"})
	require.Error(t, err)

	s, err := h.Subscribe(SubscribeRequest{RestaurantID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, FeedAll, s.Feed())
	assert.Equal(t, 1, h.Len())
}

func TestHubCloseIsIsolated(t *testing.T) {
	t.Parallel()
	h := NewHub(4)
	a, err := h.Subscribe(SubscribeRequest{RestaurantID: "r1", Feed: FeedAll})
	require.NoError(t, err)
	b, err := h.Subscribe(SubscribeRequest{RestaurantID: "r1", Feed: FeedAll})
	require.NoError(t, err)

	a.Close()
	a.Close()
	assert.Equal(t, 1, h.Len())

	_, open := <-a.Events()
	assert.False(t, open)

	require.NoError(t, h.Publish(context.Background(), OrderEvent(order("o1", domain.OrderPending))))
	got := drain(b)
	require.Len(t, got, 1)
	assert.Equal(t, "o1", got[0].ID)
	assert.False(t, b.Lagged())
}

func TestHubRestaurantIsolation(t *testing.T) {
	t.Parallel()
	h := NewHub(4)
	mine, _ := h.Subscribe(SubscribeRequest{RestaurantID: "r1"})
	other, _ := h.Subscribe(SubscribeRequest{RestaurantID: "r2"})

	_ = h.Publish(context.Background(), OrderEvent(order("o1", domain.OrderPending)))

	assert.Len(t, drain(mine), 1)
	assert.Empty(t, drain(other))
}

func TestHubFeeds(t *testing.T) {
	t.Parallel()
	h := NewHub(16)
	kitchen, _ := h.Subscribe(SubscribeRequest{RestaurantID: "r1", Feed: FeedKitchen})
	floor, _ := h.Subscribe(SubscribeRequest{RestaurantID: "r1", Feed: FeedFloor})
	receipts, _ := h.Subscribe(SubscribeRequest{RestaurantID: "r1", Feed: FeedReceipts})

	ctx := context.Background()
	_ = h.Publish(ctx,
		TableEvent(domain.Table{ID: "t1", RestaurantID: "r1", Number: 1, Status: domain.TableOccupied}, OpUpsert),
		OrderEvent(order("o1", domain.OrderCooking)),
		OrderEvent(order("o2", domain.OrderReady)),
		ReceiptEvent(domain.Receipt{ID: "rc1", RestaurantID: "r1", OrderID: "o3"}),
	)

	k := drain(kitchen)
	require.Len(t, k, 2)
	assert.Equal(t, "o1", k[0].ID)
	assert.True(t, k[0].InView)
	assert.Equal(t, "o2", k[1].ID)
	assert.False(t, k[1].InView, "ready orders leave the kitchen queue")

	f := drain(floor)
	require.Len(t, f, 3)
	assert.Equal(t, KindTable, f[0].Kind)
	for _, ev := range f {
		assert.True(t, ev.InView)
	}

	r := drain(receipts)
	require.Len(t, r, 1)
	assert.Equal(t, KindReceipt, r[0].Kind)
}

func TestHubOverflowSendsResyncAndCloses(t *testing.T) {
	t.Parallel()
	h := NewHub(2)
	slow, _ := h.Subscribe(SubscribeRequest{RestaurantID: "r1"})
	fast, _ := h.Subscribe(SubscribeRequest{RestaurantID: "r1", Buffer: 16})

	ctx := context.Background()
	for _, id := range []string{"o1", "o2", "o3"} {
		_ = h.Publish(ctx, OrderEvent(order(id, domain.OrderPending)))
	}

	got := drain(slow)
	require.Len(t, got, 2)
	assert.Equal(t, "o2", got[0].ID, "the oldest event makes room for the resync marker")
	assert.Equal(t, KindResync, got[1].Kind)
	assert.True(t, slow.Lagged())
	_, open := <-slow.Events()
	assert.False(t, open)

	assert.Len(t, drain(fast), 3)
	assert.Equal(t, 1, h.Len())
	slow.Close()
}

func TestHubResync(t *testing.T) {
	t.Parallel()
	h := NewHub(4)
	a, _ := h.Subscribe(SubscribeRequest{RestaurantID: "r1"})
	b, _ := h.Subscribe(SubscribeRequest{RestaurantID: "r2"})

	h.Resync("r1")
	assert.Len(t, drain(a), 1)
	assert.Empty(t, drain(b))

	h.Resync("")
	got := drain(b)
	require.Len(t, got, 1)
	assert.Equal(t, KindResync, got[0].Kind)
	assert.Equal(t, "r2", got[0].RestaurantID)
}

func TestHubClose(t *testing.T) {
	t.Parallel()
	h := NewHub(4)
	s, _ := h.Subscribe(SubscribeRequest{RestaurantID: "r1"})
	h.Close()

	_, open := <-s.Events()
	assert.False(t, open)
	s.Close()

	_, err := h.Subscribe(SubscribeRequest{RestaurantID: "r1"})
	assert.ErrorIs(t, err, ErrHubClosed)
	assert.ErrorIs(t, h.Publish(context.Background(), OrderEvent(order("o1", domain.OrderPending))), ErrHubClosed)
}

func TestFeedMatch(t *testing.T) {
	t.Parallel()
	paidLater := domain.Order{ID: "o", RestaurantID: "r1", Type: domain.Takeout, PayBefore: true, Status: domain.OrderPending}
	paid := paidLater
	paid.ReceiptCode = "R-20260101-AAAAAAAA"

	tests := []struct {
		name     string
		feed     Feed
		ev       Event
		relevant bool
		inView   bool
	}{
		{"resync everywhere", FeedKitchen, ResyncEvent("r1"), true, false},
		{"kitchen ignores tables", FeedKitchen, TableEvent(domain.Table{ID: "t"}, OpUpsert), false, false},
		{"floor drops deleted table", FeedFloor, TableEvent(domain.Table{ID: "t"}, OpDelete), true, false},
		{"kitchen hides unpaid pay-before takeout", FeedKitchen, OrderEvent(paidLater), true, false},
		{"kitchen shows paid pay-before takeout", FeedKitchen, OrderEvent(paid), true, true},
		{"floor drops completed order", FeedFloor, OrderEvent(order("o", domain.OrderCompleted)), true, false},
		{"receipts ignore orders", FeedReceipts, OrderEvent(order("o", domain.OrderPending)), false, false},
		{"floor ignores receipts", FeedFloor, ReceiptEvent(domain.Receipt{ID: "rc"}), false, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			relevant, inView := tt.feed.Match(tt.ev)
			assert.Equal(t, tt.relevant, relevant)
			assert.Equal(t, tt.inView, inView)
		})
	}
}

func TestFeedView(t *testing.T) {
	t.Parallel()
	assert.Equal(t, domain.ViewKitchen, FeedKitchen.View())
	assert.Equal(t, domain.ViewWaiter, FeedFloor.View())
	assert.Equal(t, domain.ViewAdmin, FeedReceipts.View())
	assert.Equal(t, domain.ViewAdmin, FeedAll.View())
}
