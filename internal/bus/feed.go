package bus

import (
	"fmt"

	"github.com/Skotchmaster/restaurant_orders/internal/domain"
)

// Feed is the slice of restaurant state a subscriber follows.
type Feed string

const (
	FeedAll      Feed = "all"
	FeedFloor    Feed = "floor"
	FeedKitchen  Feed = "kitchen"
	FeedReceipts Feed = "receipts"
)

func ParseFeed(s string) (Feed, error) {
	switch f := Feed(s); f {
	case FeedAll, FeedFloor, FeedKitchen, FeedReceipts:
		return f, nil
	case "":
		return FeedAll, nil
	}
	return "", fmt.Errorf("unknown feed %q", s)
}

// View is the dashboard a subscriber must be allowed into to follow f.
func (f Feed) View() domain.View {
	switch f {
	case FeedKitchen:
		return domain.ViewKitchen
	case FeedFloor:
		return domain.ViewWaiter
	default:
		return domain.ViewAdmin
	}
}

func (f Feed) Tables() bool { return f == FeedAll || f == FeedFloor }

func (f Feed) Receipts() bool { return f == FeedAll || f == FeedReceipts }

func (f Feed) Orders() bool { return f != FeedReceipts }

// OrderInView reports whether o belongs in the feed's current view.
func (f Feed) OrderInView(o domain.Order) bool {
	switch f {
	case FeedKitchen:
		return domain.KitchenVisible(o)
	case FeedFloor:
		return domain.FloorVisible(o)
	case FeedAll:
		return true
	}
	return false
}

// Match reports whether ev concerns subscribers of f and, if so, whether the
// document is in the view after the change. An order that leaves the view is
// still delivered so the subscriber can drop it.
func (f Feed) Match(ev Event) (relevant, inView bool) {
	switch ev.Kind {
	case KindResync:
		return true, false
	case KindTable:
		return f.Tables(), f.Tables() && ev.Op != OpDelete
	case KindOrder:
		if !f.Orders() || ev.Order == nil {
			return false, false
		}
		return true, f.OrderInView(*ev.Order)
	case KindReceipt:
		return f.Receipts(), f.Receipts()
	}
	return false, false
}
