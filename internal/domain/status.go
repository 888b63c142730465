package domain

var itemRank = map[ItemStatus]int{
	ItemPending:   0,
	ItemCooking:   1,
	ItemReady:     2,
	ItemDelivered: 3,
}

var itemOrder = []ItemStatus{ItemPending, ItemCooking, ItemReady, ItemDelivered}

func (s ItemStatus) Valid() bool {
	_, ok := itemRank[s]
	return ok
}

// Next returns the only status an item may move to from s.
func (s ItemStatus) Next() (ItemStatus, bool) {
	r, ok := itemRank[s]
	if !ok || r == len(itemOrder)-1 {
		return "", false
	}
	return itemOrder[r+1], true
}

// CanAdvance reports whether from -> to is a legal single-step item transition.
func CanAdvance(from, to ItemStatus) bool {
	next, ok := from.Next()
	return ok && next == to
}

// CanCancel reports whether an item in status s may be removed from its order.
func CanCancel(s ItemStatus) bool {
	return s == ItemPending
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderCooking, OrderReady, OrderDelivered, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// DeriveOrderStatus computes the order status implied by its items, given the
// status the order had before the change. Terminal statuses never move.
func DeriveOrderStatus(prev OrderStatus, items []OrderItem) OrderStatus {
	if prev.Terminal() {
		return prev
	}
	if len(items) == 0 {
		return OrderPending
	}

	allDelivered, allReady, anyCooking := true, true, false
	for _, it := range items {
		switch it.Status {
		case ItemDelivered:
		case ItemReady:
			allDelivered = false
		case ItemCooking:
			allDelivered, allReady, anyCooking = false, false, true
		default:
			allDelivered, allReady = false, false
		}
	}

	switch {
	case allDelivered:
		return OrderDelivered
	case allReady:
		return OrderReady
	}

	switch prev {
	case OrderPending:
		if anyCooking {
			return OrderCooking
		}
		return OrderPending
	case OrderReady, OrderDelivered:
		// no longer every item is done: fall back to kitchen progress
		if anyCooking {
			return OrderCooking
		}
		return OrderPending
	}
	return prev
}
