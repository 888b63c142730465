package domain

import "slices"

// ComputeTotal returns the sum of price * quantity over items.
func ComputeTotal(items []OrderItem) int64 {
	var total int64
	for _, it := range items {
		total += it.Price * int64(it.Quantity)
	}
	return total
}

func (o Order) Active() bool { return !o.Status.Terminal() }

func (o Order) Paid() bool { return o.ReceiptCode != "" }

func (o Order) FindItem(id string) (int, bool) {
	idx := slices.IndexFunc(o.Items, func(it OrderItem) bool { return it.ID == id })
	return idx, idx >= 0
}

// Clone returns a copy that shares no slices or pointers with o.
func (o Order) Clone() Order {
	c := o
	c.Items = slices.Clone(o.Items)
	if o.ClosedAt != nil {
		t := *o.ClosedAt
		c.ClosedAt = &t
	}
	return c
}

// Snapshot copies the billable lines of the order for a receipt.
func (o Order) Snapshot() []ReceiptItem {
	out := make([]ReceiptItem, 0, len(o.Items))
	for _, it := range o.Items {
		out = append(out, ReceiptItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Note:      it.Note,
			Category:  it.Category,
		})
	}
	return out
}

func (r Receipt) Clone() Receipt {
	c := r
	c.Items = slices.Clone(r.Items)
	return c
}

func (r Restaurant) Clone() Restaurant {
	c := r
	c.PaymentMethods = slices.Clone(r.PaymentMethods)
	return c
}

// KitchenVisible reports whether the kitchen queue shows the order. Takeout
// orders that must be paid up front stay hidden until a receipt exists.
func KitchenVisible(o Order) bool {
	if o.Status != OrderPending && o.Status != OrderCooking {
		return false
	}
	if o.Type == Takeout && o.PayBefore && !o.Paid() {
		return false
	}
	return true
}

// FloorVisible reports whether waiter and admin views show the order.
func FloorVisible(o Order) bool { return o.Active() }
