package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Skotchmaster/restaurant_orders/internal/bus"
	"github.com/Skotchmaster/restaurant_orders/internal/domain"
	"github.com/Skotchmaster/restaurant_orders/internal/store"
)

type AppendRequest struct {
	TableID string
	OrderID string
	Items   domain.PendingItems
}

type TakeoutRequest struct {
	CustomerName string
	Items        domain.PendingItems
}

// resolveItems turns pending lines into order items priced from the menu.
// Item ids are assigned later, per attempt.
func (c *Coordinator) resolveItems(ctx context.Context, restaurantID string, pending domain.PendingItems) ([]domain.OrderItem, error) {
	lines := pending.Lines()
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: no items to send", ErrValidation)
	}

	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if l.ProductID == "" {
			return nil, fmt.Errorf("%w: product_id required", ErrValidation)
		}
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
		}
		ids = append(ids, l.ProductID)
	}

	products, err := c.Store.GetProducts(ctx, restaurantID, ids)
	if err != nil {
		return nil, fromStore(err, "load products")
	}

	out := make([]domain.OrderItem, 0, len(lines))
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: product %s", ErrNotFound, l.ProductID)
		}
		if !p.Active {
			return nil, fmt.Errorf("%w: %s is not on the menu right now", ErrInvalidState, p.Name)
		}
		out = append(out, domain.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  l.Quantity,
			Note:      strings.TrimSpace(l.Note),
			Status:    domain.ItemPending,
			Category:  p.Category,
		})
	}
	return out, nil
}

func (c *Coordinator) stamp(tmpl []domain.OrderItem) []domain.OrderItem {
	out := make([]domain.OrderItem, len(tmpl))
	for i, it := range tmpl {
		it.ID = c.newID()
		out[i] = it
	}
	return out
}

func (c *Coordinator) loadOrder(ctx context.Context, a Actor, id string) (domain.Order, error) {
	o, err := c.Store.GetOrder(ctx, id)
	if err != nil {
		return domain.Order{}, fromStore(err, "order "+id)
	}
	if err := sameRestaurant(a, o.RestaurantID, "order "+id); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func describe(o domain.Order) string {
	if o.Type == domain.Takeout {
		return "takeout order for " + o.CustomerName
	}
	return "order for table " + o.TableNumber
}

// orderWrite builds the versioned write for next, read at version read.
func orderWrite(next domain.Order, read int64) *store.OrderWrite {
	next.Version = read
	return &store.OrderWrite{Order: next}
}

// AppendItems sends items to the kitchen. Addressed by table, it opens a new
// order and occupies the table when the table is free; otherwise it merges
// into the active order. Merging into a ready or delivered order sends it
// back to pending. A paid order takes no more items.
func (c *Coordinator) AppendItems(ctx context.Context, a Actor, req AppendRequest) (domain.Order, error) {
	if err := authorize(a, domain.ActTakeOrder); err != nil {
		return domain.Order{}, err
	}
	if (req.TableID == "") == (req.OrderID == "") {
		return domain.Order{}, fmt.Errorf("%w: exactly one of table_id or order_id is required", ErrValidation)
	}
	tmpl, err := c.resolveItems(ctx, a.RestaurantID, req.Items)
	if err != nil {
		return domain.Order{}, err
	}

	var result domain.Order
	err = c.mutate(ctx, "append_items", func(ctx context.Context) (*plan, error) {
		orderID := req.OrderID
		if req.TableID != "" {
			t, err := c.Store.GetTable(ctx, req.TableID)
			if err != nil {
				return nil, fromStore(err, "table "+req.TableID)
			}
			if err := sameRestaurant(a, t.RestaurantID, "table "+req.TableID); err != nil {
				return nil, err
			}
			if t.CurrentOrderID == "" {
				return c.openDineIn(t, tmpl, &result)
			}
			orderID = t.CurrentOrderID
		}

		o, err := c.loadOrder(ctx, a, orderID)
		if err != nil {
			return nil, err
		}
		if o.Status.Terminal() {
			return nil, fmt.Errorf("%w: cannot add items to %s, it is already %s", ErrInvalidState, describe(o), o.Status)
		}
		if o.Paid() {
			return nil, fmt.Errorf("%w: cannot add items to %s, it was paid with receipt %s", ErrInvalidState, describe(o), o.ReceiptCode)
		}

		added := c.stamp(tmpl)
		next := o.Clone()
		next.Items = append(next.Items, added...)
		if next.Status == domain.OrderReady || next.Status == domain.OrderDelivered {
			next.Status = domain.OrderPending
		}
		next.Status = domain.DeriveOrderStatus(next.Status, next.Items)
		next.Total = domain.ComputeTotal(next.Items)
		next.UpdatedAt = c.now()

		w := orderWrite(next, o.Version)
		w.Added = added
		result = next
		result.Version = o.Version + 1
		return &plan{
			changes: store.ChangeSet{Order: w},
			events:  []bus.Event{bus.OrderEvent(result)},
		}, nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}

func (c *Coordinator) openDineIn(t domain.Table, tmpl []domain.OrderItem, result *domain.Order) (*plan, error) {
	now := c.now()
	o := domain.Order{
		ID:           c.newID(),
		RestaurantID: t.RestaurantID,
		TableID:      t.ID,
		TableNumber:  strconv.Itoa(t.Number),
		Type:         domain.DineIn,
		Items:        c.stamp(tmpl),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	o.Status = domain.DeriveOrderStatus(domain.OrderPending, o.Items)
	o.Total = domain.ComputeTotal(o.Items)

	occ, ok := t.Occupy(o.ID)
	if !ok {
		return nil, fmt.Errorf("%w: table %d is %s without an order", ErrInvalidState, t.Number, t.Status)
	}

	*result = o
	result.Version = 1
	occEvent := occ
	occEvent.Version = t.Version + 1
	return &plan{
		changes: store.ChangeSet{NewOrder: &o, Tables: []domain.Table{occ}},
		events:  []bus.Event{bus.OrderEvent(*result), bus.TableEvent(occEvent, bus.OpUpsert)},
	}, nil
}

// OpenTakeout creates a takeout order. Whether it must be paid before it is
// handed over is fixed from the restaurant setting at this moment.
func (c *Coordinator) OpenTakeout(ctx context.Context, a Actor, req TakeoutRequest) (domain.Order, error) {
	if err := authorize(a, domain.ActTakeOrder); err != nil {
		return domain.Order{}, err
	}
	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		return domain.Order{}, fmt.Errorf("%w: customer name required for takeout", ErrValidation)
	}
	tmpl, err := c.resolveItems(ctx, a.RestaurantID, req.Items)
	if err != nil {
		return domain.Order{}, err
	}
	rest, err := c.Store.GetRestaurant(ctx, a.RestaurantID)
	if err != nil {
		return domain.Order{}, fromStore(err, "restaurant "+a.RestaurantID)
	}

	var result domain.Order
	err = c.mutate(ctx, "open_takeout", func(ctx context.Context) (*plan, error) {
		now := c.now()
		o := domain.Order{
			ID:           c.newID(),
			RestaurantID: rest.ID,
			TableNumber:  domain.TakeoutLabel,
			CustomerName: name,
			Type:         domain.Takeout,
			Items:        c.stamp(tmpl),
			Status:       domain.OrderPending,
			PayBefore:    rest.TakeoutPaymentTiming == domain.PayBefore,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		o.Total = domain.ComputeTotal(o.Items)

		result = o
		result.Version = 1
		return &plan{
			changes: store.ChangeSet{NewOrder: &o},
			events:  []bus.Event{bus.OrderEvent(result)},
		}, nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}

// AdvanceItemStatus moves one item to the next kitchen or service step.
func (c *Coordinator) AdvanceItemStatus(ctx context.Context, a Actor, orderID, itemID string, to domain.ItemStatus) (domain.Order, error) {
	if !to.Valid() {
		return domain.Order{}, fmt.Errorf("%w: %q is not an item status", ErrIllegalTransition, to)
	}
	if err := authorize(a, domain.AdvanceAction(to)); err != nil {
		return domain.Order{}, err
	}

	var result domain.Order
	err := c.mutate(ctx, "advance_item", func(ctx context.Context) (*plan, error) {
		o, err := c.loadOrder(ctx, a, orderID)
		if err != nil {
			return nil, err
		}
		if o.Status.Terminal() {
			return nil, fmt.Errorf("%w: %s is already %s", ErrInvalidState, describe(o), o.Status)
		}
		idx, ok := o.FindItem(itemID)
		if !ok {
			return nil, fmt.Errorf("%w: item %s in %s", ErrNotFound, itemID, describe(o))
		}
		it := o.Items[idx]
		if !domain.CanAdvance(it.Status, to) {
			return nil, fmt.Errorf("%w: cannot move %s from %s to %s", ErrIllegalTransition, it.Name, it.Status, to)
		}

		next := o.Clone()
		next.Items[idx].Status = to
		next.Status = domain.DeriveOrderStatus(o.Status, next.Items)
		next.UpdatedAt = c.now()

		w := orderWrite(next, o.Version)
		w.Updated = []domain.OrderItem{next.Items[idx]}
		result = next
		result.Version = o.Version + 1
		return &plan{
			changes: store.ChangeSet{Order: w},
			events:  []bus.Event{bus.OrderEvent(result)},
		}, nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}

// CancelItem removes an item the kitchen has not started. Paid orders keep
// their items.
func (c *Coordinator) CancelItem(ctx context.Context, a Actor, orderID, itemID string) (domain.Order, error) {
	if err := authorize(a, domain.ActCancelItem); err != nil {
		return domain.Order{}, err
	}

	var result domain.Order
	err := c.mutate(ctx, "cancel_item", func(ctx context.Context) (*plan, error) {
		o, err := c.loadOrder(ctx, a, orderID)
		if err != nil {
			return nil, err
		}
		if o.Status.Terminal() {
			return nil, fmt.Errorf("%w: %s is already %s", ErrInvalidState, describe(o), o.Status)
		}
		idx, ok := o.FindItem(itemID)
		if !ok {
			return nil, fmt.Errorf("%w: item %s in %s", ErrNotFound, itemID, describe(o))
		}
		it := o.Items[idx]
		if o.Paid() {
			return nil, fmt.Errorf("%w: cannot cancel %s from %s, it was paid with receipt %s", ErrInvalidState, it.Name, describe(o), o.ReceiptCode)
		}
		if !domain.CanCancel(it.Status) {
			return nil, fmt.Errorf("%w: cannot cancel %s, the kitchen already has it (%s)", ErrInvalidState, it.Name, it.Status)
		}

		next := o.Clone()
		next.Items = append(next.Items[:idx:idx], next.Items[idx+1:]...)
		next.Status = domain.DeriveOrderStatus(o.Status, next.Items)
		next.Total = domain.ComputeTotal(next.Items)
		next.UpdatedAt = c.now()

		w := orderWrite(next, o.Version)
		w.Removed = []string{it.ID}
		result = next
		result.Version = o.Version + 1
		return &plan{
			changes: store.ChangeSet{Order: w},
			events:  []bus.Event{bus.OrderEvent(result)},
		}, nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}

// CancelOrder abandons an unpaid order and frees its table.
func (c *Coordinator) CancelOrder(ctx context.Context, a Actor, orderID string) (domain.Order, error) {
	if err := authorize(a, domain.ActCancelOrder); err != nil {
		return domain.Order{}, err
	}

	var result domain.Order
	err := c.mutate(ctx, "cancel_order", func(ctx context.Context) (*plan, error) {
		o, err := c.loadOrder(ctx, a, orderID)
		if err != nil {
			return nil, err
		}
		if o.Status.Terminal() {
			return nil, fmt.Errorf("%w: %s is already %s", ErrInvalidState, describe(o), o.Status)
		}
		if o.Paid() {
			return nil, fmt.Errorf("%w: cannot cancel %s, it was paid with receipt %s", ErrInvalidState, describe(o), o.ReceiptCode)
		}

		now := c.now()
		next := o.Clone()
		next.Status = domain.OrderCancelled
		next.UpdatedAt = now
		next.ClosedAt = &now

		cs := store.ChangeSet{Order: orderWrite(next, o.Version)}
		result = next
		result.Version = o.Version + 1
		events := []bus.Event{bus.OrderEvent(result)}

		if o.Type == domain.DineIn && o.TableID != "" {
			freed, ev, err := c.releaseTable(ctx, o)
			if err != nil {
				return nil, err
			}
			if freed != nil {
				cs.Tables = append(cs.Tables, *freed)
				events = append(events, ev)
			}
		}
		return &plan{changes: cs, events: events}, nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}

// releaseTable returns the write that frees o's table, or nil when the table
// is no longer linked to o.
func (c *Coordinator) releaseTable(ctx context.Context, o domain.Order) (*domain.Table, bus.Event, error) {
	t, err := c.Store.GetTable(ctx, o.TableID)
	if err != nil {
		return nil, bus.Event{}, fromStore(err, "table "+o.TableID)
	}
	freed, ok := t.Release(o.ID)
	if !ok {
		return nil, bus.Event{}, nil
	}
	ev := freed
	ev.Version = t.Version + 1
	return &freed, bus.TableEvent(ev, bus.OpUpsert), nil
}
