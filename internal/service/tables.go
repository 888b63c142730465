package service

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/Skotchmaster/restaurant_orders/internal/bus"
	"github.com/Skotchmaster/restaurant_orders/internal/domain"
	"github.com/Skotchmaster/restaurant_orders/internal/store"
	"github.com/Skotchmaster/restaurant_orders/pkg/logging"
)

// TableView is a table as the floor sees it.
type TableView struct {
	domain.Table
	Display domain.TableStatus `json:"display_status"`
}

// ListTables returns the restaurant's tables ordered by number.
func (c *Coordinator) ListTables(ctx context.Context, a Actor) ([]TableView, error) {
	if !a.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrForbidden, a.Role)
	}
	tables, err := c.Store.ListTables(ctx, a.RestaurantID)
	if err != nil {
		return nil, fromStore(err, "list tables")
	}
	active, err := c.Store.ListOrders(ctx, a.RestaurantID, store.OrderFilter{Type: domain.DineIn, Statuses: activeStatuses})
	if err != nil {
		return nil, fromStore(err, "list orders")
	}
	return tableViews(tables, active), nil
}

func tableViews(tables []domain.Table, orders []domain.Order) []TableView {
	byID := make(map[string]*domain.Order, len(orders))
	for i := range orders {
		byID[orders[i].ID] = &orders[i]
	}
	out := make([]TableView, 0, len(tables))
	for _, t := range tables {
		out = append(out, TableView{Table: t, Display: domain.DisplayStatus(t, byID[t.CurrentOrderID])})
	}
	slices.SortFunc(out, func(a, b TableView) int { return a.Number - b.Number })
	return out
}

// ResizeTables sets the number of tables. Growing appends the next numbers;
// shrinking removes the highest numbers and fails without changes if any of
// them is in use.
func (c *Coordinator) ResizeTables(ctx context.Context, a Actor, count int) ([]TableView, error) {
	if err := authorize(a, domain.ActConfigure); err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, fmt.Errorf("%w: table count must be >= 0", ErrValidation)
	}

	err := c.mutate(ctx, "resize_tables", func(ctx context.Context) (*plan, error) {
		tables, err := c.Store.ListTables(ctx, a.RestaurantID)
		if err != nil {
			return nil, fromStore(err, "list tables")
		}
		rp := domain.PlanResize(tables, count)
		if len(rp.Blocked) > 0 {
			nums := make([]string, len(rp.Blocked))
			for i, n := range rp.Blocked {
				nums[i] = strconv.Itoa(n)
			}
			return nil, fmt.Errorf("%w: cannot remove tables %s, they are in use", ErrInvalidState, strings.Join(nums, ", "))
		}

		var p plan
		for _, n := range rp.Add {
			t := domain.Table{ID: c.newID(), RestaurantID: a.RestaurantID, Number: n, Status: domain.TableFree}
			p.changes.NewTables = append(p.changes.NewTables, t)
			t.Version = 1
			p.events = append(p.events, bus.TableEvent(t, bus.OpUpsert))
		}
		for _, t := range rp.Remove {
			p.changes.DeleteTables = append(p.changes.DeleteTables, t)
			p.events = append(p.events, bus.TableEvent(t, bus.OpDelete))
		}
		return &p, nil
	})
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("tables_resized", "restaurant_id", a.RestaurantID, "count", count)
	return c.ListTables(ctx, a)
}
