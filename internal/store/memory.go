package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Skotchmaster/restaurant_orders/internal/domain"
)

// Memory is a Store held in process memory. It enforces the same version and
// uniqueness rules as the SQL store.
type Memory struct {
	mu          sync.RWMutex
	restaurants map[string]domain.Restaurant
	tables      map[string]domain.Table
	orders      map[string]domain.Order
	receipts    map[string]domain.Receipt
	products    map[string]domain.Product
	users       map[string]domain.User

	commitDelay atomic.Int64
	conflicts   atomic.Int64
}

func NewMemory() *Memory {
	return &Memory{
		restaurants: map[string]domain.Restaurant{},
		tables:      map[string]domain.Table{},
		orders:      map[string]domain.Order{},
		receipts:    map[string]domain.Receipt{},
		products:    map[string]domain.Product{},
		users:       map[string]domain.User{},
	}
}

// SetCommitDelay makes every Commit wait d before applying, which widens the
// window between a writer's read and its write.
func (m *Memory) SetCommitDelay(d time.Duration) { m.commitDelay.Store(int64(d)) }

// Conflicts counts commits rejected with ErrConcurrentModification.
func (m *Memory) Conflicts() int64 { return m.conflicts.Load() }

func (m *Memory) PutRestaurant(_ context.Context, r domain.Restaurant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restaurants[r.ID] = r.Clone()
	return nil
}

func (m *Memory) PutProducts(_ context.Context, ps ...domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range ps {
		m.products[p.ID] = p
	}
	return nil
}

func (m *Memory) PutUser(_ context.Context, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[strings.ToLower(u.Email)] = u
	return nil
}

func (m *Memory) GetRestaurant(_ context.Context, id string) (domain.Restaurant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.restaurants[id]
	if !ok {
		return domain.Restaurant{}, fmt.Errorf("restaurant %s: %w", id, ErrNotFound)
	}
	return r.Clone(), nil
}

func (m *Memory) GetTable(_ context.Context, id string) (domain.Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[id]
	if !ok {
		return domain.Table{}, fmt.Errorf("table %s: %w", id, ErrNotFound)
	}
	return t, nil
}

func (m *Memory) ListTables(_ context.Context, restaurantID string) ([]domain.Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Table, 0)
	for _, t := range m.tables {
		if t.RestaurantID == restaurantID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (m *Memory) GetOrder(_ context.Context, id string) (domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.Order{}, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return o.Clone(), nil
}

func (m *Memory) ListOrders(_ context.Context, restaurantID string, f OrderFilter) ([]domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Order, 0)
	for _, o := range m.orders {
		if o.RestaurantID != restaurantID {
			continue
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, o.Status) {
			continue
		}
		if f.Type != "" && o.Type != f.Type {
			continue
		}
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *Memory) GetReceiptByOrder(_ context.Context, orderID string) (domain.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.receipts[orderID]
	if !ok {
		return domain.Receipt{}, fmt.Errorf("receipt for order %s: %w", orderID, ErrNotFound)
	}
	return r.Clone(), nil
}

func (m *Memory) GetReceiptByCode(_ context.Context, restaurantID, code string) (domain.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.receipts {
		if r.RestaurantID == restaurantID && strings.EqualFold(r.Code, code) {
			return r.Clone(), nil
		}
	}
	return domain.Receipt{}, fmt.Errorf("receipt %s: %w", code, ErrNotFound)
}

func (m *Memory) ListReceipts(_ context.Context, restaurantID string, limit int) ([]domain.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Receipt, 0)
	for _, r := range m.receipts {
		if r.RestaurantID == restaurantID {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClosedAt.After(out[j].ClosedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) GetProducts(_ context.Context, restaurantID string, ids []string) (map[string]domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok && p.RestaurantID == restaurantID {
			out[id] = p
		}
	}
	return out, nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[strings.ToLower(email)]
	if !ok {
		return domain.User{}, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	return u, nil
}

func (m *Memory) Commit(ctx context.Context, cs ChangeSet) error {
	if d := time.Duration(m.commitDelay.Load()); d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(cs); err != nil {
		if err == ErrConcurrentModification {
			m.conflicts.Add(1)
		}
		return err
	}
	m.apply(cs)
	return nil
}

func (m *Memory) check(cs ChangeSet) error {
	if cs.NewOrder != nil {
		if _, ok := m.orders[cs.NewOrder.ID]; ok {
			return ErrDuplicate
		}
	}
	if w := cs.Order; w != nil {
		cur, ok := m.orders[w.Order.ID]
		if !ok {
			return ErrNotFound
		}
		if cur.Version != w.Order.Version {
			return ErrConcurrentModification
		}
	}
	for _, t := range cs.Tables {
		cur, ok := m.tables[t.ID]
		if !ok {
			return ErrNotFound
		}
		if cur.Version != t.Version {
			return ErrConcurrentModification
		}
	}
	for _, t := range cs.NewTables {
		if _, ok := m.tables[t.ID]; ok {
			return ErrDuplicate
		}
		for _, cur := range m.tables {
			if cur.RestaurantID == t.RestaurantID && cur.Number == t.Number {
				return ErrConcurrentModification
			}
		}
	}
	for _, t := range cs.DeleteTables {
		cur, ok := m.tables[t.ID]
		if !ok || cur.Version != t.Version || cur.Status != domain.TableFree {
			return ErrConcurrentModification
		}
	}
	if r := cs.Receipt; r != nil {
		if _, ok := m.receipts[r.OrderID]; ok {
			return ErrDuplicate
		}
		for _, cur := range m.receipts {
			if cur.Code == r.Code {
				return ErrDuplicate
			}
		}
	}
	return nil
}

func (m *Memory) apply(cs ChangeSet) {
	if cs.NewOrder != nil {
		o := cs.NewOrder.Clone()
		o.Version = 1
		m.orders[o.ID] = o
	}
	if w := cs.Order; w != nil {
		cur := m.orders[w.Order.ID]
		next := w.Order.Clone()
		next.Items = mergeItems(cur.Items, w)
		next.Version = cur.Version + 1
		m.orders[next.ID] = next
	}
	for _, t := range cs.Tables {
		t.Version = m.tables[t.ID].Version + 1
		m.tables[t.ID] = t
	}
	for _, t := range cs.NewTables {
		t.Version = 1
		m.tables[t.ID] = t
	}
	for _, t := range cs.DeleteTables {
		delete(m.tables, t.ID)
	}
	if cs.Receipt != nil {
		m.receipts[cs.Receipt.OrderID] = cs.Receipt.Clone()
	}
}

// mergeItems applies item-level writes to the stored item list.
func mergeItems(cur []domain.OrderItem, w *OrderWrite) []domain.OrderItem {
	out := make([]domain.OrderItem, 0, len(cur)+len(w.Added))
	for _, it := range cur {
		if slices.Contains(w.Removed, it.ID) {
			continue
		}
		for _, u := range w.Updated {
			if u.ID == it.ID {
				it = u
				break
			}
		}
		out = append(out, it)
	}
	return append(out, w.Added...)
}
