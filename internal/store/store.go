// Package store defines the persistence contract of the coordinator and an
// in-memory implementation of it.
package store

import (
	"context"
	"errors"

	"github.com/Skotchmaster/restaurant_orders/internal/domain"
)

var (
	ErrNotFound               = errors.New("record not found")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrDuplicate              = errors.New("duplicate record")
)

// OrderWrite updates an existing order. Order.Version is the version the
// writer read; the store rejects the write if it has moved on. Item rows are
// written individually by id.
type OrderWrite struct {
	Order   domain.Order
	Added   []domain.OrderItem
	Updated []domain.OrderItem
	Removed []string
}

// ChangeSet is committed atomically: either every write lands or none does.
// Every written order and table gets Version+1; inserted ones get version 1.
type ChangeSet struct {
	NewOrder     *domain.Order
	Order        *OrderWrite
	Tables       []domain.Table
	NewTables    []domain.Table
	DeleteTables []domain.Table
	Receipt      *domain.Receipt
}

func (cs ChangeSet) Empty() bool {
	return cs.NewOrder == nil && cs.Order == nil && len(cs.Tables) == 0 &&
		len(cs.NewTables) == 0 && len(cs.DeleteTables) == 0 && cs.Receipt == nil
}

type OrderFilter struct {
	Statuses []domain.OrderStatus
	Type     domain.OrderType
	Limit    int
}

type Store interface {
	GetRestaurant(ctx context.Context, id string) (domain.Restaurant, error)
	GetTable(ctx context.Context, id string) (domain.Table, error)
	ListTables(ctx context.Context, restaurantID string) ([]domain.Table, error)
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	ListOrders(ctx context.Context, restaurantID string, f OrderFilter) ([]domain.Order, error)
	GetReceiptByOrder(ctx context.Context, orderID string) (domain.Receipt, error)
	GetReceiptByCode(ctx context.Context, restaurantID, code string) (domain.Receipt, error)
	ListReceipts(ctx context.Context, restaurantID string, limit int) ([]domain.Receipt, error)
	GetProducts(ctx context.Context, restaurantID string, ids []string) (map[string]domain.Product, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	Commit(ctx context.Context, cs ChangeSet) error
}

// Directory is the write side of the collaborator records the coordinator
// only reads: restaurants, menu products and staff accounts.
type Directory interface {
	PutRestaurant(ctx context.Context, r domain.Restaurant) error
	PutProducts(ctx context.Context, ps ...domain.Product) error
	PutUser(ctx context.Context, u domain.User) error
}
