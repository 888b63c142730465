package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Skotchmaster/restaurant_orders/internal/bus"
	"github.com/Skotchmaster/restaurant_orders/internal/domain"
	"github.com/Skotchmaster/restaurant_orders/internal/store"
	"github.com/Skotchmaster/restaurant_orders/pkg/logging"
	"github.com/google/uuid"
)

const (
	DefaultMaxRetries = 5
	DefaultBackoff    = 15 * time.Millisecond
)

// Actor is the authenticated staff member behind a call.
type Actor struct {
	UserID       string
	Name         string
	Role         domain.Role
	RestaurantID string
}

func (a Actor) label() string {
	if a.Name != "" {
		return a.Name
	}
	return a.UserID
}

// Coordinator is the only write path for tables, orders and receipts.
type Coordinator struct {
	Store      store.Store
	Directory  store.Directory
	Bus        bus.Publisher
	MaxRetries int
	Backoff    time.Duration
	Now        func() time.Time
	NewID      func() string
}

// NewCoordinator picks up st as the Directory too when it implements it.
func NewCoordinator(st store.Store, pub bus.Publisher) *Coordinator {
	dir, _ := st.(store.Directory)
	return &Coordinator{
		Store:      st,
		Directory:  dir,
		Bus:        pub,
		MaxRetries: DefaultMaxRetries,
		Backoff:    DefaultBackoff,
		Now:        func() time.Time { return time.Now().UTC() },
		NewID:      uuid.NewString,
	}
}

func (c *Coordinator) now() time.Time {
	if c.Now == nil {
		return time.Now().UTC()
	}
	return c.Now()
}

func (c *Coordinator) newID() string {
	if c.NewID == nil {
		return uuid.NewString()
	}
	return c.NewID()
}

func authorize(a Actor, act domain.Action) error {
	if !domain.Allowed(a.Role, act) {
		return fmt.Errorf("%w: role %q may not %s", ErrForbidden, a.Role, act)
	}
	return nil
}

// sameRestaurant hides records of other restaurants behind NotFound.
func sameRestaurant(a Actor, restaurantID, what string) error {
	if a.RestaurantID != restaurantID {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return nil
}

// publish hands committed changes to the bus. The write is already durable,
// so a bus failure is logged and not returned.
func (c *Coordinator) publish(ctx context.Context, evs []bus.Event) {
	if c.Bus == nil || len(evs) == 0 {
		return
	}
	if err := c.Bus.Publish(ctx, evs...); err != nil {
		logging.FromContext(ctx).Warn("bus_publish_error", "events", len(evs), "error", err)
	}
}
