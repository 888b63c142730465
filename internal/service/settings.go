package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/restaurant_orders/internal/domain"
	"github.com/Skotchmaster/restaurant_orders/pkg/logging"
)

// RestaurantSettings is the part of a restaurant the admin dashboard edits.
// PaymentMethods replaces the whole list.
type RestaurantSettings struct {
	TakeoutPaymentTiming domain.PaymentTiming
	PaymentMethods       []domain.PaymentMethod
}

// GetRestaurant returns the caller's restaurant with its payment methods, so
// every screen can offer the methods that are accepted right now.
func (c *Coordinator) GetRestaurant(ctx context.Context, a Actor) (domain.Restaurant, error) {
	if !a.Role.Valid() {
		return domain.Restaurant{}, fmt.Errorf("%w: unknown role %q", ErrForbidden, a.Role)
	}
	r, err := c.Store.GetRestaurant(ctx, a.RestaurantID)
	if err != nil {
		return domain.Restaurant{}, fromStore(err, "restaurant "+a.RestaurantID)
	}
	return r, nil
}

// UpdateSettings sets the takeout payment timing and the payment methods.
// Open takeout orders keep the timing they were created with; a method
// switched off is refused by the next payment.
func (c *Coordinator) UpdateSettings(ctx context.Context, a Actor, s RestaurantSettings) (domain.Restaurant, error) {
	if err := authorize(a, domain.ActConfigure); err != nil {
		return domain.Restaurant{}, err
	}
	if c.Directory == nil {
		return domain.Restaurant{}, errors.New("restaurant settings are read-only in this deployment")
	}
	methods, err := normalizeMethods(s.PaymentMethods)
	if err != nil {
		return domain.Restaurant{}, err
	}
	if !s.TakeoutPaymentTiming.Valid() {
		return domain.Restaurant{}, fmt.Errorf("%w: takeout payment timing must be %q or %q", ErrValidation, domain.PayBefore, domain.PayAfter)
	}

	r, err := c.Store.GetRestaurant(ctx, a.RestaurantID)
	if err != nil {
		return domain.Restaurant{}, fromStore(err, "restaurant "+a.RestaurantID)
	}
	next := r.Clone()
	next.TakeoutPaymentTiming = s.TakeoutPaymentTiming
	next.PaymentMethods = methods
	if err := c.Directory.PutRestaurant(ctx, next); err != nil {
		return domain.Restaurant{}, fmt.Errorf("save restaurant %s: %w", r.ID, err)
	}

	active := 0
	for _, m := range methods {
		if m.IsActive {
			active++
		}
	}
	logging.FromContext(ctx).Info("restaurant_settings_updated",
		"restaurant_id", r.ID, "by", a.label(), "takeout_timing", next.TakeoutPaymentTiming,
		"methods", len(methods), "active_methods", active)
	return next, nil
}

func normalizeMethods(in []domain.PaymentMethod) ([]domain.PaymentMethod, error) {
	out := make([]domain.PaymentMethod, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for i, m := range in {
		m.ID = strings.TrimSpace(m.ID)
		m.Name = strings.TrimSpace(m.Name)
		m.PhoneNumber = strings.TrimSpace(m.PhoneNumber)
		if m.ID == "" {
			return nil, fmt.Errorf("%w: payment method %d needs an id", ErrValidation, i+1)
		}
		if _, dup := seen[m.ID]; dup {
			return nil, fmt.Errorf("%w: payment method %s listed twice", ErrValidation, m.ID)
		}
		seen[m.ID] = struct{}{}
		if m.Name == "" {
			return nil, fmt.Errorf("%w: payment method %s needs a name", ErrValidation, m.ID)
		}
		if !m.Type.Valid() {
			return nil, fmt.Errorf("%w: payment method %s has unknown type %q", ErrValidation, m.ID, m.Type)
		}
		out = append(out, m)
	}
	return out, nil
}
