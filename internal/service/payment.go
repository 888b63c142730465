package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/restaurant_orders/internal/bus"
	"github.com/Skotchmaster/restaurant_orders/internal/domain"
	"github.com/Skotchmaster/restaurant_orders/internal/store"
	"github.com/Skotchmaster/restaurant_orders/pkg/logging"
)

type PaymentRequest struct {
	OrderID         string
	PaymentMethodID string
	// AttemptToken is chosen by the client per payment attempt and recorded
	// on the receipt.
	AttemptToken string
}

type PaymentResult struct {
	Receipt domain.Receipt
	Order   domain.Order
	// Replayed is set when the order had already been paid and the existing
	// receipt is returned unchanged.
	Replayed bool
}

// FinalizePayment closes the bill of an order: it writes the receipt, records
// the payment on the order and, depending on the order type, completes the
// order and frees its table. Calling it again for a paid order returns the
// original receipt.
func (c *Coordinator) FinalizePayment(ctx context.Context, a Actor, req PaymentRequest) (PaymentResult, error) {
	if err := authorize(a, domain.ActFinalize); err != nil {
		return PaymentResult{}, err
	}
	if req.OrderID == "" {
		return PaymentResult{}, fmt.Errorf("%w: order_id required", ErrValidation)
	}
	if req.PaymentMethodID == "" {
		return PaymentResult{}, fmt.Errorf("%w: payment_method_id required", ErrValidation)
	}
	l := logging.FromContext(ctx).With("order_id", req.OrderID)

	var result PaymentResult
	err := c.mutate(ctx, "finalize_payment", func(ctx context.Context) (*plan, error) {
		o, err := c.Store.GetOrder(ctx, req.OrderID)
		if errors.Is(err, store.ErrNotFound) || (err == nil && o.RestaurantID != a.RestaurantID) {
			return nil, fmt.Errorf("%w: order %s does not exist", ErrNoActiveOrder, req.OrderID)
		}
		if err != nil {
			return nil, fromStore(err, "order "+req.OrderID)
		}

		existing, err := c.Store.GetReceiptByOrder(ctx, o.ID)
		switch {
		case err == nil:
			result = PaymentResult{Receipt: existing, Order: o, Replayed: true}
			return nil, nil
		case !errors.Is(err, store.ErrNotFound):
			return nil, fromStore(err, "receipt for order "+o.ID)
		}

		if o.Status.Terminal() {
			return nil, fmt.Errorf("%w: %s is already %s", ErrNoActiveOrder, describe(o), o.Status)
		}
		if len(o.Items) == 0 {
			return nil, fmt.Errorf("%w: %s has nothing to pay", ErrNoActiveOrder, describe(o))
		}

		rest, err := c.Store.GetRestaurant(ctx, o.RestaurantID)
		if err != nil {
			return nil, fromStore(err, "restaurant "+o.RestaurantID)
		}
		method, ok := rest.Method(req.PaymentMethodID)
		if !ok {
			return nil, fmt.Errorf("%w: unknown payment method %s", ErrInvalidPaymentMethod, req.PaymentMethodID)
		}
		if !method.IsActive {
			return nil, fmt.Errorf("%w: %s is not accepted right now", ErrInvalidPaymentMethod, method.Name)
		}

		now := c.now()
		code, err := newReceiptCode(now)
		if err != nil {
			return nil, fmt.Errorf("generate receipt code: %w", err)
		}
		rc := domain.Receipt{
			ID:            c.newID(),
			RestaurantID:  o.RestaurantID,
			OrderID:       o.ID,
			TableNumber:   o.TableNumber,
			Items:         o.Snapshot(),
			Total:         domain.ComputeTotal(o.Items),
			PaymentMethod: method.Name,
			ClosedBy:      a.label(),
			ClosedAt:      now,
			Code:          strings.ToUpper(code),
			AttemptToken:  req.AttemptToken,
		}

		next := o.Clone()
		next.PaymentMethod = method.Name
		next.ReceiptCode = rc.Code
		next.UpdatedAt = now
		// pay-before takeout keeps cooking until it is dispatched
		if o.Type == domain.DineIn || !o.PayBefore {
			next.Status = domain.OrderCompleted
			next.ClosedAt = &now
		}

		cs := store.ChangeSet{Order: orderWrite(next, o.Version), Receipt: &rc}
		out := next
		out.Version = o.Version + 1
		events := []bus.Event{bus.OrderEvent(out), bus.ReceiptEvent(rc)}

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

		result = PaymentResult{Receipt: rc, Order: out}
		return &plan{changes: cs, events: events}, nil
	})
	if err != nil {
		return PaymentResult{}, err
	}
	if result.Replayed {
		l.Info("payment_replayed", "receipt_code", result.Receipt.Code, "attempt_token", req.AttemptToken)
	} else {
		l.Info("payment_finalized", "receipt_code", result.Receipt.Code, "total", result.Receipt.Total, "method", result.Receipt.PaymentMethod)
	}
	return result, nil
}

// Dispatch hands a paid takeout order to the customer.
func (c *Coordinator) Dispatch(ctx context.Context, a Actor, orderID string) (domain.Order, error) {
	if err := authorize(a, domain.ActDispatch); err != nil {
		return domain.Order{}, err
	}

	var result domain.Order
	err := c.mutate(ctx, "dispatch", func(ctx context.Context) (*plan, error) {
		o, err := c.loadOrder(ctx, a, orderID)
		if err != nil {
			return nil, err
		}
		if o.Type != domain.Takeout {
			return nil, fmt.Errorf("%w: only takeout orders are dispatched, %s is closed by payment", ErrInvalidState, describe(o))
		}
		if o.Status.Terminal() {
			return nil, fmt.Errorf("%w: %s is already %s", ErrInvalidState, describe(o), o.Status)
		}
		if !o.Paid() {
			return nil, fmt.Errorf("%w: cannot dispatch %s before it is paid", ErrInvalidState, describe(o))
		}

		now := c.now()
		next := o.Clone()
		next.Status = domain.OrderCompleted
		next.UpdatedAt = now
		next.ClosedAt = &now

		result = next
		result.Version = o.Version + 1
		return &plan{
			changes: store.ChangeSet{Order: orderWrite(next, o.Version)},
			events:  []bus.Event{bus.OrderEvent(result)},
		}, nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}
