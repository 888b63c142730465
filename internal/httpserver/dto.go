package httpserver

import (
	"fmt"

	"github.com/Skotchmaster/restaurant_orders/internal/domain"
	"github.com/Skotchmaster/restaurant_orders/internal/service"
	middleware "github.com/Skotchmaster/restaurant_orders/pkg/middleware/auth"
	"github.com/labstack/echo/v4"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AppendItemsRequest struct {
	TableID string               `json:"table_id"`
	OrderID string               `json:"order_id"`
	Items   []domain.PendingLine `json:"items"`
}

type TakeoutRequest struct {
	CustomerName string               `json:"customer_name"`
	Items        []domain.PendingLine `json:"items"`
}

type AdvanceRequest struct {
	Status domain.ItemStatus `json:"status"`
}

type PaymentRequest struct {
	PaymentMethodID string `json:"payment_method_id"`
	AttemptToken    string `json:"attempt_token"`
}

type ResizeRequest struct {
	Count *int `json:"count"`
}

// SettingsRequest replaces the restaurant's payment setup. The method list is
// required so a partial body cannot wipe it.
type SettingsRequest struct {
	TakeoutPaymentTiming domain.PaymentTiming    `json:"takeout_payment_timing"`
	PaymentMethods       *[]domain.PaymentMethod `json:"payment_methods"`
}

type SessionResponse struct {
	UserID       string               `json:"user_id"`
	Name         string               `json:"name"`
	Role         domain.Role          `json:"role"`
	RestaurantID string               `json:"restaurant_id"`
	Landing      domain.View          `json:"landing"`
	Views        map[domain.View]bool `json:"views"`
}

type PaymentResponse struct {
	Receipt  domain.Receipt `json:"receipt"`
	Order    domain.Order   `json:"order"`
	Replayed bool           `json:"replayed"`
}

// pendingItems builds the cart sent with a request. Lines are validated
// here because the cart itself drops empty lines.
func pendingItems(lines []domain.PendingLine) (domain.PendingItems, error) {
	for i, l := range lines {
		if l.ProductID == "" {
			return domain.PendingItems{}, fmt.Errorf("items[%d]: product_id required", i)
		}
		if l.Quantity <= 0 {
			return domain.PendingItems{}, fmt.Errorf("items[%d]: quantity must be > 0", i)
		}
	}
	return domain.NewPendingItems(lines...), nil
}

func actorFrom(c echo.Context) service.Actor {
	get := func(key string) string {
		s, _ := c.Get(key).(string)
		return s
	}
	return service.Actor{
		UserID:       get(middleware.CtxUserID),
		Name:         get(middleware.CtxName),
		Role:         domain.Role(get(middleware.CtxRole)),
		RestaurantID: get(middleware.CtxRestaurantID),
	}
}
