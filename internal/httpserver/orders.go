package httpserver

import (
	"net/http"
	"strings"

	"github.com/Skotchmaster/restaurant_orders/internal/bus"
	"github.com/Skotchmaster/restaurant_orders/internal/domain"
	"github.com/Skotchmaster/restaurant_orders/internal/service"
	"github.com/Skotchmaster/restaurant_orders/pkg/logging"
	"github.com/labstack/echo/v4"
)

type OrdersHTTP struct {
	Svc *service.Coordinator
}

func (h *OrdersHTTP) Session(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "session.get")
	a := actorFrom(c)
	landing, err := service.LandingView(a.Role)
	if err != nil {
		return fail(l, "session_error", err)
	}
	views := map[domain.View]bool{}
	for _, v := range []domain.View{domain.ViewWaiter, domain.ViewKitchen, domain.ViewAdmin} {
		views[v] = domain.CanEnter(a.Role, v)
	}
	return c.JSON(http.StatusOK, SessionResponse{
		UserID:       a.UserID,
		Name:         a.Name,
		Role:         a.Role,
		RestaurantID: a.RestaurantID,
		Landing:      landing,
		Views:        views,
	})
}

func (h *OrdersHTTP) ListTables(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "tables.list")

	tables, err := h.Svc.ListTables(ctx, actorFrom(c))
	if err != nil {
		return fail(l, "list_tables_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": tables})
}

func (h *OrdersHTTP) ResizeTables(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "tables.resize")

	var req ResizeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "resize_tables_error", "invalid body", err)
	}
	if req.Count == nil {
		return badRequest(l, "resize_tables_error", "count required", nil)
	}

	tables, err := h.Svc.ResizeTables(ctx, actorFrom(c), *req.Count)
	if err != nil {
		return fail(l, "resize_tables_error", err)
	}
	l.Info("resize_tables_success", "count", *req.Count)
	return c.JSON(http.StatusOK, echo.Map{"data": tables})
}

func (h *OrdersHTTP) GetRestaurant(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "restaurant.get")

	r, err := h.Svc.GetRestaurant(ctx, actorFrom(c))
	if err != nil {
		return fail(l, "get_restaurant_error", err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *OrdersHTTP) UpdateSettings(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "restaurant.update")

	var req SettingsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_settings_error", "invalid body", err)
	}
	if req.PaymentMethods == nil {
		return badRequest(l, "update_settings_error", "payment_methods required", nil)
	}

	r, err := h.Svc.UpdateSettings(ctx, actorFrom(c), service.RestaurantSettings{
		TakeoutPaymentTiming: req.TakeoutPaymentTiming,
		PaymentMethods:       *req.PaymentMethods,
	})
	if err != nil {
		return fail(l, "update_settings_error", err)
	}
	l.Info("update_settings_success", "restaurant_id", r.ID)
	return c.JSON(http.StatusOK, r)
}

func (h *OrdersHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.list")

	feed, err := bus.ParseFeed(c.QueryParam("view"))
	if err != nil {
		return badRequest(l, "list_orders_error", err.Error(), err)
	}
	orders, err := h.Svc.ListOrders(ctx, actorFrom(c), feed)
	if err != nil {
		return fail(l, "list_orders_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": orders})
}

func (h *OrdersHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.get")

	o, err := h.Svc.GetOrder(ctx, actorFrom(c), c.Param("id"))
	if err != nil {
		return fail(l, "get_order_error", err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OrdersHTTP) AppendItems(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.append_items")

	var req AppendItemsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "append_items_error", "invalid body", err)
	}
	items, err := pendingItems(req.Items)
	if err != nil {
		return badRequest(l, "append_items_error", err.Error(), err)
	}

	o, err := h.Svc.AppendItems(ctx, actorFrom(c), service.AppendRequest{TableID: req.TableID, OrderID: req.OrderID, Items: items})
	if err != nil {
		return fail(l, "append_items_error", err)
	}

	code := http.StatusOK
	if o.Version == 1 {
		code = http.StatusCreated
	}
	l.Info("append_items_success", "order_id", o.ID, "items", items.Len())
	return c.JSON(code, o)
}

func (h *OrdersHTTP) OpenTakeout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.open_takeout")

	var req TakeoutRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "open_takeout_error", "invalid body", err)
	}
	items, err := pendingItems(req.Items)
	if err != nil {
		return badRequest(l, "open_takeout_error", err.Error(), err)
	}

	o, err := h.Svc.OpenTakeout(ctx, actorFrom(c), service.TakeoutRequest{CustomerName: req.CustomerName, Items: items})
	if err != nil {
		return fail(l, "open_takeout_error", err)
	}
	l.Info("open_takeout_success", "order_id", o.ID)
	return c.JSON(http.StatusCreated, o)
}

func (h *OrdersHTTP) AdvanceItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.advance_item")

	var req AdvanceRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "advance_item_error", "invalid body", err)
	}

	o, err := h.Svc.AdvanceItemStatus(ctx, actorFrom(c), c.Param("id"), c.Param("item"), req.Status)
	if err != nil {
		return fail(l, "advance_item_error", err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OrdersHTTP) CancelItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.cancel_item")

	o, err := h.Svc.CancelItem(ctx, actorFrom(c), c.Param("id"), c.Param("item"))
	if err != nil {
		return fail(l, "cancel_item_error", err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OrdersHTTP) CancelOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.cancel_order")

	o, err := h.Svc.CancelOrder(ctx, actorFrom(c), c.Param("id"))
	if err != nil {
		return fail(l, "cancel_order_error", err)
	}
	l.Info("cancel_order_success", "order_id", o.ID)
	return c.JSON(http.StatusOK, o)
}

func (h *OrdersHTTP) Pay(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.pay")

	var req PaymentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "pay_error", "invalid body", err)
	}
	token := strings.TrimSpace(req.AttemptToken)
	if token == "" {
		token = c.Request().Header.Get("Idempotency-Key")
	}

	res, err := h.Svc.FinalizePayment(ctx, actorFrom(c), service.PaymentRequest{
		OrderID:         c.Param("id"),
		PaymentMethodID: req.PaymentMethodID,
		AttemptToken:    token,
	})
	if err != nil {
		return fail(l, "pay_error", err)
	}

	code := http.StatusCreated
	if res.Replayed {
		code = http.StatusOK
	}
	return c.JSON(code, PaymentResponse{Receipt: res.Receipt, Order: res.Order, Replayed: res.Replayed})
}

func (h *OrdersHTTP) Dispatch(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.dispatch")

	o, err := h.Svc.Dispatch(ctx, actorFrom(c), c.Param("id"))
	if err != nil {
		return fail(l, "dispatch_error", err)
	}
	l.Info("dispatch_success", "order_id", o.ID)
	return c.JSON(http.StatusOK, o)
}
