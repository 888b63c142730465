package httpserver

import (
	"context"
	"net/http"

	"github.com/Skotchmaster/restaurant_orders/internal/domain"
	middleware "github.com/Skotchmaster/restaurant_orders/pkg/middleware/auth"
	"github.com/labstack/echo/v4"
)

type Deps struct {
	OrdersHandler   *OrdersHTTP
	AuthHandler     *AuthHTTP
	ReceiptsHandler *ReceiptsHTTP
	MenuHandler     *MenuHTTP
	LiveHandler     *LiveHTTP
	JWTSecret       []byte
	// Ready reports whether the service can take traffic.
	Ready func(ctx context.Context) error
}

// requireView admits the roles allowed into dashboard v.
func requireView(v domain.View) echo.MiddlewareFunc {
	return middleware.RequireRole(domain.RolesFor(v))
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": err.Error()})
			}
		}
		return c.NoContent(http.StatusOK)
	})

	v1 := e.Group("/api/v1")
	v1.POST("/auth/login", d.AuthHandler.Login)
	v1.POST("/auth/logout", d.AuthHandler.Logout)

	authed := v1.Group("", middleware.Middleware(d.JWTSecret))
	authed.GET("/session", d.OrdersHandler.Session)
	authed.GET("/restaurant", d.OrdersHandler.GetRestaurant)
	authed.GET("/tables", d.OrdersHandler.ListTables)
	authed.GET("/orders", d.OrdersHandler.ListOrders)
	authed.GET("/orders/:id", d.OrdersHandler.GetOrder)
	authed.GET("/live", d.LiveHandler.Stream)

	// item status is split between kitchen and floor by target status
	authed.POST("/orders/:id/items/:item/status", d.OrdersHandler.AdvanceItem)

	floor := authed.Group("", requireView(domain.ViewWaiter))
	floor.POST("/orders", d.OrdersHandler.AppendItems)
	floor.POST("/orders/takeout", d.OrdersHandler.OpenTakeout)
	floor.DELETE("/orders/:id/items/:item", d.OrdersHandler.CancelItem)
	floor.POST("/orders/:id/cancel", d.OrdersHandler.CancelOrder)
	floor.POST("/orders/:id/payment", d.OrdersHandler.Pay)
	floor.POST("/orders/:id/dispatch", d.OrdersHandler.Dispatch)

	admin := authed.Group("/admin", requireView(domain.ViewAdmin))
	admin.PUT("/tables", d.OrdersHandler.ResizeTables)
	admin.PUT("/restaurant", d.OrdersHandler.UpdateSettings)
	admin.GET("/receipts", d.ReceiptsHandler.List)
	admin.GET("/receipts/search", d.ReceiptsHandler.Find)
	admin.GET("/receipts/:code", d.ReceiptsHandler.Get)
	admin.POST("/menu/import", d.MenuHandler.Import)
}
