package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/restaurant_orders/internal/service"
	"github.com/Skotchmaster/restaurant_orders/pkg/logging"
	middleware "github.com/Skotchmaster/restaurant_orders/pkg/middleware/auth"
	"github.com/labstack/echo/v4"
)

type AuthHTTP struct {
	Svc          *service.AuthService
	SecureCookie bool
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "login_error", "invalid body", err)
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(l, "login_failed", err)
	}

	c.SetCookie(&http.Cookie{
		Name:     middleware.AccessCookie,
		Value:    res.AccessToken,
		Path:     "/",
		Expires:  res.ExpiresAt,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	l.Info("login_successful", "user_id", res.User.UID, "role", res.User.Role)
	return c.JSON(http.StatusOK, res)
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{Name: middleware.AccessCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	return c.NoContent(http.StatusNoContent)
}
