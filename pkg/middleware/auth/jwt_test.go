package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Skotchmaster/restaurant_orders/pkg/tokens"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-jwt-secret")

func ok(c echo.Context) error { return c.NoContent(http.StatusOK) }

func newToken(t *testing.T, role string) string {
	t.Helper()
	tok, err := tokens.NewAccessToken("u-1", role, "r-1", "Ana", time.Now().Add(time.Minute), secret)
	require.NoError(t, err)
	return tok
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	e := echo.New()
	tests := []struct {
		name    string
		prepare func(r *http.Request)
		code    int
	}{
		{name: "missing", prepare: func(r *http.Request) {}, code: http.StatusUnauthorized},
		{name: "bearer", prepare: func(r *http.Request) {
			r.Header.Set(echo.HeaderAuthorization, "Bearer "+newToken(t, "waiter"))
		}, code: http.StatusOK},
		{name: "cookie", prepare: func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: AccessCookie, Value: newToken(t, "kitchen")})
		}, code: http.StatusOK},
		{name: "garbage", prepare: func(r *http.Request) {
			r.Header.Set(echo.HeaderAuthorization, "Bearer nope")
		}, code: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := Middleware(secret)(ok)(c)
			if tt.code == http.StatusOK {
				require.NoError(t, err)
				assert.Equal(t, "u-1", c.Get(CtxUserID))
				assert.Equal(t, "r-1", c.Get(CtxRestaurantID))
				return
			}
			he, isHTTP := err.(*echo.HTTPError)
			require.True(t, isHTTP)
			assert.Equal(t, tt.code, he.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.Set(CtxRole, "kitchen")

	err := RequireRole([]string{"admin", "owner"})(ok)(c)
	he, isHTTP := err.(*echo.HTTPError)
	require.True(t, isHTTP)
	assert.Equal(t, http.StatusForbidden, he.Code)

	require.NoError(t, RequireRole([]string{"kitchen"})(ok)(c))
}
