package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEcho() *echo.Echo {
	e := echo.New()
	cfg := DefaultConfig()
	cfg.SkipPaths = []string{"/login"}
	e.Use(Middleware(cfg))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e.GET("/orders", ok)
	e.POST("/orders", ok)
	e.POST("/login", ok)
	return e
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSafeRequestIssuesToken(t *testing.T) {
	t.Parallel()
	rec := serve(newEcho(), httptest.NewRequest(http.MethodGet, "/orders", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	token := rec.Header().Get("X-CSRF-Token")
	require.NotEmpty(t, token)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "XSRF-TOKEN="+token)
}

func TestUnsafeRequests(t *testing.T) {
	t.Parallel()
	e := newEcho()
	const token = "tok-123"

	tests := []struct {
		name  string
		setup func(r *http.Request)
		path  string
		want  int
	}{
		{"matching token", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: token})
			r.Header.Set("X-CSRF-Token", token)
			r.Header.Set("Origin", "http://example.com")
		}, "/orders", http.StatusOK},
		{"missing header", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: token})
			r.Header.Set("Origin", "http://example.com")
		}, "/orders", http.StatusForbidden},
		{"wrong token", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: token})
			r.Header.Set("X-CSRF-Token", "other")
			r.Header.Set("Origin", "http://example.com")
		}, "/orders", http.StatusForbidden},
		{"foreign origin", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: token})
			r.Header.Set("X-CSRF-Token", token)
			r.Header.Set("Origin", "http://evil.example")
		}, "/orders", http.StatusForbidden},
		{"bearer clients pass", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer abc")
		}, "/orders", http.StatusOK},
		{"skipped path", func(r *http.Request) {}, "/login", http.StatusOK},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			tt.setup(req)
			assert.Equal(t, tt.want, serve(e, req).Code)
		})
	}
}
