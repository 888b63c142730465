package httpserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/Skotchmaster/restaurant_orders/internal/domain"
	"github.com/Skotchmaster/restaurant_orders/internal/service"
	"github.com/Skotchmaster/restaurant_orders/pkg/logging"
	"github.com/labstack/echo/v4"
)

// ReceiptSearcher is the full-text receipt index.
type ReceiptSearcher interface {
	Search(ctx context.Context, restaurantID, q string, from, size int) (int64, []domain.Receipt, error)
}

// MenuImporter turns an uploaded menu into draft products.
type MenuImporter interface {
	Import(ctx context.Context, restaurantID, filename string, r io.Reader) ([]domain.Product, error)
}

// pageWindow turns a 1-based page into the offset and limit of a search.
func pageWindow(page, size int) (from, limit int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return (page - 1) * size, size
}

type ReceiptsHTTP struct {
	Svc    *service.Coordinator
	Search ReceiptSearcher
}

func queryInt(c echo.Context, name string, def int) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return def
	}
	return v
}

func (h *ReceiptsHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "receipts.list")

	rs, err := h.Svc.ListReceipts(ctx, actorFrom(c), queryInt(c, "limit", 50))
	if err != nil {
		return fail(l, "list_receipts_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rs})
}

func (h *ReceiptsHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "receipts.get")

	rc, err := h.Svc.GetReceipt(ctx, actorFrom(c), c.Param("code"))
	if err != nil {
		return fail(l, "get_receipt_error", err)
	}
	return c.JSON(http.StatusOK, rc)
}

func (h *ReceiptsHTTP) Find(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "receipts.search")

	a := actorFrom(c)
	if !domain.Allowed(a.Role, domain.ActViewReceipts) {
		return fail(l, "search_receipts_error", fmt.Errorf("%w: role %q may not view receipts", service.ErrForbidden, a.Role))
	}
	if h.Search == nil {
		l.Warn("search_receipts_error", "status", http.StatusServiceUnavailable, "reason", "search index not configured")
		return echo.NewHTTPError(http.StatusServiceUnavailable, "receipt search is not configured")
	}
	q := c.QueryParam("q")
	if q == "" {
		return badRequest(l, "search_receipts_error", "q required", nil)
	}

	from, size := pageWindow(queryInt(c, "page", 1), queryInt(c, "size", 0))
	total, hits, err := h.Search.Search(ctx, a.RestaurantID, q, from, size)
	if err != nil {
		return fail(l, "search_receipts_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total, "data": hits})
}

type MenuHTTP struct {
	Importer MenuImporter
}

func (h *MenuHTTP) Import(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "menu.import")

	a := actorFrom(c)
	if !domain.Allowed(a.Role, domain.ActImportProduct) {
		return fail(l, "menu_import_error", fmt.Errorf("%w: role %q may not import products", service.ErrForbidden, a.Role))
	}
	if h.Importer == nil {
		l.Warn("menu_import_error", "status", http.StatusServiceUnavailable, "reason", "menu scanner not configured")
		return echo.NewHTTPError(http.StatusServiceUnavailable, "menu scanning is not configured")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(l, "menu_import_error", "file required", err)
	}
	f, err := fh.Open()
	if err != nil {
		return badRequest(l, "menu_import_error", "cannot read file", err)
	}
	defer f.Close()

	products, err := h.Importer.Import(ctx, a.RestaurantID, fh.Filename, f)
	if err != nil {
		return fail(l, "menu_import_error", err)
	}
	l.Info("menu_import_success", "products", len(products))
	return c.JSON(http.StatusCreated, echo.Map{"data": products})
}
