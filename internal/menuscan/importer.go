package menuscan

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Skotchmaster/restaurant_orders/internal/domain"
	"github.com/Skotchmaster/restaurant_orders/internal/store"
	"github.com/google/uuid"
)

const (
	defaultName     = "Sin nombre"
	defaultCategory = "Otros"
)

type scanner interface {
	Scan(ctx context.Context, filename string, content io.Reader) ([]Candidate, error)
}

// Importer stores scanned dishes as draft products. Drafts stay off the menu
// until an admin reviews and activates them.
type Importer struct {
	scan  scanner
	dir   store.Directory
	log   *slog.Logger
	newID func() string
}

func NewImporter(c *Client, dir store.Directory, log *slog.Logger) *Importer {
	return &Importer{scan: c, dir: dir, log: log.With("component", "menu_import"), newID: uuid.NewString}
}

func (im *Importer) Import(ctx context.Context, restaurantID, filename string, r io.Reader) ([]domain.Product, error) {
	candidates, err := im.scan.Scan(ctx, filename, r)
	if err != nil {
		im.log.Warn("menu_scan_error", "restaurant_id", restaurantID, "file", filename, "error", err)
		return nil, err
	}

	products := make([]domain.Product, 0, len(candidates))
	for _, c := range candidates {
		products = append(products, im.draft(restaurantID, c))
	}
	if len(products) == 0 {
		return products, nil
	}
	if err := im.dir.PutProducts(ctx, products...); err != nil {
		return nil, fmt.Errorf("save scanned products: %w", err)
	}
	im.log.Info("menu_imported", "restaurant_id", restaurantID, "file", filename, "products", len(products))
	return products, nil
}

func (im *Importer) draft(restaurantID string, c Candidate) domain.Product {
	p := domain.Product{
		ID:           im.newID(),
		RestaurantID: restaurantID,
		Name:         strings.TrimSpace(c.Name),
		Description:  strings.TrimSpace(c.Description),
		Category:     strings.TrimSpace(c.Category),
		Price:        c.Price.Minor(),
	}
	if p.Name == "" {
		p.Name = defaultName
	}
	if p.Category == "" {
		p.Category = defaultCategory
	}
	return p
}
