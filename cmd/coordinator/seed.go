package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Skotchmaster/restaurant_orders/internal/domain"
	"github.com/Skotchmaster/restaurant_orders/internal/service"
	"github.com/Skotchmaster/restaurant_orders/internal/store"
	"github.com/Skotchmaster/restaurant_orders/pkg/hash"
)

const (
	demoRestaurantID = "demo"
	demoTables       = 10
)

// seedDemo creates a demo restaurant with staff for every role, a small menu
// and its tables. It does nothing if the restaurant already exists.
func seedDemo(ctx context.Context, st store.Store, dir store.Directory, coord *service.Coordinator, password string, log *slog.Logger) error {
	if _, err := st.GetRestaurant(ctx, demoRestaurantID); err == nil {
		log.Info("seed_skipped", "restaurant_id", demoRestaurantID)
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("seed: %w", err)
	}

	err := dir.PutRestaurant(ctx, domain.Restaurant{
		ID:                   demoRestaurantID,
		Name:                 "Sabor Criollo",
		Currency:             "PEN",
		TakeoutPaymentTiming: domain.PayBefore,
		PaymentMethods: []domain.PaymentMethod{
			{ID: "pm-cash", Name: "Efectivo", Type: domain.MethodCash, IsActive: true},
			{ID: "pm-card", Name: "Tarjeta", Type: domain.MethodCard, IsActive: true},
			{ID: "pm-yape", Name: "Yape", Type: domain.MethodQR, IsActive: true, PhoneNumber: "999888777"},
		},
	})
	if err != nil {
		return fmt.Errorf("seed restaurant: %w", err)
	}

	menu := []domain.Product{
		{ID: "demo-lomo", Name: "Lomo Saltado", Price: 3000, Category: "Fondos"},
		{ID: "demo-aji", Name: "Aji de Gallina", Price: 2500, Category: "Fondos"},
		{ID: "demo-ceviche", Name: "Ceviche", Price: 3500, Category: "Entradas"},
		{ID: "demo-causa", Name: "Causa Limena", Price: 1800, Category: "Entradas"},
		{ID: "demo-inca", Name: "Inca Kola", Price: 800, Category: "Bebidas"},
		{ID: "demo-chicha", Name: "Chicha Morada", Price: 600, Category: "Bebidas"},
	}
	for i := range menu {
		menu[i].RestaurantID = demoRestaurantID
		menu[i].Active = true
	}
	if err := dir.PutProducts(ctx, menu...); err != nil {
		return fmt.Errorf("seed products: %w", err)
	}

	pw, err := hash.HashPassword(password)
	if err != nil {
		return fmt.Errorf("seed password: %w", err)
	}
	for _, r := range []domain.Role{domain.RoleOwner, domain.RoleAdmin, domain.RoleWaiter, domain.RoleKitchen} {
		u := domain.User{
			UID:          "demo-" + string(r),
			Email:        string(r) + "@demo.local",
			Role:         r,
			RestaurantID: demoRestaurantID,
			DisplayName:  string(r),
			PasswordHash: pw,
		}
		if err := dir.PutUser(ctx, u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.Email, err)
		}
	}

	owner := service.Actor{UserID: "demo-owner", Role: domain.RoleOwner, RestaurantID: demoRestaurantID}
	if _, err := coord.ResizeTables(ctx, owner, demoTables); err != nil {
		return fmt.Errorf("seed tables: %w", err)
	}

	log.Info("seed_done", "restaurant_id", demoRestaurantID, "tables", demoTables, "products", len(menu))
	return nil
}
