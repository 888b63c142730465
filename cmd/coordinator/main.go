package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/Skotchmaster/restaurant_orders/internal/bus"
	"github.com/Skotchmaster/restaurant_orders/internal/httpserver"
	"github.com/Skotchmaster/restaurant_orders/internal/menuscan"
	"github.com/Skotchmaster/restaurant_orders/internal/receiptindex"
	"github.com/Skotchmaster/restaurant_orders/internal/repo"
	"github.com/Skotchmaster/restaurant_orders/internal/service"
	"github.com/Skotchmaster/restaurant_orders/pkg/config"
	"github.com/Skotchmaster/restaurant_orders/pkg/db"
	"github.com/Skotchmaster/restaurant_orders/pkg/logging"
	"github.com/Skotchmaster/restaurant_orders/pkg/middleware/csrf"
	loggingmw "github.com/Skotchmaster/restaurant_orders/pkg/middleware/logging"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(log)

	config.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")
	if err := cfg.Validate(); err != nil {
		log.Error("config_invalid", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("coordinator_failed", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown_complete")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	gdb, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			log.Error("db_close_error", "error", err)
		}
	}()

	rp := &repo.GormRepo{DB: gdb}
	if err := rp.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	origin := cfg.InstanceID
	if origin == "" {
		origin = uuid.NewString()
	}
	hub := bus.NewHub(cfg.BusBuffer)
	relay := newRelay(cfg, hub, gdb, rp, origin, log)
	defer func() {
		if err := relay.Close(); err != nil {
			log.Error("relay_close_error", "error", err)
		}
	}()

	var wg sync.WaitGroup
	background := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				log.Error("background_stopped", "task", name, "error", err)
			}
		}()
	}
	background("relay", relay.Run)

	publishers := bus.Multi{bus.Broadcaster{Hub: hub, Relay: relay}}

	var searcher httpserver.ReceiptSearcher
	if cfg.ESURL != "" {
		if ix, err := openReceiptIndex(ctx, cfg, log); err != nil {
			log.Warn("receipt_search_disabled", "error", err)
		} else {
			indexer := receiptindex.NewIndexer(ix, 0, log)
			background("receipt_indexer", indexer.Run)
			publishers = append(publishers, indexer)
			searcher = ix
		}
	}

	coord := service.NewCoordinator(rp, publishers)
	coord.MaxRetries = cfg.MutationMaxRetries
	coord.Backoff = cfg.MutationBackoff

	if cfg.SeedDemo {
		if err := seedDemo(ctx, rp, rp, coord, cfg.SeedPassword, log); err != nil {
			return err
		}
	}

	var importer httpserver.MenuImporter
	if cfg.MenuScanURL != "" {
		importer = menuscan.NewImporter(menuscan.NewClient(cfg.MenuScanURL), rp, log)
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), middleware.CORS())
	e.Use(loggingmw.RequestLogger(log))

	csrfCfg := csrf.DefaultConfig()
	csrfCfg.Secure = cfg.CookieSecure
	csrfCfg.SkipPaths = []string{"/health/live", "/health/ready", "/api/v1/auth/login"}
	e.Use(csrf.Middleware(csrfCfg))

	auth := &service.AuthService{Store: rp, JWTSecret: cfg.JWTSecret, TokenTTL: cfg.TokenTTL}
	httpserver.Register(e, &httpserver.Deps{
		OrdersHandler:   &httpserver.OrdersHTTP{Svc: coord},
		AuthHandler:     &httpserver.AuthHTTP{Svc: auth, SecureCookie: cfg.CookieSecure},
		ReceiptsHandler: &httpserver.ReceiptsHTTP{Svc: coord, Search: searcher},
		MenuHandler:     &httpserver.MenuHTTP{Importer: importer},
		LiveHandler:     &httpserver.LiveHTTP{Svc: coord, Hub: hub},
		JWTSecret:       cfg.JWTSecret,
		Ready:           sqlDB.PingContext,
	})

	srv := &http.Server{
		Addr:        ":" + strconv.Itoa(cfg.ServerPort),
		Handler:     e,
		ReadTimeout: 10 * time.Second,
		// no WriteTimeout: it would cut live websocket streams
		IdleTimeout: 60 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info("http_listening", "addr", srv.Addr, "bus", cfg.BusTransport, "origin", origin)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	}
	log.Info("shutting_down")

	// closing the hub ends every live stream; Shutdown does not wait for
	// hijacked connections
	hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server_shutdown_error", "error", err)
	}
	wg.Wait()
	return nil
}

func openDB(ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	if cfg.DatabaseURL != "" {
		return db.Open(ctx, cfg.DatabaseURL)
	}
	return db.OpenSQLite(cfg.SQLitePath)
}

func newRelay(cfg config.Config, hub *bus.Hub, gdb *gorm.DB, rp *repo.GormRepo, origin string, log *slog.Logger) bus.Relay {
	switch cfg.BusTransport {
	case "kafka":
		return bus.NewKafkaRelay(hub, cfg.KafkaBrokers, cfg.KafkaTopic, origin, log)
	case "amqp":
		return bus.NewAMQPRelay(hub, cfg.AMQPURL, cfg.AMQPExchange, origin, log)
	case "postgres":
		return bus.NewPostgresRelay(hub, gdb, cfg.DatabaseURL, bus.DefaultNotifyChannel, origin, rp, log)
	}
	return bus.Local{}
}

func openReceiptIndex(ctx context.Context, cfg config.Config, log *slog.Logger) (*receiptindex.Index, error) {
	client, err := receiptindex.NewClient(ctx, cfg.ESURL, cfg.ESUser, cfg.ESPassword, log)
	if err != nil {
		return nil, err
	}
	ix := receiptindex.New(client, cfg.ESIndex)
	if err := ix.Ensure(ctx); err != nil {
		return nil, err
	}
	return ix, nil
}
