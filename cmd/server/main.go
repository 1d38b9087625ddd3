package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiwari-pos/orderengine/internal/catalog"
	"github.com/kiwari-pos/orderengine/internal/composer"
	"github.com/kiwari-pos/orderengine/internal/config"
	"github.com/kiwari-pos/orderengine/internal/database"
	"github.com/kiwari-pos/orderengine/internal/inventory"
	"github.com/kiwari-pos/orderengine/internal/reconcile"
	"github.com/kiwari-pos/orderengine/internal/router"
	"github.com/kiwari-pos/orderengine/internal/service"
	"github.com/kiwari-pos/orderengine/internal/tickets"
	"github.com/kiwari-pos/orderengine/internal/ws"
	"go.uber.org/zap"
)

const (
	sessionIdle   = 2 * time.Hour
	sweepInterval = 5 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(format string) (*zap.Logger, error) {
	if format == "console" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	logger.Info("connected to database")

	queries := database.New(pool)

	// Catalog and stock
	cat := catalog.NewCache(catalog.NewStoreGateway(queries))
	invGateway := inventory.NewGateway(pool, queries, func(db database.DBTX) inventory.Store {
		return database.New(db)
	})
	stock := inventory.NewStock(invGateway)
	if err := stock.Refresh(ctx); err != nil {
		return fmt.Errorf("load stock: %w", err)
	}

	comp := composer.New(cat, inventory.NewValidator(stock), logger)
	rec := reconcile.New(cat, logger)
	sessions := composer.NewRegistry()

	// Push and tickets
	hub := ws.NewHub(logger)
	go hub.Run(ctx)

	var publisher tickets.Publisher = tickets.Nop{}
	if cfg.AMQPURL != "" {
		amqpPub, err := tickets.Dial(cfg.AMQPURL, cfg.TicketExchange, logger)
		if err != nil {
			return fmt.Errorf("connect broker: %w", err)
		}
		defer amqpPub.Close() //nolint:errcheck
		publisher = amqpPub
		logger.Info("publishing tickets", zap.String("exchange", cfg.TicketExchange))
	}

	orders := service.NewOrderService(pool, queries,
		func(db database.DBTX) service.OrderStore { return database.New(db) },
		comp, rec, logger,
		service.WithStockCache(stock),
		service.WithTickets(publisher),
		service.WithPusher(hub),
		service.WithOrderNumberRetries(cfg.OrderNumberRetries),
	)

	go sweepSessions(ctx, sessions, logger)

	r := router.New(cfg, router.Deps{
		Queries:   queries,
		Catalog:   cat,
		Composer:  comp,
		Sessions:  sessions,
		Orders:    orders,
		Stock:     stock,
		Inventory: invGateway,
		Hub:       hub,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// sweepSessions drops finalized and abandoned sessions.
func sweepSessions(ctx context.Context, sessions *composer.Registry, logger *zap.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Sweep(sessionIdle); n > 0 {
				logger.Info("swept idle sessions", zap.Int("removed", n))
			}
		}
	}
}
