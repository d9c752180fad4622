/*
main.go - HTTP server entry point

PURPOSE:
  Initializes and starts the inventory ledger HTTP server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, then INVENTORY_* variables)
  2. Build the logger
  3. Open the SQLite store (runs migrations)
  4. Create API handler and router
  5. Start the low-stock monitor
  6. Serve until SIGINT/SIGTERM

CONFIGURATION:
  INVENTORY_DB_PATH              SQLite path (default: inventory.db)
                                 Use ":memory:" for an in-memory database
  INVENTORY_PORT                 HTTP port (default: 8080)
  INVENTORY_LOCK_TIMEOUT         Max wait for the store write lock (default: 5s)
  INVENTORY_LOW_STOCK_THRESHOLD  Default low-stock threshold (default: 5)
  INVENTORY_ALERT_INTERVAL       Low-stock monitor interval (default: 1h)
  INVENTORY_ALERTS_ENABLED       Run the low-stock monitor (default: true)
  INVENTORY_LOG_LEVEL            debug, info, warn, error (default: info)
  INVENTORY_LOG_FORMAT           text or json (default: text)
  INVENTORY_CORS_ORIGINS         Comma separated allowed origins

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (SHUTDOWN_TIMEOUT)
  3. Stop the monitor
  4. Close database connection

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/warp/inventory-ledger/api"
	"github.com/warp/inventory-ledger/config"
	"github.com/warp/inventory-ledger/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log, err := config.NewLogger(cfg)
	if err != nil {
		logrus.Fatalf("Failed to build logger: %v", err)
	}

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("Server failed")
	}
	log.Info("Server stopped")
}

func run(cfg config.Config, log *logrus.Logger) error {
	store, err := sqlite.New(cfg.DBPath, sqlite.WithLockTimeout(cfg.LockTimeout))
	if err != nil {
		return errors.Wrap(err, "initialize database")
	}
	defer store.Close()

	handler := api.NewHandler(store, log)
	handler.LowStockThreshold = cfg.LowStockThreshold

	monitor := api.NewLowStockMonitor(handler.Analytics, log)
	monitor.CheckInterval = cfg.AlertInterval
	monitor.Threshold = cfg.LowStockThreshold
	monitor.Enabled = cfg.AlertsEnabled
	monitor.Start()
	defer monitor.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.NewRouter(handler, cfg.CORSOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"port": cfg.Port,
			"db":   cfg.DBPath,
		}).Infof("Server starting on http://localhost:%d/api", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return errors.Wrap(server.Shutdown(shutdownCtx), "shutdown")
	})

	return g.Wait()
}
