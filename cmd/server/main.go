/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the overtime approval engine server: load
  configuration, build the logger, open the store, wire the machine and
  start HTTP with graceful shutdown.

STARTUP SEQUENCE:
  1. Parse the -config flag
  2. Load viper configuration (file + OVERTIME_ env overrides)
  3. Build the zap logger
  4. Open the SQLite store
  5. Wire quota calculator, notifier and machine
  6. Start the server; SIGINT/SIGTERM drains for up to 30s

EXAMPLES:
  ./server -config=./config.yaml
  OVERTIME_DB_PATH=":memory:" ./server

SEE ALSO:
  - config/config.go: Configuration shape and defaults
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/overtime-engine/api"
	"github.com/warp/overtime-engine/config"
	"github.com/warp/overtime-engine/logger"
	"github.com/warp/overtime-engine/notify"
	"github.com/warp/overtime-engine/overtime"
	"github.com/warp/overtime-engine/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		zlog.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	quota := &overtime.QuotaCalculator{
		Store:            store,
		Directory:        store,
		HoursPerEmployee: decimal.NewFromFloat(cfg.Quota.HoursPerEmployee),
	}
	machine := &overtime.Machine{
		Store:     store,
		Directory: store,
		Quota:     quota,
		Notifier:  notify.NewLogNotifier(zlog.Named("notify")),
		Log:       zlog,
	}

	handler := api.NewHandler(machine, store, zlog)
	router := api.NewRouter(handler, cfg.Server.CORS.AllowOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zlog.Info("server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("db", cfg.DB.Path))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zlog.Fatal("server forced to shutdown", zap.Error(err))
	}

	zlog.Info("server stopped")
}
