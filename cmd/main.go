package main

import (
	"bufio"
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"simplist/internal/cache"
	"simplist/internal/config"
	"simplist/internal/controller"
	"simplist/internal/database"
	"simplist/internal/engine"
	"simplist/internal/hub"
	"simplist/internal/ident"
	"simplist/internal/queue"
	"simplist/internal/routes"
	"simplist/internal/store"
	"simplist/internal/store/memory"
	"simplist/internal/store/postgres"
	"simplist/internal/worker"
	"simplist/pkg/logger"
)

func main() {
	loadEnvFile(".env")

	ctx := context.Background()
	cfg := config.Get()

	var lists store.ListStore
	var items store.ItemStore
	if cfg.DatabaseURL != "" {
		db := database.DB(ctx)
		if db == nil {
			logger.Error(ctx, "Database not available; exiting")
			os.Exit(1)
		}
		if err := database.Migrate(ctx); err != nil {
			logger.Error(ctx, "Schema migration failed", "error", err)
			os.Exit(1)
		}
		pg := postgres.New(db)
		lists, items = pg.Lists(), pg.Items()
	} else {
		logger.Warn(ctx, "DATABASE_URL not set; using in-memory store (data is not durable)")
		mem := memory.New()
		lists, items = mem.Lists(), mem.Items()
	}

	// Pre-warm Redis (optional; cache works lazily)
	cache.Client(ctx)
	snapshots := cache.NewSnapshots()

	// Pre-warm Kafka producer and ensure the journal topic exists
	queue.Producer(ctx)
	queue.EnsureTopic(ctx)

	h := hub.New(cfg.HubSendBuffer)
	eng := engine.New(engine.Config{
		Lists:   lists,
		Items:   items,
		Hub:     h,
		Cache:   snapshots,
		Journal: queue.EventJournal{},
		ListID:  ident.FromScheme(cfg.IDScheme),
		ItemID:  ident.FromScheme(cfg.IDScheme),
	})

	// Journal consumer: cache refresh and orphan reconciliation
	workerCtx, stopWorker := context.WithCancel(ctx)
	go worker.Run(workerCtx, eng, snapshots)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      routes.Router(controller.New(eng, h, snapshots)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		logger.Info(ctx, "HTTP server listening", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "Shutting down server")
	stopWorker()
	h.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Server shutdown error", "error", err)
	}
	logger.Info(ctx, "Server stopped")
}

// loadEnvFile reads a .env file and sets env vars (only if not already set).
func loadEnvFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		if strings.HasPrefix(val, `"`) && strings.HasSuffix(val, `"`) {
			val = strings.Trim(val, `"`)
		} else if strings.HasPrefix(val, "'") && strings.HasSuffix(val, "'") {
			val = strings.Trim(val, "'")
		}
		if key != "" && os.Getenv(key) == "" {
			_ = os.Setenv(key, val)
		}
	}
}
