// Shiftbot - cross-chain swap assistant server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/shiftbot/internal/api"
	"github.com/ashureev/shiftbot/internal/chat"
	"github.com/ashureev/shiftbot/internal/config"
	"github.com/ashureev/shiftbot/internal/engine"
	"github.com/ashureev/shiftbot/internal/exchange"
	"github.com/ashureev/shiftbot/internal/identity"
	"github.com/ashureev/shiftbot/internal/middleware"
	"github.com/ashureev/shiftbot/internal/monitor"
	"github.com/ashureev/shiftbot/internal/store"
	"github.com/ashureev/shiftbot/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Initialize services.
	exClient := exchange.NewClient(exchange.Options{
		BaseURL:        cfg.Exchange.BaseURL,
		Secret:         cfg.Exchange.Secret,
		AffiliateID:    cfg.Exchange.AffiliateID,
		CommissionRate: cfg.Exchange.CommissionRate,
		Timeout:        cfg.Exchange.Timeout,
	})
	catalog := exchange.NewCatalog(exClient, cfg.Exchange.CatalogTTL)
	eng := engine.New(repo, exClient, catalog, nil)
	cm := chat.NewConnectionManager()

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, exClient, catalog, eng)
	healthHandler := api.NewHealthHandler(repo, exClient)
	wsHandler := chat.NewWebSocketHandler(eng, repo, cm, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware(repo, cfg.IsDevelopment()))

	healthHandler.RegisterHealth(r)
	baseHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/chat", wsHandler.ServeHTTP)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // WebSocket connections stay open indefinitely
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start background workers.
	swapMonitor := monitor.NewSwapMonitor(repo, exClient, cm, cfg.Monitor.SwapInterval, cfg.Exchange.Timeout)
	go swapMonitor.Run(ctx)

	alertEvaluator := monitor.NewAlertEvaluator(repo, exClient, cm, cfg.Monitor.AlertInterval)
	go alertEvaluator.Run(ctx)

	rateTracker := monitor.NewRateTracker(repo, exClient, cfg.Monitor.TrackedPairs, cfg.Monitor.TrackerInterval)
	go rateTracker.Run(ctx)

	store.StartRetentionWorker(ctx, repo, cfg.Monitor.Retention, cfg.Monitor.SweepInterval)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
