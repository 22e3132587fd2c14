// cmd/catalog/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"

	"librarium/internal/catalog"
	"librarium/internal/circulation"
	"librarium/internal/config"
	"librarium/internal/database"
	"librarium/internal/eventstore"
	"librarium/internal/httpx"
	"librarium/internal/membership"
	"librarium/internal/observability"
	"librarium/internal/session"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	if cfg.Port == "" {
		cfg.Port = "8081"
	}
	observability.InitLogger("catalog", cfg.LogLevel)
	if err := cfg.ValidateCatalog(); err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, "catalog", cfg.OTLPEndpoint)
	if err != nil {
		slog.Error("failed to init tracing", "err", err)
		os.Exit(1)
	}
	shutdownMetrics, err := observability.InitMetrics(ctx, "catalog", cfg.OTLPEndpoint)
	if err != nil {
		slog.Error("failed to init metrics", "err", err)
		os.Exit(1)
	}

	db, err := database.Connect(ctx, database.Config{
		URI:      cfg.DBURI,
		Name:     cfg.DBName,
		Attempts: cfg.DBConnectAttempts,
	})
	if err != nil {
		slog.Error("failed to connect to database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		slog.Error("failed to migrate database", "err", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(cfg, db),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("starting catalog service", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "err", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		slog.Warn("tracing shutdown failed", "err", err)
	}
	if err := shutdownMetrics(shutdownCtx); err != nil {
		slog.Warn("metrics shutdown failed", "err", err)
	}
	slog.Info("catalog service stopped")
}

func newRouter(cfg config.Config, db *sqlx.DB) http.Handler {
	es := eventstore.NewEventStore(db)
	books := catalog.NewHandler(catalog.NewService(db, es))
	loans := circulation.NewHandler(circulation.NewService(es, db))
	members := membership.NewService(es, db)

	r := chi.NewRouter()
	r.Use(httpx.RequestID, httpx.AccessLog, httpx.Recover)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			httpx.JSONError(w, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "database unreachable")
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	r.Route("/v1", func(r chi.Router) {
		limiter := httpx.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		if cfg.TrustProxy {
			limiter.TrustProxy()
		}
		r.Use(limiter.Middleware)
		r.Use(session.Resolve(cfg.JWTSecret, members, httpx.WriteSessionError))

		requireAdmin := session.RequireAdmin(httpx.WriteSessionError)
		books.Register(r, requireAdmin)
		loans.Register(r, session.RequireUser(httpx.WriteSessionError))
		membership.NewHandler(members).Register(r, requireAdmin)
	})
	return r
}
