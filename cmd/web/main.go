// cmd/web/main.go
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

	"librarium/internal/booklist"
	"librarium/internal/clients"
	"librarium/internal/config"
	"librarium/internal/httpx"
	"librarium/internal/observability"
	"librarium/internal/web"
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
		cfg.Port = "8080"
	}
	observability.InitLogger("web", cfg.LogLevel)
	if err := cfg.ValidateWeb(); err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, "web", cfg.OTLPEndpoint)
	if err != nil {
		slog.Error("failed to init tracing", "err", err)
		os.Exit(1)
	}
	shutdownMetrics, err := observability.InitMetrics(ctx, "web", cfg.OTLPEndpoint)
	if err != nil {
		slog.Error("failed to init metrics", "err", err)
		os.Exit(1)
	}

	catalogClient := clients.NewCatalogClient(cfg.CatalogURL)
	pages := web.NewServer(
		clients.NewSessionClient(cfg.CatalogURL),
		func(token string) booklist.Client { return catalogClient.WithToken(token) },
		web.NewRegistry(cfg.PageSize, 30*time.Minute),
	)

	r := chi.NewRouter()
	r.Use(httpx.RequestID, httpx.AccessLog, httpx.Recover)
	r.Use(httpx.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).Middleware)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	pages.Register(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("starting web front end", "port", cfg.Port, "catalog_url", cfg.CatalogURL)
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
}
