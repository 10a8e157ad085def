package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/openmahalla/portalcore/internal/adapter/httpserver"
	"github.com/openmahalla/portalcore/internal/adapter/redis"
	"github.com/openmahalla/portalcore/internal/adapter/upstream"
	"github.com/openmahalla/portalcore/internal/app"
	"github.com/openmahalla/portalcore/internal/domain"
	"github.com/openmahalla/portalcore/internal/fetchcache"
	"github.com/openmahalla/portalcore/internal/platform/config"
	"github.com/openmahalla/portalcore/internal/platform/logging"
	"github.com/openmahalla/portalcore/internal/workflow"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupRedis(ctx context.Context, url string) *goredis.Client {
	client, err := redis.NewClient(ctx, url)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func runGracefulShutdown(srv *httpserver.Server) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	client := upstream.NewClient(cfg.UpstreamBaseURL, cfg.UpstreamToken, cfg.UpstreamTimeout)

	var catalog domain.RegionCatalog = client
	if cfg.RedisURL != "" {
		redisClient := setupRedis(context.Background(), cfg.RedisURL)
		defer func() { _ = redisClient.Close() }()
		catalog = redis.NewCatalogCache(redisClient, client)
		slog.Info("Region catalog backed by Redis")
	}

	cache := fetchcache.New(clockwork.NewRealClock())
	flow := workflow.NewService(client, cache, cfg.ListStaleTime)
	appSvc := app.NewService(flow, cache, catalog, client, cfg.CatalogStaleTime, cfg.ProfileStaleTime)

	srv := httpserver.NewServer(cfg, appSvc)
	done := runGracefulShutdown(srv)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
	slog.Info("Shutdown complete")
}
