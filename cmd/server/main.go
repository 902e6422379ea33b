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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kashishh18/bachelor-league/internal/config"
	"github.com/kashishh18/bachelor-league/internal/database"
	"github.com/kashishh18/bachelor-league/internal/jobs"
	"github.com/kashishh18/bachelor-league/internal/logging"
	"github.com/kashishh18/bachelor-league/internal/prediction"
	"github.com/kashishh18/bachelor-league/internal/realtime"
	"github.com/kashishh18/bachelor-league/internal/redis"
	"github.com/kashishh18/bachelor-league/internal/scheduler"
	"github.com/kashishh18/bachelor-league/internal/server"
)

const sessionTTL = 7 * 24 * time.Hour

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrations(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(cfg *config.Config) *goredis.Client {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func runGracefulShutdown(srv *server.Server, maintainer *realtime.Maintainer, runner *scheduler.Runner, registry *realtime.Registry) <-chan struct{} {
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

		// Stop the periodic publishers before tearing down connections.
		maintainer.Stop()
		runner.Shutdown()
		registry.Close()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	pool := setupDB(cfg)
	defer pool.Close()

	redisClient := setupRedis(cfg)
	defer func() { _ = redisClient.Close() }()

	sessions := redis.NewSessionStore(redisClient, sessionTTL)
	store := database.NewStore(pool)
	predictor := prediction.NewClient(cfg.PredictionURL)

	registry := realtime.NewRegistry(clock)
	broadcaster := realtime.NewBroadcaster(registry, clock)
	maintainer := realtime.NewMaintainer(registry, broadcaster, clock)

	runner := scheduler.NewRunner(clock)
	appJobs := jobs.New(store, predictor, broadcaster, sessions, clock)
	if err := appJobs.RegisterAll(runner); err != nil {
		slog.Error("Failed to register tasks", "error", err)
		os.Exit(1)
	}

	maintainer.Start()
	runner.Start()

	srv := server.NewServer(cfg, clock, registry, broadcaster, runner, sessions, pool, redisClient)

	done := runGracefulShutdown(srv, maintainer, runner, registry)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
