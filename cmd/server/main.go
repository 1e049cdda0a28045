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

	"github.com/Shivam13602/Chatpulse/internal/config"
	"github.com/Shivam13602/Chatpulse/internal/domain"
	"github.com/Shivam13602/Chatpulse/internal/gateway"
	"github.com/Shivam13602/Chatpulse/internal/logging"
	"github.com/Shivam13602/Chatpulse/internal/registry"
	"github.com/Shivam13602/Chatpulse/internal/relay"
	"github.com/Shivam13602/Chatpulse/internal/retry"
	"github.com/Shivam13602/Chatpulse/internal/sentiment"
	"github.com/Shivam13602/Chatpulse/internal/server"
	"github.com/Shivam13602/Chatpulse/internal/store"
	"github.com/Shivam13602/Chatpulse/internal/version"
)

// in-memory store keeps more history than the API ever serves, so capacity is
// independent of MessageHistoryLimit
const memoryStoreCapacity = 1000

var dialPolicy = retry.Policy{
	MaxAttempts:    5,
	InitialBackoff: 500 * time.Millisecond,
	OnRetry: func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Store connection failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
	},
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// setupStore builds the message store for the configured backend. Remote
// backends are dialed with retry and wrapped in a circuit breaker.
func setupStore(ctx context.Context, cfg *config.Config) (domain.MessageStore, func()) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		client, err := retry.Do(ctx, dialPolicy, retry.AlwaysRetry, func() (*goredis.Client, error) {
			return store.NewRedisClient(ctx, cfg.RedisURL)
		})
		if err != nil {
			logging.WithError(err).Error("Failed to connect to Redis")
			os.Exit(1)
		}
		cleanup := func() { _ = client.Close() }
		return store.NewBreakerStore(store.NewRedisStore(client)), cleanup

	case config.BackendPostgres:
		pool, err := retry.Do(ctx, dialPolicy, retry.AlwaysRetry, func() (*pgxpool.Pool, error) {
			return store.ConnectPostgres(ctx, cfg.DatabaseURL)
		})
		if err != nil {
			logging.WithError(err).Error("Failed to connect to PostgreSQL")
			os.Exit(1)
		}

		pg := store.NewPostgresStore(pool)
		if err := pg.Init(ctx); err != nil {
			logging.WithError(err).Error("Failed to initialize message schema")
			os.Exit(1)
		}
		return store.NewBreakerStore(pg), pool.Close

	default:
		return store.NewMemoryStore(memoryStoreCapacity), func() {}
	}
}

func runGracefulShutdown(srv *server.Server, engine *relay.Engine, peers *gateway.Peers) <-chan struct{} {
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

		// drain the relay before closing sockets so in-flight broadcasts finish
		engine.Stop()
		peers.CloseAll("server shutting down")

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Get().Version)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	messageStore, closeStore := setupStore(ctx, cfg)
	cancel()
	defer closeStore()

	reg := registry.New(clock)
	peers := gateway.NewPeers(clock)
	scorer := sentiment.NewDefaultScorer()

	engine := relay.NewEngine(reg, messageStore, scorer, peers, clock,
		relay.WithDeliveryTimeout(cfg.DeliveryTimeout))

	limits := gateway.NewConnectionLimits(cfg.MaxConnections, cfg.MaxConnectionsPerIP, cfg.ConnRatePerSecond, cfg.ConnRateBurst)
	wsHandler := gateway.NewHandler(reg, peers, engine, limits)

	srv := server.NewServer(cfg, wsHandler, messageStore, reg, peers, clock)

	done := runGracefulShutdown(srv, engine, peers)

	slog.Info("Server starting", "port", cfg.Port, "store_backend", cfg.StoreBackend)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
