package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"cloud.google.com/go/firestore"
	gpubsub "cloud.google.com/go/pubsub"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/focusnest/webhook-service/internal/clerk"
	"github.com/focusnest/webhook-service/internal/config"
	"github.com/focusnest/webhook-service/internal/delivery"
	"github.com/focusnest/webhook-service/internal/httpapi"
	"github.com/focusnest/webhook-service/internal/user"
	"github.com/focusnest/webhook-service/pkg/logging"
	"github.com/focusnest/webhook-service/pkg/pubsub"
	sharedserver "github.com/focusnest/webhook-service/pkg/server"
)

const serviceName = "webhook-service"

func main() {
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("config error: %w", err))
	}

	logger := logging.NewLogger(serviceName, cfg.LogLevel)

	repo, closeRepo, err := newRepository(ctx, cfg)
	if err != nil {
		panic(err)
	}
	defer closeRepo()

	publisher, closePublisher, err := newPublisher(ctx, cfg)
	if err != nil {
		panic(err)
	}
	defer closePublisher()

	ledger, closeLedger, err := newLedger(ctx, cfg)
	if err != nil {
		panic(err)
	}
	defer closeLedger()

	verifier, err := clerk.NewVerifier(clerk.Config{
		Mode:   clerk.Mode(cfg.Webhook.Mode),
		Secret: cfg.Webhook.Secret,
	})
	if err != nil {
		panic(fmt.Errorf("webhook verifier error: %w", err))
	}
	if cfg.Webhook.Mode == string(clerk.ModeNoop) {
		logger.Warn("webhook signature verification disabled")
	}

	userService := user.NewService(repo, publisher, logger)
	webhooks := httpapi.NewWebhookHandler(verifier, userService, ledger, logger)

	router := sharedserver.NewRouter(serviceName, logger, func(r chi.Router) {
		httpapi.RegisterRoutes(r, webhooks)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("webhook service configured",
		slog.String("datastore", cfg.DataStore),
		slog.String("ledger", cfg.Ledger.Backend),
		slog.Bool("pubsub", cfg.PubSub.Enabled),
	)

	if err := sharedserver.Run(ctx, srv, logger); err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	}
}

func newRepository(ctx context.Context, cfg config.Config) (user.Repository, func(), error) {
	switch cfg.DataStore {
	case config.DataStoreMemory:
		return user.NewMemoryRepository(), func() {}, nil
	case config.DataStorePostgres:
		pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres ping: %w", err)
		}
		return user.NewPostgresRepository(pool), pool.Close, nil
	default:
		client, err := firestore.NewClient(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("firestore client: %w", err)
		}
		return user.NewFirestoreRepository(client, cfg.Firestore.UsersCollection), func() { _ = client.Close() }, nil
	}
}

func newPublisher(ctx context.Context, cfg config.Config) (pubsub.Publisher, func(), error) {
	if !cfg.PubSub.Enabled {
		return pubsub.NoopPublisher{}, func() {}, nil
	}
	client, err := gpubsub.NewClient(ctx, cfg.GCPProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("pubsub client: %w", err)
	}
	publisher := pubsub.NewGooglePublisher(client, cfg.PubSub.Topic, serviceName)
	return publisher, func() {
		publisher.Stop()
		_ = client.Close()
	}, nil
}

func newLedger(ctx context.Context, cfg config.Config) (delivery.Ledger, func(), error) {
	switch cfg.Ledger.Backend {
	case config.LedgerNone:
		return delivery.NopLedger{}, func() {}, nil
	case config.LedgerRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Ledger.RedisAddr,
			Password: cfg.Ledger.RedisPassword,
			DB:       cfg.Ledger.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return delivery.NewRedisLedger(client, cfg.Ledger.TTL), func() { _ = client.Close() }, nil
	default:
		return delivery.NewMemoryLedger(cfg.Ledger.TTL), func() {}, nil
	}
}
