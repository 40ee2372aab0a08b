package config

import (
	"errors"
	"time"

	"github.com/focusnest/webhook-service/pkg/envconfig"
	"github.com/focusnest/webhook-service/pkg/pubsub"
)

// Datastore backends.
const (
	DataStoreMemory    = "memory"
	DataStoreFirestore = "firestore"
	DataStorePostgres  = "postgres"
)

// Delivery ledger backends.
const (
	LedgerNone   = "none"
	LedgerMemory = "memory"
	LedgerRedis  = "redis"
)

var errMissingDatabaseURL = errors.New("DATABASE_URL is required when DATASTORE=postgres")

type Config struct {
	Port         string `validate:"required"`
	GCPProjectID string `validate:"required"`
	LogLevel     string `validate:"oneof=debug info warn error"`
	DataStore    string `validate:"required,oneof=memory firestore postgres"`
	Webhook      WebhookConfig
	Firestore    FirestoreConfig
	Postgres     PostgresConfig
	Ledger       LedgerConfig
	PubSub       PubSubConfig
}

type WebhookConfig struct {
	Mode   string `validate:"required,oneof=svix noop"`
	Secret string `validate:"required_if=Mode svix"`
}

type FirestoreConfig struct {
	EmulatorHost    string
	UsersCollection string `validate:"required"`
}

type PostgresConfig struct {
	URL string
}

type LedgerConfig struct {
	Backend       string `validate:"required,oneof=none memory redis"`
	RedisAddr     string `validate:"required_if=Backend redis"`
	RedisPassword string
	RedisDB       int           `validate:"gte=0"`
	TTL           time.Duration `validate:"gt=0"`
}

type PubSubConfig struct {
	Enabled bool
	Topic   string `validate:"required_if=Enabled true"`
}

func Load() (Config, error) {
	redisDB, err := envconfig.GetInt("REDIS_DB", 0)
	if err != nil {
		return Config{}, err
	}
	ttl, err := envconfig.GetDuration("DELIVERY_TTL", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	pubsubEnabled, err := envconfig.GetBool("PUBSUB_ENABLED", false)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:         envconfig.Get("PORT", "8080"),
		GCPProjectID: envconfig.Get("GCP_PROJECT_ID", "focusnest-dev"),
		LogLevel:     envconfig.Get("LOG_LEVEL", "info"),
		DataStore:    envconfig.Get("DATASTORE", DataStoreFirestore),
		Webhook: WebhookConfig{
			Mode:   envconfig.Get("CLERK_WEBHOOK_MODE", "svix"),
			Secret: envconfig.Get("CLERK_WEBHOOK_SECRET", ""),
		},
		Firestore: FirestoreConfig{
			EmulatorHost:    envconfig.Get("FIRESTORE_EMULATOR_HOST", ""),
			UsersCollection: envconfig.Get("FIRESTORE_USERS_COLLECTION", "users"),
		},
		Postgres: PostgresConfig{
			URL: envconfig.Get("DATABASE_URL", ""),
		},
		Ledger: LedgerConfig{
			Backend:       envconfig.Get("DELIVERY_LEDGER", LedgerMemory),
			RedisAddr:     envconfig.Get("REDIS_ADDR", "localhost:6379"),
			RedisPassword: envconfig.Get("REDIS_PASSWORD", ""),
			RedisDB:       redisDB,
			TTL:           ttl,
		},
		PubSub: PubSubConfig{
			Enabled: pubsubEnabled,
			Topic:   envconfig.Get("PUBSUB_TOPIC", pubsub.TopicUserEvents),
		},
	}
	if err := envconfig.Validate(cfg); err != nil {
		return cfg, err
	}
	if cfg.DataStore == DataStorePostgres && cfg.Postgres.URL == "" {
		return cfg, errMissingDatabaseURL
	}
	return cfg, nil
}
