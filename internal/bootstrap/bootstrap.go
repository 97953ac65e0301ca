// Package bootstrap builds the runtime components shared by the server and
// the cronjob binaries from the loaded configuration.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/Outercircl-dev/backend/internal/config"
	"github.com/Outercircl-dev/backend/internal/logger"
	"github.com/Outercircl-dev/backend/internal/metrics"
	"github.com/Outercircl-dev/backend/internal/notify"
	"github.com/Outercircl-dev/backend/internal/repository/postgres"
)

// OpenDatabase opens and pings the Postgres pool.
func OpenDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database)
	db, err := sql.Open("postgres", cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("Database connection established")
	return db, nil
}

// NewMetrics returns nil when metrics are disabled; every recorder accepts a
// nil *metrics.Metrics.
func NewMetrics(cfg *config.Config) (*metrics.Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if cfg.Metrics.Enabled != nil && !*cfg.Metrics.Enabled {
		return nil, reg
	}
	return metrics.NewWithRegistry(reg), reg
}

func NewStore(db *sql.DB, cfg *config.Config, m *metrics.Metrics) *postgres.Store {
	return postgres.NewStore(db, postgres.TxConfig{
		MaxAttempts: cfg.Participation.MaxTxAttempts,
		Backoff:     cfg.Participation.RetryBackoff(),
	}, m)
}

// Notifier owns the event dispatcher and the connections behind its emitters.
type Notifier struct {
	Dispatcher *notify.Dispatcher
	closers    []func() error
}

// Close releases the Kafka writer and Redis client, if any.
func (n *Notifier) Close() error {
	var errs []error
	for _, c := range n.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// NewNotifier assembles the emitters enabled in cfg behind one dispatcher.
// The log emitter is always present.
func NewNotifier(ctx context.Context, cfg *config.Config, store *postgres.Store, m *metrics.Metrics) (*Notifier, error) {
	n := &Notifier{}
	emitters := notify.MultiEmitter{notify.LogEmitter{}}

	if len(cfg.Kafka.Brokers) > 0 {
		logger.Info("Kafka emitter enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
		k := notify.NewKafkaEmitter(notify.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
		emitters = append(emitters, k)
		n.closers = append(n.closers, k.Close)
	}

	if cfg.SendGrid.APIKey != "" {
		logger.Info("SendGrid emitter enabled", "from", cfg.SendGrid.FromEmail)
		emitters = append(emitters, notify.NewSendGridEmitter(notify.SendGridConfig{
			APIKey:    cfg.SendGrid.APIKey,
			FromEmail: cfg.SendGrid.FromEmail,
			FromName:  cfg.SendGrid.FromName,
		}, store.ProfileRepository))
	}

	var dedup notify.Deduper = notify.NoopDeduper{}
	if cfg.Redis.Addr != "" {
		client := notify.NewRedisClient(notify.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := pingRedis(ctx, client); err != nil {
			client.Close()
			n.Close()
			return nil, err
		}
		logger.Info("Redis deduplication enabled", "addr", cfg.Redis.Addr)
		dedup = notify.NewRedisDeduper(client)
		n.closers = append(n.closers, client.Close)
	}

	n.Dispatcher = notify.NewDispatcher(store.OutboxRepository, emitters, dedup, notify.DispatcherConfig{
		BatchSize:   cfg.Outbox.BatchSize,
		Lease:       cfg.Outbox.Lease(),
		MaxAttempts: int32(cfg.Outbox.MaxAttempts),
		DedupTTL:    cfg.Redis.DedupTTL(),
	}, m)
	return n, nil
}

func pingRedis(ctx context.Context, client *redis.Client) error {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}
