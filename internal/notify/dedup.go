package notify

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers which events already reached the emitters. A marker is
// written only after a successful emit, so an event whose delivery crashed or
// failed midway is always emitted again.
type Deduper interface {
	// Delivered reports whether the event was emitted successfully before.
	Delivered(ctx context.Context, eventID string) (bool, error)
	// MarkDelivered records a successful emit for ttl.
	MarkDelivered(ctx context.Context, eventID string, ttl time.Duration) error
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
}

// keyStore is the part of redis.Cmdable the deduper uses.
type keyStore interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

type RedisDeduper struct {
	client keyStore
	prefix string
}

func NewRedisDeduper(client keyStore) *RedisDeduper {
	return &RedisDeduper{client: client, prefix: "participation:delivered:"}
}

func (d *RedisDeduper) Delivered(ctx context.Context, eventID string) (bool, error) {
	n, err := d.client.Exists(ctx, d.prefix+eventID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *RedisDeduper) MarkDelivered(ctx context.Context, eventID string, ttl time.Duration) error {
	return d.client.Set(ctx, d.prefix+eventID, 1, ttl).Err()
}

// NoopDeduper relies on the outbox row alone.
type NoopDeduper struct{}

func (NoopDeduper) Delivered(context.Context, string) (bool, error) { return false, nil }

func (NoopDeduper) MarkDelivered(context.Context, string, time.Duration) error { return nil }
