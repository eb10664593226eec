// Package cache holds the Redis-backed read-through cache for event records
// on the registration hot path. Only immutable-for-admission fields are
// cached (start time, capacity, price); the capacity decision itself never
// reads the cache, it goes through the ledger.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/geocoder89/admithub/internal/domain/event"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type EventSource interface {
	GetByID(ctx context.Context, id string) (event.Event, error)
}

// Events decorates an EventSource with Redis. Redis being down degrades to
// plain reads, never to request failures.
type Events struct {
	rdb  *redis.Client
	next EventSource
	ttl  time.Duration
	log  *slog.Logger
}

func NewEvents(cfg Config, next EventSource, log *slog.Logger) *Events {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return &Events{
		rdb:  rdb,
		next: next,
		ttl:  ttl,
		log:  log,
	}
}

func key(id string) string {
	return "event:v1:" + id
}

func (c *Events) GetByID(ctx context.Context, id string) (event.Event, error) {
	raw, err := c.rdb.Get(ctx, key(id)).Bytes()

	if err == nil {
		var e event.Event
		if jsonErr := json.Unmarshal(raw, &e); jsonErr == nil {
			return e, nil
		}
		// poisoned entry: drop it and fall through
		_ = c.rdb.Del(ctx, key(id)).Err()
	} else if err != redis.Nil && c.log != nil {
		c.log.WarnContext(ctx, "event cache read failed", "err", err)
	}

	e, err := c.next.GetByID(ctx, id)

	if err != nil {
		return event.Event{}, err
	}

	if raw, jsonErr := json.Marshal(e); jsonErr == nil {
		if setErr := c.rdb.Set(ctx, key(id), raw, c.ttl).Err(); setErr != nil && c.log != nil {
			c.log.WarnContext(ctx, "event cache write failed", "err", setErr)
		}
	}

	return e, nil
}

// Ping checks Redis connectivity for readiness probes.
func (c *Events) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Events) Close() error {
	return c.rdb.Close()
}
