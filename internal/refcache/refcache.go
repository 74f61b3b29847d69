// Package refcache caches network, broker and campaign reference rows in
// Redis with a short TTL. Order creation validates its references on every
// request; the cache keeps that off the database's hot path.
package refcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"leadops_backend/platform/logger"
)

// Entry is a cached reference row.
type Entry struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Active bool      `json:"active"`
}

// Reader loads reference rows from the database on cache miss.
type Reader interface {
	GetNetwork(ctx context.Context, id uuid.UUID) (Entry, error)
	GetBroker(ctx context.Context, id uuid.UUID) (Entry, error)
	GetCampaign(ctx context.Context, id uuid.UUID) (Entry, error)
	ListNetworks(ctx context.Context) ([]Entry, error)
	ListBrokers(ctx context.Context) ([]Entry, error)
	ListCampaigns(ctx context.Context) ([]Entry, error)
}

const (
	kindNetwork  = "network"
	kindBroker   = "broker"
	kindCampaign = "campaign"
)

// Cache is a read-through Redis cache over a Reader. Redis being down
// degrades to direct database reads, never to request failures.
type Cache struct {
	rdb    *redis.Client
	reader Reader
	ttl    time.Duration
	log    *logger.Logger
}

// New creates a cache with the given TTL.
func New(rdb *redis.Client, reader Reader, ttl time.Duration, log *logger.Logger) *Cache {
	return &Cache{rdb: rdb, reader: reader, ttl: ttl, log: log}
}

// Network resolves a client network by id.
func (c *Cache) Network(ctx context.Context, id uuid.UUID) (Entry, error) {
	return c.get(ctx, kindNetwork, id, c.reader.GetNetwork)
}

// Broker resolves a client broker by id.
func (c *Cache) Broker(ctx context.Context, id uuid.UUID) (Entry, error) {
	return c.get(ctx, kindBroker, id, c.reader.GetBroker)
}

// Campaign resolves a campaign by id.
func (c *Cache) Campaign(ctx context.Context, id uuid.UUID) (Entry, error) {
	return c.get(ctx, kindCampaign, id, c.reader.GetCampaign)
}

// Warm preloads all reference rows concurrently. Called at startup; a
// failure is logged and tolerated.
func (c *Cache) Warm(ctx context.Context) error {
	if c.rdb == nil {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.warmKind(gctx, kindNetwork, c.reader.ListNetworks) })
	g.Go(func() error { return c.warmKind(gctx, kindBroker, c.reader.ListBrokers) })
	g.Go(func() error { return c.warmKind(gctx, kindCampaign, c.reader.ListCampaigns) })
	return g.Wait()
}

// Invalidate drops one cached entry, e.g. after an admin edit.
func (c *Cache) Invalidate(ctx context.Context, kind string, id uuid.UUID) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, key(kind, id)).Err()
}

func (c *Cache) get(ctx context.Context, kind string, id uuid.UUID, load func(context.Context, uuid.UUID) (Entry, error)) (Entry, error) {
	if c.rdb == nil {
		return load(ctx, id)
	}
	k := key(kind, id)
	raw, err := c.rdb.Get(ctx, k).Bytes()
	if err == nil {
		var entry Entry
		if jsonErr := json.Unmarshal(raw, &entry); jsonErr == nil {
			return entry, nil
		}
		// Corrupt payload: fall through to the database and rewrite.
	} else if !errors.Is(err, redis.Nil) {
		c.log.Warn("reference cache read failed, falling back to database", "kind", kind, "error", err)
	}

	entry, err := load(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	c.store(ctx, k, entry)
	return entry, nil
}

func (c *Cache) warmKind(ctx context.Context, kind string, list func(context.Context) ([]Entry, error)) error {
	entries, err := list(ctx)
	if err != nil {
		return fmt.Errorf("warm %s cache: %w", kind, err)
	}
	for _, entry := range entries {
		c.store(ctx, key(kind, entry.ID), entry)
	}
	c.log.Info("reference cache warmed", "kind", kind, "entries", len(entries))
	return nil
}

func (c *Cache) store(ctx context.Context, k string, entry Entry) {
	if c.rdb == nil {
		return
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, k, raw, c.ttl).Err(); err != nil {
		c.log.Warn("reference cache write failed", "key", k, "error", err)
	}
}

func key(kind string, id uuid.UUID) string {
	return "refcache:" + kind + ":" + id.String()
}
