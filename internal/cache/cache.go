package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"eventsphere/internal/domain"
)

// EventCache is a Redis-backed implementation of domain.EventCache. Entries
// are advisory: every failure is logged and swallowed so the store stays
// authoritative and a broken cache never blocks a read or write.
type EventCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func New(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *EventCache {
	return &EventCache{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *EventCache) GetEvent(ctx context.Context, id string) (*domain.Event, bool) {
	var event domain.Event
	if !c.get(ctx, itemKey(id), &event) {
		return nil, false
	}
	return &event, true
}

func (c *EventCache) SetEvent(ctx context.Context, event *domain.Event) {
	c.set(ctx, itemKey(event.ID), event)
}

func (c *EventCache) GetList(ctx context.Context, params domain.ListParams) ([]*domain.Event, bool) {
	return c.getEvents(ctx, listKey(params))
}

func (c *EventCache) SetList(ctx context.Context, params domain.ListParams, events []*domain.Event) {
	c.set(ctx, listKey(params), events)
}

func (c *EventCache) GetSearch(ctx context.Context, filters domain.SearchFilters) ([]*domain.Event, bool) {
	return c.getEvents(ctx, searchKey(filters))
}

func (c *EventCache) SetSearch(ctx context.Context, filters domain.SearchFilters, events []*domain.Event) {
	c.set(ctx, searchKey(filters), events)
}

func (c *EventCache) GetByOrganizer(ctx context.Context, organizerID string) ([]*domain.Event, bool) {
	return c.getEvents(ctx, organizerKey(organizerID))
}

func (c *EventCache) SetByOrganizer(ctx context.Context, organizerID string, events []*domain.Event) {
	c.set(ctx, organizerKey(organizerID), events)
}

func (c *EventCache) GetByTag(ctx context.Context, tagID string) ([]*domain.Event, bool) {
	return c.getEvents(ctx, tagKey(tagID))
}

func (c *EventCache) SetByTag(ctx context.Context, tagID string, events []*domain.Event) {
	c.set(ctx, tagKey(tagID), events)
}

func (c *EventCache) InvalidateEvent(ctx context.Context, eventID string) {
	if err := c.rdb.Del(ctx, itemKey(eventID)).Err(); err != nil {
		c.logger.Warn("cache invalidate failed", "key", itemKey(eventID), "error", err)
	}
}

// InvalidateLists purges the list and search classes. Their key space is
// derived from arbitrary query shapes and cannot be enumerated, so the whole
// prefix is scanned.
func (c *EventCache) InvalidateLists(ctx context.Context) {
	c.purgePattern(ctx, listPrefix+"*")
	c.purgePattern(ctx, searchPrefix+"*")
}

func (c *EventCache) InvalidateOrganizer(ctx context.Context, organizerID string) {
	if err := c.rdb.Del(ctx, organizerKey(organizerID)).Err(); err != nil {
		c.logger.Warn("cache invalidate failed", "key", organizerKey(organizerID), "error", err)
	}
}

func (c *EventCache) InvalidateTags(ctx context.Context, tagIDs []string) {
	for _, tagID := range tagIDs {
		if err := c.rdb.Del(ctx, tagKey(tagID)).Err(); err != nil {
			c.logger.Warn("cache invalidate failed", "key", tagKey(tagID), "error", err)
		}
	}
}

// InvalidateAllTags purges the whole tag class. Reconciliation uses it: the
// sweep works from status-only rows and does not know which tags an event
// carries.
func (c *EventCache) InvalidateAllTags(ctx context.Context) {
	c.purgePattern(ctx, tagPrefix+"*")
}

func (c *EventCache) getEvents(ctx context.Context, key string) ([]*domain.Event, bool) {
	var events []*domain.Event
	if !c.get(ctx, key, &events) {
		return nil, false
	}
	return events, true
}

func (c *EventCache) get(ctx context.Context, key string, dest any) bool {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(b, dest); err != nil {
		c.logger.Warn("cache entry corrupt, dropping", "key", key, "error", err)
		_ = c.rdb.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *EventCache) set(ctx context.Context, key string, value any) {
	b, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

func (c *EventCache) purgePattern(ctx context.Context, pattern string) {
	iter := c.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.Warn("cache purge failed", "key", iter.Val(), "error", err)
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("cache scan failed", "pattern", pattern, "error", err)
	}
}
