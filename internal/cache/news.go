package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/infomap/infomap/internal/model"
)

const newsKeyPrefix = "news:"

// Default response cache timings.
const (
	DefaultNewsTTL       = 4 * time.Hour
	DefaultNewsRetention = 24 * time.Hour
)

// NewsCacheConfig configures a NewsCache.
type NewsCacheConfig struct {
	// TTL is the age after which an entry is treated as absent.
	TTL time.Duration
	// Retention is the physical Redis expiry. Must be >= TTL.
	Retention time.Duration
	// LegacyUntil is the last instant at which the single-field legacy key
	// is consulted on a miss. Zero disables the fallback.
	LegacyUntil time.Time
}

// newsEntry is the stored form: the payload and its write time in unix seconds.
type newsEntry struct {
	Timestamp float64         `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewsCache is the response cache keyed by query fingerprint.
// Freshness is checked lazily on read; Redis expiry only reclaims space.
type NewsCache struct {
	client *redis.Client
	cfg    NewsCacheConfig
	now    func() time.Time
}

// NewNewsCache creates a response cache on top of c.
func (c *Cache) NewNewsCache(cfg NewsCacheConfig) *NewsCache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultNewsTTL
	}
	if cfg.Retention < cfg.TTL {
		cfg.Retention = cfg.TTL
	}
	return &NewsCache{client: c.client, cfg: cfg, now: time.Now}
}

// WithClock overrides the clock used for freshness checks. Intended for tests.
func (n *NewsCache) WithClock(now func() time.Time) *NewsCache {
	n.now = now
	return n
}

// Get returns the fresh payload stored under key.
// The bool result is false for missing, expired and malformed entries alike.
func (n *NewsCache) Get(ctx context.Context, key string) (*model.NewsPayload, bool, error) {
	payload, ok, err := n.lookup(ctx, key)
	if err != nil || ok {
		return payload, ok, err
	}

	if legacy, found := legacyKey(key); found && n.legacyActive() {
		return n.lookup(ctx, legacy)
	}
	return nil, false, nil
}

// Put stores payload under key with the current time, replacing any prior entry.
func (n *NewsCache) Put(ctx context.Context, key string, payload *model.NewsPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode news payload: %w", err)
	}

	entry := newsEntry{
		Timestamp: float64(n.now().UnixNano()) / float64(time.Second),
		Data:      data,
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode news entry: %w", err)
	}

	if err := n.client.Set(ctx, newsKeyPrefix+key, raw, n.cfg.Retention).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Delete removes the entry stored under key.
func (n *NewsCache) Delete(ctx context.Context, key string) error {
	if err := n.client.Del(ctx, newsKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

func (n *NewsCache) lookup(ctx context.Context, key string) (*model.NewsPayload, bool, error) {
	raw, err := n.client.Get(ctx, newsKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var entry newsEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, false, nil
	}

	storedAt := time.Unix(0, int64(entry.Timestamp*float64(time.Second)))
	if n.now().Sub(storedAt) >= n.cfg.TTL {
		return nil, false, nil
	}

	payload, ok := decodePayload(entry.Data)
	return payload, ok, nil
}

func (n *NewsCache) legacyActive() bool {
	return !n.cfg.LegacyUntil.IsZero() && !n.now().After(n.cfg.LegacyUntil)
}

// decodePayload accepts only an object carrying a "news" field.
// Bare lists and other older shapes are reported as absent.
func decodePayload(data json.RawMessage) (*model.NewsPayload, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, false
	}
	if _, ok := fields["news"]; !ok {
		return nil, false
	}

	var payload model.NewsPayload
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil, false
	}
	if payload.Trends == nil {
		payload.Trends = []string{}
	}
	return &payload, true
}

// legacyKey returns the single-field key used before composite fingerprints.
// TODO: remove once CACHE_LEGACY_FALLBACK_UNTIL has passed in every environment.
func legacyKey(key string) (string, bool) {
	i := strings.Index(key, "_")
	if i <= 0 {
		return "", false
	}
	return key[:i], true
}
