package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/domain"
)

const (
	// TemplateKeyPrefix prefixes the Redis keys of cached templates:
	// trigger:template:<kind>:<id>.
	TemplateKeyPrefix = "trigger:template:"
	// CacheSchemaVersion is bumped whenever the cached layout changes.
	CacheSchemaVersion = 1
	// DefaultTemplateTTL bounds how stale a cached template can get.
	DefaultTemplateTTL = 30 * time.Second
)

// Template kinds used in cache keys.
const (
	KindChat    = "chat"
	KindContent = "content"
	KindSMS     = "sms"
	KindHTTP    = "http"
)

// cachedTemplate is the JSON envelope stored per template.
type cachedTemplate[T any] struct {
	SchemaVersion int   `json:"schema_version"`
	CachedAt      int64 `json:"cached_at"`
	Template      T     `json:"template"`
}

// templateKV is the slice of Redis the cache needs. MGet returns one entry
// per key, nil for a miss.
type templateKV interface {
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type redisKV struct {
	client *redis.Client
}

func (r redisKV) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		if s, ok := v.(string); ok {
			out[i] = []byte(s)
		}
	}
	return out, nil
}

func (r redisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r redisKV) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

// CachedStore serves template loads from Redis and delegates everything else,
// including GetActiveRulesByEvent, to the wrapped Store. Active rules are
// always read from the store so activation changes apply to the next event.
// Redis failures fall back to the wrapped Store.
type CachedStore struct {
	Store
	kv  templateKV
	ttl time.Duration
}

// NewCachedStore wraps store with a Redis template cache. A non-positive ttl
// uses DefaultTemplateTTL.
func NewCachedStore(store Store, client *redis.Client, ttl time.Duration) *CachedStore {
	return newCachedStore(store, redisKV{client: client}, ttl)
}

func newCachedStore(store Store, kv templateKV, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultTemplateTTL
	}
	return &CachedStore{Store: store, kv: kv, ttl: ttl}
}

func (c *CachedStore) GetChatTemplates(ctx context.Context, ids []string) (map[string]domain.ChatTemplate, error) {
	return cachedLoad(ctx, c, KindChat, ids, c.Store.GetChatTemplates)
}

func (c *CachedStore) GetContentTemplates(ctx context.Context, ids []string) (map[string]domain.ContentTemplate, error) {
	return cachedLoad(ctx, c, KindContent, ids, c.Store.GetContentTemplates)
}

func (c *CachedStore) GetSMSTemplates(ctx context.Context, ids []string) (map[string]domain.SMSTemplate, error) {
	return cachedLoad(ctx, c, KindSMS, ids, c.Store.GetSMSTemplates)
}

func (c *CachedStore) GetHTTPTemplates(ctx context.Context, ids []string) (map[string]domain.HTTPTemplate, error) {
	return cachedLoad(ctx, c, KindHTTP, ids, c.Store.GetHTTPTemplates)
}

// Invalidate drops cached templates of one kind.
func (c *CachedStore) Invalidate(ctx context.Context, kind string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := c.kv.Del(ctx, templateKeys(kind, ids)...); err != nil {
		return fmt.Errorf("failed to invalidate %s templates: %w", kind, err)
	}
	return nil
}

func templateKeys(kind string, ids []string) []string {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = TemplateKeyPrefix + kind + ":" + id
	}
	return keys
}

// cachedLoad returns the cached templates for ids and loads the rest from
// the store, caching what it found.
func cachedLoad[T any](ctx context.Context, c *CachedStore, kind string, ids []string, load func(context.Context, []string) (map[string]T, error)) (map[string]T, error) {
	if len(ids) == 0 {
		return map[string]T{}, nil
	}
	keys := templateKeys(kind, ids)

	out := make(map[string]T, len(ids))
	missing := ids
	if vals, err := c.kv.MGet(ctx, keys); err != nil {
		slog.Warn("Failed to read template cache, loading from store",
			"kind", kind,
			"error", err,
		)
	} else {
		missing = nil
		for i, id := range ids {
			var entry cachedTemplate[T]
			if i >= len(vals) || vals[i] == nil ||
				json.Unmarshal(vals[i], &entry) != nil ||
				entry.SchemaVersion != CacheSchemaVersion {
				missing = append(missing, id)
				continue
			}
			out[id] = entry.Template
		}
	}
	if len(missing) == 0 {
		slog.Debug("Template cache hit", "kind", kind, "count", len(out))
		return out, nil
	}

	loaded, err := load(ctx, missing)
	if err != nil {
		return nil, err
	}
	now := time.Now().UnixMilli()
	for id, tmpl := range loaded {
		out[id] = tmpl
		data, err := json.Marshal(cachedTemplate[T]{SchemaVersion: CacheSchemaVersion, CachedAt: now, Template: tmpl})
		if err != nil {
			continue
		}
		if err := c.kv.Set(ctx, TemplateKeyPrefix+kind+":"+id, data, c.ttl); err != nil {
			slog.Warn("Failed to write template cache", "kind", kind, "id", id, "error", err)
		}
	}
	return out, nil
}
