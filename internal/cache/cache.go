// Package cache is a time-bounded read-through cache keyed by resource type, invalidated on writes.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rpggio/fieldwork/internal/observability"
)

// DefaultTTL is how long a fetched payload is served without asking the store again.
const DefaultTTL = 30 * time.Second

// Resource names a family of cached reads that a write invalidates together.
type Resource string

const (
	Activities Resource = "activities"
	Findings   Resource = "findings"
	Incidents  Resource = "incidents"
	Routes     Resource = "routes"
	Users      Resource = "users"
	Areas      Resource = "areas"
	Equipment  Resource = "equipment"
)

// Key identifies one cached read within a resource.
type Key struct {
	Resource Resource
	Scope    string
}

func (k Key) String() string {
	return string(k.Resource) + ":" + k.Scope
}

// Entry is a cached payload and when it was fetched.
type Entry struct {
	Payload   []byte    `json:"payload"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Backend stores entries. Validity is decided by the Cache, not the backend.
type Backend interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// Cache fronts store reads. Reads and invalidations are its only operations;
// it does not coordinate concurrent writers.
type Cache struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger

	mu          sync.Mutex
	generations map[Resource]uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger for backend failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a cache over backend.
func New(backend Backend, opts ...Option) *Cache {
	c := &Cache{
		backend:     backend,
		ttl:         DefaultTTL,
		now:         time.Now,
		logger:      slog.New(slog.DiscardHandler),
		generations: make(map[Resource]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL reports the configured validity window.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Read returns the cached value for key while it is valid, otherwise calls fetch and caches the result.
// Fetch errors are returned as-is and nothing is cached.
func Read[T any](ctx context.Context, c *Cache, key Key, fetch func(context.Context) (T, error)) (T, error) {
	if v, ok := lookup[T](ctx, c, key); ok {
		observability.CacheHit(string(key.Resource))
		return v, nil
	}
	observability.CacheMiss(string(key.Resource))

	gen := c.generation(key.Resource)
	fetchedAt := c.now()
	v, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.put(ctx, key, gen, fetchedAt, v)
	return v, nil
}

// Invalidate drops one entry.
func (c *Cache) Invalidate(ctx context.Context, key Key) {
	c.bump(key.Resource)
	if err := c.backend.Delete(ctx, key.String()); err != nil {
		c.logger.Warn("cache invalidate failed", "key", key.String(), "error", err)
	}
	observability.CacheInvalidated(string(key.Resource))
}

// InvalidateResource drops every entry of a resource type.
func (c *Cache) InvalidateResource(ctx context.Context, r Resource) {
	c.bump(r)
	if err := c.backend.DeletePrefix(ctx, string(r)+":"); err != nil {
		c.logger.Warn("cache invalidate failed", "resource", r, "error", err)
	}
	observability.CacheInvalidated(string(r))
}

// Reset drops everything, as on session expiry.
func (c *Cache) Reset(ctx context.Context) {
	c.mu.Lock()
	for _, r := range []Resource{Activities, Findings, Incidents, Routes, Users, Areas, Equipment} {
		if _, ok := c.generations[r]; !ok {
			c.generations[r] = 0
		}
	}
	for r := range c.generations {
		c.generations[r]++
	}
	c.mu.Unlock()
	if err := c.backend.DeletePrefix(ctx, ""); err != nil {
		c.logger.Warn("cache reset failed", "error", err)
	}
}

func lookup[T any](ctx context.Context, c *Cache, key Key) (T, bool) {
	var zero T
	entry, ok, err := c.backend.Get(ctx, key.String())
	if err != nil {
		c.logger.Warn("cache read failed", "key", key.String(), "error", err)
		return zero, false
	}
	if !ok || c.now().Sub(entry.FetchedAt) >= c.ttl {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(entry.Payload, &v); err != nil {
		c.logger.Warn("cache entry undecodable", "key", key.String(), "error", err)
		return zero, false
	}
	return v, true
}

// put stores v unless the resource was invalidated after the fetch began. The entry ages from
// the moment the fetch started.
func (c *Cache) put(ctx context.Context, key Key, gen uint64, fetchedAt time.Time, v any) {
	remaining := c.ttl - c.now().Sub(fetchedAt)
	if remaining <= 0 {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("cache entry unencodable", "key", key.String(), "error", err)
		return
	}
	entry := Entry{Payload: payload, FetchedAt: fetchedAt}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[key.Resource] != gen {
		return
	}
	if err := c.backend.Set(ctx, key.String(), entry, remaining); err != nil {
		c.logger.Warn("cache write failed", "key", key.String(), "error", err)
	}
}

func (c *Cache) generation(r Resource) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[r]
}

func (c *Cache) bump(r Resource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[r]++
}

// ScopeOf joins scope segments with '/'.
func ScopeOf(parts ...string) string {
	return strings.Join(parts, "/")
}
