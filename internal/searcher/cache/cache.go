// Package cache keeps search responses in Redis. Keys embed the index
// generation, so responses computed before a re-index are never served
// after it even if the flush that follows the run fails.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	pkgredis "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

const keyPrefix = "docsearch:"

// Backend is the subset of the Redis client the cache needs.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	backend    Backend
	cfg        config.RedisConfig
	generation func() int64
	breaker    *resilience.CircuitBreaker
	group      singleflight.Group
	logger     *slog.Logger
	hits       atomic.Int64
	misses     atomic.Int64
}

// New creates a cache over backend. generation reports the current index
// generation and is part of every key.
func New(backend Backend, cfg config.RedisConfig, generation func() int64) *QueryCache {
	return &QueryCache{
		backend:    backend,
		cfg:        cfg,
		generation: generation,
		breaker:    resilience.NewCircuitBreaker("redis-query-cache", resilience.CircuitBreakerConfig{}),
		logger:     slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, query string, opts executor.Options) (*executor.Response, bool) {
	key := c.buildKey(query, opts)
	var data string
	err := c.breaker.Execute(func() error {
		v, err := c.backend.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			return nil
		}
		data = v
		return err
	})
	if err != nil {
		c.logger.Warn("cache get failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	if data == "" {
		c.misses.Add(1)
		return nil, false
	}
	var resp executor.Response
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "query", query, "key", key)
	return &resp, true
}

func (c *QueryCache) Set(ctx context.Context, query string, opts executor.Options, resp *executor.Response) {
	key := c.buildKey(query, opts)
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.backend.Set(ctx, key, data, c.cfg.CacheTTL)
	})
	if err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns a cached response or computes it once for all
// concurrent callers with the same key. The bool reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	query string,
	opts executor.Options,
	compute func() *executor.Response,
) (*executor.Response, bool) {
	if resp, ok := c.Get(ctx, query, opts); ok {
		return resp, true
	}
	key := c.buildKey(query, opts)
	val, _, _ := c.group.Do(key, func() (any, error) {
		resp := compute()
		c.Set(ctx, query, opts, resp)
		return resp, nil
	})
	return val.(*executor.Response), false
}

// Invalidate drops every cached response.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.backend.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) buildKey(query string, opts executor.Options) string {
	raw := fmt.Sprintf("%s|limit=%d|section=%s|min=%g|omit=%t|ctx=%s",
		normalizeQuery(query),
		opts.Limit,
		opts.Section,
		opts.MinScore,
		opts.OmitMetadata,
		normalizeTerms(opts.ContextualTerms),
	)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%sg%d:%x", keyPrefix, c.generation(), hash[:16])
}

// normalizeQuery lower-cases and collapses whitespace. Word order is kept
// because the exact phrase bonus depends on it.
func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

func normalizeTerms(terms []string) string {
	norm := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = normalizeQuery(t); t != "" {
			norm = append(norm, t)
		}
	}
	sort.Strings(norm)
	return strings.Join(norm, ",")
}
