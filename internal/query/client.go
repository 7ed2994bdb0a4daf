package query

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"testdeck/internal/logger"
)

const (
	defaultCacheSize = 64
	defaultTimeout   = 10 * time.Second
)

// Options tunes a Client. Zero values pick defaults.
type Options struct {
	CacheSize int
	// CacheTTL bounds how long a result is served without refetching. Zero keeps results until evicted.
	CacheTTL time.Duration
	Timeout  time.Duration
}

// Client executes descriptors through a Fetcher, caching results by key and
// sharing concurrent fetches of the same key.
type Client struct {
	fetch   Fetcher
	cache   *expirable.LRU[string, any]
	group   singleflight.Group
	timeout time.Duration
}

// NewClient creates a client around fetch.
func NewClient(fetch Fetcher, opts Options) *Client {
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Client{
		fetch:   fetch,
		cache:   expirable.NewLRU[string, any](opts.CacheSize, nil, opts.CacheTTL),
		timeout: opts.Timeout,
	}
}

// Cached returns the cached result for key, if any.
func (c *Client) Cached(key string) (any, bool) {
	return c.cache.Get(key)
}

// Fetch runs d against the backend and caches the result.
func (c *Client) Fetch(ctx context.Context, d Descriptor) (any, error) {
	key := d.Key()
	start := time.Now()
	v, err, shared := c.group.Do(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		return c.fetch(ctx, d)
	})
	if err != nil {
		logger.Warn().Err(err).Str("query", key).Msg("fetch failed")
		return nil, err
	}
	c.cache.Add(key, v)
	logger.Debug().
		Str("query", key).
		Bool("shared", shared).
		Dur("took", time.Since(start)).
		Msg("fetched")
	return v, nil
}

// Invalidate drops every cached result of resource.
func (c *Client) Invalidate(resource string) {
	for _, key := range c.cache.Keys() {
		if key == resource || strings.HasPrefix(key, resource+"?") {
			c.cache.Remove(key)
		}
	}
}

// Observe creates an observer bound to this client.
func (c *Client) Observe() *Observer {
	return newObserver(c)
}
