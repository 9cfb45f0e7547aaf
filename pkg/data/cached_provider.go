package data

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ducminhle1904/portfolio-analytics/internal/logger"
	"github.com/ducminhle1904/portfolio-analytics/internal/monitoring"
)

// MemoryCache implements SeriesCache using in-memory storage
type MemoryCache struct {
	cache map[string]Series
	mutex sync.RWMutex
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		cache: make(map[string]Series),
	}
}

// Get retrieves a copy of the cached series
func (c *MemoryCache) Get(key string) (Series, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	data, exists := c.cache[key]
	if !exists {
		return nil, false
	}
	result := make(Series, len(data))
	copy(result, data)
	return result, true
}

// Set stores a copy of the series
func (c *MemoryCache) Set(key string, data Series) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	cached := make(Series, len(data))
	copy(cached, data)
	c.cache[key] = cached
}

// Clear removes all cached data
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache = make(map[string]Series)
}

// Size returns the number of cached entries
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.cache)
}

// CachedProvider memoizes series per (symbol, metric, window) in front of
// another provider. Concurrent misses for the same key share one fetch.
// Failed fetches are not cached.
type CachedProvider struct {
	provider HistoryProvider
	cache    SeriesCache
	group    singleflight.Group
	log      *logger.Logger
}

// NewCachedProvider creates a new cached provider
func NewCachedProvider(provider HistoryProvider, log *logger.Logger) *CachedProvider {
	return NewCachedProviderWithCache(provider, NewMemoryCache(), log)
}

// NewCachedProviderWithCache creates a new cached provider with a custom cache
func NewCachedProviderWithCache(provider HistoryProvider, cache SeriesCache, log *logger.Logger) *CachedProvider {
	return &CachedProvider{
		provider: provider,
		cache:    cache,
		log:      log,
	}
}

// Name returns the name of the underlying provider with cache indication
func (p *CachedProvider) Name() string {
	return "Cached " + p.provider.Name()
}

func cacheKey(symbol, metric string, from, to time.Time) string {
	return fmt.Sprintf("%s|%s|%d|%d", symbol, metric, from.UTC().UnixNano(), to.UTC().UnixNano())
}

// Series returns the memoized series for the window, fetching it once
func (p *CachedProvider) Series(ctx context.Context, symbol, metric string, from, to time.Time) (Series, error) {
	key := cacheKey(symbol, metric, from, to)
	if cached, ok := p.cache.Get(key); ok {
		monitoring.RecordHistoryCache(true)
		return cached, nil
	}
	monitoring.RecordHistoryCache(false)

	v, err, shared := p.group.Do(key, func() (interface{}, error) {
		if cached, ok := p.cache.Get(key); ok {
			return cached, nil
		}
		s, err := p.provider.Series(ctx, symbol, metric, from, to)
		if err != nil {
			monitoring.RecordHistoryError(p.provider.Name())
			p.log.Warning("fetching %s %s from %s failed: %v", symbol, metric, p.provider.Name(), err)
			return nil, err
		}
		p.cache.Set(key, s)
		p.log.Debug("cached %s %s (%d points)", symbol, metric, len(s))
		return s, nil
	})
	if err != nil {
		return nil, err
	}

	s := v.(Series)
	if shared {
		out := make(Series, len(s))
		copy(out, s)
		return out, nil
	}
	return s, nil
}

// PointValue answers from the memoized series for the same window
func (p *CachedProvider) PointValue(ctx context.Context, symbol, metric string, from, to time.Time) (float64, bool, error) {
	s, err := p.Series(ctx, symbol, metric, from, to)
	if err != nil {
		return 0, false, err
	}
	if last, ok := s.Last(); ok {
		return last.Value, true, nil
	}
	return 0, false, nil
}

// ClearCache clears all cached data
func (p *CachedProvider) ClearCache() {
	p.cache.Clear()
}

// GetCacheSize returns the number of cached entries
func (p *CachedProvider) GetCacheSize() int {
	return p.cache.Size()
}
