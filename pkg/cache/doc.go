// Package cache stores immutable market API responses in Redis.
//
// Type detail bodies (/types/{id}/) do not change during a run and are
// re-requested on every metadata scrape. Caching them lets a repeated
// scrape skip thousands of calls against the rate-limited API.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient, 24*time.Hour)
//
//	key := cache.CacheKey{Path: "/types/34/"}
//
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// Cache miss - fetch from the API, then manager.Put(ctx, key, body)
//	}
//
// # Metrics
//
//   - market_cache_hits_total - Cache hits
//   - market_cache_misses_total - Cache misses
//   - market_cache_size_bytes - Bytes written to the cache
//   - market_cache_errors_total{operation} - Cache operation errors
//
// Order book endpoints change constantly and must never be cached.
package cache
