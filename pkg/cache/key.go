package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every key written by this package.
const KeyPrefix = "market"

// CacheKey represents a unique identifier for a cached response.
type CacheKey struct {
	// Path is the API path (e.g., "/types/34/")
	Path string

	// Query are the query parameters
	Query url.Values
}

// String generates a deterministic cache key string.
// Format: market:path:query1=val1:query2=val2
//
// Example:
//
//	market:types/34
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	path := strings.Trim(k.Path, "/")
	if path != "" {
		parts = append(parts, path)
	}

	if len(k.Query) > 0 {
		keys := make([]string, 0, len(k.Query))
		for key := range k.Query {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(k.Query[key], ",")))
		}
	}

	return strings.Join(parts, ":")
}
