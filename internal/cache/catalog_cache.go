package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const CatalogCacheTTL = 1 * time.Hour

// CatalogCache stores JSON-encoded catalog reads in Redis.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCatalogCache(client *redis.Client) *CatalogCache {
	return &CatalogCache{client: client, ttl: CatalogCacheTTL}
}

// Get returns nil, nil on a cache miss.
func (c *CatalogCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Set stores data as JSON with the catalog TTL.
func (c *CatalogCache) Set(ctx context.Context, key string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, jsonData, c.ttl).Err()
}

func (c *CatalogCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Build cache key for the full movie list
func MoviesKey() string {
	return "movies:all"
}

// Build cache key for a single movie by title
func MovieKey(title string) string {
	return "movie:title:" + strings.ToLower(title)
}

func GenreKey(name string) string {
	return "genre:" + strings.ToLower(name)
}

func DirectorKey(name string) string {
	return "director:" + strings.ToLower(name)
}
