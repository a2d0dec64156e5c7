// Package redis stores short-lived checkout state in Redis.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "luxe"

// NewClient connects to the Redis server at url (redis://...) and verifies
// the connection.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

// key namespaces a key by operation: luxe:<operation>:<key>.
func key(operation, k string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, operation, k)
}
