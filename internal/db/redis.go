package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient creates and returns a new Redis client. conn is either a
// host:port address or a redis:// URL.
func NewRedisClient(ctx context.Context, conn string) (*redis.Client, error) {
	opts := &redis.Options{Addr: conn}
	if strings.HasPrefix(conn, "redis://") || strings.HasPrefix(conn, "rediss://") {
		parsed, err := redis.ParseURL(conn)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = parsed
	}

	client := redis.NewClient(opts)

	// Ping the server to ensure the connection is established.
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return client, nil
}
