//go:build integration

// Package containers starts throwaway service containers for integration
// tests. Cleanup is left to Ryuk so containers can be shared across suites.
package containers

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// Redis wraps a disposable Redis instance with a connected client.
type Redis struct {
	Container testcontainers.Container
	Client    *redis.Client
}

// StartRedis runs a Redis container and pings it before returning. Failures
// abort the test.
func StartRedis(t *testing.T) *Redis {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}

	url, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("redis connection string: %v", err)
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("parse redis url: %v", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("ping redis: %v", err)
	}

	return &Redis{Container: container, Client: client}
}

// Terminate closes the client and stops the container.
func (r *Redis) Terminate(ctx context.Context) {
	if r.Client != nil {
		_ = r.Client.Close()
	}
	if r.Container != nil {
		_ = r.Container.Terminate(ctx)
	}
}
