// Package redis provides a like-toggle guard shared by every process that
// talks to the same Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nasermirzaei89/snapfeed/reactions"
	goredis "github.com/redis/go-redis/v9"
)

const (
	DefaultTTL   = 5 * time.Second
	DefaultRetry = 25 * time.Millisecond

	keyPrefix = "snapfeed:guard:"
)

// releaseScript deletes the lock only while it still holds our token, so an
// expired lock taken over by another holder is left alone.
var releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Guard is a Redis lock per key: SET NX PX to take it, a token checked
// delete to give it back.
type Guard struct {
	client goredis.UniversalClient
	ttl    time.Duration
	retry  time.Duration
}

var _ reactions.Guard = (*Guard)(nil)

func NewGuard(client goredis.UniversalClient) *Guard {
	return &Guard{
		client: client,
		ttl:    DefaultTTL,
		retry:  DefaultRetry,
	}
}

// WithTTL bounds how long a crashed holder can keep a key locked.
func (g *Guard) WithTTL(ttl time.Duration) *Guard {
	g.ttl = ttl

	return g
}

func (g *Guard) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := keyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(g.retry)
	defer ticker.Stop()

	for {
		ok, err := g.client.SetNX(ctx, redisKey, token, g.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to set lock key: %w", err)
		}

		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.ttl)
		defer cancel()

		err := releaseScript.Run(releaseCtx, g.client, []string{redisKey}, token).Err()
		if err != nil && !errors.Is(err, goredis.Nil) {
			slog.ErrorContext(ctx, "failed to release lock", "key", redisKey, "error", err)
		}
	}, nil
}

func NewClient(ctx context.Context, addr string) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})

	err := client.Ping(ctx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}
