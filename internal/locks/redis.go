package locks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-redis/redis/v8"

	"github.com/desertthunder/plmirror/internal/shared"
)

const (
	redisKeyPrefix    = "plmirror:lock:"
	redisRetryBackoff = 50 * time.Millisecond
	redisReleaseLimit = 3 * time.Second
)

// releaseScript deletes the key only while it still holds our token, so an expired lock
// taken over by another holder is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a [Locker] shared by every instance connected to the same Redis.
//
// Locks expire after ttl so a crashed holder cannot block a playlist forever.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// NewRedisLocker creates a RedisLocker over an existing client. A nil logger uses [log.Default].
func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *log.Logger) *RedisLocker {
	if logger == nil {
		logger = log.Default()
	}
	return &RedisLocker{client: client, ttl: ttl, logger: logger}
}

// DialRedis connects to addr and verifies the connection with PING.
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

// Lock implements [Locker] with SET NX PX, polling until the key is free or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	redisKey := redisKeyPrefix + key
	token := shared.GenerateID()

	ticker := time.NewTicker(redisRetryBackoff)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return once(func() { l.release(redisKey, token) }), nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", shared.ErrLockTimeout, key, ctx.Err())
		}
	}
}

func (l *RedisLocker) release(redisKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisReleaseLimit)
	defer cancel()

	if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
		l.logger.Warn("failed to release lock, held until ttl", "key", redisKey, "ttl", l.ttl, "err", err)
	}
}
