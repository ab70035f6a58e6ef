package sequence

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// DefaultCheckpointKey is the Redis key holding the last issued nonce.
const DefaultCheckpointKey = "bioauth:gateway:sequence"

// saveScript only moves the checkpoint forward, so a stale writer cannot rewind it.
var saveScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
local proposed = tonumber(ARGV[1])
if proposed > current then
  redis.call("SET", KEYS[1], ARGV[1])
  return proposed
end
return current
`)

// RedisCheckpoint persists the sequence in Redis.
type RedisCheckpoint struct {
	client *redis.Client
	key    string
}

type RedisCheckpointOption func(*RedisCheckpoint)

// WithKey overrides the Redis key, letting several gateways share one Redis.
func WithKey(key string) RedisCheckpointOption {
	return func(c *RedisCheckpoint) {
		if key != "" {
			c.key = key
		}
	}
}

func NewRedisCheckpoint(client *redis.Client, opts ...RedisCheckpointOption) *RedisCheckpoint {
	c := &RedisCheckpoint{client: client, key: DefaultCheckpointKey}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisCheckpoint) Load(ctx context.Context) (uint64, bool, error) {
	raw, err := c.client.Get(ctx, c.key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("load sequence checkpoint: %w", err)
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse sequence checkpoint %q: %w", raw, err)
	}
	return v, true, nil
}

func (c *RedisCheckpoint) Save(ctx context.Context, value uint64) error {
	if err := saveScript.Run(ctx, c.client, []string{c.key}, strconv.FormatUint(value, 10)).Err(); err != nil {
		return fmt.Errorf("save sequence checkpoint: %w", err)
	}
	return nil
}
