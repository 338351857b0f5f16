package guardrail

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

// keyPrefix namespaces guardrail keys within a shared Redis keyspace.
const keyPrefix = "actiongov:guardrail:"

// tokenBucketScript atomically refills and consumes from a token bucket in
// one round trip: KEYS[1]=bucket key, ARGV = [capacity, refillPerSec,
// nowUnixMillis, cost]. Returns {allowed, tokens}: allowed is 1 when at
// least cost tokens were available and have been taken, 0 otherwise, and
// tokens is the bucket's level after the call (never negative).
const tokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refillPerSec = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])

local data = redis.call('HMGET', key, 'tokens', 'ts')
local tokens = tonumber(data[1])
local ts = tonumber(data[2])
if tokens == nil then
  tokens = capacity
  ts = now
end

local elapsed = math.max(0, now - ts) / 1000.0
tokens = math.min(capacity, tokens + elapsed * refillPerSec)

local allowed = 0
if tokens >= cost then
  tokens = tokens - cost
  allowed = 1
end

redis.call('HMSET', key, 'tokens', tokens, 'ts', now)
redis.call('EXPIRE', key, 3600)

return {allowed, tokens}
`

// RedisStore is a StateStore backed by Redis, for deployments that run more
// than one orchestrator process against shared guardrail state. Rate-limit
// counters and cooldowns are JSON string keys written with plain GET/SET and
// a TTL, so a read-then-write by two concurrent callers is not atomic.
// ConsumeToken separately offers a Lua-scripted token bucket whose
// refill-and-consume is atomic.
type RedisStore struct {
	client *redis.Client
	script *redis.Script
}

// NewRedisStore wraps an existing *redis.Client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, script: redis.NewScript(tokenBucketScript)}
}

func (s *RedisStore) GetRateLimits(ctx context.Context, keys []string) (map[string]types.RateLimitCounterState, error) {
	out := make(map[string]types.RateLimitCounterState, len(keys))
	for _, k := range keys {
		raw, err := s.client.Get(ctx, keyPrefix+"rl:"+k).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}
		var state types.RateLimitCounterState
		if err := json.Unmarshal(raw, &state); err != nil {
			return nil, err
		}
		out[k] = state
	}
	return out, nil
}

func (s *RedisStore) GetCooldowns(ctx context.Context, keys []string) (map[string]types.CooldownState, error) {
	out := make(map[string]types.CooldownState, len(keys))
	for _, k := range keys {
		raw, err := s.client.Get(ctx, keyPrefix+"cd:"+k).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}
		var state types.CooldownState
		if err := json.Unmarshal(raw, &state); err != nil {
			return nil, err
		}
		out[k] = state
	}
	return out, nil
}

func (s *RedisStore) SetRateLimit(ctx context.Context, key string, state types.RateLimitCounterState, ttl time.Duration) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, keyPrefix+"rl:"+key, raw, ttl).Err()
}

func (s *RedisStore) SetCooldown(ctx context.Context, key string, state types.CooldownState, ttl time.Duration) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, keyPrefix+"cd:"+key, raw, ttl).Err()
}

// ConsumeToken runs the atomic token-bucket script for a token_bucket rate
// limit and reports whether the request is allowed along with tokens left.
func (s *RedisStore) ConsumeToken(ctx context.Context, key string, capacity, refillPerSec float64, now time.Time, cost float64) (allowed bool, remaining float64, err error) {
	res, err := s.script.Run(ctx, s.client, []string{keyPrefix + "tb:" + key}, capacity, refillPerSec, now.UnixMilli(), cost).Result()
	if err != nil {
		return false, 0, err
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return false, 0, nil
	}
	// Redis truncates Lua floating-point replies to integers, so the
	// remaining-token count loses fractional precision across this boundary.
	allowedInt, _ := vals[0].(int64)
	remainingInt, _ := vals[1].(int64)
	return allowedInt == 1, float64(remainingInt), nil
}
