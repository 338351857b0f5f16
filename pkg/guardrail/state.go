// Package guardrail evaluates rate limits, cooldowns, and protected-entity
// checks against a pluggable state store, and hydrates/flushes that state
// around an evaluation per the orchestrator's lifecycle.
package guardrail

import (
	"context"
	"time"

	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

// StateStore is the abstract guardrail state backend. Expired windows may be
// lazily deleted by implementations rather than actively swept.
type StateStore interface {
	GetRateLimits(ctx context.Context, keys []string) (map[string]types.RateLimitCounterState, error)
	GetCooldowns(ctx context.Context, keys []string) (map[string]types.CooldownState, error)
	SetRateLimit(ctx context.Context, key string, state types.RateLimitCounterState, ttl time.Duration) error
	SetCooldown(ctx context.Context, key string, state types.CooldownState, ttl time.Duration) error
}

// RateLimitKey builds the scopeKey rate-limit lookups use: "global" when the
// limit has no scope, otherwise "<scope>:<actionType>".
func RateLimitKey(scope, actionType string) string {
	if scope == "" {
		return "global"
	}
	return scope + ":" + actionType
}

// CooldownKey builds the entityKey cooldown lookups use.
func CooldownKey(scope, entityID string) string {
	return scope + ":" + entityID
}
