package guardrail

import (
	"time"

	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

// CheckRateLimit evaluates one RateLimit against hydrated counter state for
// scope. A window older than its configured length is treated as reset
// rather than denying.
func CheckRateLimit(limit types.RateLimit, scope string, state *types.RateLimitCounterState, now time.Time) (violated bool, detail string) {
	if state == nil {
		return false, ""
	}
	windowAge := now.Sub(state.WindowStart)
	if windowAge >= time.Duration(limit.WindowSecs)*time.Second {
		return false, "" // window has rolled over; caller resets on next write
	}
	if state.Count >= limit.Limit {
		return true, "rate limit exceeded for " + limit.ActionType + " in scope " + scope
	}
	return false, ""
}

// NextRateLimitState computes the counter state to persist after a
// successful execute against limit/scope, rolling the window over if it had
// expired.
func NextRateLimitState(limit types.RateLimit, current *types.RateLimitCounterState, now time.Time) types.RateLimitCounterState {
	if current == nil || now.Sub(current.WindowStart) >= time.Duration(limit.WindowSecs)*time.Second {
		return types.RateLimitCounterState{WindowStart: now, Count: 1}
	}
	return types.RateLimitCounterState{WindowStart: current.WindowStart, Count: current.Count + 1}
}

// CheckCooldown evaluates one Cooldown against the last-fired timestamp for
// an entity. Exactly at the cooldown boundary is NOT a violation; only
// strictly less than the required spacing is.
func CheckCooldown(cooldown types.Cooldown, state *types.CooldownState, now time.Time) (violated bool, detail string) {
	if state == nil {
		return false, ""
	}
	elapsed := now.Sub(state.LastFiredAt)
	required := time.Duration(cooldown.SecondsSince) * time.Second
	if elapsed < required {
		return true, "cooldown active, fired again too soon"
	}
	return false, ""
}

// CheckProtectedEntity reports whether entityID/entityType matches any
// configured protected entity.
func CheckProtectedEntity(entityType, entityID string, protected []types.ProtectedEntity) (matched bool, detail string) {
	for _, p := range protected {
		if p.EntityType == entityType && p.EntityID == entityID {
			reason := p.Reason
			if reason == "" {
				reason = "entity is protected"
			}
			return true, reason
		}
	}
	return false, ""
}
