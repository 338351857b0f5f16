package guardrail

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

func TestCheckRateLimit_DeniesAtLimit(t *testing.T) {
	now := time.Now()
	limit := types.RateLimit{ActionType: "ads.campaign.pause", Limit: 2, WindowSecs: 60}
	state := &types.RateLimitCounterState{WindowStart: now, Count: 2}
	violated, _ := CheckRateLimit(limit, "user", state, now)
	assert.True(t, violated)
}

func TestCheckRateLimit_AllowsAfterWindowRollsOver(t *testing.T) {
	now := time.Now()
	limit := types.RateLimit{ActionType: "ads.campaign.pause", Limit: 2, WindowSecs: 60}
	state := &types.RateLimitCounterState{WindowStart: now.Add(-61 * time.Second), Count: 2}
	violated, _ := CheckRateLimit(limit, "user", state, now)
	assert.False(t, violated)
}

func TestCheckCooldown_ExactBoundaryNotDenied(t *testing.T) {
	now := time.Now()
	cooldown := types.Cooldown{ActionType: "ads.campaign.pause", SecondsSince: 30}
	state := &types.CooldownState{LastFiredAt: now.Add(-30 * time.Second)}
	violated, _ := CheckCooldown(cooldown, state, now)
	assert.False(t, violated, "exactly at cooldownMs must not be denied")
}

func TestCheckCooldown_StrictlyLessIsDenied(t *testing.T) {
	now := time.Now()
	cooldown := types.Cooldown{ActionType: "ads.campaign.pause", SecondsSince: 30}
	state := &types.CooldownState{LastFiredAt: now.Add(-29 * time.Second)}
	violated, _ := CheckCooldown(cooldown, state, now)
	assert.True(t, violated)
}

func TestCheckProtectedEntity_Matches(t *testing.T) {
	protected := []types.ProtectedEntity{{EntityType: "campaign", EntityID: "c1", Reason: "flagship account"}}
	matched, detail := CheckProtectedEntity("campaign", "c1", protected)
	assert.True(t, matched)
	assert.Equal(t, "flagship account", detail)

	matched, _ = CheckProtectedEntity("campaign", "c2", protected)
	assert.False(t, matched)
}

func TestMemoryStore_RoundTripsRateLimitState(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()
	err := store.SetRateLimit(ctx, "user:ads.campaign.pause", types.RateLimitCounterState{WindowStart: now, Count: 1}, time.Minute)
	assert.NoError(t, err)

	got, err := store.GetRateLimits(ctx, []string{"user:ads.campaign.pause"})
	assert.NoError(t, err)
	assert.Equal(t, 1, got["user:ads.campaign.pause"].Count)
}
