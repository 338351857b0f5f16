// Package competence maintains a per-(principal, action type) track record
// that shifts effective trust over time: consistent success builds trust,
// failures erode it, and rollbacks penalize the original action.
package competence

import "github.com/Mindburn-Labs/actiongov/pkg/types"

// Config holds the tunables for score adjustments and trust/deny thresholds.
type Config struct {
	SuccessBase         float64
	StreakBonusCap      int     // streak bonus uses min(streak, StreakBonusCap)
	StreakBonusDivisor  float64
	FailurePenalty      float64
	RollbackPenalty     float64
	TrustScoreThreshold float64
	TrustSuccessMin     int
	LowScoreThreshold   float64 // below this, shouldTrust flips false
	DenyScoreThreshold  float64 // below this, shouldDeny flips true
}

// DefaultConfig reproduces the factory tuning.
func DefaultConfig() Config {
	return Config{
		SuccessBase:         3,
		StreakBonusCap:      10,
		StreakBonusDivisor:  5,
		FailurePenalty:      8,
		RollbackPenalty:     15,
		TrustScoreThreshold: 80,
		TrustSuccessMin:     10,
		LowScoreThreshold:   50,
		DenyScoreThreshold:  20,
	}
}

// RecordSuccess applies a success outcome to adj in place and reports
// whether shouldTrust newly transitioned to true.
func RecordSuccess(adj *types.CompetenceAdjustment, cfg Config) (trustTransitioned bool) {
	adj.SuccessCount++
	adj.CurrentStreak++

	streakForBonus := adj.CurrentStreak
	if streakForBonus > cfg.StreakBonusCap {
		streakForBonus = cfg.StreakBonusCap
	}
	bonus := float64(streakForBonus) / cfg.StreakBonusDivisor
	adj.Score = clamp(adj.Score+cfg.SuccessBase+bonus, 0, 100)

	wasTrust := adj.ShouldTrust
	if adj.Score >= cfg.TrustScoreThreshold && adj.SuccessCount >= cfg.TrustSuccessMin {
		adj.ShouldTrust = true
	}
	return !wasTrust && adj.ShouldTrust
}

// RecordFailure applies a failure outcome and reports whether shouldDeny
// newly transitioned to true.
func RecordFailure(adj *types.CompetenceAdjustment, cfg Config) (denyTransitioned bool) {
	adj.FailureCount++
	adj.CurrentStreak = 0
	adj.Score = clamp(adj.Score-cfg.FailurePenalty, 0, 100)

	if adj.Score < cfg.LowScoreThreshold {
		adj.ShouldTrust = false
	}
	wasDeny := adj.ShouldDeny
	if adj.Score < cfg.DenyScoreThreshold {
		adj.ShouldDeny = true
	}
	return !wasDeny && adj.ShouldDeny
}

// RecordRollback applies a rollback outcome against the original action's
// adjustment record (never the reverse action's).
func RecordRollback(adj *types.CompetenceAdjustment, cfg Config) {
	adj.RollbackCount++
	adj.Score = clamp(adj.Score-cfg.RollbackPenalty, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
