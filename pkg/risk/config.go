// Package risk computes a weighted risk score and category for a cartridge's
// RiskInput, plus the composite-risk recategorization over a recent-activity
// window used to catch structuring/salami-slicing behavior.
package risk

import "github.com/Mindburn-Labs/actiongov/pkg/types"

// ScoringConfig holds every tunable in the scoring algorithm. Defaults()
// reproduces the factory weights; callers load an override via pkg/config.
type ScoringConfig struct {
	BaseWeights map[types.RiskCategory]float64

	DollarWeight      float64
	DollarCapDivisor  float64 // dollarsAtRisk / DollarCapDivisor, capped at 1.0

	BlastRadiusWeight float64
	BlastRadiusCap    float64 // multiplier cap on log2(blastRadius)

	IrreversibilityPenalty float64

	SensitivityEntityVolatile   float64
	SensitivityLearningPhase    float64
	SensitivityRecentlyModified float64

	// CategoryThresholds are the upper bound (exclusive) of each non-terminal
	// band: a score < thresholds[0] is "none", < thresholds[1] is "low",
	// etc. The final band ("critical") has no upper threshold entry.
	CategoryThresholds []float64

	CompositeActionCountWeight float64
	CompositeExposureWeight    float64
	CompositeEntityWeight      float64
}

// Defaults returns the factory scoring configuration.
func Defaults() ScoringConfig {
	return ScoringConfig{
		BaseWeights: map[types.RiskCategory]float64{
			types.RiskNone:     0,
			types.RiskLow:      15,
			types.RiskMedium:   35,
			types.RiskHigh:     55,
			types.RiskCritical: 80,
		},
		DollarWeight:                20,
		DollarCapDivisor:             10000,
		BlastRadiusWeight:            10,
		BlastRadiusCap:               2,
		IrreversibilityPenalty:       20,
		SensitivityEntityVolatile:    5,
		SensitivityLearningPhase:     5,
		SensitivityRecentlyModified:  5,
		CategoryThresholds:           []float64{20, 40, 60, 80},
		CompositeActionCountWeight:   2,
		CompositeExposureWeight:      0.0005,
		CompositeEntityWeight:        1.5,
	}
}
