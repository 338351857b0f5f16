package risk

import (
	"math"

	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

// Score computes the weighted risk score, category, and factor breakdown for
// input, using cfg's weights. The returned factor list is ordered the same
// way the algorithm applies them, so callers can render it directly as an
// explanation.
func Score(input types.RiskInput, cfg ScoringConfig) types.RiskScore {
	var factors []types.RiskFactor
	total := 0.0

	base := cfg.BaseWeights[input.BaseRisk]
	factors = append(factors, types.RiskFactor{Name: "base_risk", Contribution: base})
	total += base

	dollarFraction := input.Exposure.DollarsAtRisk / cfg.DollarCapDivisor
	if dollarFraction > 1.0 {
		dollarFraction = 1.0
	}
	if dollarFraction < 0 {
		dollarFraction = 0
	}
	dollarContribution := dollarFraction * cfg.DollarWeight
	factors = append(factors, types.RiskFactor{Name: "dollar_exposure", Contribution: dollarContribution})
	total += dollarContribution

	blastMultiplier := 0.0
	if input.Exposure.BlastRadius > 1 {
		blastMultiplier = math.Log2(float64(input.Exposure.BlastRadius))
	}
	if blastMultiplier > cfg.BlastRadiusCap {
		blastMultiplier = cfg.BlastRadiusCap
	}
	blastContribution := blastMultiplier * cfg.BlastRadiusWeight
	factors = append(factors, types.RiskFactor{Name: "blast_radius", Contribution: blastContribution})
	total += blastContribution

	irrevFraction := 0.0
	switch input.Reversibility {
	case types.ReversibilityPartial:
		irrevFraction = 0.5
	case types.ReversibilityNone:
		irrevFraction = 1.0
	case types.ReversibilityFull:
		irrevFraction = 0.0
	}
	irrevContribution := irrevFraction * cfg.IrreversibilityPenalty
	factors = append(factors, types.RiskFactor{Name: "irreversibility", Contribution: irrevContribution})
	total += irrevContribution

	if input.Sensitivity.EntityVolatile {
		factors = append(factors, types.RiskFactor{Name: "entity_volatile", Contribution: cfg.SensitivityEntityVolatile})
		total += cfg.SensitivityEntityVolatile
	}
	if input.Sensitivity.LearningPhase {
		factors = append(factors, types.RiskFactor{Name: "learning_phase", Contribution: cfg.SensitivityLearningPhase})
		total += cfg.SensitivityLearningPhase
	}
	if input.Sensitivity.RecentlyModified {
		factors = append(factors, types.RiskFactor{Name: "recently_modified", Contribution: cfg.SensitivityRecentlyModified})
		total += cfg.SensitivityRecentlyModified
	}

	if total > 100 {
		total = 100
	}
	if total < 0 {
		total = 0
	}

	return types.RiskScore{
		Raw:      total,
		Category: Categorize(total, cfg),
		Factors:  factors,
	}
}

// Categorize maps a raw score to its band. Boundaries are inclusive-left,
// exclusive-right of the higher band: a score exactly on a threshold belongs
// to the higher band.
func Categorize(score float64, cfg ScoringConfig) types.RiskCategory {
	bands := []types.RiskCategory{types.RiskNone, types.RiskLow, types.RiskMedium, types.RiskHigh, types.RiskCritical}
	for i, threshold := range cfg.CategoryThresholds {
		if score < threshold {
			return bands[i]
		}
	}
	return bands[len(bands)-1]
}

// CompositeBump computes an additional score contribution from recent
// activity (structuring/salami-slicing detection): many small actions
// against distinct entities in a short window accumulate risk even when no
// single action looks risky on its own.
func CompositeBump(cc types.CompositeContext, cfg ScoringConfig) types.RiskFactor {
	contribution := float64(cc.RecentActionCount) * cfg.CompositeActionCountWeight
	contribution += cc.CumulativeExposure * cfg.CompositeExposureWeight
	contribution += float64(cc.DistinctEntities) * cfg.CompositeEntityWeight
	return types.RiskFactor{Name: "composite_activity", Contribution: contribution}
}

// Recategorize applies a composite bump on top of a base score and reports
// the resulting category alongside whether that category increased relative
// to the base.
func Recategorize(base types.RiskScore, bump types.RiskFactor, cfg ScoringConfig) (types.RiskScore, bool) {
	total := base.Raw + bump.Contribution
	if total > 100 {
		total = 100
	}
	newCategory := Categorize(total, cfg)
	increased := bandRank(newCategory) > bandRank(base.Category)

	factors := append(append([]types.RiskFactor{}, base.Factors...), bump)
	return types.RiskScore{
		Raw:      total,
		Category: newCategory,
		Factors:  factors,
	}, increased
}

func bandRank(c types.RiskCategory) int {
	switch c {
	case types.RiskNone:
		return 0
	case types.RiskLow:
		return 1
	case types.RiskMedium:
		return 2
	case types.RiskHigh:
		return 3
	case types.RiskCritical:
		return 4
	default:
		return -1
	}
}
