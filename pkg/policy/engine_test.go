package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/actiongov/pkg/risk"
	"github.com/Mindburn-Labs/actiongov/pkg/ruleeval"
	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func zeroRiskIdentity(tolerance map[types.RiskCategory]types.ApprovalLevel) types.ResolvedIdentity {
	return types.ResolvedIdentity{
		PrincipalID:            "p1",
		EffectiveRiskTolerance: tolerance,
	}
}

func zeroRiskInput() types.RiskInput {
	return types.RiskInput{
		BaseRisk:      types.RiskNone,
		Exposure:      types.Exposure{BlastRadius: 1},
		Reversibility: types.ReversibilityFull,
	}
}

func TestEngine_TrustBehaviorAllowsWithoutApproval(t *testing.T) {
	e := NewEngine(risk.Defaults()).WithClock(fixedClock(time.Now()))
	evalCtx := EvaluationContext{ActionType: "ads.campaign.pause", PrincipalID: "p1"}
	engineCtx := EngineContext{
		ResolvedIdentity: types.ResolvedIdentity{
			EffectiveTrustBehaviors: []string{"ads.campaign.pause"},
			EffectiveRiskTolerance:  map[types.RiskCategory]types.ApprovalLevel{types.RiskNone: types.ApprovalLevelNone},
		},
		RiskInput: zeroRiskInput(),
	}

	trace := e.Evaluate(evalCtx, engineCtx)
	assert.Equal(t, types.DecisionAllow, trace.FinalDecision)
	assert.Equal(t, types.ApprovalLevelNone, trace.RequiredApprovalLevel)
}

func TestEngine_ForbiddenBehaviorDeniesRegardlessOfTrust(t *testing.T) {
	e := NewEngine(risk.Defaults())
	evalCtx := EvaluationContext{ActionType: "billing.refund.issue", PrincipalID: "p1"}
	engineCtx := EngineContext{
		ResolvedIdentity: types.ResolvedIdentity{
			EffectiveForbiddenBehaviors: []string{"billing.refund.*"},
			EffectiveTrustBehaviors:     []string{"billing.refund.issue"},
			EffectiveRiskTolerance:      map[types.RiskCategory]types.ApprovalLevel{types.RiskNone: types.ApprovalLevelNone},
		},
		RiskInput: zeroRiskInput(),
	}

	trace := e.Evaluate(evalCtx, engineCtx)
	assert.Equal(t, types.DecisionDeny, trace.FinalDecision)
	assert.Contains(t, trace.Explanation, "forbidden")
}

func TestEngine_RateLimitExceededDenies(t *testing.T) {
	now := time.Now()
	e := NewEngine(risk.Defaults()).WithClock(fixedClock(now))
	evalCtx := EvaluationContext{ActionType: "ads.campaign.pause", PrincipalID: "p1"}
	engineCtx := EngineContext{
		ResolvedIdentity: zeroRiskIdentity(map[types.RiskCategory]types.ApprovalLevel{types.RiskNone: types.ApprovalLevelNone}),
		RiskInput:        zeroRiskInput(),
		Guardrails: types.GuardrailSpec{
			RateLimits: []types.RateLimit{
				{ActionType: "ads.campaign.pause", Limit: 1, WindowSecs: 60},
			},
		},
		RateLimitState: map[string]types.RateLimitCounterState{
			"p1:ads.campaign.pause": {WindowStart: now.Add(-time.Second), Count: 1},
		},
	}

	trace := e.Evaluate(evalCtx, engineCtx)
	assert.Equal(t, types.DecisionDeny, trace.FinalDecision)
}

func TestEngine_RateLimitBelowThresholdAllows(t *testing.T) {
	now := time.Now()
	e := NewEngine(risk.Defaults()).WithClock(fixedClock(now))
	evalCtx := EvaluationContext{ActionType: "ads.campaign.pause", PrincipalID: "p1"}
	engineCtx := EngineContext{
		ResolvedIdentity: zeroRiskIdentity(map[types.RiskCategory]types.ApprovalLevel{types.RiskNone: types.ApprovalLevelNone}),
		RiskInput:        zeroRiskInput(),
		Guardrails: types.GuardrailSpec{
			RateLimits: []types.RateLimit{
				{ActionType: "ads.campaign.pause", Limit: 5, WindowSecs: 60},
			},
		},
		RateLimitState: map[string]types.RateLimitCounterState{
			"p1:ads.campaign.pause": {WindowStart: now.Add(-time.Second), Count: 1},
		},
	}

	trace := e.Evaluate(evalCtx, engineCtx)
	assert.Equal(t, types.DecisionAllow, trace.FinalDecision)
}

func TestEngine_PolicyRuleRequiresApprovalWithoutDenying(t *testing.T) {
	e := NewEngine(risk.Defaults())
	evalCtx := EvaluationContext{ActionType: "ads.campaign.pause", PrincipalID: "p1"}
	engineCtx := EngineContext{
		ResolvedIdentity: zeroRiskIdentity(map[types.RiskCategory]types.ApprovalLevel{types.RiskNone: types.ApprovalLevelNone}),
		RiskInput:        zeroRiskInput(),
		Policies: []Policy{
			{
				ID:       "require-approval-for-pause",
				Priority: 1,
				Rule: ruleeval.PolicyRule{
					Composition: ruleeval.CompositionAND,
					Conditions: []ruleeval.Condition{
						{Field: "action.type", Operator: ruleeval.OpEq, Expected: "ads.campaign.pause"},
					},
				},
				Effect:        EffectRequireApproval,
				ApprovalLevel: types.ApprovalLevelElevated,
			},
		},
	}

	trace := e.Evaluate(evalCtx, engineCtx)
	require.NotEqual(t, types.DecisionDeny, trace.FinalDecision)
	assert.Equal(t, types.ApprovalLevelElevated, trace.RequiredApprovalLevel)
	assert.Equal(t, types.DecisionModify, trace.FinalDecision)
}

func TestEngine_RiskToleranceAloneDrivesApproval(t *testing.T) {
	e := NewEngine(risk.Defaults())
	evalCtx := EvaluationContext{ActionType: "infra.instance.terminate", PrincipalID: "p1"}
	engineCtx := EngineContext{
		ResolvedIdentity: zeroRiskIdentity(map[types.RiskCategory]types.ApprovalLevel{
			types.RiskMedium: types.ApprovalLevelMandatory,
		}),
		RiskInput: types.RiskInput{
			BaseRisk:      types.RiskHigh, // weight 55 -> score 55 -> category "medium" per thresholds
			Exposure:      types.Exposure{BlastRadius: 1},
			Reversibility: types.ReversibilityFull,
		},
	}

	trace := e.Evaluate(evalCtx, engineCtx)
	assert.Equal(t, types.RiskMedium, trace.RiskScore.Category)
	assert.Equal(t, types.ApprovalLevelMandatory, trace.RequiredApprovalLevel)
	assert.Equal(t, types.DecisionModify, trace.FinalDecision)
}

func TestEngine_CompositeBumpRaisesCategoryAndApproval(t *testing.T) {
	e := NewEngine(risk.Defaults())
	evalCtx := EvaluationContext{ActionType: "ads.budget.increase", PrincipalID: "p1"}
	engineCtx := EngineContext{
		ResolvedIdentity: zeroRiskIdentity(map[types.RiskCategory]types.ApprovalLevel{
			types.RiskNone: types.ApprovalLevelNone,
			types.RiskLow:  types.ApprovalLevelElevated,
		}),
		RiskInput: zeroRiskInput(), // base score 0 -> category "none"
		CompositeContext: &types.CompositeContext{
			RecentActionCount: 13, // 13 * 2 = 26 contribution -> total 26 -> "low"
		},
	}

	trace := e.Evaluate(evalCtx, engineCtx)
	assert.Equal(t, types.RiskLow, trace.RiskScore.Category)
	assert.Equal(t, types.ApprovalLevelElevated, trace.RequiredApprovalLevel)
}

func TestEngine_SimulateMatchesEvaluateTrace(t *testing.T) {
	e := NewEngine(risk.Defaults())
	evalCtx := EvaluationContext{ActionType: "ads.campaign.pause", PrincipalID: "p1"}
	engineCtx := EngineContext{
		ResolvedIdentity: zeroRiskIdentity(map[types.RiskCategory]types.ApprovalLevel{types.RiskNone: types.ApprovalLevelNone}),
		RiskInput:        zeroRiskInput(),
	}

	evalTrace := e.Evaluate(evalCtx, engineCtx)
	simResult := e.Simulate(evalCtx, engineCtx)

	assert.Equal(t, evalTrace.FinalDecision, simResult.Trace.FinalDecision)
	assert.Equal(t, evalTrace.RequiredApprovalLevel, simResult.Trace.RequiredApprovalLevel)
	assert.True(t, simResult.WouldExecute)
	assert.False(t, simResult.ApprovalRequired)
}

func TestEngine_PerActionSpendLimitDenies(t *testing.T) {
	e := NewEngine(risk.Defaults())
	limit := 100.0
	evalCtx := EvaluationContext{
		ActionType:  "ads.budget.increase",
		PrincipalID: "p1",
		Parameters:  map[string]interface{}{"amount": 500.0},
	}
	identity := zeroRiskIdentity(map[types.RiskCategory]types.ApprovalLevel{types.RiskNone: types.ApprovalLevelNone})
	identity.EffectiveSpendLimits.PerAction = &limit
	engineCtx := EngineContext{
		ResolvedIdentity: identity,
		RiskInput:        zeroRiskInput(),
	}

	trace := e.Evaluate(evalCtx, engineCtx)
	assert.Equal(t, types.DecisionDeny, trace.FinalDecision)
}
