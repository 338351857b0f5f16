package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

// demoCartridge is a minimal, in-process cartridge used to exercise the
// full lifecycle (propose -> approve -> execute -> undo) without a real
// external integration wired up. It owns the "demo.*" action namespace.
type demoCartridge struct{}

func (demoCartridge) Descriptor() types.CartridgeDescriptor {
	return types.CartridgeDescriptor{
		ID:          "demo",
		DisplayName: "Demo Cartridge",
		ActionTypes: []string{"demo.*"},
		Version:     "0.1.0",
	}
}

func (demoCartridge) Initialize(ctx context.Context) error { return nil }

func (demoCartridge) EnrichContext(ctx context.Context, proposal types.ActionProposal) (map[string]interface{}, error) {
	return map[string]interface{}{"demoCartridgeVersion": "0.1.0"}, nil
}

func (demoCartridge) HealthCheck(ctx context.Context) (types.HealthStatus, error) {
	return types.HealthStatus{Status: "healthy", Capabilities: []string{"execute", "enrichContext"}}, nil
}

func (demoCartridge) GetGuardrails(ctx context.Context) (types.GuardrailSpec, error) {
	return types.GuardrailSpec{
		RateLimits: []types.RateLimit{
			{ActionType: "demo.*", Algorithm: types.RateLimitSlidingWindow, Limit: 10, WindowSecs: 60},
		},
		Cooldowns: []types.Cooldown{
			{ActionType: "demo.refund", SecondsSince: 300},
		},
	}, nil
}

func (demoCartridge) Score(ctx context.Context, proposal types.ActionProposal) (types.RiskInput, error) {
	dollars, _ := proposal.Parameters["amount"].(float64)

	input := types.RiskInput{
		BaseRisk: types.RiskLow,
		Exposure: types.Exposure{
			DollarsAtRisk: dollars,
			BlastRadius:   1,
		},
		Reversibility: types.ReversibilityFull,
	}
	if proposal.ActionType == "demo.refund" {
		input.BaseRisk = types.RiskMedium
		input.Reversibility = types.ReversibilityPartial
	}
	return input, nil
}

func (demoCartridge) Execute(ctx context.Context, proposal types.ActionProposal) (types.ExecuteResult, error) {
	return types.ExecuteResult{
		Success:           true,
		Summary:           fmt.Sprintf("executed %s for %s", proposal.ActionType, proposal.PrincipalID()),
		RollbackAvailable: true,
		DurationMs:        5,
		UndoRecipe: &types.UndoRecipe{
			OriginalActionID:   proposal.ID,
			OriginalEnvelopeID: stringParamFrom(proposal.Parameters, types.ParamEnvelopeID),
			ReverseActionType:  "demo.reverse",
			ReverseParameters:  proposal.Parameters,
			UndoExpiresAt:      time.Now().Add(24 * time.Hour),
			UndoRiskCategory:   types.RiskLow,
		},
	}, nil
}

func stringParamFrom(params map[string]interface{}, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}
