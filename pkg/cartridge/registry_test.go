package cartridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

type stubCartridge struct {
	descriptor types.CartridgeDescriptor
}

func (s *stubCartridge) Descriptor() types.CartridgeDescriptor { return s.descriptor }
func (s *stubCartridge) Initialize(ctx context.Context) error  { return nil }
func (s *stubCartridge) GetGuardrails(ctx context.Context) (types.GuardrailSpec, error) {
	return types.GuardrailSpec{}, nil
}
func (s *stubCartridge) Score(ctx context.Context, p types.ActionProposal) (types.RiskInput, error) {
	return types.RiskInput{}, nil
}
func (s *stubCartridge) EnrichContext(ctx context.Context, p types.ActionProposal) (map[string]interface{}, error) {
	return nil, nil
}
func (s *stubCartridge) Execute(ctx context.Context, p types.ActionProposal) (types.ExecuteResult, error) {
	return types.ExecuteResult{Success: true}, nil
}
func (s *stubCartridge) HealthCheck(ctx context.Context) (types.HealthStatus, error) {
	return types.HealthStatus{Status: "healthy"}, nil
}

func TestRegistry_ResolveForActionTypeByPrefix(t *testing.T) {
	reg := NewRegistry()
	reg.Register("ads-spend", &stubCartridge{descriptor: types.CartridgeDescriptor{
		ID: "ads-spend", ActionTypes: []string{"ads.*"},
	}})

	c, err := reg.ResolveForActionType("", "ads.campaign.pause")
	require.NoError(t, err)
	assert.Equal(t, "ads-spend", c.Descriptor().ID)
}

func TestRegistry_ResolveUnknownReturnsMissingCapability(t *testing.T) {
	reg := NewRegistry()
	reg.Register("ads-spend", &stubCartridge{descriptor: types.CartridgeDescriptor{
		ID: "ads-spend", ActionTypes: []string{"ads.spend.*"},
	}})

	_, err := reg.ResolveForActionType("", "billing.refund")
	require.Error(t, err)
	var target *MissingCapability
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "billing.refund", target.ActionType)
	assert.Empty(t, target.SuggestedCartridgeIDs)

	_, err = reg.ResolveForActionType("", "ads.campaign.pause")
	require.Error(t, err)
	require.ErrorAs(t, err, &target)
	assert.Equal(t, []string{"ads-spend"}, target.SuggestedCartridgeIDs)
}

func TestParameterValidator_RejectsMissingRequiredField(t *testing.T) {
	schema := []byte(`{
		"type": "object",
		"required": ["campaignId"],
		"properties": {"campaignId": {"type": "string"}}
	}`)
	v, err := NewParameterValidator(map[string][]byte{"ads.campaign.pause": schema})
	require.NoError(t, err)

	err = v.Validate("ads.campaign.pause", map[string]interface{}{})
	assert.Error(t, err)

	err = v.Validate("ads.campaign.pause", map[string]interface{}{"campaignId": "c1"})
	assert.NoError(t, err)
}

func TestParameterValidator_UnregisteredActionTypePasses(t *testing.T) {
	v, err := NewParameterValidator(nil)
	require.NoError(t, err)
	assert.NoError(t, v.Validate("unknown.action", map[string]interface{}{"x": 1}))
}
