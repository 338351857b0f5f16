package obslog

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

func newJSONLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, nil))
}

func TestWithEnvelope_AddsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := WithEnvelope(newJSONLogger(&buf), &types.ActionEnvelope{
		ID: "env-1", Status: types.StatusProposed, Version: 2,
	})
	logger.Info("proposed")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "env-1", line["envelope_id"])
	assert.Equal(t, "proposed", line["envelope_status"])
}

func TestWithPrincipal_AddsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := WithPrincipal(newJSONLogger(&buf), &types.Principal{ID: "p-1", Type: types.PrincipalAgent})
	logger.Info("acting")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "p-1", line["principal_id"])
	assert.Equal(t, "agent", line["principal_type"])
}

func TestWithDecision_AddsFields(t *testing.T) {
	var buf bytes.Buffer
	trace := &types.DecisionTrace{
		FinalDecision:         types.DecisionModify,
		RequiredApprovalLevel: types.ApprovalLevelElevated,
		RiskScore:             types.RiskScore{Raw: 42.5, Category: types.RiskMedium},
		EvaluatedAt:           time.Now(),
	}
	logger := WithDecision(newJSONLogger(&buf), trace)
	logger.Info("decided")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "modify", line["decision"])
	assert.Equal(t, "elevated", line["required_approval_level"])
	assert.Equal(t, "medium", line["risk_category"])
}

func TestWithEnvelope_NilSafe(t *testing.T) {
	logger := slog.Default()
	assert.Same(t, logger, WithEnvelope(logger, nil))
	assert.Same(t, logger, WithPrincipal(logger, nil))
	assert.Same(t, logger, WithDecision(logger, nil))
}
