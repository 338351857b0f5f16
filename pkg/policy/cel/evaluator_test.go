package cel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatches_SimpleComparison(t *testing.T) {
	e, err := NewEvaluator()
	require.NoError(t, err)

	ctx := map[string]interface{}{
		"parameters": map[string]interface{}{"amount": 1500},
	}
	matched, err := e.Matches(`parameters.amount > 1000`, ctx)
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestMatches_CompoundExpression(t *testing.T) {
	e, err := NewEvaluator()
	require.NoError(t, err)

	ctx := map[string]interface{}{
		"parameters":   map[string]interface{}{"amount": 50},
		"riskCategory": "low",
	}
	matched, err := e.Matches(`parameters.amount < 100 && riskCategory == "low"`, ctx)
	require.NoError(t, err)
	assert.True(t, matched)

	matched, err = e.Matches(`parameters.amount > 100 && riskCategory == "low"`, ctx)
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestMatches_ProgramIsCachedAcrossCalls(t *testing.T) {
	e, err := NewEvaluator()
	require.NoError(t, err)

	expr := `principalId == "alice"`
	_, err = e.Matches(expr, map[string]interface{}{"principalId": "alice"})
	require.NoError(t, err)
	require.Len(t, e.programs, 1)

	_, err = e.Matches(expr, map[string]interface{}{"principalId": "bob"})
	require.NoError(t, err)
	assert.Len(t, e.programs, 1)
}

func TestMatches_CompileErrorIsReported(t *testing.T) {
	e, err := NewEvaluator()
	require.NoError(t, err)

	_, err = e.Matches(`this is not valid CEL (((`, map[string]interface{}{})
	assert.Error(t, err)
}

func TestMatches_NonBooleanResultIsReported(t *testing.T) {
	e, err := NewEvaluator()
	require.NoError(t, err)

	_, err = e.Matches(`parameters.amount`, map[string]interface{}{
		"parameters": map[string]interface{}{"amount": 5.0},
	})
	assert.Error(t, err)
}
