package ruleeval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ctx(m map[string]interface{}) map[string]interface{} { return m }

func TestEvaluate_EmptyANDIsVacuouslyTrue(t *testing.T) {
	rule := PolicyRule{Composition: CompositionAND}
	res := Evaluate(rule, ctx(nil))
	assert.True(t, res.Matched)
}

func TestEvaluate_SimpleEq(t *testing.T) {
	rule := PolicyRule{
		Composition: CompositionAND,
		Conditions: []Condition{
			{Field: "action.type", Operator: OpEq, Expected: "ads.campaign.pause"},
		},
	}
	c := ctx(map[string]interface{}{
		"action": map[string]interface{}{"type": "ads.campaign.pause"},
	})
	res := Evaluate(rule, c)
	require.Len(t, res.ConditionResults, 1)
	assert.True(t, res.Matched)
}

func TestEvaluate_NumericTypeMismatchIsUnmatchedNotError(t *testing.T) {
	rule := PolicyRule{
		Composition: CompositionAND,
		Conditions: []Condition{
			{Field: "amount", Operator: OpGt, Expected: 100},
		},
	}
	c := ctx(map[string]interface{}{"amount": "not-a-number"})
	res := Evaluate(rule, c)
	assert.False(t, res.Matched)
}

func TestEvaluate_NOTInvertsConjunction(t *testing.T) {
	rule := PolicyRule{
		Composition: CompositionNOT,
		Conditions: []Condition{
			{Field: "risk", Operator: OpEq, Expected: "high"},
		},
	}
	res := Evaluate(rule, ctx(map[string]interface{}{"risk": "low"}))
	assert.True(t, res.Matched)

	res = Evaluate(rule, ctx(map[string]interface{}{"risk": "high"}))
	assert.False(t, res.Matched)
}

func TestEvaluate_ORMatchesAnyChild(t *testing.T) {
	rule := PolicyRule{
		Composition: CompositionOR,
		Children: []PolicyRule{
			{Composition: CompositionAND, Conditions: []Condition{{Field: "a", Operator: OpEq, Expected: 1}}},
			{Composition: CompositionAND, Conditions: []Condition{{Field: "b", Operator: OpEq, Expected: 2}}},
		},
	}
	res := Evaluate(rule, ctx(map[string]interface{}{"a": 0, "b": 2}))
	assert.True(t, res.Matched)
}

func TestEvaluate_ExistsNotExists(t *testing.T) {
	rule := PolicyRule{Composition: CompositionAND, Conditions: []Condition{{Field: "x", Operator: OpExists}}}
	assert.True(t, Evaluate(rule, ctx(map[string]interface{}{"x": 1})).Matched)
	assert.False(t, Evaluate(rule, ctx(map[string]interface{}{})).Matched)

	rule = PolicyRule{Composition: CompositionAND, Conditions: []Condition{{Field: "x", Operator: OpNotExists}}}
	assert.True(t, Evaluate(rule, ctx(map[string]interface{}{})).Matched)
}

func TestSafeMatch_RejectsOversizedPattern(t *testing.T) {
	big := make([]byte, MaxPatternLength+1)
	for i := range big {
		big[i] = 'a'
	}
	matched, err := SafeMatch(string(big), "aaa")
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestSafeMatch_RejectsNestedUnboundedQuantifiers(t *testing.T) {
	matched, err := SafeMatch("(a+)+$", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa!")
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestSafeMatch_RejectsCompileErrorAsUnmatched(t *testing.T) {
	matched, err := SafeMatch("(unclosed", "anything")
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestSafeMatch_OrdinaryPatternWorks(t *testing.T) {
	matched, err := SafeMatch("^ads\\.", "ads.campaign.pause")
	require.NoError(t, err)
	assert.True(t, matched)
}
