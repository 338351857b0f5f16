package entity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveAll_AmbiguousShortCircuits(t *testing.T) {
	refs := []Reference{{InputRef: "the acme campaign", EntityType: "campaign"}}
	resolver := func(ctx context.Context, inputRef, entityType string) (ResolveResult, error) {
		return ResolveResult{
			Status:       StatusAmbiguous,
			Alternatives: []Alternative{{ID: "c1", Name: "Acme Q1"}, {ID: "c2", Name: "Acme Q2"}},
		}, nil
	}
	outcome := ResolveAll(context.Background(), refs, resolver)
	assert.True(t, outcome.NeedsClarification)
	assert.Contains(t, outcome.Question, "Acme Q1")
}

func TestResolveAll_NotFound(t *testing.T) {
	refs := []Reference{{InputRef: "nonexistent", EntityType: "campaign"}}
	resolver := func(ctx context.Context, inputRef, entityType string) (ResolveResult, error) {
		return ResolveResult{Status: StatusNotFound}, nil
	}
	outcome := ResolveAll(context.Background(), refs, resolver)
	assert.True(t, outcome.NotFound)
}

func TestResolveAll_ResolverErrorFailsClosedAsAmbiguous(t *testing.T) {
	refs := []Reference{{InputRef: "x", EntityType: "campaign"}}
	resolver := func(ctx context.Context, inputRef, entityType string) (ResolveResult, error) {
		return ResolveResult{}, errors.New("boom")
	}
	outcome := ResolveAll(context.Background(), refs, resolver)
	assert.True(t, outcome.NeedsClarification)
}

func TestApplyResolutions_ReplacesByValueAndConventionalKey(t *testing.T) {
	refs := []Reference{{InputRef: "acme", EntityType: "campaign", ConventionalKey: "campaignId"}}
	resolved := map[string]ResolveResult{
		"acme": {Status: StatusResolved, ResolvedID: "c1"},
	}
	params := map[string]interface{}{"campaignRef": "acme"}
	out := ApplyResolutions(params, refs, resolved)
	assert.Equal(t, "c1", out["campaignRef"])
	assert.Equal(t, "c1", out["campaignId"])
}
