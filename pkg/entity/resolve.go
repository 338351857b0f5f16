// Package entity resolves user-supplied references (like "the Acme
// campaign") to cartridge-native IDs, aggregating per-cartridge resolver
// callbacks into a single clarify/not-found/proceed outcome.
package entity

import (
	"context"
	"fmt"
	"strings"
)

// Status is the outcome of one resolver callback invocation.
type Status string

const (
	StatusResolved  Status = "resolved"
	StatusAmbiguous Status = "ambiguous"
	StatusNotFound  Status = "not_found"
)

// Alternative is one candidate match offered when a reference is ambiguous.
type Alternative struct {
	ID   string
	Name string
}

// ResolveResult is what a cartridge's resolver callback returns for one
// (inputRef, entityType) pair.
type ResolveResult struct {
	Status       Status
	ResolvedID   string
	ResolvedName string
	Confidence   float64
	Alternatives []Alternative
}

// Reference is one (inputRef, entityType) pair to resolve, plus the
// conventional parameter keys it may appear under (e.g. "campaignRef" maps
// to "campaignId").
type Reference struct {
	InputRef      string
	EntityType    string
	ConventionalKey string // e.g. "campaignId"; "" if none
}

// Resolver is the per-cartridge callback the entity package fans out to. It
// is read-only and must fail closed: an error is treated as ambiguous,
// per the worst-case-assumption rule for read-only cartridge calls.
type Resolver func(ctx context.Context, inputRef, entityType string) (ResolveResult, error)

// Outcome is the aggregated result of resolving every reference.
type Outcome struct {
	NeedsClarification bool
	Question           string
	NotFound           bool
	Explanation        string
	Resolved           map[string]ResolveResult // keyed by InputRef
}

// ResolveAll runs resolver over every reference and aggregates the results:
// any ambiguous reference short-circuits to NeedsClarification; otherwise any
// not_found short-circuits to NotFound; otherwise every reference resolved.
func ResolveAll(ctx context.Context, refs []Reference, resolver Resolver) Outcome {
	resolved := make(map[string]ResolveResult, len(refs))
	var ambiguousQuestions []string
	var notFoundRefs []string

	for _, ref := range refs {
		result, err := resolver(ctx, ref.InputRef, ref.EntityType)
		if err != nil {
			result = ResolveResult{Status: StatusAmbiguous}
		}
		resolved[ref.InputRef] = result

		switch result.Status {
		case StatusAmbiguous:
			ambiguousQuestions = append(ambiguousQuestions, questionFor(ref, result))
		case StatusNotFound:
			notFoundRefs = append(notFoundRefs, ref.InputRef)
		}
	}

	if len(ambiguousQuestions) > 0 {
		return Outcome{
			NeedsClarification: true,
			Question:           strings.Join(ambiguousQuestions, " "),
			Resolved:           resolved,
		}
	}
	if len(notFoundRefs) > 0 {
		return Outcome{
			NotFound:    true,
			Explanation: fmt.Sprintf("could not resolve: %s", strings.Join(notFoundRefs, ", ")),
			Resolved:    resolved,
		}
	}
	return Outcome{Resolved: resolved}
}

func questionFor(ref Reference, result ResolveResult) string {
	var names []string
	for _, alt := range result.Alternatives {
		names = append(names, fmt.Sprintf("%s (%s)", alt.Name, alt.ID))
	}
	return fmt.Sprintf("Which %s did you mean for %q: %s?", ref.EntityType, ref.InputRef, strings.Join(names, ", "))
}

// ApplyResolutions substitutes every resolved reference's inputRef in
// parameters with its resolvedID, both by direct value match and by the
// reference's conventional key (e.g. "campaignRef" -> "campaignId").
func ApplyResolutions(parameters map[string]interface{}, refs []Reference, resolved map[string]ResolveResult) map[string]interface{} {
	out := make(map[string]interface{}, len(parameters))
	for k, v := range parameters {
		out[k] = v
	}

	for _, ref := range refs {
		result, ok := resolved[ref.InputRef]
		if !ok || result.Status != StatusResolved {
			continue
		}
		for k, v := range out {
			if s, ok := v.(string); ok && s == ref.InputRef {
				out[k] = result.ResolvedID
			}
		}
		if ref.ConventionalKey != "" {
			out[ref.ConventionalKey] = result.ResolvedID
		}
	}
	return out
}
