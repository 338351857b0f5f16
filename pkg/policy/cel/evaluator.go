// Package cel provides an optional CEL-compiled Condition evaluator for
// policies whose logic needs expression power beyond ruleeval's closed
// operator set (arithmetic across fields, multi-field boolean combinators
// in one expression, string functions).
package cel

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// Evaluator compiles and caches one CEL program per expression string, so a
// policy bundle that reuses the same expression across evaluations pays the
// compile cost once.
type Evaluator struct {
	env      *cel.Env
	programs map[string]cel.Program
}

// NewEvaluator builds an Evaluator whose variable declarations mirror
// policy.EvaluationContext.AsRuleContext, so the same flattened map serves
// both ruleeval.Evaluate and CEL expressions.
func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("action", cel.DynType),
		cel.Variable("parameters", cel.DynType),
		cel.Variable("cartridgeId", cel.StringType),
		cel.Variable("principalId", cel.StringType),
		cel.Variable("organizationId", cel.StringType),
		cel.Variable("riskCategory", cel.StringType),
		cel.Variable("metadata", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("policy/cel: build environment: %w", err)
	}
	return &Evaluator{env: env, programs: map[string]cel.Program{}}, nil
}

// Matches compiles expr (caching by source text) and evaluates it against
// ctx, the same flattened map ruleeval.Evaluate consumes. A non-boolean
// result or a compile/eval error is returned to the caller, which should
// treat it as unmatched rather than propagate a policy-engine panic —
// mirroring ruleeval's "malformed input never derails the pipeline"
// contract.
func (e *Evaluator) Matches(expr string, ctx map[string]interface{}) (bool, error) {
	prg, err := e.program(expr)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(ctx)
	if err != nil {
		return false, fmt.Errorf("policy/cel: evaluate %q: %w", expr, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("policy/cel: expression %q did not evaluate to a bool", expr)
	}
	return b, nil
}

func (e *Evaluator) program(expr string) (cel.Program, error) {
	if prg, ok := e.programs[expr]; ok {
		return prg, nil
	}
	ast, iss := e.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("policy/cel: compile %q: %w", expr, iss.Err())
	}
	if issues := checkDeterminism(ast); len(issues) > 0 {
		return nil, fmt.Errorf("policy/cel: expression %q rejected: %s", expr, issues[0].Message)
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("policy/cel: build program %q: %w", expr, err)
	}
	e.programs[expr] = prg
	return prg, nil
}
