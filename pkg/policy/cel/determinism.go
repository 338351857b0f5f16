package cel

import (
	"github.com/google/cel-go/cel"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// determinismIssue describes why a compiled expression was rejected.
type determinismIssue struct {
	Message string
}

// checkDeterminism walks ast's parsed expression tree and rejects
// constructs whose result can vary between replays of the same policy
// bundle: wall-clock reads, float literals (rounding differs across
// evaluators), and map key/value iteration (order is unspecified). A policy
// expression that passed determinism on creation must evaluate identically
// when the audit ledger is replayed, or the replay would no longer prove
// what was actually decided.
func checkDeterminism(ast *cel.Ast) []determinismIssue {
	parsed, err := cel.AstToParsedExpr(ast)
	if err != nil {
		return nil
	}
	var issues []determinismIssue
	walkDeterminism(parsed.GetExpr(), &issues)
	return issues
}

func walkDeterminism(e *exprpb.Expr, issues *[]determinismIssue) {
	if e == nil {
		return
	}

	switch k := e.ExprKind.(type) {
	case *exprpb.Expr_ConstExpr:
		if _, ok := k.ConstExpr.ConstantKind.(*exprpb.Constant_DoubleValue); ok {
			*issues = append(*issues, determinismIssue{Message: "floating point literals are forbidden in policy expressions"})
		}

	case *exprpb.Expr_CallExpr:
		call := k.CallExpr
		switch call.Function {
		case "now":
			*issues = append(*issues, determinismIssue{Message: "now() is forbidden in policy expressions"})
		case "keys", "values":
			*issues = append(*issues, determinismIssue{Message: "map iteration (keys/values) is forbidden: order is not deterministic"})
		}
		if call.Target != nil {
			walkDeterminism(call.Target, issues)
		}
		for _, arg := range call.Args {
			walkDeterminism(arg, issues)
		}

	case *exprpb.Expr_SelectExpr:
		walkDeterminism(k.SelectExpr.Operand, issues)

	case *exprpb.Expr_ListExpr:
		for _, el := range k.ListExpr.Elements {
			walkDeterminism(el, issues)
		}

	case *exprpb.Expr_StructExpr:
		for _, entry := range k.StructExpr.Entries {
			if entry.GetMapKey() != nil {
				walkDeterminism(entry.GetMapKey(), issues)
			}
			walkDeterminism(entry.Value, issues)
		}

	case *exprpb.Expr_ComprehensionExpr:
		comp := k.ComprehensionExpr
		walkDeterminism(comp.IterRange, issues)
		walkDeterminism(comp.AccuInit, issues)
		walkDeterminism(comp.LoopCondition, issues)
		walkDeterminism(comp.LoopStep, issues)
		walkDeterminism(comp.Result, issues)
	}
}
