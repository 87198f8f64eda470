package expr

import "github.com/hashicorp/hcl/v2/hclsyntax"

// walkForFunctions calls found for every function call in expr.
func walkForFunctions(expr hclsyntax.Expression, found func(name string)) {
	if expr == nil {
		return
	}
	switch e := expr.(type) {
	case *hclsyntax.FunctionCallExpr:
		found(e.Name)
		for _, arg := range e.Args {
			walkForFunctions(arg, found)
		}
	case *hclsyntax.BinaryOpExpr:
		walkForFunctions(e.LHS, found)
		walkForFunctions(e.RHS, found)
	case *hclsyntax.ConditionalExpr:
		walkForFunctions(e.Condition, found)
		walkForFunctions(e.TrueResult, found)
		walkForFunctions(e.FalseResult, found)
	case *hclsyntax.UnaryOpExpr:
		walkForFunctions(e.Val, found)
	case *hclsyntax.TemplateExpr:
		for _, part := range e.Parts {
			walkForFunctions(part, found)
		}
	case *hclsyntax.TemplateWrapExpr:
		walkForFunctions(e.Wrapped, found)
	case *hclsyntax.TupleConsExpr:
		for _, item := range e.Exprs {
			walkForFunctions(item, found)
		}
	case *hclsyntax.ObjectConsExpr:
		for _, item := range e.Items {
			walkForFunctions(item.KeyExpr, found)
			walkForFunctions(item.ValueExpr, found)
		}
	case *hclsyntax.ForExpr:
		walkForFunctions(e.CollExpr, found)
		walkForFunctions(e.KeyExpr, found)
		walkForFunctions(e.ValExpr, found)
		walkForFunctions(e.CondExpr, found)
	case *hclsyntax.IndexExpr:
		walkForFunctions(e.Collection, found)
		walkForFunctions(e.Key, found)
	case *hclsyntax.SplatExpr:
		walkForFunctions(e.Source, found)
		walkForFunctions(e.Each, found)
	case *hclsyntax.ParenthesesExpr:
		walkForFunctions(e.Expression, found)
	case *hclsyntax.RelativeTraversalExpr:
		walkForFunctions(e.Source, found)
	}
}
