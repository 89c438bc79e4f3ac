package compiler

import (
	"fmt"

	"github.com/ColinClark/mlql/ir"
	"github.com/ColinClark/mlql/schema"
)

// Function extension URIs (spec §6.5). Bare filenames, matching how the
// spec itself names them; the Substrait backend emits them as-is in the
// plan's extensionUris.
const (
	URIComparison       = "functions_comparison.yaml"
	URIBoolean          = "functions_boolean.yaml"
	URIArithmetic       = "functions_arithmetic.yaml"
	URIString           = "functions_string.yaml"
	URIAggregateGeneric = "functions_aggregate_generic.yaml"
	URIAggregateApprox  = "functions_aggregate_approx.yaml"
)

var comparisonOps = map[ir.BinOp]string{
	ir.Eq: "equal", ir.Ne: "not_equal",
	ir.Lt: "lt", ir.Le: "lte", ir.Gt: "gt", ir.Ge: "gte",
}

var booleanBinOps = map[ir.BinOp]string{ir.And: "and", ir.Or: "or"}

var arithmeticOps = map[ir.BinOp]string{
	ir.Add: "add", ir.Sub: "subtract", ir.Mul: "multiply", ir.Div: "divide", ir.Mod: "modulus",
}

var stringOps = map[ir.BinOp]string{ir.Like: "like", ir.ILike: "ilike"}

// aggregateFuncs is the closed set of scalar aggregate functions this
// implementation recognizes. Names beyond this set fail with an
// Unsupported error naming the function (see AggregateFunctionRef).
var aggregateFuncs = map[string]bool{
	"count": true, "sum": true, "avg": true, "min": true, "max": true,
}

// FunctionRef names the extension a translated function call resolves
// to: the base name Substrait knows it by, the URI its declaration lives
// in, and the type-suffixed signature string the Substrait backend keys
// extension-anchor registration on.
type FunctionRef struct {
	Name      string
	URI       string
	Signature string
}

// substraitTypeTag is the short type code Substrait signatures use,
// derived from a schema.DataType (spec §4.2's coarse tag set).
func substraitTypeTag(dt schema.DataType) string {
	switch dt {
	case schema.Int32:
		return "i32"
	case schema.Int64:
		return "i64"
	case schema.Float32:
		return "fp32"
	case schema.Float64:
		return "fp64"
	case schema.String:
		return "str"
	case schema.Bool:
		return "bool"
	default:
		return "str"
	}
}

// BinaryFunctionRef resolves op to its extension URI and a signature
// built from the coarse types of its operands (an operand whose type
// can't be determined, schema.Other, gets the str tag).
func BinaryFunctionRef(op ir.BinOp, left, right schema.DataType) (FunctionRef, error) {
	lt, rt := substraitTypeTag(left), substraitTypeTag(right)
	if name, ok := comparisonOps[op]; ok {
		return FunctionRef{Name: name, URI: URIComparison, Signature: fmt.Sprintf("%s:%s_%s", name, lt, rt)}, nil
	}
	if name, ok := booleanBinOps[op]; ok {
		return FunctionRef{Name: name, URI: URIBoolean, Signature: fmt.Sprintf("%s:bool_bool", name)}, nil
	}
	if name, ok := arithmeticOps[op]; ok {
		return FunctionRef{Name: name, URI: URIArithmetic, Signature: fmt.Sprintf("%s:%s_%s", name, lt, rt)}, nil
	}
	if name, ok := stringOps[op]; ok {
		return FunctionRef{Name: name, URI: URIString, Signature: fmt.Sprintf("%s:str_str", name)}, nil
	}
	return FunctionRef{}, E(Internal, NoOp, fmt.Sprintf("no signature for binary operator %q", op))
}

// UnaryFunctionRef resolves a unary operator the same way.
func UnaryFunctionRef(op ir.UnOp, arg schema.DataType) (FunctionRef, error) {
	switch op {
	case ir.Not:
		return FunctionRef{Name: "not", URI: URIBoolean, Signature: "not:bool"}, nil
	case ir.Neg:
		return FunctionRef{Name: "negate", URI: URIArithmetic, Signature: fmt.Sprintf("negate:%s", substraitTypeTag(arg))}, nil
	}
	return FunctionRef{}, E(Internal, NoOp, fmt.Sprintf("no signature for unary operator %q", op))
}

// AggregateFunctionRef resolves an aggregate function name. Unknown
// functions fail with a TypeError naming the function (spec §6.5); this
// implementation reports it as an errs.Error{Kind: Unsupported}
// carrying the offending function name.
func AggregateFunctionRef(name string) (FunctionRef, error) {
	if !aggregateFuncs[name] {
		return FunctionRef{}, E(Unsupported, NoOp, fmt.Sprintf("unknown aggregate function %q", name))
	}
	return FunctionRef{Name: name, URI: URIAggregateGeneric, Signature: fmt.Sprintf("%s:i64", name)}, nil
}
