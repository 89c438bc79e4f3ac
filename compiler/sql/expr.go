// Package sql translates IR into a single standalone SQL SELECT
// statement, introducing a WITH clause only when a later operator needs
// a column a Select has already projected away (spec §4.4).
package sql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ColinClark/mlql/compiler"
	"github.com/ColinClark/mlql/ir"
)

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func translateValue(v ir.Value) string {
	switch v.Kind {
	case ir.KindNull:
		return "NULL"
	case ir.KindBool:
		if v.B {
			return "TRUE"
		}
		return "FALSE"
	case ir.KindInt:
		return strconv.FormatInt(v.I, 10)
	case ir.KindFloat:
		return strconv.FormatFloat(v.F, 'g', -1, 64)
	case ir.KindString:
		return quoteString(v.S)
	default:
		return "NULL"
	}
}

var binOpSQL = map[ir.BinOp]string{
	ir.Add: "+", ir.Sub: "-", ir.Mul: "*", ir.Div: "/", ir.Mod: "%",
	ir.Eq: "=", ir.Ne: "<>", ir.Lt: "<", ir.Le: "<=", ir.Gt: ">", ir.Ge: ">=",
	ir.And: "AND", ir.Or: "OR", ir.Like: "LIKE", ir.ILike: "ILIKE",
}

// translateExpr renders e as SQL text. Binary operators are always
// parenthesized (spec §4.4) to sidestep engine-specific precedence.
func translateExpr(e ir.Expr) (string, error) {
	switch v := e.(type) {
	case *ir.Column:
		if v.Table != "" {
			return quoteIdent(v.Table) + "." + quoteIdent(v.Column), nil
		}
		return quoteIdent(v.Column), nil
	case *ir.Literal:
		return translateValue(v.Value), nil
	case *ir.BinaryOp:
		op, ok := binOpSQL[v.Op]
		if !ok {
			return "", compiler.E(compiler.Unsupported, compiler.NoOp, fmt.Sprintf("operator %q", v.Op))
		}
		left, err := translateExpr(v.Left)
		if err != nil {
			return "", err
		}
		right, err := translateExpr(v.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", left, op, right), nil
	case *ir.UnaryOp:
		arg, err := translateExpr(v.Arg)
		if err != nil {
			return "", err
		}
		switch v.Op {
		case ir.Not:
			return fmt.Sprintf("(NOT %s)", arg), nil
		case ir.Neg:
			return fmt.Sprintf("(-%s)", arg), nil
		}
		return "", compiler.E(compiler.Unsupported, compiler.NoOp, fmt.Sprintf("unary operator %q", v.Op))
	case *ir.FuncCall:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			s, err := translateExpr(a)
			if err != nil {
				return "", err
			}
			args[i] = s
		}
		return fmt.Sprintf("%s(%s)", v.Func, strings.Join(args, ", ")), nil
	case *ir.AggCall:
		return "", compiler.E(compiler.Unsupported, compiler.NoOp, "AggCall outside GroupBy.aggs")
	default:
		return "", compiler.E(compiler.Internal, compiler.NoOp, "unknown expression node")
	}
}

func translateAgg(a ir.AggAssignment) (string, error) {
	if a.Func == "count" && len(a.Args) == 0 {
		return fmt.Sprintf(`count(*) AS %s`, quoteIdent(a.Alias)), nil
	}
	if _, err := compiler.AggregateFunctionRef(a.Func); err != nil {
		return "", err
	}
	args := make([]string, len(a.Args))
	for i, arg := range a.Args {
		s, err := translateExpr(arg)
		if err != nil {
			return "", err
		}
		args[i] = s
	}
	distinct := ""
	if a.Distinct {
		distinct = "DISTINCT "
	}
	return fmt.Sprintf("%s(%s%s) AS %s", a.Func, distinct, strings.Join(args, ", "), quoteIdent(a.Alias)), nil
}
