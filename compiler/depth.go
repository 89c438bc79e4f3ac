package compiler

import (
	"fmt"

	"github.com/ColinClark/mlql/errors"
	"github.com/ColinClark/mlql/ir"
)

// CheckDepth walks e and fails with errs.Kind TooDeep once max is
// exceeded, guarding against stack exhaustion when compiling
// attacker-authored IR (spec §5). Default max is DefaultMaxExprDepth.
func CheckDepth(e ir.Expr, max int) error {
	return checkDepth(e, 1, max)
}

func checkDepth(e ir.Expr, depth, max int) error {
	if depth > max {
		return errs.E(errs.TooDeep, fmt.Sprintf("expression exceeds max depth %d", max))
	}
	switch v := e.(type) {
	case *ir.BinaryOp:
		if err := checkDepth(v.Left, depth+1, max); err != nil {
			return err
		}
		return checkDepth(v.Right, depth+1, max)
	case *ir.UnaryOp:
		return checkDepth(v.Arg, depth+1, max)
	case *ir.FuncCall:
		for _, a := range v.Args {
			if err := checkDepth(a, depth+1, max); err != nil {
				return err
			}
		}
	case *ir.AggCall:
		for _, a := range v.Args {
			if err := checkDepth(a, depth+1, max); err != nil {
				return err
			}
		}
	}
	return nil
}
