package compiler

import (
	"go.uber.org/multierr"

	"github.com/ColinClark/mlql/ir"
	"github.com/ColinClark/mlql/schema"
)

// Validate runs a non-fail-fast pre-flight lint pass over program: every
// column reference, aggregate function name, and expression depth is
// checked against provider, and every problem found is collected rather
// than stopping at the first one (spec §4's supplemented lint pass). A
// real compile still performs the same checks fail-fast as it walks the
// pipeline; Validate exists for callers (an editor, a CLI lint command)
// that want the complete list of problems in one pass instead of one at
// a time.
func Validate(program *ir.Program, provider schema.Provider, opts *Options) error {
	if opts == nil {
		opts = NewOptions()
	}
	var errs error
	env, err := SeedEnv(program.Pipeline.Source, provider, opts, NoOpIndex)
	if err != nil {
		errs = multierr.Append(errs, err)
		return errs
	}
	for i, op := range program.Pipeline.Ops {
		if depthErr := validateOpDepth(op, opts.MaxExprDepth); depthErr != nil {
			errs = multierr.Append(errs, At(depthErr, i))
		}
		if aggErr := validateAggregateNames(op); aggErr != nil {
			errs = multierr.Append(errs, At(aggErr, i))
		}
		next, err := NextEnv(env, op, i, provider, opts)
		if err != nil {
			errs = multierr.Append(errs, err)
			// Schema errors compound (a missing column cascades into every
			// later operator that reads it); keep the current environment
			// and continue rather than aborting the whole lint pass.
			continue
		}
		env = next
	}
	return errs
}

func validateOpDepth(op ir.Operator, max int) error {
	var errs error
	walkOpExprs(op, func(e ir.Expr) {
		if err := CheckDepth(e, max); err != nil {
			errs = multierr.Append(errs, err)
		}
	})
	return errs
}

func validateAggregateNames(op ir.Operator) error {
	g, ok := op.(*ir.GroupBy)
	if !ok {
		return nil
	}
	var errs error
	for _, a := range g.Aggs {
		if _, err := AggregateFunctionRef(a.Func); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func walkOpExprs(op ir.Operator, visit func(ir.Expr)) {
	switch v := op.(type) {
	case *ir.Filter:
		visit(v.Condition)
	case *ir.Sort:
		for _, k := range v.Keys {
			visit(k.Expr)
		}
	case *ir.Select:
		for _, p := range v.Projections {
			visit(p.Expr)
		}
	case *ir.GroupBy:
		for _, a := range v.Aggs {
			for _, arg := range a.Args {
				visit(arg)
			}
		}
	case *ir.Join:
		visit(v.On)
	}
}
