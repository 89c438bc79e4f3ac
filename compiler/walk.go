package compiler

import (
	"github.com/ColinClark/mlql/ir"
	"github.com/ColinClark/mlql/schema"
)

// SeedEnv builds the initial environment for a pipeline source: the
// catalog's column list for a Table. A SubPipeline source is rejected
// with an Unsupported error; its inner pipeline is not compiled. opIndex identifies the operator this source belongs to for
// error attribution — NoOp for a top-level pipeline's own source.
func SeedEnv(src ir.Source, provider schema.Provider, opts *Options, opIndex int) (*Env, error) {
	switch v := src.(type) {
	case *ir.Table:
		ts, err := provider.GetTableSchema(v.Name)
		if err != nil {
			return nil, At(err, opIndex)
		}
		origin := v.Name
		if v.Alias != "" {
			origin = v.Alias
		}
		return NewEnv(ts, origin, opts.AmbiguousColumnPolicy), nil
	case *ir.SubPipeline:
		return nil, At(E(Unsupported, NoOp, "SubPipeline"), opIndex)
	default:
		return nil, At(E(Internal, NoOp, "unknown source type"), opIndex)
	}
}

// NextEnv applies op's schema-environment transition rule (spec §4.3),
// attributing any error to opIndex. For Join it seeds the right-hand
// environment from the join's source and returns the combined
// left ++ right environment; the right-hand environment itself is not
// returned.
func NextEnv(env *Env, op ir.Operator, opIndex int, provider schema.Provider, opts *Options) (*Env, error) {
	switch v := op.(type) {
	case *ir.Filter:
		if err := resolveExprColumns(v.Condition, env); err != nil {
			return nil, AtPath(err, opIndex, "condition")
		}
		return env, nil
	case *ir.Sort:
		for i, k := range v.Keys {
			if err := resolveExprColumns(k.Expr, env); err != nil {
				return nil, AtPath(err, opIndex, sortKeyPath(i))
			}
		}
		return env, nil
	case *ir.Take:
		return env, nil
	case *ir.Distinct:
		return env, nil
	case *ir.Select:
		for i, p := range v.Projections {
			if err := resolveExprColumns(p.Expr, env); err != nil {
				return nil, AtPath(err, opIndex, projPath(i))
			}
		}
		return env.Select(v.Projections)
	case *ir.GroupBy:
		for i, k := range v.Keys {
			if _, err := env.Resolve(k); err != nil {
				return nil, AtPath(err, opIndex, groupKeyPath(i))
			}
		}
		for i, a := range v.Aggs {
			for j, arg := range a.Args {
				if err := resolveExprColumns(arg, env); err != nil {
					return nil, AtPath(err, opIndex, aggArgPath(i, j))
				}
			}
		}
		return env.GroupBy(v.Keys, v.Aggs), nil
	case *ir.Join:
		if v.JoinKind == ir.JoinCross && !opts.AllowCrossAsInnerTrue {
			return nil, At(E(Unsupported, NoOp, "Cross join"), opIndex)
		}
		right, err := SeedEnv(v.Source, provider, opts, opIndex)
		if err != nil {
			return nil, err
		}
		combined := Join(env, right)
		if err := resolveExprColumns(v.On, combined); err != nil {
			return nil, AtPath(err, opIndex, "on")
		}
		return combined, nil
	default:
		return nil, At(E(Internal, NoOp, "unknown operator type"), opIndex)
	}
}

// BuildFinalEnv walks pipeline end to end and returns the environment at
// its output, the schema the Substrait backend's RelRoot.names must
// match exactly (spec §4.5).
func BuildFinalEnv(pipeline *ir.Pipeline, provider schema.Provider, opts *Options) (*Env, error) {
	env, err := SeedEnv(pipeline.Source, provider, opts, NoOpIndex)
	if err != nil {
		return nil, err
	}
	for i, op := range pipeline.Ops {
		env, err = NextEnv(env, op, i, provider, opts)
		if err != nil {
			return nil, err
		}
	}
	return env, nil
}

// NoOpIndex is the operator index used for errors attributable to a
// pipeline's source rather than one of its operators.
const NoOpIndex = -1

func resolveExprColumns(e ir.Expr, env *Env) error {
	switch v := e.(type) {
	case *ir.Column:
		_, err := env.Resolve(ir.ColumnRef{Table: v.Table, Column: v.Column})
		return err
	case *ir.Literal:
		return nil
	case *ir.BinaryOp:
		if err := resolveExprColumns(v.Left, env); err != nil {
			return err
		}
		return resolveExprColumns(v.Right, env)
	case *ir.UnaryOp:
		return resolveExprColumns(v.Arg, env)
	case *ir.FuncCall:
		for _, a := range v.Args {
			if err := resolveExprColumns(a, env); err != nil {
				return err
			}
		}
		return nil
	case *ir.AggCall:
		return E(Unsupported, NoOp, "AggCall is only permitted inside GroupBy.aggs")
	}
	return nil
}

func sortKeyPath(i int) string  { return indexPath("keys", i) + ".expr" }
func projPath(i int) string     { return indexPath("projections", i) }
func groupKeyPath(i int) string { return indexPath("keys", i) }
func aggArgPath(i, j int) string {
	return indexPath("aggs", i) + "." + indexPath("args", j)
}

func indexPath(name string, i int) string {
	return name + "[" + itoa(i) + "]"
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
