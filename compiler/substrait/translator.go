package substrait

import (
	"encoding/json"
	"sort"

	"github.com/ColinClark/mlql/compiler"
	"github.com/ColinClark/mlql/ir"
	"github.com/ColinClark/mlql/schema"
)

var joinTypeCode = map[ir.JoinKind]int{
	ir.JoinInner: 1,
	ir.JoinFull:  2,
	ir.JoinLeft:  3,
	ir.JoinRight: 4,
	ir.JoinSemi:  5,
	ir.JoinAnti:  6,
}

// Compile translates program into a Substrait Plan, serialized as JSON
// text (spec §4.5, §6.3's compile_substrait).
func Compile(program *ir.Program, provider schema.Provider, opts *compiler.Options) (string, error) {
	if opts == nil {
		opts = compiler.NewOptions()
	}
	pipeline := program.Pipeline
	tbl, ok := pipeline.Source.(*ir.Table)
	if !ok {
		return "", compiler.At(compiler.E(compiler.Unsupported, compiler.NoOp, "SubPipeline source"), compiler.NoOpIndex)
	}
	ts, err := provider.GetTableSchema(tbl.Name)
	if err != nil {
		return "", compiler.At(err, compiler.NoOpIndex)
	}
	origin := tbl.Name
	if tbl.Alias != "" {
		origin = tbl.Alias
	}
	env := compiler.NewEnv(ts, origin, opts.AmbiguousColumnPolicy)

	read := &ReadRel{NamedTable: &NamedTable{Names: []string{tbl.Name}}, BaseSchema: namedStructFor(ts)}
	rel := &Rel{Read: read}
	workEnv := env

	if mask, ok := groupByPrefixMask(env, pipeline.Ops); ok {
		items := make([]StructItem, len(mask))
		for i, idx := range mask {
			items[i] = StructItem{Field: int32(idx)}
		}
		read.Projection = &MaskExpression{Select: &StructSelect{StructItems: items}}
		workEnv = maskedEnv(env, mask)
	}

	reg := newFuncRegistry()

	for i, op := range pipeline.Ops {
		if depthErr := checkOpDepth(op, opts.MaxExprDepth); depthErr != nil {
			return "", compiler.At(depthErr, i)
		}
		var err error
		rel, err = translateOp(op, i, rel, workEnv, provider, opts, reg)
		if err != nil {
			return "", err
		}
		env, err = compiler.NextEnv(env, op, i, provider, opts)
		if err != nil {
			return "", err
		}
		workEnv = env
	}

	plan := Plan{
		ExtensionUris: reg.extensionUris(),
		Extensions:    reg.declarations(),
		Relations: []PlanRel{{
			Root: &RelRoot{Input: rel, Names: env.Names},
		}},
	}
	out, err := json.Marshal(plan)
	if err != nil {
		return "", compiler.E(compiler.Internal, compiler.NoOp, err.Error())
	}
	return string(out), nil
}

func translateOp(op ir.Operator, i int, rel *Rel, env *compiler.Env, provider schema.Provider, opts *compiler.Options, reg *funcRegistry) (*Rel, error) {
	switch v := op.(type) {
	case *ir.Filter:
		cond, err := translateExpr(v.Condition, env, reg)
		if err != nil {
			return nil, compiler.AtPath(err, i, "condition")
		}
		return &Rel{Filter: &FilterRel{Input: rel, Condition: cond}}, nil
	case *ir.Select:
		exprs := make([]Expression, len(v.Projections))
		for j, p := range v.Projections {
			e, err := translateExpr(p.Expr, env, reg)
			if err != nil {
				return nil, compiler.AtPath(err, i, indexPath("projections", j))
			}
			exprs[j] = *e
		}
		return &Rel{Project: &ProjectRel{Input: rel, Expressions: exprs}}, nil
	case *ir.Sort:
		sorts := make([]SortField, len(v.Keys))
		for j, k := range v.Keys {
			e, err := translateExpr(k.Expr, env, reg)
			if err != nil {
				return nil, compiler.AtPath(err, i, indexPath("keys", j)+".expr")
			}
			dir := 1
			if k.Desc {
				dir = 4
			}
			sorts[j] = SortField{Expr: e, Direction: dir}
		}
		return &Rel{Sort: &SortRel{Input: rel, Sorts: sorts}}, nil
	case *ir.Take:
		var offset int64
		if v.Offset != nil {
			offset = int64(*v.Offset)
		}
		return &Rel{Fetch: &FetchRel{Input: rel, Offset: offset, Count: int64(v.Limit)}}, nil
	case *ir.Distinct:
		exprs := make([]Expression, len(env.Names))
		for idx := range env.Names {
			exprs[idx] = fieldRefExpr(idx)
		}
		return &Rel{Aggregate: &AggregateRel{
			Input:     rel,
			Groupings: []Grouping{{GroupingExpressions: exprs}},
		}}, nil
	case *ir.GroupBy:
		keyExprs := make([]Expression, len(v.Keys))
		for j, k := range v.Keys {
			idx, err := env.Resolve(k)
			if err != nil {
				return nil, compiler.AtPath(err, i, indexPath("keys", j))
			}
			keyExprs[j] = fieldRefExpr(idx)
		}
		measures := make([]AggregateMeasure, len(v.Aggs))
		for j, a := range v.Aggs {
			ref, err := compiler.AggregateFunctionRef(a.Func)
			if err != nil {
				return nil, compiler.AtPath(err, i, indexPath("aggs", j))
			}
			anchor := reg.register(ref)
			args := make([]FunctionArgument, len(a.Args))
			for k, arg := range a.Args {
				e, err := translateExpr(arg, env, reg)
				if err != nil {
					return nil, compiler.AtPath(err, i, indexPath("aggs", j)+"."+indexPath("args", k))
				}
				args[k] = FunctionArgument{Value: e}
			}
			outType := typeFor(schema.Int64)
			measures[j] = AggregateMeasure{Measure: &AggregateFunction{
				FunctionReference: anchor,
				Arguments:         args,
				OutputType:        &outType,
			}}
		}
		return &Rel{Aggregate: &AggregateRel{
			Input:     rel,
			Groupings: []Grouping{{GroupingExpressions: keyExprs}},
			Measures:  measures,
		}}, nil
	case *ir.Join:
		jt, ok := joinTypeCode[v.JoinKind]
		if v.JoinKind == ir.JoinCross {
			if !opts.AllowCrossAsInnerTrue {
				return nil, compiler.At(compiler.E(compiler.Unsupported, compiler.NoOp, "Cross join"), i)
			}
			jt, ok = joinTypeCode[ir.JoinInner], true
		}
		if !ok {
			return nil, compiler.At(compiler.E(compiler.Unsupported, compiler.NoOp, "unknown join kind"), i)
		}
		rtbl, ok := v.Source.(*ir.Table)
		if !ok {
			return nil, compiler.At(compiler.E(compiler.Unsupported, compiler.NoOp, "SubPipeline join source"), i)
		}
		rts, err := provider.GetTableSchema(rtbl.Name)
		if err != nil {
			return nil, compiler.At(err, i)
		}
		rOrigin := rtbl.Name
		if rtbl.Alias != "" {
			rOrigin = rtbl.Alias
		}
		rightEnv := compiler.NewEnv(rts, rOrigin, opts.AmbiguousColumnPolicy)
		rightRel := &Rel{Read: &ReadRel{
			NamedTable: &NamedTable{Names: []string{rtbl.Name}},
			BaseSchema: namedStructFor(rts),
		}}
		combined := compiler.Join(env, rightEnv)
		var onExpr *Expression
		if v.JoinKind == ir.JoinCross {
			onExpr, err = translateLiteral(ir.BoolValue(true))
		} else {
			onExpr, err = translateExpr(v.On, combined, reg)
		}
		if err != nil {
			return nil, compiler.AtPath(err, i, "on")
		}
		return &Rel{Join: &JoinRel{Left: rel, Right: rightRel, Expression: onExpr, Type: jt}}, nil
	default:
		return nil, compiler.At(compiler.E(compiler.Internal, compiler.NoOp, "unknown operator"), i)
	}
}

func fieldRefExpr(idx int) Expression {
	return Expression{Selection: &FieldReference{
		DirectReference: &ReferenceSegment{StructField: &StructFieldRef{Field: int32(idx)}},
		RootReference:   &struct{}{},
	}}
}

func translateExpr(e ir.Expr, env *compiler.Env, reg *funcRegistry) (*Expression, error) {
	switch v := e.(type) {
	case *ir.Column:
		idx, err := env.Resolve(ir.ColumnRef{Table: v.Table, Column: v.Column})
		if err != nil {
			return nil, err
		}
		expr := fieldRefExpr(idx)
		return &expr, nil
	case *ir.Literal:
		return translateLiteral(v.Value)
	case *ir.BinaryOp:
		left, err := translateExpr(v.Left, env, reg)
		if err != nil {
			return nil, err
		}
		right, err := translateExpr(v.Right, env, reg)
		if err != nil {
			return nil, err
		}
		ref, err := compiler.BinaryFunctionRef(v.Op, exprType(v.Left, env), exprType(v.Right, env))
		if err != nil {
			return nil, err
		}
		anchor := reg.register(ref)
		outType := binOpOutputType(v.Op, exprType(v.Left, env))
		return &Expression{ScalarFunction: &ScalarFunction{
			FunctionReference: anchor,
			Arguments:         []FunctionArgument{{Value: left}, {Value: right}},
			OutputType:        &outType,
		}}, nil
	case *ir.UnaryOp:
		arg, err := translateExpr(v.Arg, env, reg)
		if err != nil {
			return nil, err
		}
		ref, err := compiler.UnaryFunctionRef(v.Op, exprType(v.Arg, env))
		if err != nil {
			return nil, err
		}
		anchor := reg.register(ref)
		outType := typeFor(schema.Bool)
		if v.Op == ir.Neg {
			outType = typeFor(exprType(v.Arg, env))
		}
		return &Expression{ScalarFunction: &ScalarFunction{
			FunctionReference: anchor,
			Arguments:         []FunctionArgument{{Value: arg}},
			OutputType:        &outType,
		}}, nil
	case *ir.FuncCall:
		return nil, compiler.E(compiler.Unsupported, compiler.NoOp, "scalar function calls are not yet translated to Substrait")
	case *ir.AggCall:
		return nil, compiler.E(compiler.Unsupported, compiler.NoOp, "AggCall outside GroupBy.aggs")
	default:
		return nil, compiler.E(compiler.Internal, compiler.NoOp, "unknown expression node")
	}
}

func translateLiteral(v ir.Value) (*Expression, error) {
	lit := Literal{}
	switch v.Kind {
	case ir.KindNull:
		lit.Null = &Type{}
	case ir.KindBool:
		b := v.B
		lit.Boolean = &b
	case ir.KindInt:
		n := int64(v.I)
		lit.I64 = &n
	case ir.KindFloat:
		f := v.F
		lit.Fp64 = &f
	case ir.KindString:
		s := v.S
		lit.String_ = &s
	}
	return &Expression{Literal: &lit}, nil
}

// exprType estimates e's coarse Substrait-relevant type: a Column's
// catalog type, or a Literal's natural type; anything deeper defaults
// to schema.Other (only the immediate operand type matters for
// picking a binary/unary function signature).
func exprType(e ir.Expr, env *compiler.Env) schema.DataType {
	switch v := e.(type) {
	case *ir.Column:
		idx, err := env.Resolve(ir.ColumnRef{Table: v.Table, Column: v.Column})
		if err != nil {
			return schema.Other
		}
		return env.TypeOf(idx)
	case *ir.Literal:
		switch v.Value.Kind {
		case ir.KindInt:
			return schema.Int32
		case ir.KindFloat:
			return schema.Float64
		case ir.KindString:
			return schema.String
		case ir.KindBool:
			return schema.Bool
		}
	}
	return schema.Other
}

func binOpOutputType(op ir.BinOp, leftType schema.DataType) Type {
	switch op {
	case ir.Add, ir.Sub, ir.Mul, ir.Div, ir.Mod:
		return typeFor(leftType)
	default:
		return typeFor(schema.Bool)
	}
}

func checkOpDepth(op ir.Operator, max int) error {
	var exprs []ir.Expr
	switch v := op.(type) {
	case *ir.Filter:
		exprs = append(exprs, v.Condition)
	case *ir.Select:
		for _, p := range v.Projections {
			exprs = append(exprs, p.Expr)
		}
	case *ir.Sort:
		for _, k := range v.Keys {
			exprs = append(exprs, k.Expr)
		}
	case *ir.GroupBy:
		for _, a := range v.Aggs {
			exprs = append(exprs, a.Args...)
		}
	case *ir.Join:
		exprs = append(exprs, v.On)
	}
	for _, e := range exprs {
		if err := compiler.CheckDepth(e, max); err != nil {
			return err
		}
	}
	return nil
}

// groupByPrefixMask computes the ReadRel projection-mask column set
// when pipeline.Ops starts with a GroupBy directly on the source — the
// one case this backend pushes a mask down (spec §4.5). A GroupBy
// appearing after other operators is left unmasked: the mask would
// have to account for every column any intervening operator still
// needs, which this conservative heuristic doesn't attempt.
func groupByPrefixMask(env *compiler.Env, ops []ir.Operator) ([]int, bool) {
	if len(ops) == 0 {
		return nil, false
	}
	g, ok := ops[0].(*ir.GroupBy)
	if !ok {
		return nil, false
	}
	seen := make(map[int]bool)
	for _, k := range g.Keys {
		idx, err := env.Resolve(k)
		if err != nil {
			return nil, false
		}
		seen[idx] = true
	}
	for _, a := range g.Aggs {
		for _, arg := range a.Args {
			col, ok := arg.(*ir.Column)
			if !ok {
				return nil, false
			}
			idx, err := env.Resolve(ir.ColumnRef{Table: col.Table, Column: col.Column})
			if err != nil {
				return nil, false
			}
			seen[idx] = true
		}
	}
	if len(seen) == 0 {
		return nil, false
	}
	mask := make([]int, 0, len(seen))
	for idx := range seen {
		mask = append(mask, idx)
	}
	sort.Ints(mask)
	return mask, true
}

func maskedEnv(env *compiler.Env, mask []int) *compiler.Env {
	next := env.Clone()
	next.Names, next.Origin, next.Types = nil, nil, nil
	for _, idx := range mask {
		next.Names = append(next.Names, env.Names[idx])
		next.Origin = append(next.Origin, env.Origin[idx])
		next.Types = append(next.Types, env.Types[idx])
	}
	return next
}

func indexPath(name string, i int) string {
	return name + "[" + itoaSub(i) + "]"
}

func itoaSub(i int) string {
	if i == 0 {
		return "0"
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	return string(buf[pos:])
}
