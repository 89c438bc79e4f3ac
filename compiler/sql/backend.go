package sql

import (
	"fmt"
	"strings"

	"github.com/ColinClark/mlql/compiler"
	"github.com/ColinClark/mlql/ir"
	"github.com/ColinClark/mlql/schema"
)

// builder accumulates the clauses of a single SELECT, flushing itself
// into a WITH-clause entry when a later operator needs a column the
// current projection has already dropped.
type builder struct {
	ctes     []string
	cteNum   int
	from     string
	joins    []string
	distinct bool
	proj     []string
	where    []string
	groupBy  []string
	orderBy  []string
	limit    *uint64
	offset   *uint64
}

func (b *builder) selectClause() string {
	if len(b.proj) == 0 {
		return "*"
	}
	return strings.Join(b.proj, ", ")
}

func (b *builder) render() string {
	var sb strings.Builder
	if len(b.ctes) > 0 {
		sb.WriteString("WITH ")
		sb.WriteString(strings.Join(b.ctes, ", "))
		sb.WriteString(" ")
	}
	sb.WriteString("SELECT ")
	if b.distinct {
		sb.WriteString("DISTINCT ")
	}
	sb.WriteString(b.selectClause())
	sb.WriteString(" FROM ")
	sb.WriteString(b.from)
	for _, j := range b.joins {
		sb.WriteString(" ")
		sb.WriteString(j)
	}
	if len(b.where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.where, " AND "))
	}
	if len(b.groupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(b.groupBy, ", "))
	}
	if len(b.orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(b.orderBy, ", "))
	}
	if b.limit != nil {
		sb.WriteString(fmt.Sprintf(" LIMIT %d", *b.limit))
	}
	if b.offset != nil {
		sb.WriteString(fmt.Sprintf(" OFFSET %d", *b.offset))
	}
	return sb.String()
}

// materialize flushes the accumulated query as a named CTE and resets
// the builder to select everything from it, preserving any WITH
// entries already collected.
func (b *builder) materialize() {
	inner := b.render()
	name := fmt.Sprintf("_cte%d", b.cteNum)
	b.cteNum++
	b.ctes = append(b.ctes, fmt.Sprintf("%s AS (%s)", quoteIdent(name), inner))
	*b = builder{ctes: b.ctes, cteNum: b.cteNum, from: quoteIdent(name)}
}

var joinKeyword = map[ir.JoinKind]string{
	ir.JoinInner: "INNER JOIN",
	ir.JoinLeft:  "LEFT JOIN",
	ir.JoinRight: "RIGHT JOIN",
	ir.JoinFull:  "FULL JOIN",
	ir.JoinSemi:  "SEMI JOIN",
	ir.JoinAnti:  "ANTI JOIN",
	ir.JoinCross: "INNER JOIN",
}

// Compile translates program into a standalone SQL SELECT statement
// against the tables provider describes (spec §4.4, §6.3's compile_sql).
func Compile(program *ir.Program, provider schema.Provider, opts *compiler.Options) (string, error) {
	if opts == nil {
		opts = compiler.NewOptions()
	}
	pipeline := program.Pipeline
	tbl, ok := pipeline.Source.(*ir.Table)
	if !ok {
		return "", compiler.At(compiler.E(compiler.Unsupported, compiler.NoOp, "SubPipeline source"), compiler.NoOpIndex)
	}
	env, err := compiler.SeedEnv(pipeline.Source, provider, opts, compiler.NoOpIndex)
	if err != nil {
		return "", err
	}
	b := &builder{from: quoteIdent(tbl.Name)}
	if tbl.Alias != "" {
		b.from += " AS " + quoteIdent(tbl.Alias)
	}

	for i, op := range pipeline.Ops {
		for _, e := range exprsOf(op) {
			if err := compiler.CheckDepth(e, opts.MaxExprDepth); err != nil {
				return "", compiler.At(err, i)
			}
		}
		nextEnv, err := compiler.NextEnv(env, op, i, provider, opts)
		if err != nil {
			return "", err
		}
		switch v := op.(type) {
		case *ir.Filter:
			cond, err := translateExpr(v.Condition)
			if err != nil {
				return "", compiler.AtPath(err, i, "condition")
			}
			b.where = append(b.where, cond)
		case *ir.Select:
			proj := make([]string, len(v.Projections))
			for j, p := range v.Projections {
				text, err := translateExpr(p.Expr)
				if err != nil {
					return "", compiler.AtPath(err, i, fmt.Sprintf("projections[%d]", j))
				}
				name, _ := p.Name()
				if col, ok := p.Expr.(*ir.Column); ok && p.Alias == "" && col.Column == name {
					proj[j] = text
				} else {
					proj[j] = text + " AS " + quoteIdent(name)
				}
			}
			b.proj = proj
			if needsMaterialization(pipeline.Ops[i+1:], nextEnv) {
				b.materialize()
			}
		case *ir.Sort:
			orderBy := make([]string, len(v.Keys))
			for j, k := range v.Keys {
				text, err := translateExpr(k.Expr)
				if err != nil {
					return "", compiler.AtPath(err, i, fmt.Sprintf("keys[%d].expr", j))
				}
				if k.Desc {
					orderBy[j] = text + " DESC NULLS LAST"
				} else {
					orderBy[j] = text + " ASC NULLS FIRST"
				}
			}
			b.orderBy = orderBy
		case *ir.Take:
			limit := v.Limit
			b.limit = &limit
			b.offset = v.Offset
		case *ir.Distinct:
			b.distinct = true
		case *ir.GroupBy:
			groupBy := make([]string, len(v.Keys))
			proj := make([]string, 0, len(v.Keys)+len(v.Aggs))
			for j, k := range v.Keys {
				ident := quoteIdent(k.Column)
				groupBy[j] = ident
				proj = append(proj, ident)
			}
			for j, a := range v.Aggs {
				text, err := translateAgg(a)
				if err != nil {
					return "", compiler.AtPath(err, i, fmt.Sprintf("aggs[%d]", j))
				}
				proj = append(proj, text)
			}
			b.groupBy = groupBy
			b.proj = proj
		case *ir.Join:
			kw, ok := joinKeyword[v.JoinKind]
			if !ok {
				return "", compiler.At(compiler.E(compiler.Unsupported, compiler.NoOp, fmt.Sprintf("join kind %q", v.JoinKind)), i)
			}
			rt, ok := v.Source.(*ir.Table)
			if !ok {
				return "", compiler.At(compiler.E(compiler.Unsupported, compiler.NoOp, "SubPipeline join source"), i)
			}
			right := quoteIdent(rt.Name)
			if rt.Alias != "" {
				right += " AS " + quoteIdent(rt.Alias)
			}
			cond := "TRUE"
			if v.JoinKind != ir.JoinCross {
				cond, err = translateExpr(v.On)
				if err != nil {
					return "", compiler.AtPath(err, i, "on")
				}
			}
			b.joins = append(b.joins, fmt.Sprintf("%s %s ON %s", kw, right, cond))
		}
		env = nextEnv
	}
	return b.render(), nil
}

func exprsOf(op ir.Operator) []ir.Expr {
	switch v := op.(type) {
	case *ir.Filter:
		return []ir.Expr{v.Condition}
	case *ir.Join:
		return []ir.Expr{v.On}
	case *ir.Select:
		exprs := make([]ir.Expr, len(v.Projections))
		for i, p := range v.Projections {
			exprs[i] = p.Expr
		}
		return exprs
	case *ir.Sort:
		exprs := make([]ir.Expr, len(v.Keys))
		for i, k := range v.Keys {
			exprs[i] = k.Expr
		}
		return exprs
	case *ir.GroupBy:
		var exprs []ir.Expr
		for _, a := range v.Aggs {
			exprs = append(exprs, a.Args...)
		}
		return exprs
	}
	return nil
}

// needsMaterialization reports whether a later Select, GroupBy, or Join
// needs a column the preceding Select already dropped, or simply stacks
// a second Select on top of the first. Filter and Sort are left
// unmaterialized per spec §4.4's own example: ORDER BY and WHERE can
// still reach a column the SELECT list omits, so only operators whose
// relational scope is bounded by the projected columns force a CTE
// boundary.
func needsMaterialization(remaining []ir.Operator, env *compiler.Env) bool {
	has := func(name string) bool {
		for _, n := range env.Names {
			if n == name {
				return true
			}
		}
		return false
	}
	var checkExpr func(e ir.Expr) bool
	checkExpr = func(e ir.Expr) bool {
		switch v := e.(type) {
		case *ir.Column:
			return !has(v.Column)
		case *ir.BinaryOp:
			return checkExpr(v.Left) || checkExpr(v.Right)
		case *ir.UnaryOp:
			return checkExpr(v.Arg)
		case *ir.FuncCall:
			for _, a := range v.Args {
				if checkExpr(a) {
					return true
				}
			}
		}
		return false
	}
	for _, op := range remaining {
		switch v := op.(type) {
		case *ir.Select:
			return true
		case *ir.GroupBy:
			for _, k := range v.Keys {
				if !has(k.Column) {
					return true
				}
			}
			for _, a := range v.Aggs {
				for _, arg := range a.Args {
					if checkExpr(arg) {
						return true
					}
				}
			}
		case *ir.Join:
			if checkExpr(v.On) {
				return true
			}
		}
	}
	return false
}
