// Package compiler holds what's shared between the SQL and Substrait
// backends: the schema environment that tracks the tuple shape through a
// pipeline, the compile-time error taxonomy, functional options, and an
// optional pre-flight lint pass. Translating IR into SQL text or a
// Substrait plan lives in the sql and substrait subpackages; both are
// built on top of this package.
package compiler

import (
	"fmt"

	"github.com/ColinClark/mlql/ir"
	"github.com/ColinClark/mlql/schema"
)

// AmbiguousColumnPolicy controls how an unqualified column reference that
// matches more than one source after a Join is resolved (spec §3.2).
type AmbiguousColumnPolicy int

const (
	// FirstOccurrence resolves an ambiguous unqualified column to its
	// first match, left to right.
	FirstOccurrence AmbiguousColumnPolicy = iota
	// RequireQualification rejects an ambiguous unqualified column with
	// SchemaError{Kind: AmbiguousColumn}.
	RequireQualification
)

// Env is the schema environment: an ordered list of unqualified column
// names standing in for the tuple shape at the current pipeline
// position, used as it's the data model of choice here because Substrait
// field references are positional. Origin tracks each column's source
// table or alias in parallel, for qualified lookups and ambiguity
// detection under Join (see spec §9's list-vs-map note).
type Env struct {
	Names  []string
	Origin []string
	// Types is best-effort: known for columns seeded from a catalog or
	// carried through Select/Join unchanged, schema.Int64 for a GroupBy
	// aggregate alias, schema.Other for anything else computed (e.g. an
	// arithmetic projection). Consumers that need a concrete type for a function
	// signature treat schema.Other as "unknown" and fall back to a
	// default coarse type.
	Types []schema.DataType

	policy AmbiguousColumnPolicy
}

// NewEnv seeds an environment from a table's catalog schema.
func NewEnv(ts schema.TableSchema, origin string, policy AmbiguousColumnPolicy) *Env {
	e := &Env{policy: policy}
	for _, c := range ts.Columns {
		e.Names = append(e.Names, c.Name)
		e.Origin = append(e.Origin, origin)
		e.Types = append(e.Types, c.DataType)
	}
	return e
}

// TypeOf returns the best-effort coarse type of the column at position i.
func (e *Env) TypeOf(i int) schema.DataType {
	if i < 0 || i >= len(e.Types) {
		return schema.Other
	}
	return e.Types[i]
}

// Resolve finds ref's position in the environment. An unqualified
// reference matching more than one column is handled per e's policy.
func (e *Env) Resolve(ref ir.ColumnRef) (int, error) {
	if ref.Table != "" {
		for i, n := range e.Names {
			if n == ref.Column && e.Origin[i] == ref.Table {
				return i, nil
			}
		}
		return -1, schema.ColumnNotFound(ref.Table+"."+ref.Column, e.Names)
	}
	var matches []int
	for i, n := range e.Names {
		if n == ref.Column {
			matches = append(matches, i)
		}
	}
	switch len(matches) {
	case 0:
		return -1, schema.ColumnNotFound(ref.Column, e.Names)
	case 1:
		return matches[0], nil
	default:
		if e.policy == FirstOccurrence {
			return matches[0], nil
		}
		return -1, schema.Ambiguous(ref.Column)
	}
}

// Select returns the environment after a Select operator: the ordered
// projection names, alias if given, else the natural name of a bare
// Column. Any other anonymous projection (an expression with no alias)
// has no natural name and is rejected.
func (e *Env) Select(projections []ir.Projection) (*Env, error) {
	next := &Env{policy: e.policy}
	for i, p := range projections {
		name, ok := p.Name()
		if !ok {
			return nil, E(Unsupported, NoOp, fmt.Sprintf("projections[%d] has no alias and no natural name", i))
		}
		next.Names = append(next.Names, name)
		next.Origin = append(next.Origin, "")
		next.Types = append(next.Types, e.projectionType(p))
	}
	return next, nil
}

// projectionType returns the source column's type when a projection is a
// bare (possibly re-aliased) column reference, else schema.Other.
func (e *Env) projectionType(p ir.Projection) schema.DataType {
	col, ok := p.Expr.(*ir.Column)
	if !ok {
		return schema.Other
	}
	idx, err := e.Resolve(ir.ColumnRef{Table: col.Table, Column: col.Column})
	if err != nil {
		return schema.Other
	}
	return e.TypeOf(idx)
}

// GroupBy returns the environment after a GroupBy operator:
// [key_columns..., agg_aliases...] in declaration order (spec §4.3).
func (e *Env) GroupBy(keys []ir.ColumnRef, aggs []ir.AggAssignment) *Env {
	next := &Env{policy: e.policy}
	for _, k := range keys {
		next.Names = append(next.Names, k.Column)
		next.Origin = append(next.Origin, "")
		if idx, err := e.Resolve(k); err == nil {
			next.Types = append(next.Types, e.TypeOf(idx))
		} else {
			next.Types = append(next.Types, schema.Other)
		}
	}
	for _, a := range aggs {
		next.Names = append(next.Names, a.Alias)
		next.Origin = append(next.Origin, "")
		next.Types = append(next.Types, schema.Int64)
	}
	return next
}

// Join returns the concatenation of left and right: left_env ++
// right_env (spec §4.3; conservative, qualification resolves ambiguity).
func Join(left, right *Env) *Env {
	next := &Env{policy: left.policy}
	next.Names = append(append([]string{}, left.Names...), right.Names...)
	next.Origin = append(append([]string{}, left.Origin...), right.Origin...)
	next.Types = append(append([]schema.DataType{}, left.Types...), right.Types...)
	return next
}

// Clone copies the environment so a backend can branch (e.g. a CTE
// boundary) without mutating the shared walk state.
func (e *Env) Clone() *Env {
	next := &Env{policy: e.policy}
	next.Names = append([]string{}, e.Names...)
	next.Origin = append([]string{}, e.Origin...)
	next.Types = append([]schema.DataType{}, e.Types...)
	return next
}
