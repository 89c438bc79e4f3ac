// Package ir defines MLQL's tagged-union program representation: the
// closed set of sources, operators, and expressions a pipeline is built
// from, together with a canonical JSON encoding and a deterministic
// fingerprint. Decoding is permissive within the closed tag set (an
// expression that is only legal in one context, like AggCall, decodes
// wherever an Expr slot allows it); the compiler enforces context
// invariants, not the decoder.
package ir

import (
	"encoding/json"
	"fmt"

	"github.com/ColinClark/mlql/errors"
	"github.com/ColinClark/mlql/pkg/unpack"
)

// Program is the top-level unit the compiler accepts: an optional pragma
// carrying opaque budget hints, passed through untouched, plus a
// pipeline.
type Program struct {
	Pragma   *Pragma  `json:"pragma,omitempty"`
	Pipeline Pipeline `json:"pipeline"`
}

// Pragma carries budget hints and free-form options the compiler never
// interprets on its own; it is decoded and passed through untouched.
type Pragma struct {
	Rows    *uint64                `json:"rows,omitempty"`
	Memory  *uint64                `json:"memory,omitempty"`
	Timeout *uint64                `json:"timeout,omitempty"`
	Options map[string]interface{} `json:"options,omitempty"`
}

// Pipeline is a source plus an ordered, finite sequence of operators.
// Order is semantically significant.
type Pipeline struct {
	Source Source     `json:"source"`
	Ops    []Operator `json:"ops"`
}

// Source is the tagged union of pipeline sources: Table or SubPipeline.
type Source interface {
	sourceNode()
}

// Table names a base relation resolved through a SchemaProvider.
type Table struct {
	Kind  string `json:"type" unpack:""`
	Name  string `json:"name"`
	Alias string `json:"alias,omitempty"`
}

func (*Table) sourceNode() {}

// SubPipeline is a nested pipeline whose output feeds the outer one. The
// IR decodes it so a closed tagged union can round-trip whatever a
// producer emits; both backends reject it at translation time with an
// errs.Error{Kind: Unsupported}.
type SubPipeline struct {
	Kind     string   `json:"type" unpack:""`
	Pipeline Pipeline `json:"pipeline"`
}

func (*SubPipeline) sourceNode() {}

// Operator is the tagged union of pipeline operators. The set is closed
// to exactly the seven spec.md names; an unrecognized "op" tag is a
// decode-time errs.Error{Kind: UnknownTag}.
type Operator interface {
	opNode()
}

// Filter keeps rows for which Condition is truthy.
type Filter struct {
	Kind      string `json:"op" unpack:""`
	Condition Expr   `json:"condition"`
}

func (*Filter) opNode() {}

// Select replaces the current tuple with an explicit projection list,
// which may rename and compute columns.
type Select struct {
	Kind        string       `json:"op" unpack:""`
	Projections []Projection `json:"projections"`
}

func (*Select) opNode() {}

// Sort orders rows by one or more keys, stable across keys.
type Sort struct {
	Kind string    `json:"op" unpack:""`
	Keys []SortKey `json:"keys"`
}

func (*Sort) opNode() {}

// Take windows the row stream to Limit rows starting at Offset.
type Take struct {
	Kind   string  `json:"op" unpack:""`
	Limit  uint64  `json:"limit"`
	Offset *uint64 `json:"offset,omitempty"`
}

func (*Take) opNode() {}

// Distinct deduplicates rows across the full current tuple.
type Distinct struct {
	Kind string `json:"op" unpack:""`
}

func (*Distinct) opNode() {}

// GroupBy aggregates rows by Keys; Aggs is an ordered list (not a map)
// because aggregate insertion order defines the output column order
// after the keys (see the wire-encoding note in SPEC_FULL.md).
type GroupBy struct {
	Kind string        `json:"op" unpack:""`
	Keys []ColumnRef   `json:"keys"`
	Aggs []AggAssignment `json:"aggs"`
}

func (*GroupBy) opNode() {}

// AggAssignment is one entry of GroupBy.Aggs: an aggregate call bound to
// an output alias. It has no discriminator of its own — it only ever
// appears inside GroupBy.Aggs, where the shape is unambiguous.
type AggAssignment struct {
	Alias    string `json:"alias"`
	Func     string `json:"func"`
	Args     []Expr `json:"args"`
	Distinct bool   `json:"distinct,omitempty"`
}

// Join combines the current tuple with Source's tuple according to Kind,
// filtered by On.
type Join struct {
	Kind     string   `json:"op" unpack:""`
	Source   Source   `json:"source"`
	On       Expr     `json:"on"`
	JoinKind JoinKind `json:"kind"`
}

func (*Join) opNode() {}

// JoinKind is the closed set of supported join kinds. Cross decodes (the
// tagged union is closed, not the policy) but every backend rejects it
// unless compiler.Options.AllowCrossAsInnerTrue is set.
type JoinKind string

const (
	JoinInner JoinKind = "Inner"
	JoinLeft  JoinKind = "Left"
	JoinRight JoinKind = "Right"
	JoinFull  JoinKind = "Full"
	JoinSemi  JoinKind = "Semi"
	JoinAnti  JoinKind = "Anti"
	JoinCross JoinKind = "Cross"
)

func (k JoinKind) valid() bool {
	switch k {
	case JoinInner, JoinLeft, JoinRight, JoinFull, JoinSemi, JoinAnti, JoinCross:
		return true
	}
	return false
}

func (k *JoinKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v := JoinKind(s)
	if !v.valid() {
		return errs.E(errs.TypeMismatch, fmt.Sprintf("unknown join kind %q", s))
	}
	*k = v
	return nil
}

// Projection is either a bare Expr, emitting its natural name, or an
// aliased {expr, alias} pair. This is an untagged union: the wire shape
// is distinguished by the presence of an "alias" key, not a discriminator.
type Projection struct {
	Expr  Expr
	Alias string
}

func (p Projection) MarshalJSON() ([]byte, error) {
	if p.Alias == "" {
		return json.Marshal(p.Expr)
	}
	return json.Marshal(struct {
		Expr  Expr   `json:"expr"`
		Alias string `json:"alias"`
	}{p.Expr, p.Alias})
}

func (p *Projection) UnmarshalJSON(data []byte) error {
	var peek map[string]json.RawMessage
	if err := json.Unmarshal(data, &peek); err != nil {
		return err
	}
	if aliasRaw, ok := peek["alias"]; ok {
		var alias string
		if err := json.Unmarshal(aliasRaw, &alias); err != nil {
			return err
		}
		exprRaw, ok := peek["expr"]
		if !ok {
			return errs.E(errs.MissingField, "projection has \"alias\" without \"expr\"")
		}
		var e Expr
		if err := reflector.Fill("", exprRaw, &e); err != nil {
			return err
		}
		p.Expr, p.Alias = e, alias
		return nil
	}
	var e Expr
	if err := reflector.Fill("", data, &e); err != nil {
		return err
	}
	p.Expr, p.Alias = e, ""
	return nil
}

// Name returns the natural output name of a bare projection, or the
// alias of an aliased one.
func (p Projection) Name() (string, bool) {
	if p.Alias != "" {
		return p.Alias, true
	}
	if col, ok := p.Expr.(*Column); ok {
		return col.Column, true
	}
	return "", false
}

// SortKey pairs an expression with a sort direction. NULLS ordering is
// fixed, not configurable per key: ASC -> NULLS FIRST, DESC -> NULLS
// LAST (see spec §6.4 and the open-question resolution in SPEC_FULL.md).
type SortKey struct {
	Expr Expr `json:"expr"`
	Desc bool `json:"desc,omitempty"`
}

// ColumnRef names a column, optionally qualified by its source table.
type ColumnRef struct {
	Table  string `json:"table,omitempty"`
	Column string `json:"column"`
}

// Expr is the tagged union of expressions. AggCall is a member of this
// union per spec §3.1, but GroupBy.Aggs carries aggregates as
// AggAssignment, so compiler.Validate and both backends reject an
// AggCall in every Expr slot, an aggregate's arguments included.
type Expr interface {
	exprNode()
}

// Column references a column in the current schema environment.
type Column struct {
	Kind   string `json:"type" unpack:""`
	Table  string `json:"table,omitempty"`
	Column string `json:"column"`
}

func (*Column) exprNode() {}

// Literal is a constant value.
type Literal struct {
	Kind  string `json:"type" unpack:""`
	Value Value  `json:"value"`
}

func (*Literal) exprNode() {}

// BinOp is the closed set of binary operators.
type BinOp string

const (
	Add  BinOp = "Add"
	Sub  BinOp = "Sub"
	Mul  BinOp = "Mul"
	Div  BinOp = "Div"
	Mod  BinOp = "Mod"
	Eq   BinOp = "Eq"
	Ne   BinOp = "Ne"
	Lt   BinOp = "Lt"
	Le   BinOp = "Le"
	Gt   BinOp = "Gt"
	Ge   BinOp = "Ge"
	And  BinOp = "And"
	Or   BinOp = "Or"
	Like BinOp = "Like"
	ILike BinOp = "ILike"
)

var binOps = map[BinOp]bool{
	Add: true, Sub: true, Mul: true, Div: true, Mod: true,
	Eq: true, Ne: true, Lt: true, Le: true, Gt: true, Ge: true,
	And: true, Or: true, Like: true, ILike: true,
}

func (o *BinOp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v := BinOp(s)
	if !binOps[v] {
		return errs.E(errs.TypeMismatch, fmt.Sprintf("unknown binary operator %q", s))
	}
	*o = v
	return nil
}

// BinaryOp applies Op to Left and Right.
type BinaryOp struct {
	Kind  string `json:"type" unpack:""`
	Op    BinOp  `json:"op"`
	Left  Expr   `json:"left"`
	Right Expr   `json:"right"`
}

func (*BinaryOp) exprNode() {}

// UnOp is the closed set of unary operators.
type UnOp string

const (
	Neg UnOp = "Neg"
	Not UnOp = "Not"
)

func (o *UnOp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v := UnOp(s)
	if v != Neg && v != Not {
		return errs.E(errs.TypeMismatch, fmt.Sprintf("unknown unary operator %q", s))
	}
	*o = v
	return nil
}

// UnaryOp applies Op to Arg.
type UnaryOp struct {
	Kind string `json:"type" unpack:""`
	Op   UnOp   `json:"op"`
	Arg  Expr   `json:"arg"`
}

func (*UnaryOp) exprNode() {}

// FuncCall invokes a scalar function by name.
type FuncCall struct {
	Kind string `json:"type" unpack:""`
	Func string `json:"func"`
	Args []Expr `json:"args"`
}

func (*FuncCall) exprNode() {}

// AggCall invokes an aggregate function by name. It decodes, but the
// compiler rejects it wherever it appears; GroupBy.Aggs uses
// AggAssignment as its wire shape instead. This variant exists so the
// Expr tagged union stays closed per spec §3.1.
type AggCall struct {
	Kind     string `json:"type" unpack:""`
	Func     string `json:"func"`
	Args     []Expr `json:"args"`
	Distinct bool   `json:"distinct,omitempty"`
}

func (*AggCall) exprNode() {}

// reflector is the single tagged-union registry for Source, Operator,
// and Expr. Their discriminator values never collide, and each type pins
// its own discriminator field via an "unpack" struct tag, so one
// Reflector can dispatch both the "type" and "op" fields used across a
// program (see pkg/unpack's Fill).
var reflector = unpack.New().Init(
	Table{}, SubPipeline{},
	Filter{}, Select{}, Sort{}, Take{}, Distinct{}, GroupBy{}, Join{},
	Column{}, Literal{}, BinaryOp{}, UnaryOp{}, FuncCall{}, AggCall{},
)
