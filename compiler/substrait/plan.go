// Package substrait translates IR into a Substrait logical plan,
// serialized as protobuf-JSON text rather than binary protobuf to avoid
// a known deserialization hang in some native bindings (spec §4.5).
//
// No Go Substrait client library is available to build on, so this
// package models the slice of the Plan message this translator emits
// as plain structs with protobuf-JSON camelCase tags. Only the messages
// this backend's operator mapping actually needs are modeled; anything
// else a full Substrait consumer might expect is out of scope.
package substrait

// Plan is the top-level Substrait document.
type Plan struct {
	ExtensionUris []ExtensionUri               `json:"extensionUris,omitempty"`
	Extensions    []SimpleExtensionDeclaration `json:"extensions,omitempty"`
	Relations     []PlanRel                    `json:"relations"`
}

type ExtensionUri struct {
	ExtensionUriAnchor uint32 `json:"extensionUriAnchor"`
	Uri                string `json:"uri"`
}

type SimpleExtensionDeclaration struct {
	ExtensionFunction *ExtensionFunction `json:"extensionFunction"`
}

type ExtensionFunction struct {
	ExtensionUriReference uint32 `json:"extensionUriReference"`
	FunctionAnchor        uint32 `json:"functionAnchor"`
	Name                  string `json:"name"`
}

type PlanRel struct {
	Root *RelRoot `json:"root"`
}

// RelRoot.Names must equal the pipeline's final output schema, not the
// source schema (spec §4.5's "canonical bug" warning).
type RelRoot struct {
	Input *Rel     `json:"input"`
	Names []string `json:"names"`
}

// Rel is the oneof of relation kinds this backend produces.
type Rel struct {
	Read      *ReadRel      `json:"read,omitempty"`
	Filter    *FilterRel    `json:"filter,omitempty"`
	Project   *ProjectRel   `json:"project,omitempty"`
	Sort      *SortRel      `json:"sort,omitempty"`
	Fetch     *FetchRel     `json:"fetch,omitempty"`
	Aggregate *AggregateRel `json:"aggregate,omitempty"`
	Join      *JoinRel      `json:"join,omitempty"`
}

type ReadRel struct {
	BaseSchema *NamedStruct    `json:"baseSchema"`
	NamedTable *NamedTable     `json:"namedTable"`
	Projection *MaskExpression `json:"projection,omitempty"`
}

type NamedTable struct {
	Names []string `json:"names"`
}

type NamedStruct struct {
	Names  []string   `json:"names"`
	Struct *StructType `json:"struct"`
}

type StructType struct {
	Types []Type `json:"types"`
}

// MaskExpression implements the ReadRel projection pushdown the
// translator applies ahead of a GroupBy (spec §4.5).
type MaskExpression struct {
	Select *StructSelect `json:"select"`
}

type StructSelect struct {
	StructItems []StructItem `json:"structItems"`
}

type StructItem struct {
	Field int32 `json:"field"`
}

// Type is a coarse one-of-the-only-variants-this-backend-needs type
// descriptor; each translated column sets exactly one field.
type Type struct {
	I32       *TypeParam `json:"i32,omitempty"`
	I64       *TypeParam `json:"i64,omitempty"`
	Fp32      *TypeParam `json:"fp32,omitempty"`
	Fp64      *TypeParam `json:"fp64,omitempty"`
	String_   *TypeParam `json:"string,omitempty"`
	Bool      *TypeParam `json:"bool,omitempty"`
	Date      *TypeParam `json:"date,omitempty"`
	Timestamp *TypeParam `json:"timestamp,omitempty"`
	Decimal   *TypeParam `json:"decimal,omitempty"`
}

type TypeParam struct {
	Nullability string `json:"nullability,omitempty"`
}

type FilterRel struct {
	Input     *Rel        `json:"input"`
	Condition *Expression `json:"condition"`
}

type ProjectRel struct {
	Input       *Rel         `json:"input"`
	Expressions []Expression `json:"expressions"`
}

type SortRel struct {
	Input *Rel        `json:"input"`
	Sorts []SortField `json:"sorts"`
}

// SortField.Direction follows spec §6.4: 1 = ASC_NULLS_FIRST, 4 =
// DESC_NULLS_LAST.
type SortField struct {
	Expr      *Expression `json:"expr"`
	Direction int         `json:"direction"`
}

// FetchRel uses the deprecated scalar offset/count oneof variants
// rather than the newer expression-typed ones, since the target
// engines of interest only dispatch on those accessors (spec §4.5, §9).
type FetchRel struct {
	Input  *Rel  `json:"input"`
	Offset int64 `json:"offset"`
	Count  int64 `json:"count"`
}

type AggregateRel struct {
	Input     *Rel               `json:"input"`
	Groupings []Grouping         `json:"groupings"`
	Measures  []AggregateMeasure `json:"measures"`
}

// Grouping populates the deprecated groupingExpressions field directly
// (not the newer expressionReferences indirection) because the target
// DuckDB Substrait extension only reads the deprecated form (spec §9).
type Grouping struct {
	GroupingExpressions []Expression `json:"groupingExpressions"`
}

type AggregateMeasure struct {
	Measure *AggregateFunction `json:"measure"`
}

type AggregateFunction struct {
	FunctionReference uint32             `json:"functionReference"`
	Arguments         []FunctionArgument `json:"arguments"`
	OutputType        *Type              `json:"outputType,omitempty"`
}

type FunctionArgument struct {
	Value *Expression `json:"value"`
}

// JoinRel.Type is the integer join-kind mapping of spec §4.5's table.
type JoinRel struct {
	Left       *Rel        `json:"left"`
	Right      *Rel        `json:"right"`
	Expression *Expression `json:"expression"`
	Type       int         `json:"type"`
}

// Expression is the oneof of expression kinds this backend emits.
type Expression struct {
	Literal        *Literal        `json:"literal,omitempty"`
	Selection      *FieldReference `json:"selection,omitempty"`
	ScalarFunction *ScalarFunction `json:"scalarFunction,omitempty"`
}

type Literal struct {
	I32     *int32   `json:"i32,omitempty"`
	I64     *int64   `json:"i64,omitempty"`
	Fp64    *float64 `json:"fp64,omitempty"`
	String_ *string  `json:"string,omitempty"`
	Boolean *bool    `json:"boolean,omitempty"`
	Null    *Type    `json:"null,omitempty"`
}

// FieldReference always carries a rootReference marker alongside the
// direct reference, matching the target engine's binder requirement
// that a reference resolve against the outermost relation's output
// (spec §4.5).
type FieldReference struct {
	DirectReference *ReferenceSegment `json:"directReference"`
	RootReference   *struct{}         `json:"rootReference"`
}

type ReferenceSegment struct {
	StructField *StructFieldRef `json:"structField"`
}

type StructFieldRef struct {
	Field int32 `json:"field"`
}

type ScalarFunction struct {
	FunctionReference uint32             `json:"functionReference"`
	Arguments         []FunctionArgument `json:"arguments"`
	OutputType        *Type              `json:"outputType,omitempty"`
}
