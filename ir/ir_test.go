package ir_test

import (
	"encoding/hex"
	"testing"

	"github.com/ColinClark/mlql/errors"
	"github.com/ColinClark/mlql/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const filterTakeJSON = `
{
  "pipeline": {
    "source": { "type": "Table", "name": "users" },
    "ops": [
      { "op": "Filter", "condition": {
          "type": "BinaryOp", "op": "Gt",
          "left": { "type": "Column", "column": "age" },
          "right": { "type": "Literal", "value": 25 }
        } },
      { "op": "Take", "limit": 3 }
    ]
  }
}`

func TestDecodeFilterTake(t *testing.T) {
	p, err := ir.Decode([]byte(filterTakeJSON))
	require.NoError(t, err)

	table, ok := p.Pipeline.Source.(*ir.Table)
	require.True(t, ok)
	assert.Equal(t, "users", table.Name)

	require.Len(t, p.Pipeline.Ops, 2)
	filter, ok := p.Pipeline.Ops[0].(*ir.Filter)
	require.True(t, ok)
	bin, ok := filter.Condition.(*ir.BinaryOp)
	require.True(t, ok)
	assert.Equal(t, ir.Gt, bin.Op)
	col, ok := bin.Left.(*ir.Column)
	require.True(t, ok)
	assert.Equal(t, "age", col.Column)
	lit, ok := bin.Right.(*ir.Literal)
	require.True(t, ok)
	assert.Equal(t, ir.KindInt, lit.Value.Kind)
	assert.EqualValues(t, 25, lit.Value.I)

	take, ok := p.Pipeline.Ops[1].(*ir.Take)
	require.True(t, ok)
	assert.EqualValues(t, 3, take.Limit)
	assert.Nil(t, take.Offset)
}

func TestDecodeMissingSourceName(t *testing.T) {
	_, err := ir.Decode([]byte(`{"pipeline":{"source":{"type":"Table"},"ops":[]}}`))
	require.Error(t, err)
	assert.Equal(t, errs.MissingField, errs.KindOf(err))
}

func TestDecodeUnknownOperatorTag(t *testing.T) {
	_, err := ir.Decode([]byte(`{"pipeline":{"source":{"type":"Table","name":"t"},"ops":[{"op":"Explode"}]}}`))
	require.Error(t, err)
}

func TestDecodeUnknownExpressionTag(t *testing.T) {
	_, err := ir.Decode([]byte(`{"pipeline":{"source":{"type":"Table","name":"t"},"ops":[
		{"op":"Filter","condition":{"type":"Window"}}
	]}}`))
	require.Error(t, err)
}

func TestGroupByAggsPreserveOrder(t *testing.T) {
	src := `{"pipeline":{"source":{"type":"Table","name":"orders"},"ops":[
		{"op":"GroupBy","keys":[{"column":"state"}],"aggs":[
			{"alias":"total","func":"count","args":[]},
			{"alias":"amount","func":"sum","args":[{"type":"Column","column":"amount"}]}
		]}
	]}}`
	p, err := ir.Decode([]byte(src))
	require.NoError(t, err)
	gb := p.Pipeline.Ops[0].(*ir.GroupBy)
	require.Len(t, gb.Aggs, 2)
	assert.Equal(t, "total", gb.Aggs[0].Alias)
	assert.Equal(t, "amount", gb.Aggs[1].Alias)
}

func TestProjectionBareVsAliased(t *testing.T) {
	src := `{"pipeline":{"source":{"type":"Table","name":"locations"},"ops":[
		{"op":"Select","projections":[
			{"type":"Column","column":"city"},
			{"expr":{"type":"Column","column":"state"},"alias":"region"}
		]}
	]}}`
	p, err := ir.Decode([]byte(src))
	require.NoError(t, err)
	sel := p.Pipeline.Ops[0].(*ir.Select)
	require.Len(t, sel.Projections, 2)
	name0, ok0 := sel.Projections[0].Name()
	require.True(t, ok0)
	assert.Equal(t, "city", name0)
	assert.Equal(t, "region", sel.Projections[1].Alias)

	buf, err := ir.Encode(p)
	require.NoError(t, err)
	assert.Contains(t, buf, `"city"`)
	assert.Contains(t, buf, `"alias":"region"`)
}

func TestRoundTrip(t *testing.T) {
	p, err := ir.Decode([]byte(filterTakeJSON))
	require.NoError(t, err)
	encoded, err := ir.Encode(p)
	require.NoError(t, err)
	p2, err := ir.Decode([]byte(encoded))
	require.NoError(t, err)
	encoded2, err := ir.Encode(p2)
	require.NoError(t, err)
	assert.Equal(t, encoded, encoded2)
}

func TestFingerprintStableAcrossKeyOrder(t *testing.T) {
	a := `{"pipeline":{"source":{"type":"Table","name":"t"},"ops":[]},"pragma":{"rows":10}}`
	b := `{"pragma":{"rows":10},"pipeline":{"ops":[],"source":{"name":"t","type":"Table"}}}`
	pa, err := ir.Decode([]byte(a))
	require.NoError(t, err)
	pb, err := ir.Decode([]byte(b))
	require.NoError(t, err)
	fa, err := ir.Fingerprint(pa)
	require.NoError(t, err)
	fb, err := ir.Fingerprint(pb)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(fa[:]), hex.EncodeToString(fb[:]))
}

func TestFingerprintChangesWithAggOrder(t *testing.T) {
	base := `{"pipeline":{"source":{"type":"Table","name":"o"},"ops":[
		{"op":"GroupBy","keys":[{"column":"state"}],"aggs":[
			{"alias":"a","func":"count","args":[]},
			{"alias":"b","func":"sum","args":[{"type":"Column","column":"x"}]}
		]}
	]}}`
	swapped := `{"pipeline":{"source":{"type":"Table","name":"o"},"ops":[
		{"op":"GroupBy","keys":[{"column":"state"}],"aggs":[
			{"alias":"b","func":"sum","args":[{"type":"Column","column":"x"}]},
			{"alias":"a","func":"count","args":[]}
		]}
	]}}`
	p1, err := ir.Decode([]byte(base))
	require.NoError(t, err)
	p2, err := ir.Decode([]byte(swapped))
	require.NoError(t, err)
	f1, err := ir.Fingerprint(p1)
	require.NoError(t, err)
	f2, err := ir.Fingerprint(p2)
	require.NoError(t, err)
	assert.NotEqual(t, f1, f2)
}

func TestLiteralIntFloatDistinct(t *testing.T) {
	intLit := ir.Literal{Kind: "Literal", Value: ir.IntValue(5)}
	floatLit := ir.Literal{Kind: "Literal", Value: ir.FloatValue(5.0)}
	intJSON, err := ir.Encode(wrapLiteral(intLit))
	require.NoError(t, err)
	floatJSON, err := ir.Encode(wrapLiteral(floatLit))
	require.NoError(t, err)
	assert.Contains(t, intJSON, `"value":5}`)
	assert.Contains(t, floatJSON, `"value":5.0}`)
}

func wrapLiteral(lit ir.Literal) *ir.Program {
	return &ir.Program{
		Pipeline: ir.Pipeline{
			Source: &ir.Table{Name: "t"},
			Ops: []ir.Operator{
				&ir.Filter{Condition: &lit},
			},
		},
	}
}
