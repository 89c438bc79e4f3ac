package compiler_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ColinClark/mlql/compiler"
	"github.com/ColinClark/mlql/compiler/sql"
	"github.com/ColinClark/mlql/compiler/substrait"
	"github.com/ColinClark/mlql/errors"
	"github.com/ColinClark/mlql/ir"
	"github.com/ColinClark/mlql/schema"
)

type fixtureProvider map[string]schema.TableSchema

func (f fixtureProvider) GetTableSchema(name string) (schema.TableSchema, error) {
	ts, ok := f[name]
	if !ok {
		return schema.TableSchema{}, schema.NotFound(name)
	}
	return ts, nil
}

func newFixtureProvider() fixtureProvider {
	return fixtureProvider{
		"users": schema.TableSchema{Name: "users", Columns: []schema.ColumnInfo{
			{Name: "id", DataType: schema.Int32},
			{Name: "name", DataType: schema.String},
			{Name: "age", DataType: schema.Int32},
		}},
		"orders": schema.TableSchema{Name: "orders", Columns: []schema.ColumnInfo{
			{Name: "order_id", DataType: schema.Int32},
			{Name: "user_id", DataType: schema.Int32},
			{Name: "state", DataType: schema.String},
		}},
		"locations": schema.TableSchema{Name: "locations", Columns: []schema.ColumnInfo{
			{Name: "city", DataType: schema.String},
			{Name: "state", DataType: schema.String},
		}},
	}
}

func decodeProgram(t *testing.T, doc string) *ir.Program {
	t.Helper()
	p, err := ir.Decode([]byte(doc))
	require.NoError(t, err)
	return p
}

// Scenario 1: Filter then Limit.
func TestScenario1FilterThenLimit(t *testing.T) {
	p := decodeProgram(t, `{
		"pipeline": {
			"source": {"type": "Table", "name": "users"},
			"ops": [
				{"op": "Filter", "condition": {"type": "BinaryOp", "op": "Gt",
					"left": {"type": "Column", "column": "age"},
					"right": {"type": "Literal", "value": 25}}},
				{"op": "Take", "limit": 3}
			]
		}
	}`)
	provider := newFixtureProvider()

	got, err := sql.Compile(p, provider, nil)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "users" WHERE ("age" > 25) LIMIT 3`, got)

	planJSON, err := substrait.Compile(p, provider, nil)
	require.NoError(t, err)
	var plan map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(planJSON), &plan))
	exts := plan["extensions"].([]interface{})
	require.Len(t, exts, 1)
	fn := exts[0].(map[string]interface{})["extensionFunction"].(map[string]interface{})
	assert.Equal(t, "gt", fn["name"])
	ref, err := compiler.BinaryFunctionRef(ir.Gt, schema.Int32, schema.Int32)
	require.NoError(t, err)
	assert.Equal(t, "gt:i32_i32", ref.Signature)
}

// Scenario 2: Group and sort by aggregate alias.
func TestScenario2GroupAndSortByAlias(t *testing.T) {
	p := decodeProgram(t, `{
		"pipeline": {
			"source": {"type": "Table", "name": "orders"},
			"ops": [
				{"op": "GroupBy", "keys": [{"column": "state"}],
					"aggs": [{"alias": "total", "func": "count", "args": []}]},
				{"op": "Sort", "keys": [{"expr": {"type": "Column", "column": "total"}, "desc": true}]},
				{"op": "Take", "limit": 5}
			]
		}
	}`)
	provider := newFixtureProvider()

	got, err := sql.Compile(p, provider, nil)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "state", count(*) AS "total" FROM "orders" GROUP BY "state" ORDER BY "total" DESC NULLS LAST LIMIT 5`, got)

	finalEnv, err := compiler.BuildFinalEnv(&p.Pipeline, provider, compiler.NewOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"state", "total"}, finalEnv.Names)

	planJSON, err := substrait.Compile(p, provider, nil)
	require.NoError(t, err)
	var plan map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(planJSON), &plan))
	root := plan["relations"].([]interface{})[0].(map[string]interface{})["root"].(map[string]interface{})
	names := root["names"].([]interface{})
	assert.Equal(t, []interface{}{"state", "total"}, names)
}

// Scenario 3: Inner join with combined schema.
func TestScenario3InnerJoin(t *testing.T) {
	p := decodeProgram(t, `{
		"pipeline": {
			"source": {"type": "Table", "name": "users", "alias": "u"},
			"ops": [
				{"op": "Join", "kind": "Inner",
					"source": {"type": "Table", "name": "orders", "alias": "o"},
					"on": {"type": "BinaryOp", "op": "Eq",
						"left": {"type": "Column", "table": "u", "column": "id"},
						"right": {"type": "Column", "table": "o", "column": "user_id"}}}
			]
		}
	}`)
	provider := newFixtureProvider()

	finalEnv, err := compiler.BuildFinalEnv(&p.Pipeline, provider, compiler.NewOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "age", "order_id", "user_id", "state"}, finalEnv.Names)

	planJSON, err := substrait.Compile(p, provider, nil)
	require.NoError(t, err)
	var plan map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(planJSON), &plan))
	root := plan["relations"].([]interface{})[0].(map[string]interface{})["root"].(map[string]interface{})
	input := root["input"].(map[string]interface{})
	join := input["join"].(map[string]interface{})
	assert.Equal(t, float64(1), join["type"])
}

// Scenario 4: Distinct over multi-column select.
func TestScenario4DistinctOverSelect(t *testing.T) {
	p := decodeProgram(t, `{
		"pipeline": {
			"source": {"type": "Table", "name": "locations"},
			"ops": [
				{"op": "Select", "projections": [
					{"type": "Column", "column": "city"},
					{"type": "Column", "column": "state"}
				]},
				{"op": "Distinct"}
			]
		}
	}`)
	provider := newFixtureProvider()

	got, err := sql.Compile(p, provider, nil)
	require.NoError(t, err)
	assert.Equal(t, `SELECT DISTINCT "city", "state" FROM "locations"`, got)

	planJSON, err := substrait.Compile(p, provider, nil)
	require.NoError(t, err)
	var plan map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(planJSON), &plan))
	root := plan["relations"].([]interface{})[0].(map[string]interface{})["root"].(map[string]interface{})
	agg := root["input"].(map[string]interface{})["aggregate"].(map[string]interface{})
	groupings := agg["groupings"].([]interface{})
	require.Len(t, groupings, 1)
	exprs := groupings[0].(map[string]interface{})["groupingExpressions"].([]interface{})
	assert.Len(t, exprs, 2)
	assert.Nil(t, agg["measures"])
}

// Scenario 5: Schema error naming the operator index.
func TestScenario5SchemaErrorAtOperatorIndex(t *testing.T) {
	p := decodeProgram(t, `{
		"pipeline": {
			"source": {"type": "Table", "name": "users"},
			"ops": [
				{"op": "Select", "projections": [{"type": "Column", "column": "name"}]},
				{"op": "Filter", "condition": {"type": "BinaryOp", "op": "Gt",
					"left": {"type": "Column", "column": "age"},
					"right": {"type": "Literal", "value": 0}}}
			]
		}
	}`)
	provider := newFixtureProvider()

	_, err := sql.Compile(p, provider, nil)
	require.Error(t, err)
	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errs.ColumnNotFound, e.Kind)
	assert.Equal(t, errs.OpIndex(1), e.OpIndex)
}

// Scenario 6: Canonical fingerprint is stable across key-order variation.
func TestScenario6CanonicalFingerprint(t *testing.T) {
	p1 := decodeProgram(t, `{"pipeline":{"source":{"type":"Table","name":"users","alias":"u"},"ops":[]}}`)
	p2 := decodeProgram(t, `{"pipeline":{"source":{"alias":"u","type":"Table","name":"users"},"ops":[]}}`)

	f1, err := compiler.Fingerprint(p1)
	require.NoError(t, err)
	f2, err := compiler.Fingerprint(p2)
	require.NoError(t, err)
	assert.Equal(t, f1, f2)
}
