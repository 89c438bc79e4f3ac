package schema_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ColinClark/mlql/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	calls int32
	ts    schema.TableSchema
}

func (c *countingProvider) GetTableSchema(name string) (schema.TableSchema, error) {
	atomic.AddInt32(&c.calls, 1)
	if name != c.ts.Name {
		return schema.TableSchema{}, schema.NotFound(name)
	}
	return c.ts, nil
}

func TestMemoProviderCachesAfterFirstLookup(t *testing.T) {
	inner := &countingProvider{ts: schema.TableSchema{
		Name: "users",
		Columns: []schema.ColumnInfo{
			{Name: "id", DataType: schema.Int64},
			{Name: "name", DataType: schema.String},
		},
	}}
	m := schema.NewMemoProvider(inner, 8)

	for i := 0; i < 5; i++ {
		ts, err := m.GetTableSchema("users")
		require.NoError(t, err)
		assert.Equal(t, "users", ts.Name)
	}
	assert.EqualValues(t, 1, inner.calls)
}

func TestMemoProviderCollapsesConcurrentLookups(t *testing.T) {
	inner := &countingProvider{ts: schema.TableSchema{Name: "orders"}}
	m := schema.NewMemoProvider(inner, 8)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.GetTableSchema("orders")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, inner.calls, int32(20))
}

func TestMemoProviderPropagatesNotFound(t *testing.T) {
	inner := &countingProvider{ts: schema.TableSchema{Name: "users"}}
	m := schema.NewMemoProvider(inner, 8)
	_, err := m.GetTableSchema("missing")
	require.Error(t, err)
}
