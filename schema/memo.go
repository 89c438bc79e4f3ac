package schema

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// MemoProvider wraps a Provider with a bounded, mutex-protected cache and
// singleflight-collapsed lookups. Spec §5 requires this: translation
// itself is single-threaded and pure, but a schema provider may be
// shared across concurrent translations, and only a provider that
// protects its own cache is safe to share.
type MemoProvider struct {
	inner Provider
	log   *zap.Logger

	mu    sync.Mutex
	cache *lru.Cache[string, TableSchema]
	group singleflight.Group
}

// MemoOption configures a MemoProvider.
type MemoOption func(*MemoProvider)

// WithLogger attaches a zap logger; cache hits/misses log at Debug.
func WithLogger(log *zap.Logger) MemoOption {
	return func(m *MemoProvider) { m.log = log }
}

// NewMemoProvider wraps inner with an LRU cache of the given size (0
// defaults to 256 entries, generous for the number of distinct tables a
// single program touches).
func NewMemoProvider(inner Provider, size int, opts ...MemoOption) *MemoProvider {
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New[string, TableSchema](size)
	if err != nil {
		// Only returns an error for a non-positive size, which we've
		// already normalized above.
		panic(err)
	}
	m := &MemoProvider{inner: inner, cache: cache, log: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoProvider) GetTableSchema(name string) (TableSchema, error) {
	m.mu.Lock()
	if ts, ok := m.cache.Get(name); ok {
		m.mu.Unlock()
		m.log.Debug("schema cache hit", zap.String("table", name))
		return ts, nil
	}
	m.mu.Unlock()

	m.log.Debug("schema cache miss", zap.String("table", name))
	v, err, _ := m.group.Do(name, func() (interface{}, error) {
		return m.inner.GetTableSchema(name)
	})
	if err != nil {
		return TableSchema{}, err
	}
	ts := v.(TableSchema)

	m.mu.Lock()
	m.cache.Add(name, ts)
	m.mu.Unlock()
	return ts, nil
}
