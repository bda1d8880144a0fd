package docstore

import (
	"context"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store. It follows Firestore semantics closely
// enough for the chat core: deep merges, server timestamps, natural key order
// and order-by exclusion of documents missing the field.
type Memory struct {
	mu          sync.Mutex
	collections map[string]map[string]map[string]any
	failures    map[string]error
	now         func() time.Time
}

type MemoryOption func(*Memory)

// WithClock sets the clock used to resolve ServerTimestamp.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		collections: make(map[string]map[string]map[string]any),
		failures:    make(map[string]error),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Fail makes every operation on collection return err wrapped as a store
// failure. A nil err clears it.
func (m *Memory) Fail(collection string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, collection)
		return
	}
	m.failures[collection] = err
}

func (m *Memory) Get(_ context.Context, collection, key string) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[collection]; err != nil {
		return nil, unavailable("get", collection, err)
	}
	data, ok := m.collections[collection][key]
	if !ok {
		return nil, ErrNotFound
	}
	return &Document{Key: key, Data: copyMap(data)}, nil
}

func (m *Memory) Query(_ context.Context, collection string, q Query) ([]*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[collection]; err != nil {
		return nil, unavailable("query", collection, err)
	}

	docs := m.collections[collection]
	keys := make([]string, 0, len(docs))
	for k := range docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []*Document
	for _, k := range keys {
		data := docs[k]
		if !matches(data, q.Filters) {
			continue
		}
		if q.OrderBy != "" {
			if _, ok := data[q.OrderBy]; !ok {
				continue
			}
		}
		out = append(out, &Document{Key: k, Data: copyMap(data)})
	}

	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			c, _ := compare(out[i].Data[q.OrderBy], out[j].Data[q.OrderBy])
			if q.Direction == Desc {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *Memory) Put(_ context.Context, collection, key string, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[collection]; err != nil {
		return unavailable("put", collection, err)
	}
	m.collection(collection)[key] = m.resolveMap(data)
	return nil
}

func (m *Memory) Merge(_ context.Context, collection, key string, partial map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[collection]; err != nil {
		return unavailable("merge", collection, err)
	}
	docs := m.collection(collection)
	dst, ok := docs[key]
	if !ok {
		dst = make(map[string]any)
		docs[key] = dst
	}
	m.mergeInto(dst, partial)
	return nil
}

func (m *Memory) Add(_ context.Context, collection string, data map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[collection]; err != nil {
		return "", unavailable("add", collection, err)
	}
	key := strings.ReplaceAll(uuid.NewString(), "-", "")
	m.collection(collection)[key] = m.resolveMap(data)
	return key, nil
}

func (m *Memory) collection(name string) map[string]map[string]any {
	docs, ok := m.collections[name]
	if !ok {
		docs = make(map[string]map[string]any)
		m.collections[name] = docs
	}
	return docs
}

func (m *Memory) mergeInto(dst, partial map[string]any) {
	for k, v := range partial {
		if v == Delete {
			delete(dst, k)
			continue
		}
		if sub, ok := v.(map[string]any); ok {
			if existing, ok := dst[k].(map[string]any); ok {
				m.mergeInto(existing, sub)
				continue
			}
		}
		dst[k] = m.resolve(v)
	}
}

func (m *Memory) resolveMap(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if v == Delete {
			continue
		}
		out[k] = m.resolve(v)
	}
	return out
}

// resolve turns a written value into its stored form.
func (m *Memory) resolve(v any) any {
	switch vv := v.(type) {
	case sentinel:
		if vv == ServerTimestamp {
			return m.now().UTC()
		}
		return nil
	case map[string]any:
		return m.resolveMap(vv)
	case []string:
		out := make([]any, len(vv))
		for i, s := range vv {
			out[i] = s
		}
		return out
	case []any:
		out := make([]any, len(vv))
		for i, e := range vv {
			out[i] = m.resolve(e)
		}
		return out
	case int:
		return int64(vv)
	case int32:
		return int64(vv)
	case float32:
		return float64(vv)
	}
	return v
}

func copyMap(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		switch vv := v.(type) {
		case map[string]any:
			out[k] = copyMap(vv)
		case []any:
			out[k] = append([]any(nil), vv...)
		default:
			out[k] = v
		}
	}
	return out
}

func matches(data map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v, ok := data[f.Field]
		if !ok {
			return false
		}
		switch f.Op {
		case OpEqual:
			if !equal(v, f.Value) {
				return false
			}
		case OpArrayContains:
			arr, ok := v.([]any)
			if !ok || !containsValue(arr, f.Value) {
				return false
			}
		case OpIn:
			if !containsValue(toAnySlice(f.Value), v) {
				return false
			}
		case OpGreaterOrEqual:
			c, ok := compare(v, f.Value)
			if !ok || c < 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func toAnySlice(v any) []any {
	switch vv := v.(type) {
	case []any:
		return vv
	case []string:
		out := make([]any, len(vv))
		for i, s := range vv {
			out[i] = s
		}
		return out
	}
	return nil
}

func containsValue(arr []any, v any) bool {
	for _, e := range arr {
		if equal(e, v) {
			return true
		}
	}
	return false
}

func equal(a, b any) bool {
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}

// compare orders two values of the same kind. ok is false when the values are
// not comparable with each other.
func compare(a, b any) (int, bool) {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok || av == bv {
			return 0, ok
		}
		if !av {
			return -1, true
		}
		return 1, true
	}
	af, aok := number(a)
	bf, bok := number(b)
	if !aok || !bok {
		return 0, false
	}
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	}
	return 0, true
}

func number(v any) (float64, bool) {
	switch vv := v.(type) {
	case int:
		return float64(vv), true
	case int32:
		return float64(vv), true
	case int64:
		return float64(vv), true
	case float32:
		return float64(vv), true
	case float64:
		return vv, true
	}
	return 0, false
}
