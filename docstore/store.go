// Package docstore is the only access path to persisted data. It exposes a
// small collection/document API modelled on Firestore so the chat core can run
// against Firestore in production and an in-memory store in tests.
package docstore

import (
	"context"
	"fmt"

	"github.com/Bilz97/UConnectChat/contract"
)

// ErrNotFound is returned by Get when the document does not exist.
var ErrNotFound = contract.ErrNotFound

// Op is a query filter operator.
type Op string

const (
	OpEqual          Op = "=="
	OpArrayContains  Op = "array-contains"
	OpIn             Op = "in"
	OpGreaterOrEqual Op = ">="
)

// Direction is the sort order of a query.
type Direction int

const (
	Asc Direction = iota
	Desc
)

type sentinel int

const (
	// ServerTimestamp is replaced with the store's clock at write time.
	ServerTimestamp sentinel = iota + 1
	// Delete removes the field it is assigned to in a Merge.
	Delete
)

// Filter is a single field predicate.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query describes the documents to return from a collection. Without an
// order-by field documents come back in ascending key order; ordering by a
// field drops documents that do not carry it.
type Query struct {
	Filters   []Filter
	OrderBy   string
	Direction Direction
	Limit     int
}

// Where starts a query with one filter.
func Where(field string, op Op, value any) Query {
	return Query{}.Where(field, op, value)
}

func (q Query) Where(field string, op Op, value any) Query {
	filters := make([]Filter, 0, len(q.Filters)+1)
	filters = append(filters, q.Filters...)
	q.Filters = append(filters, Filter{Field: field, Op: op, Value: value})
	return q
}

func (q Query) Order(field string, dir Direction) Query {
	q.OrderBy = field
	q.Direction = dir
	return q
}

func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

// Document is a stored document. Data holds store-native values: timestamps
// are time.Time and arrays are []any.
type Document struct {
	Key  string
	Data map[string]any
}

// Store is a collection-scoped document store. Collections are slash separated
// paths, see Sub.
type Store interface {
	Get(ctx context.Context, collection, key string) (*Document, error)
	Query(ctx context.Context, collection string, q Query) ([]*Document, error)
	Put(ctx context.Context, collection, key string, data map[string]any) error
	Merge(ctx context.Context, collection, key string, partial map[string]any) error
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
}

// Sub returns the path of a sub-collection under a document.
func Sub(collection, key, name string) string {
	return collection + "/" + key + "/" + name
}

// Strings converts a stored array into a string slice, skipping non-string
// elements.
func Strings(v any) []string {
	switch vv := v.(type) {
	case []string:
		return append([]string(nil), vv...)
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// String returns the string stored under field, or "".
func (d *Document) String(field string) string {
	s, _ := d.Data[field].(string)
	return s
}

func unavailable(op, collection string, err error) error {
	return fmt.Errorf("%w: %s %s: %v", contract.ErrStoreUnavailable, op, collection, err)
}
