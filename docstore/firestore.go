package docstore

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var _ Store = (*Firestore)(nil)

// Firestore is the production Store backed by Cloud Firestore.
type Firestore struct {
	client *firestore.Client
}

func NewFirestore(client *firestore.Client) *Firestore {
	return &Firestore{client: client}
}

func (f *Firestore) Close() error {
	return f.client.Close()
}

func (f *Firestore) Get(ctx context.Context, collection, key string) (*Document, error) {
	snap, err := f.client.Collection(collection).Doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, unavailable("get", collection, err)
	}
	if !snap.Exists() {
		return nil, ErrNotFound
	}
	return &Document{Key: snap.Ref.ID, Data: snap.Data()}, nil
}

func (f *Firestore) Query(ctx context.Context, collection string, q Query) ([]*Document, error) {
	fq := f.client.Collection(collection).Query
	for _, filter := range q.Filters {
		fq = fq.Where(filter.Field, string(filter.Op), filter.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Direction == Desc {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(q.OrderBy, dir)
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}

	snaps, err := fq.Documents(ctx).GetAll()
	if err != nil {
		return nil, unavailable("query", collection, err)
	}
	docs := make([]*Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, &Document{Key: snap.Ref.ID, Data: snap.Data()})
	}
	return docs, nil
}

func (f *Firestore) Put(ctx context.Context, collection, key string, data map[string]any) error {
	if _, err := f.client.Collection(collection).Doc(key).Set(ctx, translate(data)); err != nil {
		return unavailable("put", collection, err)
	}
	return nil
}

func (f *Firestore) Merge(ctx context.Context, collection, key string, partial map[string]any) error {
	if _, err := f.client.Collection(collection).Doc(key).Set(ctx, translate(partial), firestore.MergeAll); err != nil {
		return unavailable("merge", collection, err)
	}
	return nil
}

func (f *Firestore) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	ref, _, err := f.client.Collection(collection).Add(ctx, translate(data))
	if err != nil {
		return "", unavailable("add", collection, err)
	}
	return ref.ID, nil
}

// translate swaps package sentinels for their Firestore counterparts.
func translate(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		switch vv := v.(type) {
		case sentinel:
			switch vv {
			case ServerTimestamp:
				out[k] = firestore.ServerTimestamp
			case Delete:
				out[k] = firestore.Delete
			}
		case map[string]any:
			out[k] = translate(vv)
		default:
			out[k] = v
		}
	}
	return out
}
