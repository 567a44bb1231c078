package backend

import (
	"context"
	"fmt"
	"strings"

	"teamdash/stream"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore implements Backend over a Cloud Firestore client.
type Firestore struct {
	client *firestore.Client
}

func NewFirestore(client *firestore.Client) *Firestore {
	return &Firestore{client: client}
}

type fsDocument struct {
	snap *firestore.DocumentSnapshot
	path string
}

func newFSDocument(snap *firestore.DocumentSnapshot) *fsDocument {
	return &fsDocument{snap: snap, path: relativePath(snap.Ref)}
}

func (d *fsDocument) ID() string   { return lastSegment(d.path) }
func (d *fsDocument) Path() string { return d.path }

func (d *fsDocument) Exists() bool {
	return d.snap != nil && d.snap.Exists()
}

func (d *fsDocument) DataTo(v interface{}) error {
	if !d.Exists() {
		return fmt.Errorf("%w: %s", ErrNotFound, d.path)
	}
	return d.snap.DataTo(v)
}

// relativePath strips the projects/<p>/databases/<d>/documents/ prefix.
func relativePath(ref *firestore.DocumentRef) string {
	if ref == nil {
		return ""
	}
	if _, rel, ok := strings.Cut(ref.Path, "/documents/"); ok {
		return rel
	}
	return ref.Path
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return err
}

func (f *Firestore) Get(ctx context.Context, path string) (Document, error) {
	snap, err := f.client.Doc(path).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return &fsDocument{snap: snap, path: path}, classify(err)
		}
		return nil, classify(err)
	}
	return newFSDocument(snap), nil
}

func (f *Firestore) Create(ctx context.Context, collection string, data interface{}) (string, error) {
	ref, _, err := f.client.Collection(collection).Add(ctx, data)
	if err != nil {
		return "", classify(err)
	}
	return ref.ID, nil
}

func (f *Firestore) Set(ctx context.Context, path string, data interface{}) error {
	_, err := f.client.Doc(path).Set(ctx, data)
	return classify(err)
}

func (f *Firestore) Merge(ctx context.Context, path string, updates []Update) error {
	fields := make(map[string]interface{}, len(updates))
	for _, u := range updates {
		fields[u.Path] = toFirestoreValue(u.Value)
	}
	_, err := f.client.Doc(path).Set(ctx, fields, firestore.MergeAll)
	return classify(err)
}

func (f *Firestore) Update(ctx context.Context, path string, updates []Update) error {
	_, err := f.client.Doc(path).Update(ctx, toFirestoreUpdates(updates))
	return classify(err)
}

func (f *Firestore) Delete(ctx context.Context, path string) error {
	_, err := f.client.Doc(path).Delete(ctx)
	return classify(err)
}

func (f *Firestore) DeleteAll(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	bw := f.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(paths))
	for _, p := range paths {
		job, err := bw.Delete(f.client.Doc(p))
		if err != nil {
			bw.End()
			return classify(err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for i, job := range jobs {
		if _, err := job.Results(); err != nil {
			return fmt.Errorf("delete %s: %w", paths[i], classify(err))
		}
	}
	return nil
}

func (f *Firestore) query(q Query) firestore.Query {
	fq := f.client.Collection(q.Collection).Query
	for _, flt := range q.Filters {
		fq = fq.Where(flt.Field, flt.Op, flt.Value)
	}
	for _, o := range q.Orders {
		dir := firestore.Asc
		if o.Desc {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(o.Field, dir)
	}
	if q.Max > 0 {
		fq = fq.Limit(q.Max)
	}
	return fq
}

func (f *Firestore) Query(ctx context.Context, q Query) ([]Document, error) {
	iter := f.query(q).Documents(ctx)
	defer iter.Stop()

	var docs []Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, classify(err)
		}
		docs = append(docs, newFSDocument(snap))
	}
	return docs, nil
}

func (f *Firestore) WatchDocument(ctx context.Context, path string) *stream.Stream[Document] {
	return stream.New(ctx, func(ctx context.Context, emit func(Document) bool) error {
		it := f.client.Doc(path).Snapshots(ctx)
		defer it.Stop()

		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() != nil || status.Code(err) == codes.Canceled {
					return nil
				}
				return classify(err)
			}
			if !emit(&fsDocument{snap: snap, path: path}) {
				return nil
			}
		}
	})
}

func (f *Firestore) WatchQuery(ctx context.Context, q Query) *stream.Stream[[]Document] {
	return stream.New(ctx, func(ctx context.Context, emit func([]Document) bool) error {
		it := f.query(q).Snapshots(ctx)
		defer it.Stop()

		for {
			qs, err := it.Next()
			if err != nil {
				if ctx.Err() != nil || status.Code(err) == codes.Canceled {
					return nil
				}
				return classify(err)
			}
			snaps, err := qs.Documents.GetAll()
			if err != nil {
				return classify(err)
			}
			docs := make([]Document, len(snaps))
			for i, s := range snaps {
				docs[i] = newFSDocument(s)
			}
			if !emit(docs) {
				return nil
			}
		}
	})
}

type fsTx struct {
	client *firestore.Client
	tx     *firestore.Transaction
}

func (t *fsTx) Get(path string) (Document, error) {
	snap, err := t.tx.Get(t.client.Doc(path))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return &fsDocument{snap: snap, path: path}, classify(err)
		}
		return nil, classify(err)
	}
	return newFSDocument(snap), nil
}

func (t *fsTx) Set(path string, data interface{}) error {
	return t.tx.Set(t.client.Doc(path), data)
}

func (t *fsTx) Update(path string, updates []Update) error {
	return t.tx.Update(t.client.Doc(path), toFirestoreUpdates(updates))
}

func (t *fsTx) Delete(path string) error {
	return t.tx.Delete(t.client.Doc(path))
}

func (f *Firestore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(ctx, &fsTx{client: f.client, tx: tx})
	})
	if status.Code(err) == codes.Aborted {
		return fmt.Errorf("%w: %v", ErrAborted, err)
	}
	return classify(err)
}

func toFirestoreUpdates(updates []Update) []firestore.Update {
	out := make([]firestore.Update, len(updates))
	for i, u := range updates {
		out[i] = firestore.Update{Path: u.Path, Value: toFirestoreValue(u.Value)}
	}
	return out
}

func toFirestoreValue(v interface{}) interface{} {
	t, ok := v.(arrayTransform)
	if !ok {
		return v
	}
	if t.union {
		return firestore.ArrayUnion(t.values...)
	}
	return firestore.ArrayRemove(t.values...)
}
