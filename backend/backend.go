package backend

import (
	"context"
	"errors"
	"strings"

	"teamdash/stream"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrNotFound         = errors.New("document not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrAborted          = errors.New("transaction aborted after too many conflicts")
)

// IsNotFound reports whether err means the document does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || status.Code(err) == codes.NotFound
}

// IsPermissionDenied reports whether err is an authorization failure.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied) || status.Code(err) == codes.PermissionDenied
}

// Document is one snapshot of a stored document.
type Document interface {
	ID() string
	Path() string
	Exists() bool
	DataTo(v interface{}) error
}

// Tx is the view of the database inside a transaction. All reads must happen
// before the first write.
type Tx interface {
	Get(path string) (Document, error)
	Set(path string, data interface{}) error
	Update(path string, updates []Update) error
	Delete(path string) error
}

type Backend interface {
	Get(ctx context.Context, path string) (Document, error)
	Create(ctx context.Context, collection string, data interface{}) (string, error)
	Set(ctx context.Context, path string, data interface{}) error
	Merge(ctx context.Context, path string, updates []Update) error
	Update(ctx context.Context, path string, updates []Update) error
	Delete(ctx context.Context, path string) error
	DeleteAll(ctx context.Context, paths []string) error
	Query(ctx context.Context, q Query) ([]Document, error)
	WatchDocument(ctx context.Context, path string) *stream.Stream[Document]
	WatchQuery(ctx context.Context, q Query) *stream.Stream[[]Document]
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Update sets a single top-level field. Value may be an ArrayUnion or
// ArrayRemove transform.
type Update struct {
	Path  string
	Value interface{}
}

type arrayTransform struct {
	union  bool
	values []interface{}
}

// ArrayUnion adds each value to the array field unless already present.
func ArrayUnion(values ...interface{}) interface{} {
	return arrayTransform{union: true, values: values}
}

// ArrayRemove removes every occurrence of each value from the array field.
func ArrayRemove(values ...interface{}) interface{} {
	return arrayTransform{union: false, values: values}
}

const (
	OpEqual         = "=="
	OpArrayContains = "array-contains"
)

type Filter struct {
	Field string
	Op    string
	Value interface{}
}

type Order struct {
	Field string
	Desc  bool
}

// Query selects documents of one collection.
type Query struct {
	Collection string
	Filters    []Filter
	Orders     []Order
	Max        int
}

func Collection(path string) Query {
	return Query{Collection: path}
}

func (q Query) Where(field, op string, value interface{}) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Op: op, Value: value})
	return q
}

func (q Query) OrderBy(field string, desc bool) Query {
	q.Orders = append(append([]Order(nil), q.Orders...), Order{Field: field, Desc: desc})
	return q
}

func (q Query) Limit(n int) Query {
	q.Max = n
	return q
}

// Join builds a slash separated document or collection path.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

func split(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}

func parent(path string) string {
	segs := split(path)
	return strings.Join(segs[:len(segs)-1], "/")
}

func lastSegment(path string) string {
	segs := split(path)
	return segs[len(segs)-1]
}
