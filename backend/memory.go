package backend

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"teamdash/stream"

	"github.com/google/uuid"
)

const maxTransactionAttempts = 5

type memDoc struct {
	data    map[string]interface{}
	version int64
}

// Memory is an in-process document store with the same observable behavior as
// the Firestore backend. It serves local development and tests.
type Memory struct {
	mu       sync.RWMutex
	docs     map[string]*memDoc
	version  int64
	watchers map[int64]chan struct{}
	nextW    int64
}

func NewMemory() *Memory {
	return &Memory{
		docs:     make(map[string]*memDoc),
		watchers: make(map[int64]chan struct{}),
	}
}

type memSnapshot struct {
	path    string
	data    map[string]interface{}
	version int64
}

func (d *memSnapshot) ID() string   { return lastSegment(d.path) }
func (d *memSnapshot) Path() string { return d.path }
func (d *memSnapshot) Exists() bool { return d.data != nil }

func (d *memSnapshot) DataTo(v interface{}) error {
	if d.data == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, d.path)
	}
	return decodeDocument(d.data, v)
}

func (m *Memory) snapshot(path string) *memSnapshot {
	doc, ok := m.docs[path]
	if !ok {
		return &memSnapshot{path: path}
	}
	return &memSnapshot{path: path, data: cloneMap(doc.data), version: doc.version}
}

func (m *Memory) Get(ctx context.Context, path string) (Document, error) {
	m.mu.RLock()
	snap := m.snapshot(path)
	m.mu.RUnlock()
	if !snap.Exists() {
		return snap, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return snap, nil
}

func (m *Memory) Create(ctx context.Context, collection string, data interface{}) (string, error) {
	id := uuid.New().String()
	if err := m.Set(ctx, Join(collection, id), data); err != nil {
		return "", err
	}
	return id, nil
}

func (m *Memory) Set(ctx context.Context, path string, data interface{}) error {
	return m.write(func(docs map[string]*memDoc, version int64) error {
		return setDoc(docs, version, path, data)
	})
}

func (m *Memory) Merge(ctx context.Context, path string, updates []Update) error {
	return m.write(func(docs map[string]*memDoc, version int64) error {
		return updateDoc(docs, version, path, updates, true)
	})
}

func (m *Memory) Update(ctx context.Context, path string, updates []Update) error {
	return m.write(func(docs map[string]*memDoc, version int64) error {
		return updateDoc(docs, version, path, updates, false)
	})
}

func (m *Memory) Delete(ctx context.Context, path string) error {
	return m.write(func(docs map[string]*memDoc, _ int64) error {
		delete(docs, path)
		return nil
	})
}

func (m *Memory) DeleteAll(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	return m.write(func(docs map[string]*memDoc, _ int64) error {
		for _, p := range paths {
			delete(docs, p)
		}
		return nil
	})
}

func (m *Memory) Query(ctx context.Context, q Query) ([]Document, error) {
	m.mu.RLock()
	snaps := m.runQuery(q)
	m.mu.RUnlock()
	return toDocuments(snaps), nil
}

func (m *Memory) WatchDocument(ctx context.Context, path string) *stream.Stream[Document] {
	return stream.New(ctx, func(ctx context.Context, emit func(Document) bool) error {
		signal, stop := m.subscribe()
		defer stop()

		last := int64(-1)
		for {
			m.mu.RLock()
			snap := m.snapshot(path)
			m.mu.RUnlock()

			if snap.version != last {
				last = snap.version
				if !emit(snap) {
					return nil
				}
			}

			select {
			case <-ctx.Done():
				return nil
			case <-signal:
			}
		}
	})
}

func (m *Memory) WatchQuery(ctx context.Context, q Query) *stream.Stream[[]Document] {
	return stream.New(ctx, func(ctx context.Context, emit func([]Document) bool) error {
		signal, stop := m.subscribe()
		defer stop()

		var last []*memSnapshot
		first := true
		for {
			m.mu.RLock()
			snaps := m.runQuery(q)
			m.mu.RUnlock()

			if first || !sameResult(last, snaps) {
				first = false
				last = snaps
				if !emit(toDocuments(snaps)) {
					return nil
				}
			}

			select {
			case <-ctx.Done():
				return nil
			case <-signal:
			}
		}
	})
}

type memTx struct {
	m      *Memory
	reads  map[string]int64
	writes []func(docs map[string]*memDoc, version int64) error
}

func (tx *memTx) Get(path string) (Document, error) {
	if len(tx.writes) > 0 {
		return nil, fmt.Errorf("backend: transaction reads must precede writes")
	}
	tx.m.mu.RLock()
	snap := tx.m.snapshot(path)
	tx.m.mu.RUnlock()
	tx.reads[path] = snap.version
	if !snap.Exists() {
		return snap, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return snap, nil
}

func (tx *memTx) Set(path string, data interface{}) error {
	tx.writes = append(tx.writes, func(docs map[string]*memDoc, version int64) error {
		return setDoc(docs, version, path, data)
	})
	return nil
}

func (tx *memTx) Update(path string, updates []Update) error {
	tx.writes = append(tx.writes, func(docs map[string]*memDoc, version int64) error {
		return updateDoc(docs, version, path, updates, false)
	})
	return nil
}

func (tx *memTx) Delete(path string) error {
	tx.writes = append(tx.writes, func(docs map[string]*memDoc, _ int64) error {
		delete(docs, path)
		return nil
	})
	return nil
}

// RunTransaction runs fn optimistically and commits its writes only if no
// document it read has changed in the meantime, retrying otherwise.
func (m *Memory) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	for attempt := 0; attempt < maxTransactionAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		tx := &memTx{m: m, reads: make(map[string]int64)}
		if err := fn(ctx, tx); err != nil {
			return err
		}

		m.mu.Lock()
		conflict := false
		for path, version := range tx.reads {
			current := int64(0)
			if doc, ok := m.docs[path]; ok {
				current = doc.version
			}
			if current != version {
				conflict = true
				break
			}
		}
		if conflict {
			m.mu.Unlock()
			continue
		}
		if len(tx.writes) == 0 {
			m.mu.Unlock()
			return nil
		}

		staged := make(map[string]*memDoc, len(m.docs))
		for k, v := range m.docs {
			staged[k] = v
		}
		m.version++
		for _, w := range tx.writes {
			if err := w(staged, m.version); err != nil {
				m.mu.Unlock()
				return err
			}
		}
		m.docs = staged
		m.mu.Unlock()
		m.notify()
		return nil
	}
	return ErrAborted
}

func (m *Memory) write(fn func(docs map[string]*memDoc, version int64) error) error {
	m.mu.Lock()
	m.version++
	err := fn(m.docs, m.version)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	m.notify()
	return nil
}

func (m *Memory) subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	m.mu.Lock()
	m.nextW++
	id := m.nextW
	m.watchers[id] = ch
	m.mu.Unlock()

	return ch, func() {
		m.mu.Lock()
		delete(m.watchers, id)
		m.mu.Unlock()
	}
}

func (m *Memory) notify() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ch := range m.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (m *Memory) runQuery(q Query) []*memSnapshot {
	var out []*memSnapshot
	for path, doc := range m.docs {
		if parent(path) != q.Collection {
			continue
		}
		if !matches(doc.data, q) {
			continue
		}
		out = append(out, &memSnapshot{path: path, data: cloneMap(doc.data), version: doc.version})
	}

	sort.Slice(out, func(i, j int) bool {
		for _, o := range q.Orders {
			a, _ := lookupField(out[i].data, o.Field)
			b, _ := lookupField(out[j].data, o.Field)
			c := compareValues(a, b)
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return out[i].ID() < out[j].ID()
	})

	if q.Max > 0 && len(out) > q.Max {
		out = out[:q.Max]
	}
	return out
}

func matches(data map[string]interface{}, q Query) bool {
	for _, f := range q.Filters {
		got, ok := lookupField(data, f.Field)
		if !ok {
			return false
		}
		want, err := encodeValue(reflect.ValueOf(f.Value))
		if err != nil {
			return false
		}
		switch f.Op {
		case OpEqual:
			if !equalValues(got, want) {
				return false
			}
		case OpArrayContains:
			arr, ok := got.([]interface{})
			if !ok || !containsValue(arr, want) {
				return false
			}
		default:
			return false
		}
	}
	// documents without an ordered field are not part of the result
	for _, o := range q.Orders {
		if _, ok := lookupField(data, o.Field); !ok {
			return false
		}
	}
	return true
}

func sameResult(a, b []*memSnapshot) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].path != b[i].path || a[i].version != b[i].version {
			return false
		}
	}
	return true
}

func toDocuments(snaps []*memSnapshot) []Document {
	out := make([]Document, len(snaps))
	for i, s := range snaps {
		out[i] = s
	}
	return out
}

func setDoc(docs map[string]*memDoc, version int64, path string, data interface{}) error {
	encoded, err := encodeDocument(data)
	if err != nil {
		return err
	}
	docs[path] = &memDoc{data: encoded, version: version}
	return nil
}

func updateDoc(docs map[string]*memDoc, version int64, path string, updates []Update, create bool) error {
	var data map[string]interface{}
	if doc, ok := docs[path]; ok {
		data = cloneMap(doc.data)
	} else if create {
		data = make(map[string]interface{})
	} else {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err := applyUpdates(data, updates); err != nil {
		return err
	}
	docs[path] = &memDoc{data: data, version: version}
	return nil
}
