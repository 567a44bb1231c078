package backend

import (
	"context"
	"testing"
	"time"

	"teamdash/stream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type note struct {
	ID        string    `firestore:"-"`
	Title     string    `firestore:"title"`
	Done      bool      `firestore:"done"`
	Tags      []string  `firestore:"tags,omitempty"`
	Owner     *string   `firestore:"owner,omitempty"`
	CreatedAt time.Time `firestore:"createdAt"`
}

func nextEvent[T any](t *testing.T, s *stream.Stream[T]) stream.Event[T] {
	t.Helper()
	select {
	case ev, ok := <-s.Events():
		require.True(t, ok, "stream closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return stream.Event[T]{}
}

func TestMemoryCRUD(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	now := time.Now()
	require.NoError(t, m.Set(ctx, "notes/a", note{Title: "first", CreatedAt: now}))

	doc, err := m.Get(ctx, "notes/a")
	require.NoError(t, err)
	assert.Equal(t, "a", doc.ID())
	assert.Equal(t, "notes/a", doc.Path())

	var n note
	require.NoError(t, doc.DataTo(&n))
	assert.Equal(t, "first", n.Title)
	assert.True(t, n.CreatedAt.Equal(now))
	assert.Nil(t, n.Tags)
	assert.Nil(t, n.Owner)

	require.NoError(t, m.Update(ctx, "notes/a", []Update{{Path: "done", Value: true}}))
	doc, err = m.Get(ctx, "notes/a")
	require.NoError(t, err)
	require.NoError(t, doc.DataTo(&n))
	assert.True(t, n.Done)

	require.NoError(t, m.Delete(ctx, "notes/a"))
	_, err = m.Get(ctx, "notes/a")
	assert.True(t, IsNotFound(err))

	// deleting a missing document is not an error
	assert.NoError(t, m.Delete(ctx, "notes/a"))
}

func TestMemoryUpdateMissingDocument(t *testing.T) {
	m := NewMemory()
	err := m.Update(context.Background(), "notes/nope", []Update{{Path: "done", Value: true}})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryMergeCreates(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Merge(ctx, "notes/b", []Update{{Path: "tags", Value: ArrayUnion("x")}}))

	doc, err := m.Get(ctx, "notes/b")
	require.NoError(t, err)
	var n note
	require.NoError(t, doc.DataTo(&n))
	assert.Equal(t, []string{"x"}, n.Tags)
}

func TestMemoryArrayTransforms(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, "notes/c", note{Title: "c", Tags: []string{"a", "b"}}))

	require.NoError(t, m.Update(ctx, "notes/c", []Update{{Path: "tags", Value: ArrayUnion("b", "c")}}))
	require.NoError(t, m.Update(ctx, "notes/c", []Update{{Path: "tags", Value: ArrayRemove("a")}}))

	doc, err := m.Get(ctx, "notes/c")
	require.NoError(t, err)
	var n note
	require.NoError(t, doc.DataTo(&n))
	assert.Equal(t, []string{"b", "c"}, n.Tags)

	t.Run("remove of struct values", func(t *testing.T) {
		type entry struct {
			Team string `firestore:"team"`
		}
		require.NoError(t, m.Set(ctx, "boxes/x", map[string]interface{}{
			"items": []entry{{Team: "t1"}, {Team: "t2"}},
		}))
		require.NoError(t, m.Update(ctx, "boxes/x", []Update{{Path: "items", Value: ArrayRemove(entry{Team: "t1"})}}))

		doc, err := m.Get(ctx, "boxes/x")
		require.NoError(t, err)
		var box struct {
			Items []entry `firestore:"items"`
		}
		require.NoError(t, doc.DataTo(&box))
		assert.Equal(t, []entry{{Team: "t2"}}, box.Items)
	})
}

func TestMemoryQuery(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, m.Set(ctx, "notes/1", note{Title: "one", Tags: []string{"u1"}, CreatedAt: base}))
	require.NoError(t, m.Set(ctx, "notes/2", note{Title: "two", Tags: []string{"u1", "u2"}, CreatedAt: base.Add(time.Hour), Done: true}))
	require.NoError(t, m.Set(ctx, "notes/3", note{Title: "three", Tags: []string{"u2"}, CreatedAt: base.Add(2 * time.Hour)}))
	require.NoError(t, m.Set(ctx, "notes/3/children/x", note{Title: "nested"}))
	require.NoError(t, m.Set(ctx, "notes/4", map[string]interface{}{"title": "no timestamp"}))

	t.Run("array contains", func(t *testing.T) {
		docs, err := m.Query(ctx, Collection("notes").Where("tags", OpArrayContains, "u2"))
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "2", docs[0].ID())
		assert.Equal(t, "3", docs[1].ID())
	})

	t.Run("order desc skips documents without the field", func(t *testing.T) {
		docs, err := m.Query(ctx, Collection("notes").OrderBy("createdAt", true))
		require.NoError(t, err)
		ids := make([]string, len(docs))
		for i, d := range docs {
			ids[i] = d.ID()
		}
		assert.Equal(t, []string{"3", "2", "1"}, ids)
	})

	t.Run("equality and limit", func(t *testing.T) {
		docs, err := m.Query(ctx, Collection("notes").Where("done", OpEqual, false).OrderBy("createdAt", false).Limit(1))
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "1", docs[0].ID())
	})

	t.Run("subcollection", func(t *testing.T) {
		docs, err := m.Query(ctx, Collection("notes/3/children"))
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "notes/3/children/x", docs[0].Path())
	})
}

func TestMemoryCreateAssignsIDs(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	a, err := m.Create(ctx, "notes", note{Title: "a"})
	require.NoError(t, err)
	b, err := m.Create(ctx, "notes", note{Title: "b"})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	docs, err := m.Query(ctx, Collection("notes"))
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestMemoryWatchDocument(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	s := m.WatchDocument(ctx, "notes/w")
	defer s.Cancel()

	ev := nextEvent(t, s)
	require.NoError(t, ev.Err)
	assert.False(t, ev.Value.Exists())

	require.NoError(t, m.Set(ctx, "notes/w", note{Title: "hello"}))
	ev = nextEvent(t, s)
	require.True(t, ev.Value.Exists())

	require.NoError(t, m.Delete(ctx, "notes/w"))
	ev = nextEvent(t, s)
	assert.False(t, ev.Value.Exists())
}

func TestMemoryWatchQuery(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	s := m.WatchQuery(ctx, Collection("notes").Where("tags", OpArrayContains, "u1"))
	defer s.Cancel()

	assert.Empty(t, nextEvent(t, s).Value)

	require.NoError(t, m.Set(ctx, "notes/1", note{Title: "one", Tags: []string{"u1"}}))
	assert.Len(t, nextEvent(t, s).Value, 1)

	require.NoError(t, m.Update(ctx, "notes/1", []Update{{Path: "tags", Value: ArrayRemove("u1")}}))
	assert.Empty(t, nextEvent(t, s).Value)
}

func TestMemoryTransaction(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, "counters/c", map[string]interface{}{"n": 1}))

	err := m.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		doc, err := tx.Get("counters/c")
		if err != nil {
			return err
		}
		var c struct {
			N int `firestore:"n"`
		}
		if err := doc.DataTo(&c); err != nil {
			return err
		}
		if err := tx.Update("counters/c", []Update{{Path: "n", Value: c.N + 1}}); err != nil {
			return err
		}
		return tx.Set("counters/d", map[string]interface{}{"n": c.N})
	})
	require.NoError(t, err)

	doc, err := m.Get(ctx, "counters/c")
	require.NoError(t, err)
	var c struct {
		N int `firestore:"n"`
	}
	require.NoError(t, doc.DataTo(&c))
	assert.Equal(t, 2, c.N)

	t.Run("failed write leaves nothing behind", func(t *testing.T) {
		err := m.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
			if err := tx.Set("counters/e", map[string]interface{}{"n": 9}); err != nil {
				return err
			}
			return tx.Update("counters/missing", []Update{{Path: "n", Value: 1}})
		})
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = m.Get(ctx, "counters/e")
		assert.True(t, IsNotFound(err))
	})

	t.Run("conflicting write retries", func(t *testing.T) {
		attempts := 0
		err := m.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
			attempts++
			if _, err := tx.Get("counters/c"); err != nil {
				return err
			}
			if attempts == 1 {
				require.NoError(t, m.Update(ctx, "counters/c", []Update{{Path: "n", Value: 100}}))
			}
			return tx.Update("counters/c", []Update{{Path: "n", Value: 5}})
		})
		require.NoError(t, err)
		assert.Equal(t, 2, attempts)
	})
}
