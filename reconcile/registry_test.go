package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type countingCanceler struct{ n int }

func (c *countingCanceler) Cancel() { c.n++ }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	global := &countingCanceler{}
	team := &countingCanceler{}
	tasks := &countingCanceler{}
	p1, p2 := &countingCanceler{}, &countingCanceler{}

	r.Add(ScopeGlobal, global)
	r.Add(ScopeTeam, team)
	r.Add(ScopeTasks, tasks)
	r.Add(progressScope("a"), p1)
	r.Add(progressScope("b"), p2)

	assert.Equal(t, []string{"global", "view/progress/a", "view/progress/b", "view/tasks", "view/team"}, r.Scopes())
	assert.Equal(t, 1, r.Len(progressScope("a")))

	r.CancelPrefix(ScopeProgress)
	assert.Equal(t, 1, p1.n)
	assert.Equal(t, 1, p2.n)
	assert.Equal(t, 0, tasks.n)
	assert.Equal(t, 0, r.Len(progressScope("a")))

	r.Cancel(ScopeTasks)
	assert.Equal(t, 1, tasks.n)
	r.Cancel(ScopeTasks)
	assert.Equal(t, 1, tasks.n, "cancelled handles are forgotten")

	r.CancelPrefix(ScopeView)
	assert.Equal(t, 1, team.n)
	assert.Equal(t, []string{"global"}, r.Scopes())

	r.CancelAll()
	assert.Equal(t, 1, global.n)
	assert.Empty(t, r.Scopes())
}
