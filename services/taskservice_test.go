package services

import (
	"testing"
	"time"

	"teamdash/backend"
	"teamdash/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskInputValidation(t *testing.T) {
	tests := []struct {
		name  string
		in    TaskInput
		field string
	}{
		{name: "missing title", in: TaskInput{Title: "  ", DueDate: "2025-01-01"}, field: "title"},
		{name: "missing due date", in: TaskInput{Title: "x"}, field: "dueDate"},
		{name: "unknown priority", in: TaskInput{Title: "x", DueDate: "2025-01-01", Priority: "Urgent"}, field: "priority"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := AddPersonalTask(f.ctx, f.as("alice"), "alice", tt.in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, 0, f.count(personalTasksPath("alice")))
		})
	}

	t.Run("priority defaults to medium", func(t *testing.T) {
		f := newFixture(t)
		task, err := AddPersonalTask(f.ctx, f.as("alice"), "alice", TaskInput{Title: "x", DueDate: "2025-01-01"})
		require.NoError(t, err)
		assert.Equal(t, model.PriorityMedium, task.Priority)
		assert.False(t, task.Completed)
	})
}

func seedPersonalTasks(t *testing.T, f *fixture, uid string) {
	t.Helper()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	tasks := map[string]model.Task{
		"a": {Title: "a", DueDate: "2025-03-20", Priority: model.PriorityLow, CreatedAt: base},
		"b": {Title: "b", DueDate: "2025-03-05", Priority: model.PriorityHigh, CreatedAt: base.Add(time.Hour), Completed: true},
		"c": {Title: "c", DueDate: "2025-03-10", Priority: model.PriorityMedium, CreatedAt: base.Add(2 * time.Hour)},
		"d": {Title: "d", DueDate: "2025-03-01", Priority: model.PriorityHigh, CreatedAt: base.Add(3 * time.Hour)},
	}
	for id, task := range tasks {
		require.NoError(t, f.mem.Set(f.ctx, backend.Join(personalTasksPath(uid), id), task))
	}
}

func taskIDs(tasks []model.Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

func TestListPersonalTasksFilters(t *testing.T) {
	f := newFixture(t)
	seedPersonalTasks(t, f, "alice")
	alice := f.as("alice")

	tests := []struct {
		filters TaskFilters
		want    []string
	}{
		{TaskFilters{}, []string{"d", "c", "b", "a"}},
		{TaskFilters{Status: StatusPending}, []string{"d", "c", "a"}},
		{TaskFilters{Status: StatusCompleted}, []string{"b"}},
		{TaskFilters{Sort: SortDueDate}, []string{"d", "b", "c", "a"}},
		{TaskFilters{Sort: SortPriority}, []string{"d", "b", "c", "a"}},
		{TaskFilters{Status: StatusPending, Sort: SortPriority}, []string{"d", "c", "a"}},
		{TaskFilters{Status: "bogus", Sort: "bogus"}, []string{"d", "c", "b", "a"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.filters.Status)+"/"+string(tt.filters.Sort), func(t *testing.T) {
			tasks, err := ListPersonalTasks(f.ctx, alice, "alice", tt.filters)
			require.NoError(t, err)
			assert.Equal(t, tt.want, taskIDs(tasks))
		})
	}

	_, err := ListPersonalTasks(f.ctx, f.as("bob"), "alice", TaskFilters{})
	assert.True(t, backend.IsPermissionDenied(err), "personal tasks are private")
}

func TestWatchPersonalTasks(t *testing.T) {
	f := newFixture(t)
	alice := f.as("alice")

	s := WatchPersonalTasks(f.ctx, alice, "alice", TaskFilters{Status: StatusPending})
	defer s.Cancel()

	ev := <-s.Events()
	require.NoError(t, ev.Err)
	assert.Empty(t, ev.Value)

	task, err := AddPersonalTask(f.ctx, alice, "alice", TaskInput{Title: "x", DueDate: "2025-01-01"})
	require.NoError(t, err)
	ev = <-s.Events()
	require.Len(t, ev.Value, 1)

	require.NoError(t, SetPersonalTaskCompleted(f.ctx, alice, "alice", task.ID, true))
	ev = <-s.Events()
	assert.Empty(t, ev.Value)
}

func TestPersonalTaskMutations(t *testing.T) {
	f := newFixture(t)
	alice := f.as("alice")
	task, err := AddPersonalTask(f.ctx, alice, "alice", TaskInput{Title: "x", DueDate: "2025-01-01"})
	require.NoError(t, err)

	require.NoError(t, UpdatePersonalTask(f.ctx, alice, "alice", task.ID, TaskInput{Title: "y", DueDate: "2025-02-01", Priority: model.PriorityHigh}))
	tasks, err := ListPersonalTasks(f.ctx, alice, "alice", TaskFilters{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "y", tasks[0].Title)
	assert.Equal(t, model.PriorityHigh, tasks[0].Priority)

	assert.ErrorIs(t, SetPersonalTaskCompleted(f.ctx, alice, "alice", "missing", true), ErrTaskNotFound)

	require.NoError(t, DeletePersonalTask(f.ctx, alice, "alice", task.ID))
	assert.Equal(t, 0, f.count(personalTasksPath("alice")))
}

func TestTeamTasks(t *testing.T) {
	f := newFixture(t)
	f.register("alice", "bob")
	id := f.createTeam("alice", "T", "bob")
	alice, bob := f.as("alice"), f.as("bob")

	_, err := AddTeamTask(f.ctx, bob, principal("bob"), id, TaskInput{Title: "x", DueDate: "2025-01-01"})
	assert.ErrorIs(t, err, ErrNotAdmin)

	task, err := AddTeamTask(f.ctx, alice, principal("alice"), id, TaskInput{Title: "x", DueDate: "2025-01-01"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, task.Status)
	assert.Equal(t, "alice", task.CreatedBy)

	require.NoError(t, SetTeamTaskCompleted(f.ctx, bob, id, task.ID, true))
	got, err := GetTeamTask(f.ctx, bob, id, task.ID)
	require.NoError(t, err)
	assert.True(t, got.Completed)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Equal(t, id, got.TeamID)

	assert.ErrorIs(t, AssignTeamTask(f.ctx, alice, id, task.ID, "mallory"), ErrNotMember)
	require.NoError(t, AssignTeamTask(f.ctx, alice, id, task.ID, "bob"))
	got, err = GetTeamTask(f.ctx, alice, id, task.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AssignedTo)
	assert.Equal(t, "bob", *got.AssignedTo)

	assert.ErrorIs(t, UpdateTeamTask(f.ctx, bob, principal("bob"), id, task.ID, TaskInput{Title: "y", DueDate: "2025-01-01"}), ErrNotAdmin)
	assert.ErrorIs(t, DeleteTeamTask(f.ctx, bob, principal("bob"), id, task.ID), ErrNotAdmin)

	_, err = AddSubTask(f.ctx, alice, principal("alice"), id, task.ID, "sub", "bob")
	require.NoError(t, err)
	require.NoError(t, DeleteTeamTask(f.ctx, alice, principal("alice"), id, task.ID))
	assert.Equal(t, 0, f.count(teamTasksPath(id)))
	assert.Equal(t, 0, f.count(subTasksPath(id, task.ID)))

	_, err = ListTeamTasks(f.ctx, f.as("mallory"), id, TaskFilters{})
	assert.True(t, backend.IsPermissionDenied(err))
}
