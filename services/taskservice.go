package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"teamdash/backend"
	"teamdash/model"
	"teamdash/stream"
)

type StatusFilter string

const (
	StatusAll       StatusFilter = "all"
	StatusPending   StatusFilter = "pending"
	StatusCompleted StatusFilter = "completed"
)

type SortOrder string

const (
	SortCreatedAt SortOrder = "createdAt"
	SortDueDate   SortOrder = "dueDate"
	SortPriority  SortOrder = "priority"
)

// TaskFilters selects and orders a task list.
type TaskFilters struct {
	Status StatusFilter `json:"status"`
	Sort   SortOrder    `json:"sort"`
}

// Normalize replaces unknown values with the defaults: all tasks, newest first.
func (f TaskFilters) Normalize() TaskFilters {
	switch f.Status {
	case StatusPending, StatusCompleted:
	default:
		f.Status = StatusAll
	}
	switch f.Sort {
	case SortDueDate, SortPriority:
	default:
		f.Sort = SortCreatedAt
	}
	return f
}

func (f TaskFilters) query(collection string) backend.Query {
	f = f.Normalize()
	q := backend.Collection(collection)
	switch f.Status {
	case StatusPending:
		q = q.Where("completed", backend.OpEqual, false)
	case StatusCompleted:
		q = q.Where("completed", backend.OpEqual, true)
	}
	if f.Sort == SortDueDate {
		return q.OrderBy("dueDate", false)
	}
	return q.OrderBy("createdAt", true)
}

// apply performs the ordering the database cannot: priority is sorted here,
// keeping newest first within a priority.
func (f TaskFilters) apply(tasks []model.Task) []model.Task {
	if f.Normalize().Sort == SortPriority {
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].Priority.Rank() < tasks[j].Priority.Rank()
		})
	}
	return tasks
}

type TaskInput struct {
	Title    string
	DueDate  string
	Priority model.Priority
}

func (in *TaskInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.DueDate = strings.TrimSpace(in.DueDate)
	if err := required("title", in.Title); err != nil {
		return err
	}
	if err := required("dueDate", in.DueDate); err != nil {
		return err
	}
	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}
	if !in.Priority.Valid() {
		return &ValidationError{Field: "priority", Reason: "must be High, Medium or Low"}
	}
	return nil
}

func personalTasksPath(uid string) string {
	return backend.Join("users", uid, "tasks")
}

func teamTasksPath(teamID string) string {
	return backend.Join("teams", teamID, "tasks")
}

func decodeTasks(docs []backend.Document, teamID string) ([]model.Task, error) {
	tasks := make([]model.Task, 0, len(docs))
	for _, d := range docs {
		var t model.Task
		if err := d.DataTo(&t); err != nil {
			return nil, fmt.Errorf("decode task %s: %w", d.ID(), err)
		}
		t.ID = d.ID()
		t.TeamID = teamID
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func watchTasks(ctx context.Context, db backend.Backend, collection, teamID string, f TaskFilters) *stream.Stream[[]model.Task] {
	return stream.Map(db.WatchQuery(ctx, f.query(collection)), func(docs []backend.Document) ([]model.Task, error) {
		tasks, err := decodeTasks(docs, teamID)
		if err != nil {
			return nil, err
		}
		return f.apply(tasks), nil
	})
}

func listTasks(ctx context.Context, db backend.Backend, collection, teamID string, f TaskFilters) ([]model.Task, error) {
	docs, err := db.Query(ctx, f.query(collection))
	if err != nil {
		return nil, err
	}
	tasks, err := decodeTasks(docs, teamID)
	if err != nil {
		return nil, err
	}
	return f.apply(tasks), nil
}

func getTask(ctx context.Context, db backend.Backend, path, teamID string) (*model.Task, error) {
	doc, err := db.Get(ctx, path)
	if err != nil {
		if backend.IsNotFound(err) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	var t model.Task
	if err := doc.DataTo(&t); err != nil {
		return nil, err
	}
	t.ID = doc.ID()
	t.TeamID = teamID
	return &t, nil
}

func notFoundAs(err, target error) error {
	if backend.IsNotFound(err) {
		return target
	}
	return err
}

// ===========================
// PERSONAL TASKS
// ===========================

func WatchPersonalTasks(ctx context.Context, db backend.Backend, uid string, f TaskFilters) *stream.Stream[[]model.Task] {
	return watchTasks(ctx, db, personalTasksPath(uid), "", f)
}

func ListPersonalTasks(ctx context.Context, db backend.Backend, uid string, f TaskFilters) ([]model.Task, error) {
	return listTasks(ctx, db, personalTasksPath(uid), "", f)
}

func AddPersonalTask(ctx context.Context, db backend.Backend, uid string, in TaskInput) (*model.Task, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	t := model.Task{
		Title:     in.Title,
		DueDate:   in.DueDate,
		Priority:  in.Priority,
		Completed: false,
		CreatedAt: time.Now(),
	}
	id, err := db.Create(ctx, personalTasksPath(uid), t)
	if err != nil {
		return nil, fmt.Errorf("add personal task: %w", err)
	}
	t.ID = id
	return &t, nil
}

func UpdatePersonalTask(ctx context.Context, db backend.Backend, uid, taskID string, in TaskInput) error {
	if err := in.validate(); err != nil {
		return err
	}
	err := db.Update(ctx, backend.Join(personalTasksPath(uid), taskID), []backend.Update{
		{Path: "title", Value: in.Title},
		{Path: "dueDate", Value: in.DueDate},
		{Path: "priority", Value: in.Priority},
	})
	return notFoundAs(err, ErrTaskNotFound)
}

func SetPersonalTaskCompleted(ctx context.Context, db backend.Backend, uid, taskID string, completed bool) error {
	err := db.Update(ctx, backend.Join(personalTasksPath(uid), taskID), []backend.Update{
		{Path: "completed", Value: completed},
	})
	return notFoundAs(err, ErrTaskNotFound)
}

func DeletePersonalTask(ctx context.Context, db backend.Backend, uid, taskID string) error {
	return db.Delete(ctx, backend.Join(personalTasksPath(uid), taskID))
}

// ===========================
// TEAM TASKS
// ===========================

func WatchTeamTasks(ctx context.Context, db backend.Backend, teamID string, f TaskFilters) *stream.Stream[[]model.Task] {
	return watchTasks(ctx, db, teamTasksPath(teamID), teamID, f)
}

func ListTeamTasks(ctx context.Context, db backend.Backend, teamID string, f TaskFilters) ([]model.Task, error) {
	return listTasks(ctx, db, teamTasksPath(teamID), teamID, f)
}

func GetTeamTask(ctx context.Context, db backend.Backend, teamID, taskID string) (*model.Task, error) {
	return getTask(ctx, db, backend.Join(teamTasksPath(teamID), taskID), teamID)
}

func AddTeamTask(ctx context.Context, db backend.Backend, p backend.Principal, teamID string, in TaskInput) (*model.Task, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := requireAdmin(ctx, db, p, teamID); err != nil {
		return nil, err
	}
	t := model.Task{
		Title:      in.Title,
		DueDate:    in.DueDate,
		Priority:   in.Priority,
		CreatedBy:  p.UID,
		Completed:  false,
		AssignedTo: nil,
		Status:     model.StatusPending,
		CreatedAt:  time.Now(),
	}
	id, err := db.Create(ctx, teamTasksPath(teamID), t)
	if err != nil {
		return nil, fmt.Errorf("add team task: %w", err)
	}
	t.ID = id
	t.TeamID = teamID
	return &t, nil
}

func UpdateTeamTask(ctx context.Context, db backend.Backend, p backend.Principal, teamID, taskID string, in TaskInput) error {
	if err := in.validate(); err != nil {
		return err
	}
	if _, err := requireAdmin(ctx, db, p, teamID); err != nil {
		return err
	}
	err := db.Update(ctx, backend.Join(teamTasksPath(teamID), taskID), []backend.Update{
		{Path: "title", Value: in.Title},
		{Path: "dueDate", Value: in.DueDate},
		{Path: "priority", Value: in.Priority},
	})
	return notFoundAs(err, ErrTaskNotFound)
}

// SetTeamTaskCompleted is open to every member and keeps status in step.
func SetTeamTaskCompleted(ctx context.Context, db backend.Backend, teamID, taskID string, completed bool) error {
	status := model.StatusPending
	if completed {
		status = model.StatusCompleted
	}
	err := db.Update(ctx, backend.Join(teamTasksPath(teamID), taskID), []backend.Update{
		{Path: "completed", Value: completed},
		{Path: "status", Value: status},
	})
	return notFoundAs(err, ErrTaskNotFound)
}

// AssignTeamTask sets or clears (empty assignee) the task's assignee, who must
// be a current member.
func AssignTeamTask(ctx context.Context, db backend.Backend, teamID, taskID, assigneeUID string) error {
	var value interface{}
	if assigneeUID != "" {
		team, err := GetTeam(ctx, db, teamID)
		if err != nil {
			return err
		}
		if !team.IsMember(assigneeUID) {
			return ErrNotMember
		}
		value = assigneeUID
	}
	err := db.Update(ctx, backend.Join(teamTasksPath(teamID), taskID), []backend.Update{
		{Path: "assignedTo", Value: value},
	})
	return notFoundAs(err, ErrTaskNotFound)
}

// DeleteTeamTask removes the task after its subtasks and updates.
func DeleteTeamTask(ctx context.Context, db backend.Backend, p backend.Principal, teamID, taskID string) error {
	if _, err := requireAdmin(ctx, db, p, teamID); err != nil {
		return err
	}
	return deleteTaskTree(ctx, db, teamID, taskID, nil)
}

// deleteTaskTree deletes the task's child collections and then the task.
// A non-nil wait paces each batch.
func deleteTaskTree(ctx context.Context, db backend.Backend, teamID, taskID string, wait func(context.Context) error) error {
	taskPath := backend.Join(teamTasksPath(teamID), taskID)
	for _, child := range []string{"subTasks", "updates"} {
		docs, err := db.Query(ctx, backend.Collection(backend.Join(taskPath, child)))
		if err != nil {
			return fmt.Errorf("list %s of %s: %w", child, taskID, err)
		}
		if len(docs) == 0 {
			continue
		}
		paths := make([]string, len(docs))
		for i, d := range docs {
			paths[i] = d.Path()
		}
		if wait != nil {
			if err := wait(ctx); err != nil {
				return err
			}
		}
		if err := db.DeleteAll(ctx, paths); err != nil {
			return fmt.Errorf("delete %s of %s: %w", child, taskID, err)
		}
	}
	return db.Delete(ctx, taskPath)
}
