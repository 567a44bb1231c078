package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"teamdash/backend"
	"teamdash/model"
	"teamdash/stream"
)

func subTasksPath(teamID, taskID string) string {
	return backend.Join(teamTasksPath(teamID), taskID, "subTasks")
}

func updatesPath(teamID, taskID string) string {
	return backend.Join(teamTasksPath(teamID), taskID, "updates")
}

func decodeSubTasks(docs []backend.Document, taskID string) ([]model.SubTask, error) {
	out := make([]model.SubTask, 0, len(docs))
	for _, d := range docs {
		var s model.SubTask
		if err := d.DataTo(&s); err != nil {
			return nil, fmt.Errorf("decode subtask %s: %w", d.ID(), err)
		}
		s.ID = d.ID()
		s.TaskID = taskID
		out = append(out, s)
	}
	return out, nil
}

func WatchSubTasks(ctx context.Context, db backend.Backend, teamID, taskID string) *stream.Stream[[]model.SubTask] {
	return stream.Map(db.WatchQuery(ctx, backend.Collection(subTasksPath(teamID, taskID))), func(docs []backend.Document) ([]model.SubTask, error) {
		return decodeSubTasks(docs, taskID)
	})
}

func ListSubTasks(ctx context.Context, db backend.Backend, teamID, taskID string) ([]model.SubTask, error) {
	docs, err := db.Query(ctx, backend.Collection(subTasksPath(teamID, taskID)))
	if err != nil {
		return nil, err
	}
	return decodeSubTasks(docs, taskID)
}

// AddSubTask creates a subtask assigned to a current member of the team. The
// assignee's display name is copied onto the subtask.
func AddSubTask(ctx context.Context, db backend.Backend, p backend.Principal, teamID, taskID, title, assigneeUID string) (*model.SubTask, error) {
	title = strings.TrimSpace(title)
	if err := required("title", title); err != nil {
		return nil, err
	}
	if err := required("assignedTo", assigneeUID); err != nil {
		return nil, err
	}
	team, err := requireAdmin(ctx, db, p, teamID)
	if err != nil {
		return nil, err
	}
	if !team.IsMember(assigneeUID) {
		return nil, ErrNotMember
	}
	if _, err := GetTeamTask(ctx, db, teamID, taskID); err != nil {
		return nil, err
	}

	name := assigneeUID
	u, err := GetUser(ctx, db, assigneeUID)
	switch {
	case err == nil:
		if n := u.Name(); n != "" {
			name = n
		}
	case errors.Is(err, ErrUserNotFound):
	default:
		return nil, err
	}

	s := model.SubTask{
		Title:        title,
		Completed:    false,
		AssigneeUID:  assigneeUID,
		AssigneeName: name,
		CreatedBy:    p.UID,
	}
	id, err := db.Create(ctx, subTasksPath(teamID, taskID), s)
	if err != nil {
		return nil, fmt.Errorf("add subtask: %w", err)
	}
	s.ID = id
	s.TaskID = taskID
	return &s, nil
}

func SetSubTaskCompleted(ctx context.Context, db backend.Backend, teamID, taskID, subTaskID string, completed bool) error {
	err := db.Update(ctx, backend.Join(subTasksPath(teamID, taskID), subTaskID), []backend.Update{
		{Path: "completed", Value: completed},
	})
	return notFoundAs(err, ErrTaskNotFound)
}

func DeleteSubTask(ctx context.Context, db backend.Backend, p backend.Principal, teamID, taskID, subTaskID string) error {
	if _, err := requireAdmin(ctx, db, p, teamID); err != nil {
		return err
	}
	return db.Delete(ctx, backend.Join(subTasksPath(teamID, taskID), subTaskID))
}

func updatesQuery(teamID, taskID string) backend.Query {
	return backend.Collection(updatesPath(teamID, taskID)).OrderBy("createdAt", false)
}

func decodeUpdates(docs []backend.Document, taskID string) ([]model.Update, error) {
	out := make([]model.Update, 0, len(docs))
	for _, d := range docs {
		var u model.Update
		if err := d.DataTo(&u); err != nil {
			return nil, fmt.Errorf("decode update %s: %w", d.ID(), err)
		}
		u.ID = d.ID()
		u.TaskID = taskID
		out = append(out, u)
	}
	return out, nil
}

// WatchTaskUpdates streams a task's updates, oldest first.
func WatchTaskUpdates(ctx context.Context, db backend.Backend, teamID, taskID string) *stream.Stream[[]model.Update] {
	return stream.Map(db.WatchQuery(ctx, updatesQuery(teamID, taskID)), func(docs []backend.Document) ([]model.Update, error) {
		return decodeUpdates(docs, taskID)
	})
}

func ListTaskUpdates(ctx context.Context, db backend.Backend, teamID, taskID string) ([]model.Update, error) {
	docs, err := db.Query(ctx, updatesQuery(teamID, taskID))
	if err != nil {
		return nil, err
	}
	return decodeUpdates(docs, taskID)
}

// AddTaskUpdate posts a status note on a team task. Any member may post.
func AddTaskUpdate(ctx context.Context, db backend.Backend, p backend.Principal, teamID, taskID, text string) (*model.Update, error) {
	text = strings.TrimSpace(text)
	if err := required("text", text); err != nil {
		return nil, err
	}
	if _, err := GetTeamTask(ctx, db, teamID, taskID); err != nil {
		return nil, err
	}

	name := p.Name
	if u, err := GetUser(ctx, db, p.UID); err == nil && u.Name() != "" {
		name = u.Name()
	}
	if name == "" {
		name = p.MailboxID()
	}

	u := model.Update{
		Text:          text,
		CreatedByUID:  p.UID,
		CreatedByName: name,
		CreatedAt:     time.Now(),
	}
	id, err := db.Create(ctx, updatesPath(teamID, taskID), u)
	if err != nil {
		return nil, fmt.Errorf("add update: %w", err)
	}
	u.ID = id
	u.TaskID = taskID
	return &u, nil
}
