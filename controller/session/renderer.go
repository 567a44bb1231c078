package session

import (
	"context"
	"fmt"

	"teamdash/model"
	"teamdash/reconcile"
	"teamdash/services"
)

type event struct {
	Name string
	Data interface{}
}

// sseRenderer queues render calls as named events for the stream handler.
// Sends give up once ctx is done so a gone client never wedges the session
// loop.
type sseRenderer struct {
	ctx    context.Context
	events chan event
}

func newSSERenderer(ctx context.Context) *sseRenderer {
	return &sseRenderer{ctx: ctx, events: make(chan event, 256)}
}

func (r *sseRenderer) send(name string, data interface{}) {
	select {
	case r.events <- event{Name: name, Data: data}:
	case <-r.ctx.Done():
	}
}

func (r *sseRenderer) RenderTeams(teams []model.Team) {
	r.send("teams", teams)
}

func (r *sseRenderer) RenderInvites(invites []model.InviteEntry) {
	r.send("invites", invites)
}

func (r *sseRenderer) RenderNotifications(notifications []model.Notification) {
	r.send("notifications", notifications)
}

func (r *sseRenderer) RenderView(view reconcile.ViewState) {
	r.send("view", view)
}

func (r *sseRenderer) RenderTasks(tasks []model.Task) {
	r.send("tasks", tasks)
}

func (r *sseRenderer) RenderProgressLabel(taskID string, percent int) {
	r.send("progress-label", map[string]interface{}{"taskId": taskID, "label": fmt.Sprintf("%d%%", percent)})
}

func (r *sseRenderer) RenderProgressBar(taskID string, percent int) {
	r.send("progress-bar", map[string]interface{}{"taskId": taskID, "percent": percent})
}

func (r *sseRenderer) RenderRoster(members []services.Member) {
	r.send("roster", members)
}

func (r *sseRenderer) RenderAssignees(members []services.Member) {
	r.send("assignees", members)
}

func (r *sseRenderer) RenderSubTasks(taskID string, subtasks []model.SubTask) {
	r.send("subtasks", map[string]interface{}{"taskId": taskID, "subtasks": subtasks})
}

func (r *sseRenderer) RenderUpdates(taskID string, updates []model.Update) {
	r.send("updates", map[string]interface{}{"taskId": taskID, "updates": updates})
}

func (r *sseRenderer) RenderError(message string) {
	r.send("error", map[string]string{"error": message})
}

// healed is the session's OnHeal hook. It runs on the healing worker.
func (r *sseRenderer) healed(removed []string) {
	if len(removed) > 0 {
		r.send("healed", map[string]interface{}{"removedTeams": removed})
	}
}
