package reconcile

import (
	"teamdash/model"
	"teamdash/services"
)

// Renderer receives everything the session wants shown. All calls come from
// the session loop goroutine, one at a time.
type Renderer interface {
	RenderTeams(teams []model.Team)
	RenderInvites(invites []model.InviteEntry)
	RenderNotifications(notifications []model.Notification)
	RenderView(view ViewState)
	RenderTasks(tasks []model.Task)
	RenderProgressLabel(taskID string, percent int)
	RenderProgressBar(taskID string, percent int)
	RenderRoster(members []services.Member)
	RenderAssignees(members []services.Member)
	RenderSubTasks(taskID string, subtasks []model.SubTask)
	RenderUpdates(taskID string, updates []model.Update)
	// RenderError reports a failed user action.
	RenderError(message string)
}
