package reconcile

import (
	"teamdash/model"
)

type Mode string

const (
	ModePersonal Mode = "personal"
	ModeTeam     Mode = "team"
)

type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

const personalTitle = "My Personal Tasks"

// Affordances are the actions the view offers.
type Affordances struct {
	Invite        bool `json:"invite"`
	DeleteTeam    bool `json:"deleteTeam"`
	ManageMembers bool `json:"manageMembers"`
	AddTask       bool `json:"addTask"`
	AddSubTask    bool `json:"addSubTask"`
}

// ViewState describes what the dashboard is showing.
type ViewState struct {
	Mode        Mode        `json:"mode"`
	TeamID      string      `json:"teamId,omitempty"`
	Title       string      `json:"title"`
	Role        Role        `json:"role"`
	Affordances Affordances `json:"affordances"`
}

func personalView() ViewState {
	return ViewState{
		Mode:        ModePersonal,
		Title:       personalTitle,
		Role:        RoleOwner,
		Affordances: Affordances{AddTask: true},
	}
}

// teamView derives the view of team for uid. The role follows the effective
// admin set on every call.
func teamView(team model.Team, uid string) ViewState {
	v := ViewState{
		Mode:   ModeTeam,
		TeamID: team.ID,
		Title:  "Team: " + team.Name,
		Role:   RoleMember,
	}
	if team.IsAdmin(uid) {
		v.Role = RoleAdmin
		v.Affordances = Affordances{
			Invite:        true,
			DeleteTeam:    true,
			ManageMembers: true,
			AddTask:       true,
			AddSubTask:    true,
		}
	}
	return v
}
