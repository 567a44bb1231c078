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

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const teamCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

func teamPath(teamID string) string {
	return backend.Join("teams", teamID)
}

// newTeamCode returns a 6 character upper-case base36 join code.
func newTeamCode() string {
	id := uuid.New()
	code := make([]byte, 6)
	for i := range code {
		code[i] = teamCodeAlphabet[int(id[i])%len(teamCodeAlphabet)]
	}
	return string(code)
}

func decodeTeam(doc backend.Document) (*model.Team, error) {
	var t model.Team
	if err := doc.DataTo(&t); err != nil {
		return nil, fmt.Errorf("decode team %s: %w", doc.ID(), err)
	}
	t.ID = doc.ID()
	return &t, nil
}

func GetTeam(ctx context.Context, db backend.Backend, teamID string) (*model.Team, error) {
	doc, err := db.Get(ctx, teamPath(teamID))
	if err != nil {
		return nil, notFoundAs(err, ErrTeamNotFound)
	}
	return decodeTeam(doc)
}

func requireAdmin(ctx context.Context, db backend.Backend, p backend.Principal, teamID string) (*model.Team, error) {
	team, err := GetTeam(ctx, db, teamID)
	if err != nil {
		return nil, err
	}
	if !team.IsAdmin(p.UID) {
		return nil, ErrNotAdmin
	}
	return team, nil
}

func CreateTeam(ctx context.Context, db backend.Backend, p backend.Principal, name string) (*model.Team, error) {
	name = strings.TrimSpace(name)
	if err := required("name", name); err != nil {
		return nil, err
	}
	team := model.Team{
		Name:      name,
		CreatedBy: p.UID,
		Members:   []string{p.UID},
		Admins:    []string{p.UID},
		TeamCode:  newTeamCode(),
		CreatedAt: time.Now(),
	}
	id, err := db.Create(ctx, "teams", team)
	if err != nil {
		return nil, fmt.Errorf("create team: %w", err)
	}
	team.ID = id

	if err := db.Merge(ctx, userPath(p.UID), []backend.Update{
		{Path: "teams", Value: backend.ArrayUnion(id)},
	}); err != nil {
		return nil, fmt.Errorf("record team membership: %w", err)
	}
	return &team, nil
}

// TeamSnapshot is one state of a watched team; Exists is false once the team
// has been deleted.
type TeamSnapshot struct {
	Team   model.Team
	Exists bool
}

func WatchTeam(ctx context.Context, db backend.Backend, teamID string) *stream.Stream[TeamSnapshot] {
	return stream.Map(db.WatchDocument(ctx, teamPath(teamID)), func(doc backend.Document) (TeamSnapshot, error) {
		if !doc.Exists() {
			return TeamSnapshot{Team: model.Team{ID: teamID}}, nil
		}
		t, err := decodeTeam(doc)
		if err != nil {
			return TeamSnapshot{}, err
		}
		return TeamSnapshot{Team: *t, Exists: true}, nil
	})
}

func userTeamsQuery(uid string) backend.Query {
	return backend.Collection("teams").Where("members", backend.OpArrayContains, uid)
}

func decodeTeams(docs []backend.Document) ([]model.Team, error) {
	teams := make([]model.Team, 0, len(docs))
	for _, d := range docs {
		t, err := decodeTeam(d)
		if err != nil {
			return nil, err
		}
		teams = append(teams, *t)
	}
	return teams, nil
}

// WatchUserTeams is the authoritative list of teams uid belongs to.
func WatchUserTeams(ctx context.Context, db backend.Backend, uid string) *stream.Stream[[]model.Team] {
	return stream.Map(db.WatchQuery(ctx, userTeamsQuery(uid)), decodeTeams)
}

func ListUserTeams(ctx context.Context, db backend.Backend, uid string) ([]model.Team, error) {
	docs, err := db.Query(ctx, userTeamsQuery(uid))
	if err != nil {
		return nil, err
	}
	return decodeTeams(docs)
}

// DeleteTeam removes every task with its subtasks and updates, then the team,
// then the team from the deleter's own membership cache. Other members' caches
// heal from their own sessions. A failed child deletion stops the cascade
// before the team document is touched; what was already deleted stays deleted.
func DeleteTeam(ctx context.Context, db backend.Backend, p backend.Principal, teamID string, throttle *rate.Limiter) error {
	logger := NewLogger(ctx)

	if _, err := requireAdmin(ctx, db, p, teamID); err != nil {
		return err
	}

	var wait func(context.Context) error
	if throttle != nil {
		wait = throttle.Wait
	}

	tasks, err := db.Query(ctx, backend.Collection(teamTasksPath(teamID)))
	if err != nil {
		return fmt.Errorf("list team tasks: %w", err)
	}
	var failed []error
	for _, t := range tasks {
		if err := deleteTaskTree(ctx, db, teamID, t.ID(), wait); err != nil {
			logger.LogErrorf("DeleteTeam", "team=%s task=%s error=%v", teamID, t.ID(), err)
			failed = append(failed, err)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("team %s partially deleted: %w", teamID, errors.Join(failed...))
	}

	if err := db.Delete(ctx, teamPath(teamID)); err != nil {
		return fmt.Errorf("delete team: %w", err)
	}

	err = db.Update(ctx, userPath(p.UID), []backend.Update{
		{Path: "teams", Value: backend.ArrayRemove(teamID)},
	})
	if err != nil && !backend.IsNotFound(err) {
		logger.LogWarnf("DeleteTeam", "team=%s cache cleanup failed: %v", teamID, err)
	}
	logger.LogInfof("DeleteTeam", "team=%s tasks=%d by=%s", teamID, len(tasks), p.UID)
	return nil
}

// RemoveMember takes memberUID out of the team. Admins may remove anyone but
// the creator; any member may remove themselves. The removed user's cached
// team list is left for their own session to heal.
func RemoveMember(ctx context.Context, db backend.Backend, p backend.Principal, teamID, memberUID string) error {
	team, err := GetTeam(ctx, db, teamID)
	if err != nil {
		return err
	}
	if memberUID != p.UID && !team.IsAdmin(p.UID) {
		return ErrNotAdmin
	}
	if !team.IsMember(memberUID) {
		return ErrNotMember
	}
	if memberUID == team.CreatedBy {
		return ErrRemoveCreator
	}

	if err := db.Update(ctx, teamPath(teamID), membershipRemoval(*team, memberUID)); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}

	if memberUID != p.UID {
		msg := fmt.Sprintf("You were removed from the team %q.", team.Name)
		if err := CreateNotification(ctx, db, memberUID, msg); err != nil {
			NewLogger(ctx).LogWarnf("RemoveMember", "notify user=%s error=%v", memberUID, err)
		}
	}
	return nil
}

// membershipRemoval removes uid from members and, when the team has an
// explicit admin set, from admins. Touching a missing admins field would
// create an empty admin set and strip a legacy team's creator of admin.
func membershipRemoval(team model.Team, uid string) []backend.Update {
	updates := []backend.Update{{Path: "members", Value: backend.ArrayRemove(uid)}}
	if team.Admins != nil {
		updates = append(updates, backend.Update{Path: "admins", Value: backend.ArrayRemove(uid)})
	}
	return updates
}

// PromoteToAdmin adds memberUID to the admin set. A legacy team gets an
// explicit set holding the creator and the new admin.
func PromoteToAdmin(ctx context.Context, db backend.Backend, p backend.Principal, teamID, memberUID string) error {
	return db.RunTransaction(ctx, func(ctx context.Context, tx backend.Tx) error {
		doc, err := tx.Get(teamPath(teamID))
		if err != nil {
			return notFoundAs(err, ErrTeamNotFound)
		}
		team, err := decodeTeam(doc)
		if err != nil {
			return err
		}
		if !team.IsAdmin(p.UID) {
			return ErrNotAdmin
		}
		if !team.IsMember(memberUID) {
			return ErrNotMember
		}
		return tx.Update(teamPath(teamID), promotion(*team, memberUID))
	})
}

func promotion(team model.Team, uid string) []backend.Update {
	if team.Admins == nil {
		admins := []string{team.CreatedBy}
		if uid != team.CreatedBy {
			admins = append(admins, uid)
		}
		return []backend.Update{{Path: "admins", Value: admins}}
	}
	return []backend.Update{{Path: "admins", Value: backend.ArrayUnion(uid)}}
}

// Member is a roster row.
type Member struct {
	UID     string `json:"uid"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Admin   bool   `json:"admin"`
	Creator bool   `json:"creator"`
}

// MemberProfiles resolves every member of team to a roster row. Members
// without a profile are listed by uid.
func MemberProfiles(ctx context.Context, db backend.Backend, team model.Team) ([]Member, error) {
	members := make([]Member, 0, len(team.Members))
	for _, uid := range team.Members {
		m := Member{UID: uid, Name: uid, Admin: team.IsAdmin(uid), Creator: uid == team.CreatedBy}
		u, err := GetUser(ctx, db, uid)
		switch {
		case err == nil:
			if n := u.Name(); n != "" {
				m.Name = n
			}
			m.Email = u.Email
		case errors.Is(err, ErrUserNotFound):
		default:
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}
