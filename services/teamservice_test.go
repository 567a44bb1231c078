package services

import (
	"testing"

	"teamdash/backend"
	"teamdash/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestCreateTeam(t *testing.T) {
	f := newFixture(t)
	f.register("alice")

	team, err := CreateTeam(f.ctx, f.as("alice"), principal("alice"), "  Launch  ")
	require.NoError(t, err)
	assert.Equal(t, "Launch", team.Name)
	assert.Len(t, team.TeamCode, 6)

	stored := f.team(team.ID)
	assert.Equal(t, []string{"alice"}, stored.Members)
	assert.Equal(t, []string{"alice"}, stored.Admins)
	assert.Contains(t, f.user("alice").Teams, team.ID)

	_, err = CreateTeam(f.ctx, f.as("alice"), principal("alice"), " ")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestPromoteToAdmin(t *testing.T) {
	t.Run("explicit admin set", func(t *testing.T) {
		f := newFixture(t)
		id := f.createTeam("alice", "T", "bob", "carol")

		assert.ErrorIs(t, PromoteToAdmin(f.ctx, f.as("bob"), principal("bob"), id, "carol"), ErrNotAdmin)
		assert.ErrorIs(t, PromoteToAdmin(f.ctx, f.as("alice"), principal("alice"), id, "dave"), ErrNotMember)

		require.NoError(t, PromoteToAdmin(f.ctx, f.as("alice"), principal("alice"), id, "bob"))
		assert.ElementsMatch(t, []string{"alice", "bob"}, f.team(id).Admins)
	})

	t.Run("legacy team gets creator and new admin", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.mem.Set(f.ctx, "teams/old", model.Team{
			Name:      "Old",
			CreatedBy: "alice",
			Members:   []string{"alice", "bob"},
		}))
		require.Nil(t, f.team("old").Admins)

		require.NoError(t, PromoteToAdmin(f.ctx, f.as("alice"), principal("alice"), "old", "bob"))
		assert.Equal(t, []string{"alice", "bob"}, f.team("old").Admins)
	})
}

func TestRemoveMember(t *testing.T) {
	f := newFixture(t)
	f.register("alice", "bob", "carol")
	id := f.createTeam("alice", "T", "bob", "carol")

	assert.ErrorIs(t, RemoveMember(f.ctx, f.as("bob"), principal("bob"), id, "carol"), ErrNotAdmin)
	assert.ErrorIs(t, RemoveMember(f.ctx, f.as("alice"), principal("alice"), id, "alice"), ErrRemoveCreator)
	assert.ErrorIs(t, RemoveMember(f.ctx, f.as("alice"), principal("alice"), id, "dave"), ErrNotMember)

	require.NoError(t, RemoveMember(f.ctx, f.as("alice"), principal("alice"), id, "bob"))
	team := f.team(id)
	assert.NotContains(t, team.Members, "bob")

	unread, err := ListUnreadNotifications(f.ctx, f.mem, "bob")
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Contains(t, unread[0].Message, `"T"`)

	// leaving sends nothing
	require.NoError(t, RemoveMember(f.ctx, f.as("carol"), principal("carol"), id, "carol"))
	assert.NotContains(t, f.team(id).Members, "carol")
	assert.Equal(t, 0, f.count("notifications/carol/userNotifications"))
}

func TestRemoveMemberKeepsLegacyAdmins(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mem.Set(f.ctx, "teams/old", model.Team{
		Name:      "Old",
		CreatedBy: "alice",
		Members:   []string{"alice", "bob"},
	}))

	require.NoError(t, RemoveMember(f.ctx, f.as("alice"), principal("alice"), "old", "bob"))
	team := f.team("old")
	assert.Nil(t, team.Admins)
	assert.True(t, team.IsAdmin("alice"))
}

func TestDeleteTeamCascades(t *testing.T) {
	f := newFixture(t)
	f.register("alice", "bob")
	id := f.createTeam("alice", "T", "bob")
	alice := f.as("alice")

	var taskIDs []string
	for _, title := range []string{"one", "two"} {
		task, err := AddTeamTask(f.ctx, alice, principal("alice"), id, TaskInput{Title: title, DueDate: "2025-01-01"})
		require.NoError(t, err)
		taskIDs = append(taskIDs, task.ID)
		_, err = AddSubTask(f.ctx, alice, principal("alice"), id, task.ID, "sub", "bob")
		require.NoError(t, err)
		_, err = AddTaskUpdate(f.ctx, alice, principal("alice"), id, task.ID, "started")
		require.NoError(t, err)
	}

	assert.ErrorIs(t, DeleteTeam(f.ctx, f.as("bob"), principal("bob"), id, nil), ErrNotAdmin)

	throttle := rate.NewLimiter(rate.Inf, 1)
	require.NoError(t, DeleteTeam(f.ctx, alice, principal("alice"), id, throttle))

	_, err := f.mem.Get(f.ctx, teamPath(id))
	assert.True(t, backend.IsNotFound(err))
	assert.Equal(t, 0, f.count(teamTasksPath(id)))
	for _, taskID := range taskIDs {
		assert.Equal(t, 0, f.count(subTasksPath(id, taskID)))
		assert.Equal(t, 0, f.count(updatesPath(id, taskID)))
	}
	assert.NotContains(t, f.user("alice").Teams, id)
}

func TestMemberProfiles(t *testing.T) {
	f := newFixture(t)
	f.register("alice")
	id := f.createTeam("alice", "T", "ghost")

	members, err := MemberProfiles(f.ctx, f.mem, f.team(id))
	require.NoError(t, err)
	require.Len(t, members, 2)

	assert.Equal(t, Member{UID: "alice", Name: "alice Tester", Email: "alice@example.com", Admin: true, Creator: true}, members[0])
	assert.Equal(t, Member{UID: "ghost", Name: "ghost"}, members[1])
}
