package backend

import (
	"context"
	"testing"

	"teamdash/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTeam(t *testing.T, m *Memory, id string, members ...string) {
	t.Helper()
	require.NoError(t, m.Set(context.Background(), Join("teams", id), model.Team{
		Name:      id,
		CreatedBy: members[0],
		Members:   members,
		Admins:    []string{members[0]},
	}))
}

func TestRulesTeamAccess(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedTeam(t, m, "t1", "alice", "bob")
	require.NoError(t, m.Set(ctx, "teams/t1/tasks/k1", model.Task{Title: "x"}))

	alice := WithRules(m, Principal{UID: "alice", Email: "alice@example.com"})
	bob := WithRules(m, Principal{UID: "bob", Email: "bob@example.com"})
	eve := WithRules(m, Principal{UID: "eve", Email: "eve@example.com"})

	_, err := alice.Get(ctx, "teams/t1")
	assert.NoError(t, err)

	_, err = eve.Get(ctx, "teams/t1")
	assert.True(t, IsPermissionDenied(err))

	_, err = eve.Get(ctx, "teams/t1/tasks/k1")
	assert.True(t, IsPermissionDenied(err))

	_, err = eve.Query(ctx, Collection("teams"))
	assert.True(t, IsPermissionDenied(err), "unfiltered team query")

	docs, err := eve.Query(ctx, Collection("teams").Where("members", OpArrayContains, "eve"))
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, err = alice.Get(ctx, "teams/missing")
	assert.True(t, IsNotFound(err))

	assert.True(t, IsPermissionDenied(bob.Delete(ctx, "teams/t1")), "only admins delete teams")
	assert.NoError(t, alice.Delete(ctx, "teams/t1"))
}

func TestRulesUserDocuments(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, "users/alice", model.User{Email: "alice@example.com"}))
	require.NoError(t, m.Set(ctx, "users/alice/tasks/k", model.Task{Title: "mine"}))

	bob := WithRules(m, Principal{UID: "bob"})

	_, err := bob.Get(ctx, "users/alice")
	assert.NoError(t, err, "profiles are readable")

	_, err = bob.Query(ctx, Collection("users/alice/tasks"))
	assert.True(t, IsPermissionDenied(err))

	err = bob.Merge(ctx, "users/alice", []Update{{Path: "teams", Value: ArrayRemove("t1")}})
	assert.True(t, IsPermissionDenied(err))
}

func TestRulesJoinRequiresInvite(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedTeam(t, m, "t1", "alice")

	carol := WithRules(m, Principal{UID: "carol", Email: "Carol@Example.com"})
	join := []Update{{Path: "members", Value: ArrayUnion("carol")}}

	assert.True(t, IsPermissionDenied(carol.Update(ctx, "teams/t1", join)))

	require.NoError(t, m.Set(ctx, "invites/carol@example.com", model.Mailbox{
		PendingInvites: []model.InviteEntry{{TeamID: "t1", TeamName: "t1", InvitedByEmail: "alice@example.com"}},
	}))

	_, err := carol.Get(ctx, "teams/t1")
	assert.NoError(t, err, "invitee may look at the team")

	rename := []Update{{Path: "name", Value: "mine now"}}
	assert.True(t, IsPermissionDenied(carol.Update(ctx, "teams/t1", rename)))

	require.NoError(t, carol.Update(ctx, "teams/t1", join))
}

func TestRulesWatchRevokedOnRemoval(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedTeam(t, m, "t1", "alice", "bob")
	require.NoError(t, m.Set(ctx, "teams/t1/tasks/k1", model.Task{Title: "x"}))

	bob := WithRules(m, Principal{UID: "bob"})

	teamWatch := bob.WatchDocument(ctx, "teams/t1")
	defer teamWatch.Cancel()
	tasksWatch := bob.WatchQuery(ctx, Collection("teams/t1/tasks"))
	defer tasksWatch.Cancel()

	require.NoError(t, nextEvent(t, teamWatch).Err)
	ev := nextEvent(t, tasksWatch)
	require.NoError(t, ev.Err)
	assert.Len(t, ev.Value, 1)

	require.NoError(t, m.Update(ctx, "teams/t1", []Update{{Path: "members", Value: ArrayRemove("bob")}}))

	assert.True(t, IsPermissionDenied(nextEvent(t, teamWatch).Err))
	assert.True(t, IsPermissionDenied(nextEvent(t, tasksWatch).Err))
}

func TestRulesWatchTeamDeletion(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedTeam(t, m, "t1", "alice")

	alice := WithRules(m, Principal{UID: "alice"})
	s := alice.WatchDocument(ctx, "teams/t1")
	defer s.Cancel()

	assert.True(t, nextEvent(t, s).Value.Exists())
	require.NoError(t, m.Delete(ctx, "teams/t1"))
	ev := nextEvent(t, s)
	require.NoError(t, ev.Err)
	assert.False(t, ev.Value.Exists())
}

func TestRulesWatchDeniedUpFront(t *testing.T) {
	m := NewMemory()
	seedTeam(t, m, "t1", "alice")

	eve := WithRules(m, Principal{UID: "eve"})
	s := eve.WatchQuery(context.Background(), Collection("teams/t1/tasks"))
	assert.True(t, IsPermissionDenied(nextEvent(t, s).Err))
}

func TestRulesWatchWithholdsRemovalCommit(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 50; i++ {
		m := NewMemory()
		seedTeam(t, m, "t1", "alice", "bob")
		require.NoError(t, m.Set(ctx, "teams/t1/tasks/k1", model.Task{Title: "x"}))

		bob := WithRules(m, Principal{UID: "bob"})
		s := bob.WatchQuery(ctx, Collection("teams/t1/tasks"))
		require.NoError(t, nextEvent(t, s).Err)

		require.NoError(t, m.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
			if _, err := tx.Get("teams/t1"); err != nil {
				return err
			}
			if err := tx.Update("teams/t1", []Update{{Path: "members", Value: ArrayRemove("bob")}}); err != nil {
				return err
			}
			return tx.Set("teams/t1/tasks/secret", model.Task{Title: "after removal"})
		}))

		for {
			ev := nextEvent(t, s)
			if ev.Err != nil {
				assert.True(t, IsPermissionDenied(ev.Err))
				break
			}
			for _, d := range ev.Value {
				require.NotEqual(t, "secret", d.ID(), "snapshot from the removal commit was delivered")
			}
		}
		s.Cancel()
	}
}
