package services

import (
	"context"
	"testing"
	"time"

	"teamdash/backend"
	"teamdash/model"

	"github.com/stretchr/testify/require"
)

func principal(uid string) backend.Principal {
	return backend.Principal{UID: uid, Email: uid + "@example.com", Name: uid, AuthTime: time.Now()}
}

type fixture struct {
	t   *testing.T
	ctx context.Context
	mem *backend.Memory
}

func newFixture(t *testing.T) *fixture {
	return &fixture{t: t, ctx: context.Background(), mem: backend.NewMemory()}
}

// as returns the database as seen by uid.
func (f *fixture) as(uid string) backend.Backend {
	return backend.WithRules(f.mem, principal(uid))
}

func (f *fixture) register(uids ...string) {
	f.t.Helper()
	for _, uid := range uids {
		_, err := RegisterProfile(f.ctx, f.as(uid), principal(uid), uid, "Tester")
		require.NoError(f.t, err)
	}
}

func (f *fixture) createTeam(owner, name string, members ...string) string {
	f.t.Helper()
	team, err := CreateTeam(f.ctx, f.as(owner), principal(owner), name)
	require.NoError(f.t, err)
	for _, m := range members {
		require.NoError(f.t, f.mem.Update(f.ctx, teamPath(team.ID), []backend.Update{
			{Path: "members", Value: backend.ArrayUnion(m)},
		}))
	}
	return team.ID
}

func (f *fixture) team(id string) model.Team {
	f.t.Helper()
	team, err := GetTeam(f.ctx, f.mem, id)
	require.NoError(f.t, err)
	return *team
}

func (f *fixture) user(uid string) model.User {
	f.t.Helper()
	u, err := GetUser(f.ctx, f.mem, uid)
	require.NoError(f.t, err)
	return *u
}

func (f *fixture) count(collection string) int {
	f.t.Helper()
	docs, err := f.mem.Query(f.ctx, backend.Collection(collection))
	require.NoError(f.t, err)
	return len(docs)
}
