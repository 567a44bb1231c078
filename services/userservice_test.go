package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterProfileKeepsTeams(t *testing.T) {
	f := newFixture(t)
	f.register("alice")
	before := f.user("alice")
	id := f.createTeam("alice", "Launch")
	require.Equal(t, []string{id}, f.user("alice").Teams)

	u, err := RegisterProfile(f.ctx, f.as("alice"), principal("alice"), " Alice ", "Smith")
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", u.DisplayName)
	assert.Equal(t, []string{id}, u.Teams)

	after := f.user("alice")
	assert.Equal(t, "Alice", after.FirstName)
	assert.Equal(t, "Smith", after.LastName)
	assert.Equal(t, []string{id}, after.Teams)
	assert.True(t, before.CreatedAt.Equal(after.CreatedAt), "creation time is kept")
}

func TestRegisterProfileValidates(t *testing.T) {
	f := newFixture(t)
	_, err := RegisterProfile(f.ctx, f.as("alice"), principal("alice"), "", "Smith")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "firstName", verr.Field)
	assert.Zero(t, f.count("users"))
}

func TestSyncEmailBeforeRegistration(t *testing.T) {
	f := newFixture(t)
	p := principal("alice")
	p.Email = " Alice@Example.com "

	require.NoError(t, SyncEmail(f.ctx, f.as("alice"), p))
	assert.Equal(t, "alice@example.com", f.user("alice").Email)

	found, err := FindUserByEmail(f.ctx, f.mem, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", found.UID)

	_, err = RegisterProfile(f.ctx, f.as("alice"), p, "Alice", "Smith")
	require.NoError(t, err)
	u := f.user("alice")
	assert.Equal(t, "Alice Smith", u.DisplayName)
	assert.Equal(t, "alice@example.com", u.Email)
}
