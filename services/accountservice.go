package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"teamdash/backend"
	"teamdash/model"
)

// HandoffRequirement is a team the account solely administers while other
// members remain. One of OtherMembers must be named successor.
type HandoffRequirement struct {
	Team         model.Team `json:"team"`
	OtherMembers []string   `json:"otherMembers"`
}

// SoleAdminTeams lists the teams that need a successor before uid can delete
// their account. A team uid is alone in needs none.
func SoleAdminTeams(ctx context.Context, db backend.Backend, uid string) ([]HandoffRequirement, error) {
	teams, err := ListUserTeams(ctx, db, uid)
	if err != nil {
		return nil, err
	}
	var out []HandoffRequirement
	for _, t := range teams {
		if !t.IsSoleAdmin(uid) {
			continue
		}
		others := t.OtherMembers(uid)
		if len(others) == 0 {
			continue
		}
		out = append(out, HandoffRequirement{Team: t, OtherMembers: others})
	}
	return out, nil
}

func validateSuccessors(reqs []HandoffRequirement, successors map[string]string) error {
	var missing []HandoffRequirement
	for _, r := range reqs {
		succ := successors[r.Team.ID]
		if succ == "" || !contains(r.OtherMembers, succ) {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		return &SuccessorRequiredError{Teams: missing}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// DeleteAccount purges everything the principal owns and then their identity.
// Successors are checked before the first write. Once purging starts a
// failure leaves the account partially deleted; the identity step reports
// ErrStaleSession when the sign-in is too old, and the leftover identity is
// finalized on a later sign-in.
func DeleteAccount(ctx context.Context, db backend.Backend, identity Identity, p backend.Principal, successors map[string]string, recentLogin time.Duration) error {
	logger := NewLogger(ctx)

	reqs, err := SoleAdminTeams(ctx, db, p.UID)
	if err != nil {
		return fmt.Errorf("check admin handoffs: %w", err)
	}
	if err := validateSuccessors(reqs, successors); err != nil {
		return err
	}

	for _, r := range reqs {
		succ := successors[r.Team.ID]
		if err := db.Update(ctx, teamPath(r.Team.ID), promotion(r.Team, succ)); err != nil {
			return fmt.Errorf("hand off %s: %w", r.Team.ID, err)
		}
		logger.LogInfof("DeleteAccount", "team=%s admin handed to %s", r.Team.ID, succ)
	}

	tasks, err := db.Query(ctx, backend.Collection(personalTasksPath(p.UID)))
	if err != nil {
		return fmt.Errorf("list personal tasks: %w", err)
	}
	if len(tasks) > 0 {
		paths := make([]string, len(tasks))
		for i, d := range tasks {
			paths[i] = d.Path()
		}
		if err := db.DeleteAll(ctx, paths); err != nil {
			return fmt.Errorf("purge personal tasks: %w", err)
		}
	}

	// re-read: handoffs may have given legacy teams an explicit admin set
	teams, err := ListUserTeams(ctx, db, p.UID)
	if err != nil {
		return fmt.Errorf("list teams: %w", err)
	}
	for _, t := range teams {
		if err := db.Update(ctx, teamPath(t.ID), membershipRemoval(t, p.UID)); err != nil {
			return fmt.Errorf("leave team %s: %w", t.ID, err)
		}
	}

	if p.MailboxID() != "" {
		if err := db.Delete(ctx, mailboxPath(p.Email)); err != nil {
			return fmt.Errorf("purge invites: %w", err)
		}
	}

	if err := db.Delete(ctx, userPath(p.UID)); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}

	if time.Since(p.AuthTime) > recentLogin {
		logger.LogWarnf("DeleteAccount", "user=%s data purged, identity kept: sign-in too old", p.UID)
		return ErrStaleSession
	}
	if err := identity.DeleteUser(ctx, p.UID); err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	logger.LogInfof("DeleteAccount", "user=%s teams=%d tasks=%d", p.UID, len(teams), len(tasks))
	return nil
}

// FinalizeGhostAccount deletes an identity whose application data is gone:
// no profile, no personal tasks and no team memberships. Identities younger
// than grace belong to a sign-up still in progress and are left alone. It
// reports whether the identity was deleted.
func FinalizeGhostAccount(ctx context.Context, db backend.Backend, identity Identity, p backend.Principal, grace time.Duration) (bool, error) {
	_, err := GetUser(ctx, db, p.UID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return false, err
	}

	created, err := identity.CreatedAt(ctx, p.UID)
	if err != nil {
		return false, err
	}
	if time.Since(created) < grace {
		return false, nil
	}

	tasks, err := db.Query(ctx, backend.Collection(personalTasksPath(p.UID)).Limit(1))
	if err != nil {
		return false, err
	}
	teams, err := ListUserTeams(ctx, db, p.UID)
	if err != nil {
		return false, err
	}
	if len(tasks) > 0 || len(teams) > 0 {
		NewLogger(ctx).LogWarnf("FinalizeGhostAccount", "user=%s no profile but tasks=%d teams=%d, identity kept", p.UID, len(tasks), len(teams))
		return false, nil
	}
	if err := identity.DeleteUser(ctx, p.UID); err != nil {
		return false, fmt.Errorf("finalize deleted account: %w", err)
	}
	NewLogger(ctx).LogInfof("FinalizeGhostAccount", "user=%s identity removed", p.UID)
	return true, nil
}
