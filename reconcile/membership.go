package reconcile

import (
	"context"
	"errors"

	"teamdash/backend"
	"teamdash/model"
	"teamdash/services"
)

// StaleTeamIDs returns the cached team IDs that are missing from the live
// membership set, in cached order and without duplicates.
func StaleTeamIDs(cached []string, live []model.Team) []string {
	current := make(map[string]bool, len(live))
	for _, t := range live {
		current[t.ID] = true
	}
	seen := make(map[string]bool, len(cached))
	var stale []string
	for _, id := range cached {
		if current[id] || seen[id] {
			continue
		}
		seen[id] = true
		stale = append(stale, id)
	}
	return stale
}

// HealMembership drops team IDs from uid's cached list once the team is
// confirmed gone (deleted) or inaccessible (removed). A team the user can
// still read as a member is kept even if the live set does not have it yet.
// Failures are logged and the affected IDs are left for the next pass. It
// returns the IDs it removed.
func HealMembership(ctx context.Context, db backend.Backend, uid string, live []model.Team) []string {
	logger := services.NewLogger(ctx)

	user, err := services.GetUser(ctx, db, uid)
	if err != nil {
		if !errors.Is(err, services.ErrUserNotFound) {
			logger.LogWarnf("HealMembership", "user=%s read failed: %v", uid, err)
		}
		return nil
	}

	var confirmed []string
	for _, id := range StaleTeamIDs(user.Teams, live) {
		team, err := services.GetTeam(ctx, db, id)
		switch {
		case errors.Is(err, services.ErrTeamNotFound):
			logger.LogDebugf("HealMembership", "team=%s deleted", id)
		case backend.IsPermissionDenied(err):
			logger.LogDebugf("HealMembership", "team=%s no longer accessible", id)
		case err != nil:
			logger.LogWarnf("HealMembership", "team=%s probe failed: %v", id, err)
			continue
		case team.IsMember(uid):
			continue
		}
		confirmed = append(confirmed, id)
	}
	if len(confirmed) == 0 {
		return nil
	}

	if err := services.ForgetTeams(ctx, db, uid, confirmed); err != nil {
		logger.LogWarnf("HealMembership", "user=%s cleanup of %v failed: %v", uid, confirmed, err)
		return nil
	}
	logger.LogInfof("HealMembership", "user=%s removed stale teams %v", uid, confirmed)
	return confirmed
}

// healer runs HealMembership on its own goroutine. Live sets submitted while
// a pass is running collapse into the newest one.
type healer struct {
	db     backend.Backend
	uid    string
	latest chan []model.Team
	done   chan struct{}
	onHeal func(removed []string)
}

func startHealer(ctx context.Context, db backend.Backend, uid string, onHeal func([]string)) *healer {
	h := &healer{
		db:     db,
		uid:    uid,
		latest: make(chan []model.Team, 1),
		done:   make(chan struct{}),
		onHeal: onHeal,
	}
	go h.run(ctx)
	return h
}

// Submit never blocks. It must only be called from one goroutine.
func (h *healer) Submit(live []model.Team) {
	for {
		select {
		case h.latest <- live:
			return
		default:
		}
		select {
		case <-h.latest:
		default:
		}
	}
}

func (h *healer) run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return
		case live := <-h.latest:
			removed := HealMembership(ctx, h.db, h.uid, live)
			if h.onHeal != nil {
				h.onHeal(removed)
			}
		}
	}
}

// Wait blocks until the healer has stopped.
func (h *healer) Wait() {
	<-h.done
}
