package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotAdmin       = errors.New("only team admins can do this")
	ErrNotMember      = errors.New("user is not a member of this team")
	ErrTeamNotFound   = errors.New("team not found")
	ErrTaskNotFound   = errors.New("task not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrAlreadyMember  = errors.New("user is already a member of this team")
	ErrInvitePending  = errors.New("an invite for this team is already pending")
	ErrInviteNotFound = errors.New("invite not found")
	ErrRemoveCreator  = errors.New("the team creator cannot be removed")
	ErrStaleSession   = errors.New("please sign out and sign in again, then retry deleting your account")
	ErrGhostAccount   = errors.New("account has been deleted")
)

// ValidationError reports a missing or malformed required field. It is
// returned before any write is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return e.Field + " is required"
	}
	return e.Field + ": " + e.Reason
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field}
	}
	return nil
}

// SuccessorRequiredError lists teams where the account is the sole admin and
// no valid successor was supplied.
type SuccessorRequiredError struct {
	Teams []HandoffRequirement
}

func (e *SuccessorRequiredError) Error() string {
	names := make([]string, len(e.Teams))
	for i, h := range e.Teams {
		names[i] = h.Team.Name
	}
	return fmt.Sprintf("choose a new admin before deleting your account: %s", strings.Join(names, ", "))
}
