package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"teamdash/backend"
	"teamdash/model"
	"teamdash/stream"
)

func mailboxPath(email string) string {
	return backend.Join("invites", NormalizeEmail(email))
}

func readMailbox(doc backend.Document) (model.Mailbox, error) {
	var mb model.Mailbox
	if doc == nil || !doc.Exists() {
		return mb, nil
	}
	if err := doc.DataTo(&mb); err != nil {
		return mb, fmt.Errorf("decode mailbox: %w", err)
	}
	return mb, nil
}

// InviteMember appends a pending invite for teamID to the mailbox of email.
// It fails without writing anything when the inviter is not an admin, the
// invitee is already a member, or an invite for this team is already pending.
func InviteMember(ctx context.Context, db backend.Backend, p backend.Principal, teamID, email string) (*model.InviteEntry, error) {
	email = NormalizeEmail(email)
	if err := required("email", email); err != nil {
		return nil, err
	}
	if !strings.Contains(email, "@") {
		return nil, &ValidationError{Field: "email", Reason: "must be an email address"}
	}

	invitee, err := FindUserByEmail(ctx, db, email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	var entry model.InviteEntry
	err = db.RunTransaction(ctx, func(ctx context.Context, tx backend.Tx) error {
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
		if invitee != nil && team.IsMember(invitee.UID) {
			return ErrAlreadyMember
		}

		mbDoc, err := tx.Get(mailboxPath(email))
		if err != nil && !backend.IsNotFound(err) {
			return err
		}
		mb, err := readMailbox(mbDoc)
		if err != nil {
			return err
		}
		if _, pending := mb.Find(teamID); pending {
			return ErrInvitePending
		}

		entry = model.InviteEntry{TeamID: teamID, TeamName: team.Name, InvitedByEmail: p.MailboxID()}
		if mbDoc != nil && mbDoc.Exists() {
			return tx.Update(mailboxPath(email), []backend.Update{
				{Path: "pendingInvites", Value: backend.ArrayUnion(entry)},
			})
		}
		return tx.Set(mailboxPath(email), model.Mailbox{PendingInvites: []model.InviteEntry{entry}})
	})
	if err != nil {
		return nil, err
	}

	if invitee != nil {
		msg := fmt.Sprintf("%s invited you to join %q.", p.MailboxID(), entry.TeamName)
		if err := CreateNotification(ctx, db, invitee.UID, msg); err != nil {
			NewLogger(ctx).LogWarnf("InviteMember", "notify user=%s error=%v", invitee.UID, err)
		}
	}
	return &entry, nil
}

// AcceptInvite adds the principal to the team, records the team in the
// principal's cached list, and only then drops the mailbox entry, all in one
// transaction. An invite to a team that no longer exists is discarded and
// reported as ErrTeamNotFound.
func AcceptInvite(ctx context.Context, db backend.Backend, p backend.Principal, teamID string) (*model.Team, error) {
	var (
		joined   *model.Team
		teamGone bool
	)
	err := db.RunTransaction(ctx, func(ctx context.Context, tx backend.Tx) error {
		joined, teamGone = nil, false

		mbDoc, err := tx.Get(mailboxPath(p.Email))
		if err != nil {
			return notFoundAs(err, ErrInviteNotFound)
		}
		mb, err := readMailbox(mbDoc)
		if err != nil {
			return err
		}
		if _, ok := mb.Find(teamID); !ok {
			return ErrInviteNotFound
		}

		teamDoc, err := tx.Get(teamPath(teamID))
		switch {
		case backend.IsNotFound(err):
			teamGone = true
		case err != nil:
			return err
		default:
			if joined, err = decodeTeam(teamDoc); err != nil {
				return err
			}
		}

		userDoc, err := tx.Get(userPath(p.UID))
		if err != nil && !backend.IsNotFound(err) {
			return err
		}

		remaining := []backend.Update{{Path: "pendingInvites", Value: mb.Without(teamID)}}
		if teamGone {
			return tx.Update(mailboxPath(p.Email), remaining)
		}

		if err := tx.Update(teamPath(teamID), []backend.Update{
			{Path: "members", Value: backend.ArrayUnion(p.UID)},
		}); err != nil {
			return err
		}
		if userDoc != nil && userDoc.Exists() {
			err = tx.Update(userPath(p.UID), []backend.Update{
				{Path: "teams", Value: backend.ArrayUnion(teamID)},
			})
		} else {
			err = tx.Set(userPath(p.UID), model.User{Email: p.MailboxID(), Teams: []string{teamID}})
		}
		if err != nil {
			return err
		}
		return tx.Update(mailboxPath(p.Email), remaining)
	})
	if err != nil {
		return nil, err
	}
	if teamGone {
		return nil, ErrTeamNotFound
	}
	if !joined.IsMember(p.UID) {
		joined.Members = append(joined.Members, p.UID)
	}
	return joined, nil
}

// DeclineInvite drops the pending entry for teamID and changes nothing else.
func DeclineInvite(ctx context.Context, db backend.Backend, p backend.Principal, teamID string) error {
	return db.RunTransaction(ctx, func(ctx context.Context, tx backend.Tx) error {
		mbDoc, err := tx.Get(mailboxPath(p.Email))
		if err != nil {
			return notFoundAs(err, ErrInviteNotFound)
		}
		mb, err := readMailbox(mbDoc)
		if err != nil {
			return err
		}
		if _, ok := mb.Find(teamID); !ok {
			return ErrInviteNotFound
		}
		return tx.Update(mailboxPath(p.Email), []backend.Update{
			{Path: "pendingInvites", Value: mb.Without(teamID)},
		})
	})
}

func ListInvites(ctx context.Context, db backend.Backend, email string) ([]model.InviteEntry, error) {
	doc, err := db.Get(ctx, mailboxPath(email))
	if err != nil {
		if backend.IsNotFound(err) {
			return []model.InviteEntry{}, nil
		}
		return nil, err
	}
	mb, err := readMailbox(doc)
	if err != nil {
		return nil, err
	}
	return mb.PendingInvites, nil
}

func WatchInvites(ctx context.Context, db backend.Backend, email string) *stream.Stream[[]model.InviteEntry] {
	return stream.Map(db.WatchDocument(ctx, mailboxPath(email)), func(doc backend.Document) ([]model.InviteEntry, error) {
		mb, err := readMailbox(doc)
		if err != nil {
			return nil, err
		}
		if mb.PendingInvites == nil {
			return []model.InviteEntry{}, nil
		}
		return mb.PendingInvites, nil
	})
}
