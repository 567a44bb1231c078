package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"teamdash/backend"
	"teamdash/model"
)

func userPath(uid string) string {
	return backend.Join("users", uid)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func GetUser(ctx context.Context, db backend.Backend, uid string) (*model.User, error) {
	doc, err := db.Get(ctx, userPath(uid))
	if err != nil {
		if backend.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	var u model.User
	if err := doc.DataTo(&u); err != nil {
		return nil, err
	}
	u.UID = uid
	return &u, nil
}

// FindUserByEmail looks a user up by lowercased email.
func FindUserByEmail(ctx context.Context, db backend.Backend, email string) (*model.User, error) {
	docs, err := db.Query(ctx, backend.Collection("users").Where("email", backend.OpEqual, NormalizeEmail(email)).Limit(1))
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrUserNotFound
	}
	var u model.User
	if err := docs[0].DataTo(&u); err != nil {
		return nil, err
	}
	u.UID = docs[0].ID()
	return &u, nil
}

// RegisterProfile writes the name fields right after sign-up. A document that
// already exists keeps its team cache and creation time.
func RegisterProfile(ctx context.Context, db backend.Backend, p backend.Principal, firstName, lastName string) (*model.User, error) {
	if err := required("firstName", firstName); err != nil {
		return nil, err
	}
	if err := required("lastName", lastName); err != nil {
		return nil, err
	}

	var u model.User
	err := db.RunTransaction(ctx, func(ctx context.Context, tx backend.Tx) error {
		u = model.User{}
		doc, err := tx.Get(userPath(p.UID))
		exists := err == nil && doc.Exists()
		if err != nil && !backend.IsNotFound(err) {
			return err
		}
		if exists {
			if err := doc.DataTo(&u); err != nil {
				return err
			}
		}
		u.UID = p.UID
		u.FirstName = strings.TrimSpace(firstName)
		u.LastName = strings.TrimSpace(lastName)
		u.DisplayName = displayName(firstName, lastName)
		u.Email = p.MailboxID()
		if exists {
			return tx.Update(userPath(p.UID), []backend.Update{
				{Path: "firstName", Value: u.FirstName},
				{Path: "lastName", Value: u.LastName},
				{Path: "displayName", Value: u.DisplayName},
				{Path: "email", Value: u.Email},
			})
		}
		u.Teams = []string{}
		u.CreatedAt = time.Now()
		return tx.Set(userPath(p.UID), u)
	})
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return &u, nil
}

// UpdateProfile changes the name fields and the derived display name.
func UpdateProfile(ctx context.Context, db backend.Backend, p backend.Principal, firstName, lastName string) (*model.User, error) {
	if strings.TrimSpace(firstName) == "" && strings.TrimSpace(lastName) == "" {
		return nil, &ValidationError{Field: "firstName", Reason: "nothing to update"}
	}

	var updated model.User
	err := db.RunTransaction(ctx, func(ctx context.Context, tx backend.Tx) error {
		doc, err := tx.Get(userPath(p.UID))
		if err != nil {
			if backend.IsNotFound(err) {
				return ErrUserNotFound
			}
			return err
		}
		var u model.User
		if err := doc.DataTo(&u); err != nil {
			return err
		}

		var updates []backend.Update
		if f := strings.TrimSpace(firstName); f != "" {
			u.FirstName = f
			updates = append(updates, backend.Update{Path: "firstName", Value: f})
		}
		if l := strings.TrimSpace(lastName); l != "" {
			u.LastName = l
			updates = append(updates, backend.Update{Path: "lastName", Value: l})
		}
		u.DisplayName = displayName(u.FirstName, u.LastName)
		updates = append(updates, backend.Update{Path: "displayName", Value: u.DisplayName})

		u.UID = p.UID
		updated = u
		return tx.Update(userPath(p.UID), updates)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// SyncEmail records the lowercased sign-in email so invites addressed to it
// can be matched. The document is created if the profile is not registered
// yet.
func SyncEmail(ctx context.Context, db backend.Backend, p backend.Principal) error {
	if p.MailboxID() == "" {
		return nil
	}
	if err := db.Merge(ctx, userPath(p.UID), []backend.Update{{Path: "email", Value: p.MailboxID()}}); err != nil {
		return fmt.Errorf("sync email: %w", err)
	}
	return nil
}

func displayName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

// ForgetTeams array-removes teamIDs from the user's cached team list.
func ForgetTeams(ctx context.Context, db backend.Backend, uid string, teamIDs []string) error {
	if len(teamIDs) == 0 {
		return nil
	}
	values := make([]interface{}, len(teamIDs))
	for i, id := range teamIDs {
		values[i] = id
	}
	return db.Update(ctx, userPath(uid), []backend.Update{
		{Path: "teams", Value: backend.ArrayRemove(values...)},
	})
}
