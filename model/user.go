package model

import "time"

type User struct {
	UID         string    `firestore:"-" json:"uid"`
	FirstName   string    `firestore:"firstName,omitempty" json:"firstName,omitempty"`
	LastName    string    `firestore:"lastName,omitempty" json:"lastName,omitempty"`
	DisplayName string    `firestore:"displayName,omitempty" json:"displayName,omitempty"`
	Email       string    `firestore:"email,omitempty" json:"email,omitempty"`
	Teams       []string  `firestore:"teams" json:"teams"`
	CreatedAt   time.Time `firestore:"createdAt,omitempty" json:"createdAt"`
}

// Name is what other members see for this user.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}
