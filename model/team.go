package model

import "time"

type Team struct {
	ID        string    `firestore:"-" json:"id"`
	Name      string    `firestore:"name" json:"name"`
	CreatedBy string    `firestore:"createdBy" json:"createdBy"`
	Members   []string  `firestore:"members" json:"members"`
	Admins    []string  `firestore:"admins,omitempty" json:"admins,omitempty"`
	TeamCode  string    `firestore:"teamCode,omitempty" json:"teamCode,omitempty"`
	CreatedAt time.Time `firestore:"createdAt,omitempty" json:"createdAt"`
}

// EffectiveAdmins returns the admin set of t. Teams written before the admins
// field existed have the creator as their only admin.
func EffectiveAdmins(t Team) []string {
	if t.Admins == nil {
		if t.CreatedBy == "" {
			return nil
		}
		return []string{t.CreatedBy}
	}
	return t.Admins
}

func (t Team) IsAdmin(uid string) bool {
	return contains(EffectiveAdmins(t), uid)
}

func (t Team) IsMember(uid string) bool {
	return contains(t.Members, uid)
}

// OtherMembers returns every member except uid.
func (t Team) OtherMembers(uid string) []string {
	out := make([]string, 0, len(t.Members))
	for _, m := range t.Members {
		if m != uid {
			out = append(out, m)
		}
	}
	return out
}

// IsSoleAdmin reports whether uid is the only element of the admin set.
func (t Team) IsSoleAdmin(uid string) bool {
	admins := EffectiveAdmins(t)
	return len(admins) == 1 && admins[0] == uid
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
