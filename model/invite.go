package model

type InviteEntry struct {
	TeamID         string `firestore:"teamID" json:"teamId"`
	TeamName       string `firestore:"teamName" json:"teamName"`
	InvitedByEmail string `firestore:"invitedByEmail" json:"invitedByEmail"`
}

// Mailbox is the invites/{email} document.
type Mailbox struct {
	PendingInvites []InviteEntry `firestore:"pendingInvites" json:"pendingInvites"`
}

// Find returns the pending entry for teamID.
func (m Mailbox) Find(teamID string) (InviteEntry, bool) {
	for _, e := range m.PendingInvites {
		if e.TeamID == teamID {
			return e, true
		}
	}
	return InviteEntry{}, false
}

// Without returns the pending entries other than the one for teamID.
func (m Mailbox) Without(teamID string) []InviteEntry {
	out := make([]InviteEntry, 0, len(m.PendingInvites))
	for _, e := range m.PendingInvites {
		if e.TeamID != teamID {
			out = append(out, e)
		}
	}
	return out
}
