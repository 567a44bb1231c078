package model

import "time"

type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Rank orders priorities High < Medium < Low; anything else sorts last.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

func (p Priority) Valid() bool {
	return p.Rank() < 3
}

const (
	StatusPending   = "Pending"
	StatusCompleted = "Completed"
)

type Task struct {
	ID        string    `firestore:"-" json:"id"`
	TeamID    string    `firestore:"-" json:"teamId,omitempty"`
	Title     string    `firestore:"title" json:"title"`
	DueDate   string    `firestore:"dueDate" json:"dueDate"`
	Priority  Priority  `firestore:"priority" json:"priority"`
	Completed bool      `firestore:"completed" json:"completed"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
	Progress  *int      `firestore:"progress,omitempty" json:"progress,omitempty"`

	// team tasks only
	CreatedBy  string  `firestore:"createdBy,omitempty" json:"createdBy,omitempty"`
	Status     string  `firestore:"status,omitempty" json:"status,omitempty"`
	AssignedTo *string `firestore:"assignedTo,omitempty" json:"assignedTo,omitempty"`
}
