package model

import (
	"time"
)

type Notification struct {
	ID        string    `firestore:"-" json:"id"`
	Message   string    `firestore:"message" json:"message"`
	Read      bool      `firestore:"read" json:"read"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
}
