package model

import "time"

// Update is a free-text status note attached to a team task.
type Update struct {
	ID            string    `firestore:"-" json:"id"`
	TaskID        string    `firestore:"-" json:"taskId"`
	Text          string    `firestore:"text" json:"text"`
	CreatedByUID  string    `firestore:"createdBy_uid" json:"createdByUid"`
	CreatedByName string    `firestore:"createdByName" json:"createdByName"`
	CreatedAt     time.Time `firestore:"createdAt" json:"createdAt"`
}
