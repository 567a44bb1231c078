package model

type SubTask struct {
	ID           string `firestore:"-" json:"id"`
	TaskID       string `firestore:"-" json:"taskId"`
	Title        string `firestore:"title" json:"title"`
	Completed    bool   `firestore:"completed" json:"completed"`
	AssigneeUID  string `firestore:"assignedTo_uid" json:"assignedToUid"`
	AssigneeName string `firestore:"assignedTo_name" json:"assignedToName"`
	CreatedBy    string `firestore:"createdBy" json:"createdBy"`
}

// Progress is the rounded percentage of completed subtasks, 0 when there are none.
func Progress(subtasks []SubTask) int {
	total := len(subtasks)
	if total == 0 {
		return 0
	}
	done := 0
	for _, s := range subtasks {
		if s.Completed {
			done++
		}
	}
	return (200*done + total) / (2 * total)
}
