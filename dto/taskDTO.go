package dto

type TaskRequest struct {
	Title    string `json:"title"`
	DueDate  string `json:"dueDate"`
	Priority string `json:"priority"`
}

type CompleteRequest struct {
	Completed *bool `json:"completed" binding:"required"`
}

// AssignRequest clears the assignee when AssignedTo is empty.
type AssignRequest struct {
	AssignedTo string `json:"assignedTo" binding:"omitempty,excludes=/"`
}

type SubTaskRequest struct {
	Title      string `json:"title"`
	AssignedTo string `json:"assignedTo" binding:"omitempty,excludes=/"`
}

type TaskUpdateRequest struct {
	Text string `json:"text"`
}
