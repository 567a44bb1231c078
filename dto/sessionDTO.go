package dto

// Document IDs travel in request bodies here, so they are checked for path
// separators before they reach a document path.

type ViewRequest struct {
	Mode   string `json:"mode" binding:"required,oneof=personal team"`
	TeamID string `json:"teamId" binding:"required_if=Mode team,excludes=/"`
}

type FiltersRequest struct {
	Status string `json:"status" binding:"omitempty,oneof=all pending completed"`
	Sort   string `json:"sort" binding:"omitempty,oneof=createdAt dueDate priority"`
}

type DetailsRequest struct {
	TaskID string `json:"taskId" binding:"required,excludes=/"`
}
