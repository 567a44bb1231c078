package dto

type CreateTeamRequest struct {
	Name string `json:"name"`
}

type InviteRequest struct {
	Email string `json:"email" binding:"required,email"`
}
