package dto

import "time"

// DevTokenRequest mints a session token when AUTH_MODE=dev.
type DevTokenRequest struct {
	UID   string `json:"uid" binding:"required,excludes=/"`
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name"`
}

type DevTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
