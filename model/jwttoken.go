package model

import "github.com/golang-jwt/jwt/v5"

// SessionClaims are carried by locally signed development tokens.
type SessionClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	jwt.RegisteredClaims
}
