package services

import (
	"errors"
	"fmt"
	"time"

	"teamdash/backend"
	"teamdash/model"

	"github.com/golang-jwt/jwt/v5"
)

const devIssuer = "teamdash-dev"

// CreateDevToken signs a session token for local development, standing in for
// identity provider ID tokens when AUTH_MODE=dev.
func CreateDevToken(secret []byte, p backend.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &model.SessionClaims{
		UserID: p.UID,
		Email:  p.Email,
		Name:   p.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    devIssuer,
			Subject:   p.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseDevToken validates a token from CreateDevToken. The issue time is
// reported as the sign-in time.
func ParseDevToken(secret []byte, tokenString string) (backend.Principal, error) {
	claims := &model.SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(devIssuer))
	if err != nil {
		return backend.Principal{}, err
	}
	if !token.Valid || claims.UserID == "" {
		return backend.Principal{}, errors.New("invalid token")
	}

	p := backend.Principal{UID: claims.UserID, Email: claims.Email, Name: claims.Name}
	if claims.IssuedAt != nil {
		p.AuthTime = claims.IssuedAt.Time
	}
	return p, nil
}
