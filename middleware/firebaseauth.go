package middleware

import (
	"context"
	"net/http"
	"time"

	"teamdash/backend"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
)

// TokenVerifier is satisfied by *auth.Client.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseAuth validates Firebase ID tokens and extracts user info
func FirebaseAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
			return
		}

		decoded, err := verifier.VerifyIDToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		p := backend.Principal{UID: decoded.UID}
		if email, ok := decoded.Claims["email"].(string); ok {
			p.Email = email
		}
		if name, ok := decoded.Claims["name"].(string); ok {
			p.Name = name
		}
		if decoded.AuthTime > 0 {
			p.AuthTime = time.Unix(decoded.AuthTime, 0)
		} else if at, ok := decoded.Claims["auth_time"].(float64); ok {
			p.AuthTime = time.Unix(int64(at), 0)
		}

		SetPrincipal(c, p)
		c.Next()
	}
}
