package middleware

import (
	"net/http"
	"strings"

	"teamdash/backend"
	"teamdash/services"

	"github.com/gin-gonic/gin"
)

// DevTokenAuth accepts HS256 tokens minted by services.CreateDevToken. It
// stands in for FirebaseAuth when AUTH_MODE=dev.
func DevTokenAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is missing"})
			return
		}

		p, err := services.ParseDevToken(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token is expired or invalid: " + err.Error()})
			return
		}

		SetPrincipal(c, p)
		c.Next()
	}
}

// extractToken reads the bearer token. EventSource cannot set headers, so the
// token query parameter is accepted as well.
func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.HasPrefix(header, "Bearer ") {
		return header[7:]
	}
	return c.Query("token")
}

const (
	uidKey       = "uid"
	emailKey     = "email"
	nameKey      = "name"
	authTimeKey  = "auth_time"
	principalKey = "principal"
)

func SetPrincipal(c *gin.Context, p backend.Principal) {
	c.Set(uidKey, p.UID)
	c.Set(emailKey, p.Email)
	c.Set(nameKey, p.Name)
	c.Set(authTimeKey, p.AuthTime)
	c.Set(principalKey, p)
}

// Principal returns the caller set by one of the auth middlewares.
func Principal(c *gin.Context) backend.Principal {
	if p, ok := c.Get(principalKey); ok {
		return p.(backend.Principal)
	}
	return backend.Principal{}
}
