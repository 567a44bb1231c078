package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"teamdash/backend"
	"teamdash/ratelimit"
	"teamdash/services"

	"firebase.google.com/go/v4/auth"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func whoami(c *gin.Context) {
	p := Principal(c)
	c.JSON(http.StatusOK, gin.H{"uid": p.UID, "email": p.Email, "name": p.Name, "authTime": p.AuthTime.Unix()})
}

func get(router *gin.Engine, url string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, url, nil)
	for k, v := range header {
		req.Header[http.CanonicalHeaderKey(k)] = v
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": {"Bearer " + token}}
}

func TestDevTokenAuth(t *testing.T) {
	secret := []byte("test-secret")
	router := gin.New()
	router.GET("/me", DevTokenAuth(secret), whoami)

	token, err := services.CreateDevToken(secret, backend.Principal{UID: "alice", Email: "alice@example.com", Name: "Alice"}, time.Hour)
	require.NoError(t, err)

	rr := get(router, "/me", bearer(token))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"uid":"alice"`)
	assert.Contains(t, rr.Body.String(), `"email":"alice@example.com"`)

	rr = get(router, "/me?token="+token, nil)
	assert.Equal(t, http.StatusOK, rr.Code, "query token for event streams")

	assert.Equal(t, http.StatusUnauthorized, get(router, "/me", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "/me", bearer("garbage")).Code)

	other, err := services.CreateDevToken([]byte("other"), backend.Principal{UID: "alice"}, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(router, "/me", bearer(other)).Code)
}

type fakeVerifier map[string]*auth.Token

func (f fakeVerifier) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	if tok, ok := f[idToken]; ok {
		return tok, nil
	}
	return nil, errors.New("bad token")
}

func TestFirebaseAuth(t *testing.T) {
	signedIn := time.Now().Add(-time.Minute).Truncate(time.Second)
	verifier := fakeVerifier{
		"good": {
			UID:      "bob",
			AuthTime: signedIn.Unix(),
			Claims:   map[string]interface{}{"email": "bob@example.com", "name": "Bob"},
		},
	}
	router := gin.New()
	router.GET("/me", FirebaseAuth(verifier), whoami)

	rr := get(router, "/me", bearer("good"))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"uid":"bob","email":"bob@example.com","name":"Bob","authTime":%d}`, signedIn.Unix()), rr.Body.String())

	assert.Equal(t, http.StatusUnauthorized, get(router, "/me", bearer("bad")).Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "/me", nil).Code)
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, services.RequestID(c.Request.Context()))
	})

	rr := get(router, "/", nil)
	assert.NotEmpty(t, rr.Body.String())
	assert.Equal(t, rr.Body.String(), rr.Header().Get(RequestIDHeader))

	rr = get(router, "/", http.Header{RequestIDHeader: {"abc"}})
	assert.Equal(t, "abc", rr.Body.String())
}

func TestRateLimitMiddleware(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rl := ratelimit.NewRateLimiterFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer rl.Close()

	router := gin.New()
	router.GET("/invite", func(c *gin.Context) {
		SetPrincipal(c, backend.Principal{UID: c.Query("uid")})
	}, RateLimitMiddleware(rl, "invite", 2, time.Hour), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	rr := get(router, "/invite?uid=alice", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "2", rr.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rr.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusNoContent, get(router, "/invite?uid=alice", nil).Code)
	rr = get(router, "/invite?uid=alice", nil)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusNoContent, get(router, "/invite?uid=bob", nil).Code, "callers are counted separately")

	mr.Close()
	assert.Equal(t, http.StatusInternalServerError, get(router, "/invite?uid=carol", nil).Code)
}

func TestRateLimitMiddlewareDisabled(t *testing.T) {
	router := gin.New()
	router.GET("/", RateLimitMiddleware(nil, "x", 1, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, get(router, "/", nil).Code)
	}
}
