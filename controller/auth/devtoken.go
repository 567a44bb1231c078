package auth

import (
	"net/http"
	"time"

	"teamdash/backend"
	"teamdash/controller"
	"teamdash/dto"
	"teamdash/services"

	"github.com/gin-gonic/gin"
)

// DevTokenController mints HS256 session tokens. It is only registered when
// AUTH_MODE=dev; in production sign-in happens at the identity provider.
func DevTokenController(router *gin.Engine, d *controller.Deps) {
	router.POST("/api/dev/token", func(c *gin.Context) {
		DevToken(c, d)
	})
}

func DevToken(c *gin.Context, d *controller.Deps) {
	var req dto.DevTokenRequest
	if !controller.BindJSON(c, &req) {
		return
	}

	p := backend.Principal{UID: req.UID, Email: req.Email, Name: req.Name}
	ttl := d.Config.Auth.TokenTTL
	token, err := services.CreateDevToken([]byte(d.Config.Auth.JWTSecret), p, ttl)
	if err != nil {
		controller.RespondError(c, "DevToken", err)
		return
	}

	c.JSON(http.StatusOK, dto.DevTokenResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(ttl),
	})
}
