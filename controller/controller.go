package controller

import (
	"errors"
	"net/http"

	"teamdash/backend"
	"teamdash/config"
	"teamdash/middleware"
	"teamdash/services"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Deps is what every area controller needs. DB is the unguarded backend; use
// For to get the caller's view of it.
type Deps struct {
	DB       backend.Backend
	Identity services.Identity
	Auth     gin.HandlerFunc
	Limiter  middleware.Limiter
	Throttle *rate.Limiter
	Config   *config.Config
}

// For returns the backend as the security rules let the caller see it.
func (d *Deps) For(c *gin.Context) (backend.Backend, backend.Principal) {
	p := middleware.Principal(c)
	return backend.WithRules(d.DB, p), p
}

// WriteLimit throttles create endpoints per caller.
func (d *Deps) WriteLimit(endpoint string) gin.HandlerFunc {
	return middleware.RateLimitMiddleware(d.Limiter, endpoint, d.Config.Redis.WriteLimit, d.Config.Redis.WriteWindow)
}

// BindJSON writes a 400 and returns false when the body does not bind.
func BindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return false
	}
	return true
}

// RespondError maps service errors onto HTTP statuses.
func RespondError(c *gin.Context, operation string, err error) {
	var validation *services.ValidationError
	var successor *services.SuccessorRequiredError

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error(), "field": validation.Field})
	case errors.As(err, &successor):
		c.JSON(http.StatusConflict, gin.H{"error": successor.Error(), "code": "successor-required", "teams": successor.Teams})
	case errors.Is(err, services.ErrStaleSession):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "code": "requires-recent-login"})
	case errors.Is(err, services.ErrGhostAccount):
		c.JSON(http.StatusGone, gin.H{"error": err.Error(), "code": "account_deleted"})
	case errors.Is(err, services.ErrNotAdmin),
		errors.Is(err, services.ErrNotMember),
		errors.Is(err, services.ErrRemoveCreator),
		errors.Is(err, backend.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrTeamNotFound),
		errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrInviteNotFound),
		errors.Is(err, backend.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrAlreadyMember),
		errors.Is(err, services.ErrInvitePending),
		errors.Is(err, backend.ErrAborted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		services.NewLogger(c.Request.Context()).LogError(operation, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
