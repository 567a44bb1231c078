package user

import (
	"errors"
	"io"
	"net/http"

	"teamdash/controller"
	"teamdash/dto"
	"teamdash/services"

	"github.com/gin-gonic/gin"
)

func UserController(router *gin.Engine, d *controller.Deps) {
	routes := router.Group("/api/users", d.Auth)
	{
		routes.GET("/search", func(c *gin.Context) {
			SearchUser(c, d)
		})
		routes.POST("/me", func(c *gin.Context) {
			RegisterProfile(c, d)
		})
		routes.GET("/me", func(c *gin.Context) {
			GetProfile(c, d)
		})
		routes.PUT("/me", func(c *gin.Context) {
			UpdateProfile(c, d)
		})
		routes.GET("/me/handoffs", func(c *gin.Context) {
			ListHandoffs(c, d)
		})
		routes.DELETE("/me", func(c *gin.Context) {
			DeleteUser(c, d)
		})
	}
}

// SearchUser looks an account up by exact email, the way the invite form
// checks an address before sending.
func SearchUser(c *gin.Context, d *controller.Deps) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}

	db, _ := d.For(c)
	u, err := services.FindUserByEmail(c.Request.Context(), db, email)
	if err != nil {
		controller.RespondError(c, "SearchUser", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"uid":         u.UID,
		"displayName": u.Name(),
		"email":       u.Email,
	})
}

func RegisterProfile(c *gin.Context, d *controller.Deps) {
	var req dto.ProfileRequest
	if !controller.BindJSON(c, &req) {
		return
	}

	db, p := d.For(c)
	u, err := services.RegisterProfile(c.Request.Context(), db, p, req.FirstName, req.LastName)
	if err != nil {
		controller.RespondError(c, "RegisterProfile", err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func GetProfile(c *gin.Context, d *controller.Deps) {
	db, p := d.For(c)
	u, err := services.GetUser(c.Request.Context(), db, p.UID)
	if err != nil {
		controller.RespondError(c, "GetProfile", err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func UpdateProfile(c *gin.Context, d *controller.Deps) {
	var req dto.ProfileRequest
	if !controller.BindJSON(c, &req) {
		return
	}

	db, p := d.For(c)
	u, err := services.UpdateProfile(c.Request.Context(), db, p, req.FirstName, req.LastName)
	if err != nil {
		controller.RespondError(c, "UpdateProfile", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"user":    u,
	})
}

// ListHandoffs names the teams that need a new admin before the account can
// be deleted.
func ListHandoffs(c *gin.Context, d *controller.Deps) {
	db, p := d.For(c)
	handoffs, err := services.SoleAdminTeams(c.Request.Context(), db, p.UID)
	if err != nil {
		controller.RespondError(c, "ListHandoffs", err)
		return
	}
	if handoffs == nil {
		handoffs = []services.HandoffRequirement{}
	}
	c.JSON(http.StatusOK, handoffs)
}

func DeleteUser(c *gin.Context, d *controller.Deps) {
	// the body is optional when no team needs a successor
	var req dto.DeleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	db, p := d.For(c)
	err := services.DeleteAccount(c.Request.Context(), db, d.Identity, p, req.Successors, d.Config.Account.RecentLoginWindow)
	if err != nil {
		controller.RespondError(c, "DeleteUser", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted successfully"})
}
