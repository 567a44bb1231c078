package invite

import (
	"net/http"

	"teamdash/controller"
	"teamdash/dto"
	"teamdash/middleware"
	"teamdash/services"

	"github.com/gin-gonic/gin"
)

func InviteController(router *gin.Engine, d *controller.Deps) {
	limit := middleware.RateLimitMiddleware(d.Limiter, "invite", d.Config.Redis.InviteLimit, d.Config.Redis.InviteWindow)
	router.POST("/api/teams/:teamId/invites", d.Auth, limit, func(c *gin.Context) {
		SendInvite(c, d)
	})

	routes := router.Group("/api/invites", d.Auth)
	{
		routes.GET("", func(c *gin.Context) {
			ListInvites(c, d)
		})
		routes.POST("/:teamId/accept", func(c *gin.Context) {
			AcceptInvite(c, d)
		})
		routes.POST("/:teamId/decline", func(c *gin.Context) {
			DeclineInvite(c, d)
		})
	}
}

func SendInvite(c *gin.Context, d *controller.Deps) {
	var req dto.InviteRequest
	if !controller.BindJSON(c, &req) {
		return
	}

	db, p := d.For(c)
	entry, err := services.InviteMember(c.Request.Context(), db, p, c.Param("teamId"), req.Email)
	if err != nil {
		controller.RespondError(c, "SendInvite", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Invite sent",
		"invite":  entry,
	})
}

func ListInvites(c *gin.Context, d *controller.Deps) {
	db, p := d.For(c)
	invites, err := services.ListInvites(c.Request.Context(), db, p.Email)
	if err != nil {
		controller.RespondError(c, "ListInvites", err)
		return
	}
	c.JSON(http.StatusOK, invites)
}

func AcceptInvite(c *gin.Context, d *controller.Deps) {
	db, p := d.For(c)
	team, err := services.AcceptInvite(c.Request.Context(), db, p, c.Param("teamId"))
	if err != nil {
		controller.RespondError(c, "AcceptInvite", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Joined team",
		"team":    team,
	})
}

func DeclineInvite(c *gin.Context, d *controller.Deps) {
	db, p := d.For(c)
	if err := services.DeclineInvite(c.Request.Context(), db, p, c.Param("teamId")); err != nil {
		controller.RespondError(c, "DeclineInvite", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invite declined"})
}
