package team

import (
	"net/http"

	"teamdash/controller"
	"teamdash/dto"
	"teamdash/services"

	"github.com/gin-gonic/gin"
)

func TeamController(router *gin.Engine, d *controller.Deps) {
	routes := router.Group("/api/teams", d.Auth)
	{
		routes.GET("", func(c *gin.Context) {
			ListTeams(c, d)
		})
		routes.POST("", d.WriteLimit("teams"), func(c *gin.Context) {
			CreateTeam(c, d)
		})
		routes.GET("/:teamId", func(c *gin.Context) {
			GetTeam(c, d)
		})
		routes.DELETE("/:teamId", func(c *gin.Context) {
			DeleteTeam(c, d)
		})
		routes.GET("/:teamId/members", func(c *gin.Context) {
			ListMembers(c, d)
		})
		routes.DELETE("/:teamId/members/:uid", func(c *gin.Context) {
			RemoveMember(c, d)
		})
		routes.POST("/:teamId/admins/:uid", func(c *gin.Context) {
			PromoteToAdmin(c, d)
		})
	}
}

func ListTeams(c *gin.Context, d *controller.Deps) {
	db, p := d.For(c)
	teams, err := services.ListUserTeams(c.Request.Context(), db, p.UID)
	if err != nil {
		controller.RespondError(c, "ListTeams", err)
		return
	}
	c.JSON(http.StatusOK, teams)
}

func CreateTeam(c *gin.Context, d *controller.Deps) {
	var req dto.CreateTeamRequest
	if !controller.BindJSON(c, &req) {
		return
	}

	db, p := d.For(c)
	team, err := services.CreateTeam(c.Request.Context(), db, p, req.Name)
	if err != nil {
		controller.RespondError(c, "CreateTeam", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Team created successfully",
		"team":    team,
	})
}

func GetTeam(c *gin.Context, d *controller.Deps) {
	db, _ := d.For(c)
	team, err := services.GetTeam(c.Request.Context(), db, c.Param("teamId"))
	if err != nil {
		controller.RespondError(c, "GetTeam", err)
		return
	}
	c.JSON(http.StatusOK, team)
}

func DeleteTeam(c *gin.Context, d *controller.Deps) {
	db, p := d.For(c)
	if err := services.DeleteTeam(c.Request.Context(), db, p, c.Param("teamId"), d.Throttle); err != nil {
		controller.RespondError(c, "DeleteTeam", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Team deleted successfully"})
}

func ListMembers(c *gin.Context, d *controller.Deps) {
	db, _ := d.For(c)
	ctx := c.Request.Context()
	team, err := services.GetTeam(ctx, db, c.Param("teamId"))
	if err != nil {
		controller.RespondError(c, "ListMembers", err)
		return
	}
	members, err := services.MemberProfiles(ctx, db, *team)
	if err != nil {
		controller.RespondError(c, "ListMembers", err)
		return
	}
	c.JSON(http.StatusOK, members)
}

// RemoveMember serves both an admin removing someone and a member leaving.
func RemoveMember(c *gin.Context, d *controller.Deps) {
	db, p := d.For(c)
	if err := services.RemoveMember(c.Request.Context(), db, p, c.Param("teamId"), c.Param("uid")); err != nil {
		controller.RespondError(c, "RemoveMember", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Member removed successfully"})
}

func PromoteToAdmin(c *gin.Context, d *controller.Deps) {
	db, p := d.For(c)
	if err := services.PromoteToAdmin(c.Request.Context(), db, p, c.Param("teamId"), c.Param("uid")); err != nil {
		controller.RespondError(c, "PromoteToAdmin", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Member promoted to admin"})
}
