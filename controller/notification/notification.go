package notification

import (
	"net/http"

	"teamdash/controller"
	"teamdash/services"

	"github.com/gin-gonic/gin"
)

func NotificationController(router *gin.Engine, d *controller.Deps) {
	routes := router.Group("/api/notifications", d.Auth)
	{
		routes.GET("", func(c *gin.Context) {
			ListNotifications(c, d)
		})
		routes.PATCH("/:id/read", func(c *gin.Context) {
			MarkRead(c, d)
		})
	}
}

func ListNotifications(c *gin.Context, d *controller.Deps) {
	db, p := d.For(c)
	notifications, err := services.ListUnreadNotifications(c.Request.Context(), db, p.UID)
	if err != nil {
		controller.RespondError(c, "ListNotifications", err)
		return
	}
	c.JSON(http.StatusOK, notifications)
}

func MarkRead(c *gin.Context, d *controller.Deps) {
	db, p := d.For(c)
	if err := services.MarkNotificationRead(c.Request.Context(), db, p.UID, c.Param("id")); err != nil {
		controller.RespondError(c, "MarkRead", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
