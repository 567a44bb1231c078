package subtask

import (
	"net/http"

	"teamdash/controller"
	"teamdash/dto"
	"teamdash/services"

	"github.com/gin-gonic/gin"
)

func SubTaskController(router *gin.Engine, d *controller.Deps) {
	routes := router.Group("/api/teams/:teamId/tasks/:taskId", d.Auth)
	{
		routes.GET("/subtasks", func(c *gin.Context) {
			ListSubTasks(c, d)
		})
		routes.POST("/subtasks", d.WriteLimit("subtasks"), func(c *gin.Context) {
			CreateSubTask(c, d)
		})
		routes.PATCH("/subtasks/:subTaskId/completed", func(c *gin.Context) {
			CompleteSubTask(c, d)
		})
		routes.DELETE("/subtasks/:subTaskId", func(c *gin.Context) {
			DeleteSubTask(c, d)
		})
		routes.GET("/updates", func(c *gin.Context) {
			ListUpdates(c, d)
		})
		routes.POST("/updates", d.WriteLimit("updates"), func(c *gin.Context) {
			CreateUpdate(c, d)
		})
	}
}

func ListSubTasks(c *gin.Context, d *controller.Deps) {
	db, _ := d.For(c)
	subtasks, err := services.ListSubTasks(c.Request.Context(), db, c.Param("teamId"), c.Param("taskId"))
	if err != nil {
		controller.RespondError(c, "ListSubTasks", err)
		return
	}
	c.JSON(http.StatusOK, subtasks)
}

func CreateSubTask(c *gin.Context, d *controller.Deps) {
	var req dto.SubTaskRequest
	if !controller.BindJSON(c, &req) {
		return
	}

	db, p := d.For(c)
	st, err := services.AddSubTask(c.Request.Context(), db, p, c.Param("teamId"), c.Param("taskId"), req.Title, req.AssignedTo)
	if err != nil {
		controller.RespondError(c, "CreateSubTask", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Subtask created successfully",
		"subtask": st,
	})
}

func CompleteSubTask(c *gin.Context, d *controller.Deps) {
	var req dto.CompleteRequest
	if !controller.BindJSON(c, &req) {
		return
	}

	db, _ := d.For(c)
	err := services.SetSubTaskCompleted(c.Request.Context(), db, c.Param("teamId"), c.Param("taskId"), c.Param("subTaskId"), *req.Completed)
	if err != nil {
		controller.RespondError(c, "CompleteSubTask", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Subtask updated successfully"})
}

func DeleteSubTask(c *gin.Context, d *controller.Deps) {
	db, p := d.For(c)
	if err := services.DeleteSubTask(c.Request.Context(), db, p, c.Param("teamId"), c.Param("taskId"), c.Param("subTaskId")); err != nil {
		controller.RespondError(c, "DeleteSubTask", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Subtask deleted successfully"})
}

func ListUpdates(c *gin.Context, d *controller.Deps) {
	db, _ := d.For(c)
	updates, err := services.ListTaskUpdates(c.Request.Context(), db, c.Param("teamId"), c.Param("taskId"))
	if err != nil {
		controller.RespondError(c, "ListUpdates", err)
		return
	}
	c.JSON(http.StatusOK, updates)
}

func CreateUpdate(c *gin.Context, d *controller.Deps) {
	var req dto.TaskUpdateRequest
	if !controller.BindJSON(c, &req) {
		return
	}

	db, p := d.For(c)
	u, err := services.AddTaskUpdate(c.Request.Context(), db, p, c.Param("teamId"), c.Param("taskId"), req.Text)
	if err != nil {
		controller.RespondError(c, "CreateUpdate", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Update posted",
		"update":  u,
	})
}
