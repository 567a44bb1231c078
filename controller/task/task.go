package task

import (
	"net/http"

	"teamdash/controller"
	"teamdash/dto"
	"teamdash/model"
	"teamdash/services"

	"github.com/gin-gonic/gin"
)

func TaskController(router *gin.Engine, d *controller.Deps) {
	personal := router.Group("/api/tasks", d.Auth)
	{
		personal.GET("", func(c *gin.Context) {
			ListPersonalTasks(c, d)
		})
		personal.POST("", d.WriteLimit("tasks"), func(c *gin.Context) {
			CreatePersonalTask(c, d)
		})
		personal.PUT("/:taskId", func(c *gin.Context) {
			UpdatePersonalTask(c, d)
		})
		personal.PATCH("/:taskId/completed", func(c *gin.Context) {
			CompletePersonalTask(c, d)
		})
		personal.DELETE("/:taskId", func(c *gin.Context) {
			DeletePersonalTask(c, d)
		})
	}

	team := router.Group("/api/teams/:teamId/tasks", d.Auth)
	{
		team.GET("", func(c *gin.Context) {
			ListTeamTasks(c, d)
		})
		team.POST("", d.WriteLimit("team-tasks"), func(c *gin.Context) {
			CreateTeamTask(c, d)
		})
		team.GET("/:taskId", func(c *gin.Context) {
			GetTeamTask(c, d)
		})
		team.PUT("/:taskId", func(c *gin.Context) {
			UpdateTeamTask(c, d)
		})
		team.PATCH("/:taskId/completed", func(c *gin.Context) {
			CompleteTeamTask(c, d)
		})
		team.PATCH("/:taskId/assignee", func(c *gin.Context) {
			AssignTeamTask(c, d)
		})
		team.DELETE("/:taskId", func(c *gin.Context) {
			DeleteTeamTask(c, d)
		})
	}
}

func filters(c *gin.Context) services.TaskFilters {
	return services.TaskFilters{
		Status: services.StatusFilter(c.Query("status")),
		Sort:   services.SortOrder(c.Query("sort")),
	}.Normalize()
}

func input(req dto.TaskRequest) services.TaskInput {
	return services.TaskInput{
		Title:    req.Title,
		DueDate:  req.DueDate,
		Priority: model.Priority(req.Priority),
	}
}

func ListPersonalTasks(c *gin.Context, d *controller.Deps) {
	db, p := d.For(c)
	tasks, err := services.ListPersonalTasks(c.Request.Context(), db, p.UID, filters(c))
	if err != nil {
		controller.RespondError(c, "ListPersonalTasks", err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func CreatePersonalTask(c *gin.Context, d *controller.Deps) {
	var req dto.TaskRequest
	if !controller.BindJSON(c, &req) {
		return
	}

	db, p := d.For(c)
	t, err := services.AddPersonalTask(c.Request.Context(), db, p.UID, input(req))
	if err != nil {
		controller.RespondError(c, "CreatePersonalTask", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Task created successfully",
		"task":    t,
	})
}

func UpdatePersonalTask(c *gin.Context, d *controller.Deps) {
	var req dto.TaskRequest
	if !controller.BindJSON(c, &req) {
		return
	}

	db, p := d.For(c)
	if err := services.UpdatePersonalTask(c.Request.Context(), db, p.UID, c.Param("taskId"), input(req)); err != nil {
		controller.RespondError(c, "UpdatePersonalTask", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task updated successfully"})
}

func CompletePersonalTask(c *gin.Context, d *controller.Deps) {
	var req dto.CompleteRequest
	if !controller.BindJSON(c, &req) {
		return
	}

	db, p := d.For(c)
	if err := services.SetPersonalTaskCompleted(c.Request.Context(), db, p.UID, c.Param("taskId"), *req.Completed); err != nil {
		controller.RespondError(c, "CompletePersonalTask", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task updated successfully"})
}

func DeletePersonalTask(c *gin.Context, d *controller.Deps) {
	db, p := d.For(c)
	if err := services.DeletePersonalTask(c.Request.Context(), db, p.UID, c.Param("taskId")); err != nil {
		controller.RespondError(c, "DeletePersonalTask", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

func ListTeamTasks(c *gin.Context, d *controller.Deps) {
	db, _ := d.For(c)
	tasks, err := services.ListTeamTasks(c.Request.Context(), db, c.Param("teamId"), filters(c))
	if err != nil {
		controller.RespondError(c, "ListTeamTasks", err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func GetTeamTask(c *gin.Context, d *controller.Deps) {
	db, _ := d.For(c)
	t, err := services.GetTeamTask(c.Request.Context(), db, c.Param("teamId"), c.Param("taskId"))
	if err != nil {
		controller.RespondError(c, "GetTeamTask", err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func CreateTeamTask(c *gin.Context, d *controller.Deps) {
	var req dto.TaskRequest
	if !controller.BindJSON(c, &req) {
		return
	}

	db, p := d.For(c)
	t, err := services.AddTeamTask(c.Request.Context(), db, p, c.Param("teamId"), input(req))
	if err != nil {
		controller.RespondError(c, "CreateTeamTask", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Task created successfully",
		"task":    t,
	})
}

func UpdateTeamTask(c *gin.Context, d *controller.Deps) {
	var req dto.TaskRequest
	if !controller.BindJSON(c, &req) {
		return
	}

	db, p := d.For(c)
	if err := services.UpdateTeamTask(c.Request.Context(), db, p, c.Param("teamId"), c.Param("taskId"), input(req)); err != nil {
		controller.RespondError(c, "UpdateTeamTask", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task updated successfully"})
}

func CompleteTeamTask(c *gin.Context, d *controller.Deps) {
	var req dto.CompleteRequest
	if !controller.BindJSON(c, &req) {
		return
	}

	db, _ := d.For(c)
	if err := services.SetTeamTaskCompleted(c.Request.Context(), db, c.Param("teamId"), c.Param("taskId"), *req.Completed); err != nil {
		controller.RespondError(c, "CompleteTeamTask", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task updated successfully"})
}

func AssignTeamTask(c *gin.Context, d *controller.Deps) {
	var req dto.AssignRequest
	if !controller.BindJSON(c, &req) {
		return
	}

	db, _ := d.For(c)
	if err := services.AssignTeamTask(c.Request.Context(), db, c.Param("teamId"), c.Param("taskId"), req.AssignedTo); err != nil {
		controller.RespondError(c, "AssignTeamTask", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task assigned successfully"})
}

func DeleteTeamTask(c *gin.Context, d *controller.Deps) {
	db, p := d.For(c)
	if err := services.DeleteTeamTask(c.Request.Context(), db, p, c.Param("teamId"), c.Param("taskId")); err != nil {
		controller.RespondError(c, "DeleteTeamTask", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}
