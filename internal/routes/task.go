package routes

import (
	"github.com/labstack/echo/v4"

	"crm-system/internal/controllers"
)

func runTaskRouter(secureGroup *echo.Group, ctrl *controllers.TaskController) {
	secureGroup.GET("/tasks", ctrl.GetTasks)
	secureGroup.POST("/tasks", ctrl.CreateTask)
	secureGroup.GET("/tasks/:id", ctrl.FindTask)
	secureGroup.PUT("/tasks/:id", ctrl.UpdateTask)
	secureGroup.DELETE("/tasks/:id", ctrl.DeleteTask)
}
