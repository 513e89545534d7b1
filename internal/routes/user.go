package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"crm-system/internal/controllers"
	"crm-system/internal/entities"
	"crm-system/pkg/middleware"
)

func runUserRouter(secureGroup *echo.Group, userCtrl *controllers.UserController, logger *zap.Logger) {
	// Agents may still read and edit themselves; the service enforces the rest.
	managers := middleware.RequireRole(logger, entities.RoleAdmin, entities.RoleManager)

	secureGroup.GET("/users", userCtrl.GetUsers)
	secureGroup.POST("/users", userCtrl.CreateUser, managers)
	secureGroup.GET("/users/:id", userCtrl.FindUser)
	secureGroup.PUT("/users/:id", userCtrl.UpdateUser)
	secureGroup.DELETE("/users/:id", userCtrl.DeleteUser, managers)
}
