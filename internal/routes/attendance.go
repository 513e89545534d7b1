package routes

import (
	"github.com/labstack/echo/v4"

	"crm-system/internal/controllers"
)

func runAttendanceRouter(secureGroup *echo.Group, ctrl *controllers.AttendanceController) {
	attendance := secureGroup.Group("/attendance")
	{
		attendance.POST("/clock-in", ctrl.ClockIn)
		attendance.PATCH("/clock-out", ctrl.ClockOut)
		attendance.POST("/clock-out", ctrl.ClockOut)
		attendance.GET("/status", ctrl.Status)
		attendance.GET("/history", ctrl.History)
		attendance.GET("/report", ctrl.Report)
	}
}
