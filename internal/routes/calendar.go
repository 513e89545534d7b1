package routes

import (
	"github.com/labstack/echo/v4"

	"crm-system/internal/controllers"
)

func runCalendarRouter(secureGroup *echo.Group, ctrl *controllers.CalendarEventController) {
	events := secureGroup.Group("/calendar/events")
	{
		events.GET("", ctrl.GetEvents)
		events.POST("", ctrl.CreateEvent)
		events.GET("/:id", ctrl.FindEvent)
		events.PUT("/:id", ctrl.UpdateEvent)
		events.DELETE("/:id", ctrl.DeleteEvent)
	}
}
