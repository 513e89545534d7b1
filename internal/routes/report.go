package routes

import (
	"github.com/labstack/echo/v4"

	"crm-system/internal/controllers"
)

func runReportRouter(secureGroup *echo.Group, ctrl *controllers.ReportController) {
	secureGroup.GET("/reports/leads", ctrl.LeadReport)
}
