package routes

import (
	"github.com/labstack/echo/v4"

	"crm-system/internal/controllers"
)

func runLeadRouter(secureGroup *echo.Group, leadCtrl *controllers.LeadController, importCtrl *controllers.LeadImportController) {
	leads := secureGroup.Group("/leads")
	{
		leads.GET("", leadCtrl.GetLeads)
		leads.POST("", leadCtrl.CreateLead)
		// Static segments before :id.
		leads.POST("/import/excel", importCtrl.ImportExcel)
		leads.GET("/template/excel", importCtrl.DownloadTemplate)
		leads.GET("/:id", leadCtrl.FindLead)
		leads.PUT("/:id", leadCtrl.UpdateLead)
		leads.PATCH("/:id/status", leadCtrl.UpdateStatus)
		leads.DELETE("/:id", leadCtrl.DeleteLead)
	}
}
