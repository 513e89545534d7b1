package routes

import (
	"github.com/labstack/echo/v4"

	"crm-system/internal/controllers"
)

func runCustomerRouter(secureGroup *echo.Group, ctrl *controllers.CustomerController) {
	secureGroup.GET("/customers", ctrl.GetCustomers)
	secureGroup.POST("/customers", ctrl.CreateCustomer)
	secureGroup.GET("/customers/:id", ctrl.FindCustomer)
}
