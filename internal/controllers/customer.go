package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"crm-system/internal/dto"
	"crm-system/internal/services"
	"crm-system/pkg/utils"
)

type CustomerController struct {
	service services.CustomerServiceInterface
	logger  *zap.Logger
}

func NewCustomerController(service services.CustomerServiceInterface, logger *zap.Logger) *CustomerController {
	return &CustomerController{service: service, logger: logger}
}

func (c *CustomerController) GetCustomers(ctx echo.Context) error {
	filter := utils.ParseFilterFromQuery(ctx.Request().URL.Query())
	customers, total, err := c.service.GetCustomers(ctx.Request().Context(), filter)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, customers, "Customers retrieved", http.StatusOK, total)
}

func (c *CustomerController) FindCustomer(ctx echo.Context) error {
	id, err := utils.ParseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	customer, err := c.service.FindCustomer(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, customer, "Customer retrieved", http.StatusOK)
}

func (c *CustomerController) CreateCustomer(ctx echo.Context) error {
	var d dto.CreateCustomerDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	customer, err := c.service.CreateCustomer(ctx.Request().Context(), d)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, customer, "Customer created", http.StatusCreated)
}
