package controllers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"crm-system/internal/dto"
	"crm-system/internal/services"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/utils"
)

type AttendanceController struct {
	service services.AttendanceServiceInterface
	logger  *zap.Logger
}

func NewAttendanceController(service services.AttendanceServiceInterface, logger *zap.Logger) *AttendanceController {
	return &AttendanceController{service: service, logger: logger}
}

func (c *AttendanceController) ClockIn(ctx echo.Context) error {
	var d dto.ClockDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	record, err := c.service.ClockIn(ctx.Request().Context(), d.Notes)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, record, "Clocked in", http.StatusCreated)
}

func (c *AttendanceController) ClockOut(ctx echo.Context) error {
	var d dto.ClockDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	record, err := c.service.ClockOut(ctx.Request().Context(), d.Notes)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, record, "Clocked out", http.StatusOK)
}

func (c *AttendanceController) Status(ctx echo.Context) error {
	record, err := c.service.Status(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	if record == nil {
		return utils.SuccessResponse(ctx, nil, "Not clocked in", http.StatusOK)
	}
	return utils.SuccessResponse(ctx, record, "Clocked in", http.StatusOK)
}

func (c *AttendanceController) bindQuery(ctx echo.Context) (dto.AttendanceQuery, error) {
	var q dto.AttendanceQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(ctx, &q); err != nil {
		return q, apperrors.NewHttpError(http.StatusBadRequest, "invalid query parameters", err, nil)
	}
	if err := ctx.Validate(&q); err != nil {
		return q, err
	}
	if q.From != "" && q.To != "" && q.From > q.To {
		return q, apperrors.NewValidationError("'from' must not be after 'to'", nil)
	}
	return q, nil
}

func (c *AttendanceController) History(ctx echo.Context) error {
	q, err := c.bindQuery(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	records, err := c.service.History(ctx.Request().Context(), q)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, records, "Attendance history", http.StatusOK)
}

func (c *AttendanceController) Report(ctx echo.Context) error {
	q, err := c.bindQuery(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	report, err := c.service.Report(ctx.Request().Context(), q)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", report.FileName))
	return ctx.Blob(http.StatusOK, report.ContentType, report.Content.Bytes())
}
