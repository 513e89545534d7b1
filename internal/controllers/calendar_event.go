package controllers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"crm-system/internal/dto"
	"crm-system/internal/services"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/utils"
)

type CalendarEventController struct {
	service services.CalendarEventServiceInterface
	logger  *zap.Logger
}

func NewCalendarEventController(service services.CalendarEventServiceInterface, logger *zap.Logger) *CalendarEventController {
	return &CalendarEventController{service: service, logger: logger}
}

// parseRangeBound accepts RFC 3339 or a bare date (midnight UTC).
func parseRangeBound(value, name string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &t, nil
	}
	return nil, apperrors.NewValidationError("invalid '"+name+"', expected RFC 3339 or YYYY-MM-DD", nil)
}

func (c *CalendarEventController) GetEvents(ctx echo.Context) error {
	from, err := parseRangeBound(ctx.QueryParam("from"), "from")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	to, err := parseRangeBound(ctx.QueryParam("to"), "to")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	events, err := c.service.GetEvents(ctx.Request().Context(), from, to)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, events, "Events retrieved", http.StatusOK)
}

func (c *CalendarEventController) FindEvent(ctx echo.Context) error {
	id, err := utils.ParseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	event, err := c.service.FindEvent(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, event, "Event retrieved", http.StatusOK)
}

func (c *CalendarEventController) CreateEvent(ctx echo.Context) error {
	var d dto.CreateEventDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	event, err := c.service.CreateEvent(ctx.Request().Context(), d)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, event, "Event created", http.StatusCreated)
}

func (c *CalendarEventController) UpdateEvent(ctx echo.Context) error {
	id, err := utils.ParseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	var d dto.UpdateEventDTO
	rawBody, err := bindPatch(ctx, &d)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	event, err := c.service.UpdateEvent(ctx.Request().Context(), id, d, rawBody)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, event, "Event updated", http.StatusOK)
}

func (c *CalendarEventController) DeleteEvent(ctx echo.Context) error {
	id, err := utils.ParseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	if err := c.service.DeleteEvent(ctx.Request().Context(), id); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, struct{}{}, "Event deleted", http.StatusOK)
}
