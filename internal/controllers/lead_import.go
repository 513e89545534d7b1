package controllers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"crm-system/internal/services"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var importExtensions = []string{".xlsx", ".xls"}

type LeadImportController struct {
	service   services.LeadImportServiceInterface
	maxSizeMB int64
	logger    *zap.Logger
}

func NewLeadImportController(service services.LeadImportServiceInterface, maxSizeMB int64, logger *zap.Logger) *LeadImportController {
	return &LeadImportController{service: service, maxSizeMB: maxSizeMB, logger: logger}
}

func (c *LeadImportController) ImportExcel(ctx echo.Context) error {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewValidationError("file is required", nil), c.logger)
	}
	if err := utils.ValidateUpload(fileHeader, importExtensions, c.maxSizeMB); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	src, err := fileHeader.Open()
	if err != nil {
		return utils.ErrorResponse(ctx, fmt.Errorf("open upload: %w", err), c.logger)
	}
	defer src.Close()

	result, err := c.service.ImportExcel(ctx.Request().Context(), src)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	message := fmt.Sprintf("Imported %d of %d rows", result.Summary.Imported, result.Summary.Total)
	return utils.SuccessResponse(ctx, result, message, http.StatusOK)
}

func (c *LeadImportController) DownloadTemplate(ctx echo.Context) error {
	buf, err := c.service.Template()
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="leads_template.xlsx"`)
	return ctx.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}
