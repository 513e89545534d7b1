package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "crm-system/pkg/errors"
)

// bindPatch reads the raw body once, decodes it into d and validates it.
// The raw bytes go to the service, which needs to know which keys were sent.
func bindPatch(ctx echo.Context, d interface{}) ([]byte, error) {
	rawBody, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return nil, apperrors.NewHttpError(http.StatusBadRequest, "could not read request body", err, nil)
	}
	ctx.Request().Body = io.NopCloser(bytes.NewBuffer(rawBody))

	if err := json.Unmarshal(rawBody, d); err != nil {
		return nil, apperrors.NewHttpError(http.StatusBadRequest, "invalid JSON body", err, nil)
	}
	if err := ctx.Validate(d); err != nil {
		return nil, err
	}
	return rawBody, nil
}

func bindAndValidate(ctx echo.Context, d interface{}) error {
	if err := ctx.Bind(d); err != nil {
		return apperrors.NewHttpError(http.StatusBadRequest, "invalid request data", err, nil)
	}
	return ctx.Validate(d)
}
