package utils

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"slices"
	"strings"

	apperrors "crm-system/pkg/errors"
)

// ValidateUpload checks extension and size of a multipart upload.
func ValidateUpload(fileHeader *multipart.FileHeader, allowedExt []string, maxSizeMB int64) error {
	if fileHeader == nil {
		return apperrors.NewValidationError("file is required", nil)
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !slices.Contains(allowedExt, ext) {
		return apperrors.NewValidationError(
			fmt.Sprintf("unsupported file type %q, allowed: %s", ext, strings.Join(allowedExt, ", ")), nil)
	}
	if maxSizeMB > 0 && fileHeader.Size > maxSizeMB*1024*1024 {
		return apperrors.NewValidationError(
			fmt.Sprintf("file size (%d KB) exceeds the %d MB limit", fileHeader.Size/1024, maxSizeMB), nil)
	}
	return nil
}
