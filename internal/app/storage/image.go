package storage

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/JulietLog/JulietLog-back/internal/pkg/errs"
)

const (
	// MaxImageSizeMB is the maximum allowed image size in megabytes.
	MaxImageSizeMB = 5

	// MaxImageSize is the maximum allowed image size in bytes.
	MaxImageSize = MaxImageSizeMB * 1024 * 1024

	// PresignedURLDuration is the fixed duration for which a presigned URL is valid.
	PresignedURLDuration = 5 * time.Minute
)

// AllowedMIMETypes defines the set of permitted MIME types for uploaded images.
var AllowedMIMETypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

// ExtToMIME maps file extensions to their corresponding MIME types.
var ExtToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// ValidateImageSize checks if the provided image size is within acceptable limits.
func ValidateImageSize(fileSize int64) *errs.CustomError {
	if fileSize <= 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if fileSize > MaxImageSize {
		return errs.NewError(errs.ErrFileSizeTooLarge)
	}

	return nil
}

// ValidateImageType checks if the provided file name and MIME type are allowed
// and consistent with each other.
func ValidateImageType(fileName string, mimeType string) *errs.CustomError {
	lowerMimeType := strings.ToLower(mimeType)

	if _, ok := AllowedMIMETypes[lowerMimeType]; !ok {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" || len(ext) < 2 {
		return errs.NewError(errs.ErrInvalidParams)
	}

	expectedMIME, ok := ExtToMIME[ext]
	if !ok {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	if expectedMIME != lowerMimeType {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	return nil
}
