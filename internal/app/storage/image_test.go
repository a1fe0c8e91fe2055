package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JulietLog/JulietLog-back/internal/pkg/errs"
)

func TestValidateImageSize(t *testing.T) {
	assert.Nil(t, ValidateImageSize(1024))
	assert.Nil(t, ValidateImageSize(MaxImageSize))

	customErr := ValidateImageSize(0)
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrInvalidParams, customErr.Code)

	customErr = ValidateImageSize(MaxImageSize + 1)
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrFileSizeTooLarge, customErr.Code)
}

func TestValidateImageType(t *testing.T) {
	assert.Nil(t, ValidateImageType("photo.jpg", "image/jpeg"))
	assert.Nil(t, ValidateImageType("photo.PNG", "IMAGE/PNG"))

	customErr := ValidateImageType("document.pdf", "application/pdf")
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrFileTypeInvalid, customErr.Code)

	// Extension and MIME type must agree.
	customErr = ValidateImageType("photo.png", "image/jpeg")
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrFileTypeInvalid, customErr.Code)

	customErr = ValidateImageType("noextension", "image/jpeg")
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrInvalidParams, customErr.Code)
}
