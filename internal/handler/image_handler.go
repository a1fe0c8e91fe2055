package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/JulietLog/JulietLog-back/internal/app/storage"
	"github.com/JulietLog/JulietLog-back/internal/pkg/auth/jwt"
	"github.com/JulietLog/JulietLog-back/internal/pkg/errs"
	"github.com/JulietLog/JulietLog-back/internal/pkg/req"
	"github.com/JulietLog/JulietLog-back/internal/pkg/resp"
)

// PresignImageInput defines the JSON input structure for generating an upload URL.
type PresignImageInput struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
}

// HandlePresignImageUpload generates a time-limited presigned URL for
// uploading a post image or avatar. Keys are namespaced per user.
func HandlePresignImageUpload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input PresignImageInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := storage.ValidateImageSize(input.FileSize); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := storage.ValidateImageType(input.FileName, input.MimeType); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		fileExt := strings.ToLower(filepath.Ext(input.FileName))
		imageKey := fmt.Sprintf("images/%d/%s%s", identity.UserID, uuid.New().String(), fileExt)

		url, err := deps.ImageStorage.PresignUpload(
			r.Context(),
			imageKey,
			input.MimeType,
			input.FileSize,
			storage.PresignedURLDuration,
		)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"presignedUrl": url,
			"imageKey":     imageKey,
			"fileName":     input.FileName,
		})
	}
}

// HandlePresignImageDownload redirects to a time-limited download URL for an
// image key. Only keys under the image namespace are served.
func HandlePresignImageDownload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		imageKey := r.URL.Query().Get("k")
		if imageKey == "" || !strings.HasPrefix(imageKey, "images/") {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		url, err := deps.ImageStorage.PresignDownload(r.Context(), imageKey, storage.PresignedURLDuration)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		http.Redirect(w, r, url, http.StatusFound)
	}
}
