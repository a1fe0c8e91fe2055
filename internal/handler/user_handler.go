package handler

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/JulietLog/JulietLog-back/internal/app/db"
	"github.com/JulietLog/JulietLog-back/internal/pkg/auth/jwt"
	"github.com/JulietLog/JulietLog-back/internal/pkg/errs"
	"github.com/JulietLog/JulietLog-back/internal/pkg/logx"
	"github.com/JulietLog/JulietLog-back/internal/pkg/req"
	"github.com/JulietLog/JulietLog-back/internal/pkg/resp"
)

// HandleGetMe returns the authenticated account with its profile.
func HandleGetMe(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		account, err := deps.Store.GetAccountByID(r.Context(), identity.UserID)
		if err != nil {
			logx.Warn("Account fetch failed for authenticated user.", "user_id", identity.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"user": account})
	}
}

type UpdateProfileInput struct {
	Nickname string `json:"nickname"`
	ImageURL string `json:"imageUrl"`
}

// HandleUpdateMe changes the caller's nickname and/or avatar image. A changed
// nickname invalidates the token's embedded nickname, so a fresh access token
// is returned alongside.
func HandleUpdateMe(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input UpdateProfileInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.Nickname == "" && input.ImageURL == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		nickname := identity.Nickname

		if input.Nickname != "" && input.Nickname != identity.Nickname {
			if !nicknameRegex.MatchString(input.Nickname) {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}

			if err := deps.Store.UpdateNickname(r.Context(), identity.UserID, input.Nickname); err != nil {
				if db.IsUniqueViolation(err) {
					resp.RespondError(w, r, errs.NewError(errs.ErrNicknameExists))
					return
				}

				logx.Error(err, "Failed to update nickname", "user_id", identity.UserID)
				resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
				return
			}

			nickname = input.Nickname
		}

		if input.ImageURL != "" {
			if err := deps.Store.UpdateImageURL(r.Context(), identity.UserID, input.ImageURL); err != nil {
				logx.Error(err, "Failed to update profile image", "user_id", identity.UserID)
				resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
				return
			}
		}

		account, err := deps.Store.GetAccountByID(r.Context(), identity.UserID)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		data := map[string]any{"user": account}

		if nickname != identity.Nickname {
			token, err := jwt.GenerateToken(&jwt.Payload{
				UserID:    identity.UserID,
				Nickname:  nickname,
				TokenType: jwt.TypeAccess,
			}, deps.Config.JWTSecret, jwt.AccessExpiration)
			if err != nil {
				logx.Error(err, "Failed to reissue access token after nickname change", "user_id", identity.UserID)
			} else {
				data["accessToken"] = token
			}
		}

		resp.RespondSuccess(w, r, data)
	}
}

// HandleDeleteMe removes the caller's account and its refresh token.
func HandleDeleteMe(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		if err := deps.Store.DeleteUser(r.Context(), identity.UserID); err != nil {
			logx.Error(err, "Failed to delete account", "user_id", identity.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if err := deps.Presence.DeleteRefreshToken(r.Context(), identity.UserID); err != nil {
			logx.Warn("Failed to drop refresh token of deleted account.", "user_id", identity.UserID)
		}

		resp.RespondSuccess(w, r, nil)
	}
}

type ChangePasswordInput struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// HandleChangePassword verifies the current password and replaces it.
func HandleChangePassword(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input ChangePasswordInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if !validPassword(input.NewPassword) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidPassword))
			return
		}

		hash, err := deps.Store.GetPasswordHash(r.Context(), identity.UserID)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(input.OldPassword)); err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrOldPasswordInvalid))
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if err := deps.Store.UpdatePassword(r.Context(), identity.UserID, string(hashedPassword)); err != nil {
			logx.Error(err, "Failed to update password", "user_id", identity.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}

type BlockUserInput struct {
	UserID int64 `json:"userId"`
}

// HandleBlockUser puts the target user on the caller's block list.
func HandleBlockUser(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input BlockUserInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.UserID == 0 || input.UserID == identity.UserID {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if _, err := deps.Store.GetAccountByID(r.Context(), input.UserID); err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
			return
		}

		added, err := deps.Store.BlockUser(r.Context(), identity.UserID, input.UserID)
		if err != nil {
			logx.Error(err, "Failed to record block", "user_id", identity.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}
		if !added {
			resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyBlocked))
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}
