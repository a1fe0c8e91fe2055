/*
Package handler provides the HTTP handlers and routing setup for the JulietLog backend.
*/
package handler

import (
	"net/http"
	"regexp"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/JulietLog/JulietLog-back/internal/app/db"
	"github.com/JulietLog/JulietLog-back/internal/app/presence"
	"github.com/JulietLog/JulietLog-back/internal/app/store"
	"github.com/JulietLog/JulietLog-back/internal/pkg/auth/jwt"
	"github.com/JulietLog/JulietLog-back/internal/pkg/errs"
	"github.com/JulietLog/JulietLog-back/internal/pkg/logx"
	"github.com/JulietLog/JulietLog-back/internal/pkg/randx"
	"github.com/JulietLog/JulietLog-back/internal/pkg/req"
	"github.com/JulietLog/JulietLog-back/internal/pkg/resp"
)

var (
	emailRegex    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	nicknameRegex = regexp.MustCompile(`^[\p{L}0-9_]{2,20}$`)
)

func validPassword(password string) bool {
	length := utf8.RuneCountInString(password)
	return length >= 8 && length <= 50
}

// issueTokenPair generates the access/refresh pair for an account and stores
// the refresh token in Redis under the user ID.
func issueTokenPair(r *http.Request, deps *AppDeps, account store.Account) (map[string]any, *errs.CustomError) {
	accessToken, err := jwt.GenerateToken(&jwt.Payload{
		UserID:    account.UserID,
		Nickname:  account.Nickname,
		TokenType: jwt.TypeAccess,
	}, deps.Config.JWTSecret, jwt.AccessExpiration)
	if err != nil {
		logx.Error(err, "Failed to generate access token", "user_id", account.UserID)
		return nil, errs.NewError(errs.ErrUnknown)
	}

	refreshToken, err := jwt.GenerateToken(&jwt.Payload{
		UserID:    account.UserID,
		Nickname:  account.Nickname,
		TokenType: jwt.TypeRefresh,
	}, deps.Config.JWTSecret, jwt.RefreshExpiration)
	if err != nil {
		logx.Error(err, "Failed to generate refresh token", "user_id", account.UserID)
		return nil, errs.NewError(errs.ErrUnknown)
	}

	if err := deps.Presence.SetRefreshToken(r.Context(), account.UserID, refreshToken); err != nil {
		logx.Error(err, "Failed to store refresh token", "user_id", account.UserID)
		return nil, errs.NewError(errs.ErrUnknown)
	}

	return map[string]any{
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
		"user": map[string]any{
			"userId":   account.UserID,
			"email":    account.Email,
			"nickname": account.Nickname,
			"imageUrl": account.ImageURL,
		},
	}, nil
}

type SignupInput struct {
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

// HandleSignup creates a new account and logs it in.
func HandleSignup(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input SignupInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if !emailRegex.MatchString(input.Email) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}
		if !nicknameRegex.MatchString(input.Nickname) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}
		if !validPassword(input.Password) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidPassword))
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		// Pre-checks give the client a precise conflict reason; the unique
		// constraints remain the backstop for races.
		if taken, err := deps.Store.EmailExists(r.Context(), input.Email); err == nil && taken {
			resp.RespondError(w, r, errs.NewError(errs.ErrEmailExists))
			return
		}
		if taken, err := deps.Store.NicknameExists(r.Context(), input.Nickname); err == nil && taken {
			resp.RespondError(w, r, errs.NewError(errs.ErrNicknameExists))
			return
		}

		account, err := deps.Store.CreateUser(r.Context(), input.Email, input.Nickname, string(hashedPassword))
		if err != nil {
			if db.IsUniqueViolation(err) {
				logx.Warn("Signup conflict on unique constraint.", "email", input.Email)
				resp.RespondError(w, r, errs.NewError(errs.ErrEmailExists))
				return
			}

			logx.Error(err, "Failed to create user in database")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		data, customErr := issueTokenPair(r, deps, account)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, data)
	}
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin verifies credentials and issues the access/refresh token pair.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input LoginInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		account, err := deps.Store.GetAccountByEmail(r.Context(), input.Email)
		if err != nil {
			logx.Warn("Login failed: account fetch.", "email", input.Email)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		if account.LoginType != store.LoginTypeLocal {
			resp.RespondError(w, r, errs.NewError(errs.ErrSocialLoginOnly))
			return
		}

		hash, err := deps.Store.GetPasswordHash(r.Context(), account.UserID)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(input.Password)); err != nil {
			logx.Warn("Login failed: password mismatch.", "email", input.Email)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		data, customErr := issueTokenPair(r, deps, account)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, data)
	}
}

// HandleLogout invalidates the caller's refresh token.
func HandleLogout(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		if err := deps.Presence.DeleteRefreshToken(r.Context(), identity.UserID); err != nil {
			logx.Error(err, "Failed to delete refresh token", "user_id", identity.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}

// HandleEmailExists reports whether an account uses the email path parameter.
func HandleEmailExists(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := chi.URLParam(r, "email")
		if !emailRegex.MatchString(email) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		exists, err := deps.Store.EmailExists(r.Context(), email)
		if err != nil {
			logx.Error(err, "Email existence check failed")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"exists": exists})
	}
}

// HandleNicknameExists reports whether a profile uses the nickname path parameter.
func HandleNicknameExists(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nickname := chi.URLParam(r, "nickname")
		if !nicknameRegex.MatchString(nickname) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		exists, err := deps.Store.NicknameExists(r.Context(), nickname)
		if err != nil {
			logx.Error(err, "Nickname existence check failed")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"exists": exists})
	}
}

type PasswordResetInput struct {
	Email string `json:"email"`
}

// HandlePasswordReset mails a short verification code to the account's email
// and stores it with a TTL for the verify step.
func HandlePasswordReset(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input PasswordResetInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		account, err := deps.Store.GetAccountByEmail(r.Context(), input.Email)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
			return
		}

		if account.LoginType != store.LoginTypeLocal {
			resp.RespondError(w, r, errs.NewError(errs.ErrSocialLoginOnly))
			return
		}

		code, err := randx.VerificationCode()
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if err := deps.Presence.SetVerificationCode(r.Context(), input.Email, code); err != nil {
			logx.Error(err, "Failed to store verification code")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if err := deps.Mailer.SendVerificationCode(r.Context(), input.Email, code); err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrMailDeliveryFailed))
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}

type PasswordVerifyInput struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// HandlePasswordVerify checks the mailed code and, on match, replaces the
// account password with a generated temporary one returned to the caller.
func HandlePasswordVerify(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input PasswordVerifyInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		stored, err := deps.Presence.GetVerificationCode(r.Context(), input.Email)
		if err != nil && err != presence.ErrNotFound {
			logx.Error(err, "Failed to fetch verification code")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}
		if err == presence.ErrNotFound || stored != input.Code {
			resp.RespondError(w, r, errs.NewError(errs.ErrVerificationCodeMismatch))
			return
		}

		account, err := deps.Store.GetAccountByEmail(r.Context(), input.Email)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
			return
		}

		tempPassword, err := randx.TempPassword()
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if err := deps.Store.UpdatePassword(r.Context(), account.UserID, string(hashedPassword)); err != nil {
			logx.Error(err, "Failed to set temporary password", "user_id", account.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if err := deps.Presence.DeleteVerificationCode(r.Context(), input.Email); err != nil {
			logx.Warn("Failed to drop consumed verification code.", "email", input.Email)
		}

		resp.RespondSuccess(w, r, map[string]any{
			"password": tempPassword,
		})
	}
}
