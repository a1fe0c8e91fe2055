package handler

import (
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/JulietLog/JulietLog-back/internal/app/db"
	"github.com/JulietLog/JulietLog-back/internal/pkg/auth/jwt"
	"github.com/JulietLog/JulietLog-back/internal/pkg/errs"
	"github.com/JulietLog/JulietLog-back/internal/pkg/logx"
	"github.com/JulietLog/JulietLog-back/internal/pkg/req"
	"github.com/JulietLog/JulietLog-back/internal/pkg/resp"
)

const maxDiscussionTitleLen = 100

type DiscussionInput struct {
	Title string `json:"title"`
}

// HandleCreateDiscussion persists a new discussion owned by the caller.
// The room itself spins up lazily on the first socket join.
func HandleCreateDiscussion(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input DiscussionInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.Title == "" || utf8.RuneCountInString(input.Title) > maxDiscussionTitleLen {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		d, err := deps.Store.CreateDiscussion(r.Context(), identity.UserID, input.Title)
		if err != nil {
			logx.Error(err, "Failed to create discussion", "user_id", identity.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"discussion": d})
	}
}

// HandleUpdateDiscussion renames a discussion. Author only.
func HandleUpdateDiscussion(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		discussionID, err := strconv.ParseInt(chi.URLParam(r, "discussionId"), 10, 64)
		if err != nil || discussionID <= 0 {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		var input DiscussionInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.Title == "" || utf8.RuneCountInString(input.Title) > maxDiscussionTitleLen {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		d, err := deps.Store.GetDiscussion(r.Context(), discussionID)
		if db.IsNoRows(err) {
			resp.RespondError(w, r, errs.NewError(errs.ErrDiscussionNotFound))
			return
		}
		if err != nil {
			logx.Error(err, "Failed to fetch discussion", "discussion_id", discussionID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if d.AuthorID != identity.UserID {
			resp.RespondError(w, r, errs.NewError(errs.ErrNotDiscussionAuthor))
			return
		}

		if err := deps.Store.UpdateDiscussionTitle(r.Context(), discussionID, input.Title); err != nil {
			logx.Error(err, "Failed to update discussion", "discussion_id", discussionID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}
