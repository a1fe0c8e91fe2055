package handler

import (
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/JulietLog/JulietLog-back/internal/app/db"
	"github.com/JulietLog/JulietLog-back/internal/app/store"
	"github.com/JulietLog/JulietLog-back/internal/pkg/auth/jwt"
	"github.com/JulietLog/JulietLog-back/internal/pkg/errs"
	"github.com/JulietLog/JulietLog-back/internal/pkg/logx"
	"github.com/JulietLog/JulietLog-back/internal/pkg/req"
	"github.com/JulietLog/JulietLog-back/internal/pkg/resp"
)

const (
	maxPostTitleLen = 100

	defaultPageSize = 10
	maxPageSize     = 50
)

func postIDParam(r *http.Request) (int64, bool) {
	postID, err := strconv.ParseInt(chi.URLParam(r, "postId"), 10, 64)
	return postID, err == nil && postID > 0
}

func validatePostInput(input store.PostInput) *errs.CustomError {
	if input.Title == "" || utf8.RuneCountInString(input.Title) > maxPostTitleLen {
		return errs.NewError(errs.ErrInvalidParams)
	}
	if input.Content == "" {
		return errs.NewError(errs.ErrInvalidParams)
	}
	return nil
}

// requirePostOwner resolves the post's author and checks it is the caller.
func requirePostOwner(r *http.Request, deps *AppDeps, postID int64, identity *jwt.Payload) *errs.CustomError {
	ownerID, err := deps.Store.GetPostOwner(r.Context(), postID)
	if db.IsNoRows(err) {
		return errs.NewError(errs.ErrPostNotFound)
	}
	if err != nil {
		logx.Error(err, "Failed to resolve post owner", "post_id", postID)
		return errs.NewError(errs.ErrUnknown)
	}

	if ownerID != identity.UserID {
		return errs.NewError(errs.ErrNotPostOwner)
	}

	return nil
}

// HandleCreatePost persists a post with its categories and images.
func HandleCreatePost(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input store.PostInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := validatePostInput(input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		postID, err := deps.Store.CreatePost(r.Context(), identity.UserID, input)
		if err != nil {
			logx.Error(err, "Failed to create post", "user_id", identity.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"postId": postID})
	}
}

// HandleUpdatePost rewrites an owned post.
func HandleUpdatePost(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		postID, ok := postIDParam(r)
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if customErr := requirePostOwner(r, deps, postID, identity); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var input store.PostInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := validatePostInput(input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if err := deps.Store.UpdatePost(r.Context(), postID, input); err != nil {
			logx.Error(err, "Failed to update post", "post_id", postID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}

// HandleDeletePost removes an owned post.
func HandleDeletePost(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		postID, ok := postIDParam(r)
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if customErr := requirePostOwner(r, deps, postID, identity); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if err := deps.Store.DeletePost(r.Context(), postID); err != nil {
			logx.Error(err, "Failed to delete post", "post_id", postID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}

// HandleGetPost hydrates one post, counting the view and resolving the
// caller's like/bookmark flags when authenticated.
func HandleGetPost(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, ok := postIDParam(r)
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		var viewerID int64
		if identity := jwt.GetPayloadFromContext(r); identity != nil {
			viewerID = identity.UserID
		}

		post, err := deps.Store.GetPost(r.Context(), postID, viewerID)
		if db.IsNoRows(err) {
			resp.RespondError(w, r, errs.NewError(errs.ErrPostNotFound))
			return
		}
		if err != nil {
			logx.Error(err, "Failed to fetch post", "post_id", postID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"post": post})
	}
}

// HandleListPosts returns one page of the post feed with a hasMore flag.
// Sorts: newest (default), views, neighbor (authenticated only).
func HandleListPosts(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		page, _ := strconv.Atoi(query.Get("page"))
		if page < 1 {
			page = 1
		}

		size, _ := strconv.Atoi(query.Get("size"))
		if size < 1 {
			size = defaultPageSize
		}
		if size > maxPageSize {
			size = maxPageSize
		}

		sort := query.Get("sort")
		switch sort {
		case "", store.SortNewest:
			sort = store.SortNewest
		case store.SortViews:
		case store.SortNeighbor:
		default:
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		var viewerID int64
		if identity := jwt.GetPayloadFromContext(r); identity != nil {
			viewerID = identity.UserID
		}

		if sort == store.SortNeighbor && viewerID == 0 {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		posts, hasMore, err := deps.Store.ListPosts(r.Context(), store.ListPostsParams{
			ViewerID: viewerID,
			Page:     page,
			Size:     size,
			Sort:     sort,
		})
		if err != nil {
			logx.Error(err, "Failed to list posts", "sort", sort)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"posts":   posts,
			"hasMore": hasMore,
		})
	}
}

// HandleToggleLike flips the caller's like on a post.
func HandleToggleLike(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		postID, ok := postIDParam(r)
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		liked, likeCount, err := deps.Store.ToggleLike(r.Context(), postID, identity.UserID)
		if db.IsNoRows(err) {
			resp.RespondError(w, r, errs.NewError(errs.ErrPostNotFound))
			return
		}
		if err != nil {
			logx.Error(err, "Failed to toggle like", "post_id", postID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"liked":     liked,
			"likeCount": likeCount,
		})
	}
}

// HandleToggleBookmark flips the caller's bookmark on a post.
func HandleToggleBookmark(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		postID, ok := postIDParam(r)
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		bookmarked, err := deps.Store.ToggleBookmark(r.Context(), postID, identity.UserID)
		if err != nil {
			logx.Error(err, "Failed to toggle bookmark", "post_id", postID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"bookmarked": bookmarked})
	}
}
