/*
Package handler provides the HTTP handlers and routing setup for the JulietLog backend.

This file defines the main Router, applying necessary middleware like logging,
CORS, and IP-based rate limiting before delegating requests to specific
handlers (API and WebSocket).
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/JulietLog/JulietLog-back/internal/pkg/auth/jwt"
	"github.com/JulietLog/JulietLog-back/internal/pkg/limiter"
	"github.com/JulietLog/JulietLog-back/internal/pkg/logx"
	"github.com/JulietLog/JulietLog-back/internal/pkg/resp"
)

const (
	// AuthRate limits credential endpoints (signup, login, password reset).
	AuthRate  = 0.2
	AuthBurst = 5

	// ConnectRate limits WebSocket upgrade attempts.
	ConnectRate  = 0.5
	ConnectBurst = 10
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It initializes IP-based rate limiters, configures CORS, and applies global
// and per-route middleware.
func Router(deps *AppDeps) http.Handler {
	authLimiter := limiter.NewIPRateLimiter(rate.Limit(AuthRate), AuthBurst)
	connectLimiter := limiter.NewIPRateLimiter(rate.Limit(ConnectRate), ConnectBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.Environment == "development" {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.Environment == "development" {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]string{
			"status":  "ok",
			"service": "JulietLog Server",
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/signup", authLimiter.Middleware(HandleSignup(deps)).ServeHTTP)
			auth.Post("/login", authLimiter.Middleware(HandleLogin(deps)).ServeHTTP)
			auth.Post("/logout", HandleLogout(deps))
			auth.Get("/email/{email}/exists", HandleEmailExists(deps))
			auth.Get("/nickname/{nickname}/exists", HandleNicknameExists(deps))
			auth.Post("/password/reset", authLimiter.Middleware(HandlePasswordReset(deps)).ServeHTTP)
			auth.Post("/password/verify", authLimiter.Middleware(HandlePasswordVerify(deps)).ServeHTTP)
		})

		api.Route("/users", func(users chi.Router) {
			users.Get("/me", HandleGetMe(deps))
			users.Patch("/me", HandleUpdateMe(deps))
			users.Delete("/me", HandleDeleteMe(deps))
			users.Patch("/me/password", HandleChangePassword(deps))
			users.Post("/block", HandleBlockUser(deps))
		})

		api.Route("/posts", func(posts chi.Router) {
			posts.Get("/", HandleListPosts(deps))
			posts.Post("/", HandleCreatePost(deps))
			posts.Get("/{postId}", HandleGetPost(deps))
			posts.Patch("/{postId}", HandleUpdatePost(deps))
			posts.Delete("/{postId}", HandleDeletePost(deps))
			posts.Post("/{postId}/like", HandleToggleLike(deps))
			posts.Post("/{postId}/bookmark", HandleToggleBookmark(deps))
		})

		api.Route("/images", func(images chi.Router) {
			images.Post("/presign", HandlePresignImageUpload(deps))
			images.Get("/presign-download", HandlePresignImageDownload(deps))
		})

		api.Route("/discussions", func(discussions chi.Router) {
			discussions.Post("/", HandleCreateDiscussion(deps))
			discussions.Patch("/{discussionId}", HandleUpdateDiscussion(deps))
		})
	})

	r.Get("/ws/discussions", HandleWebSocket(wsUpgrader, connectLimiter, deps))

	return r
}
