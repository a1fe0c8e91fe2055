package handler

import (
	"github.com/JulietLog/JulietLog-back/internal/app/discussion"
	"github.com/JulietLog/JulietLog-back/internal/app/mail"
	"github.com/JulietLog/JulietLog-back/internal/app/presence"
	"github.com/JulietLog/JulietLog-back/internal/app/session"
	"github.com/JulietLog/JulietLog-back/internal/app/storage"
	"github.com/JulietLog/JulietLog-back/internal/app/store"
	"github.com/JulietLog/JulietLog-back/internal/configs"
)

// AppDeps bundles the shared dependencies injected into every handler.
type AppDeps struct {
	Config        *configs.AppConfig
	Store         *store.Store
	Presence      *presence.Store
	Coordinator   *discussion.Coordinator
	Authenticator *session.Authenticator
	ImageStorage  storage.ImageStorage
	Mailer        mail.Mailer
}
