/*
Package main is the entry point for the JulietLog backend.

It is responsible for loading configuration, initializing the global logging
system, connecting Postgres and Redis, starting the discussion coordinator,
setting up the HTTP server, and gracefully handling operating system interrupt
signals (SIGINT, SIGTERM) to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/JulietLog/JulietLog-back/internal/app/db"
	"github.com/JulietLog/JulietLog-back/internal/app/discussion"
	"github.com/JulietLog/JulietLog-back/internal/app/mail"
	"github.com/JulietLog/JulietLog-back/internal/app/presence"
	"github.com/JulietLog/JulietLog-back/internal/app/session"
	"github.com/JulietLog/JulietLog-back/internal/app/storage"
	"github.com/JulietLog/JulietLog-back/internal/app/store"
	"github.com/JulietLog/JulietLog-back/internal/configs"
	"github.com/JulietLog/JulietLog-back/internal/handler"
	"github.com/JulietLog/JulietLog-back/internal/pkg/logx"
)

func main() {
	// A missing .env file is fine; configuration falls back to the process
	// environment.
	_ = godotenv.Load()

	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to connect to Postgres")
	}
	defer pool.Close()

	redisClient, err := presence.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logx.Fatal(err, "Failed to connect to Redis")
	}
	defer redisClient.Close()

	presenceStore := presence.NewStore(presence.NewRedisKV(redisClient))
	dataStore := store.NewStore(pool)

	imageStorage, err := storage.NewImageStorage(storage.ServiceConfig{
		S3BucketName:      cfg.S3BucketName,
		S3Endpoint:        cfg.S3Endpoint,
		S3AccessKeyID:     cfg.S3AccessKeyID,
		S3SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		logx.Fatal(err, "Failed to initialize image storage")
	}

	coordinator := discussion.NewCoordinator(dataStore, presenceStore)

	deps := &handler.AppDeps{
		Config:        cfg,
		Store:         dataStore,
		Presence:      presenceStore,
		Coordinator:   coordinator,
		Authenticator: session.NewAuthenticator(cfg.JWTSecret),
		ImageStorage:  imageStorage,
		Mailer:        mail.NewSendgridMailer(cfg.SendgridAPIKey, cfg.MailSender),
	}

	router := handler.Router(deps)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("JulietLog Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	coordinator.Shutdown()

	logx.Info("Server gracefully stopped.")
}
