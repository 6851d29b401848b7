package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/arena-engine/config"
	"github.com/Dosada05/arena-engine/db"
	"github.com/Dosada05/arena-engine/handlers"
	"github.com/Dosada05/arena-engine/middleware"
	"github.com/Dosada05/arena-engine/notify"
	"github.com/Dosada05/arena-engine/repositories"
	api "github.com/Dosada05/arena-engine/routes"
	"github.com/Dosada05/arena-engine/services"
	"github.com/Dosada05/arena-engine/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	var uploader storage.FileUploader
	if cfg.R2Configured() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		uploader = storage.NewNoopUploader()
		logger.Warn("R2 settings absent, team logo uploads disabled")
	}

	hub := notify.NewHub(logger)
	go hub.Run()
	logger.Info("notification hub started")

	eventRepo := repositories.NewPostgresEventRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)

	locker := services.NewEventLocker(cfg.LockTimeout)

	lifecycleService := services.NewLifecycleService(
		dbConn, eventRepo, teamRepo, matchRepo, locker, hub, logger, cfg.MinTeamsForSwiss)
	matchService := services.NewMatchService(
		dbConn, eventRepo, teamRepo, matchRepo, locker, hub, logger)
	teamService := services.NewTeamService(eventRepo, teamRepo, uploader, logger)
	queueService := services.NewQueueService(
		dbConn, eventRepo, teamRepo, matchRepo, locker, hub, logger)
	logger.Info("services initialized")

	// Matchmaking scheduler: pairs queued teams on every tick for all
	// events currently in the queueing phase.
	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	go func() {
		ticker := time.NewTicker(cfg.QueueInterval)
		defer ticker.Stop()
		logger.Info("queue matchmaking scheduler started", slog.Duration("interval", cfg.QueueInterval))
		for {
			select {
			case <-schedulerCtx.Done():
				return
			case <-ticker.C:
				if err := queueService.RunOnce(schedulerCtx); err != nil {
					logger.Error("queue matchmaking run failed", slog.Any("error", err))
				}
			}
		}
	}()

	auth := middleware.NewAuth(cfg.JWTSecretKey, cfg.TokenTTL)
	authHandler := handlers.NewAuthHandler(auth, cfg.AdminPasswordHash)
	eventHandler := handlers.NewEventHandler(lifecycleService)
	teamHandler := handlers.NewTeamHandler(teamService)
	matchHandler := handlers.NewMatchHandler(matchService)
	webSocketHandler := handlers.NewWebSocketHandler(hub, lifecycleService, logger)

	router := chi.NewRouter()
	api.SetupRoutes(router, auth, authHandler, eventHandler, teamHandler, matchHandler, webSocketHandler)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		stopScheduler()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
