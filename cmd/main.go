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

	_ "github.com/lib/pq"

	"github.com/sivert-io/matchzy-auto-tournament-sub003/config"
	"github.com/sivert-io/matchzy-auto-tournament-sub003/db"
	"github.com/sivert-io/matchzy-auto-tournament-sub003/gameserver"
	"github.com/sivert-io/matchzy-auto-tournament-sub003/handlers"
	"github.com/sivert-io/matchzy-auto-tournament-sub003/repositories"
	"github.com/sivert-io/matchzy-auto-tournament-sub003/routes"
	"github.com/sivert-io/matchzy-auto-tournament-sub003/services"
	"github.com/sivert-io/matchzy-auto-tournament-sub003/storage"
	"github.com/sivert-io/matchzy-auto-tournament-sub003/ws"
)

const migrationsDir = "migrations"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

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

	if err := db.RunMigrations(dbConn, migrationsDir); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("migrations applied")

	// Demo storage is optional: without R2 credentials uploads return 503 but
	// everything else works.
	var uploader storage.FileUploader
	if cfg.R2Configured() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize demo storage", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("demo storage initialized")
	} else {
		logger.Warn("demo storage not configured, uploads disabled")
	}

	wsHub := ws.NewHub(logger)
	go wsHub.Run()
	logger.Info("websocket hub started")

	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	serverRepo := repositories.NewPostgresServerRepository(dbConn)
	eventRepo := repositories.NewPostgresEventRepository(dbConn)

	rconClient := gameserver.NewClient(serverRepo, cfg.RconTimeout, logger)

	bracketService := services.NewBracketService(dbConn, matchRepo, logger)
	progressionService := services.NewProgressionService(tournamentRepo, matchRepo, wsHub, logger)
	tournamentService := services.NewTournamentService(
		tournamentRepo, matchRepo, teamRepo, bracketService, progressionService, wsHub, logger)
	matchService := services.NewMatchService(matchRepo, serverRepo, rconClient, wsHub, cfg.PublicURL, logger)
	configService := services.NewMatchConfigService(tournamentRepo, matchRepo, teamRepo, logger)
	eventService := services.NewEventService(
		tournamentRepo, matchRepo, eventRepo, progressionService, rconClient, wsHub, logger)
	logger.Info("services initialized")

	// Catch up on anything missed while the process was down.
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	if results, err := eventService.RecoverActiveMatches(startupCtx); err != nil {
		logger.Error("startup recovery failed", slog.Any("error", err))
	} else {
		for _, res := range results {
			logger.Info("startup recovery",
				slog.String("match", res.MatchSlug),
				slog.Bool("applied", res.Applied),
				slog.String("reason", res.Reason))
		}
	}
	cancelStartup()

	router := routes.InitRoutes(routes.Handlers{
		Auth:       handlers.NewAuthHandler(cfg.AdminPasswordHash, cfg.JWTSecretKey, logger),
		Tournament: handlers.NewTournamentHandler(tournamentService, eventService, logger),
		Match:      handlers.NewMatchHandler(matchService, configService, eventService, progressionService, logger),
		Team:       handlers.NewTeamHandler(teamRepo, logger),
		Server:     handlers.NewServerHandler(serverRepo, logger),
		Webhook:    handlers.NewWebhookHandler(eventService, logger),
		Demo:       handlers.NewDemoHandler(matchService, uploader, logger),
		WebSocket:  handlers.NewWebSocketHandler(wsHub, logger),
	}, cfg.WebhookSecret, cfg.JWTSecretKey)
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
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
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
}
