package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/filestorebot/filestorebot/internal/background"
	"github.com/filestorebot/filestorebot/internal/config"
	"github.com/filestorebot/filestorebot/internal/database"
	"github.com/filestorebot/filestorebot/internal/httpapi"
	"github.com/filestorebot/filestorebot/internal/reference"
	"github.com/filestorebot/filestorebot/internal/repositories"
	"github.com/filestorebot/filestorebot/internal/services"
	"github.com/filestorebot/filestorebot/internal/telegram"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		slog.Bool("verify_enabled", cfg.Access.VerifyEnabled),
		slog.Int64("channel_id", cfg.Bot.ChannelID))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Migrate(migrateCtx); err != nil {
		migrateCancel()
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	migrateCancel()

	// Initialize repositories
	tokenRepo := repositories.NewVerificationTokenRepository(db)
	userRepo := repositories.NewUserRepository(db)

	// Initialize cleanup manager
	cleanupManager := background.NewCleanupManager(tokenRepo, logger, cfg.Access.CleanupInterval)

	// Reference codec bound to the storage channel
	codec, err := reference.NewCodec(cfg.Bot.ChannelID)
	if err != nil {
		logger.Error("failed to build reference codec", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize services
	verificationService := services.NewVerificationService(tokenRepo, logger, cfg.Bot.Username)
	accessService := services.NewAccessService(verificationService, codec, cfg.Access.VerifyEnabled, logger)

	// Initialize the bot
	bot, err := telegram.New(cfg, accessService, verificationService, userRepo, logger)
	if err != nil {
		logger.Error("failed to initialize bot", slog.Any("error", err))
		os.Exit(1)
	}

	// Ops HTTP server
	opsServer := httpapi.NewServer(cfg.HTTP.Port, db, userRepo, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go cleanupManager.Start(ctx)

	go func() {
		if err := opsServer.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("ops server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	go bot.Run(ctx)

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server shutdown error", slog.Any("error", err))
	}

	logger.Info("bot stopped gracefully")
}
