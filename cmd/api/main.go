package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/vaughan-dsouza/BeSocial/internal/config"
	"github.com/vaughan-dsouza/BeSocial/internal/db"
	"github.com/vaughan-dsouza/BeSocial/internal/handlers"
	"github.com/vaughan-dsouza/BeSocial/internal/logger"
	"github.com/vaughan-dsouza/BeSocial/internal/media"
	"github.com/vaughan-dsouza/BeSocial/internal/repository"
	"github.com/vaughan-dsouza/BeSocial/internal/server"
	"github.com/vaughan-dsouza/BeSocial/internal/services"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Init("info", "console")
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		log.Warn().Err(envErr).Msg("could not read .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("server exited")
}

// run connects to the database first and only then starts listening.
// It returns when ctx is cancelled or the listener fails.
func run(ctx context.Context, cfg *config.Config) error {
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	repos, err := repository.Open(connectCtx, cfg.Database.URL, repository.Options{
		MongoDatabase: cfg.Database.Name,
		Pool: db.PoolConfig{
			MaxOpen:     cfg.Database.MaxOpen,
			MaxIdle:     cfg.Database.MaxIdle,
			MaxLifetime: cfg.Database.MaxLifetime,
		},
	})
	cancel()
	if err != nil {
		return fmt.Errorf("did not connect: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repos.Close(closeCtx); err != nil {
			log.Warn().Err(err).Msg("database close failed")
		}
	}()
	log.Info().Str("backend", repos.Backend).Msg("database connected")

	images, err := media.New(ctx, cfg.Upload)
	if err != nil {
		return fmt.Errorf("image store: %w", err)
	}
	log.Info().Str("backend", images.Name()).Str("folder", cfg.Upload.Folder).Msg("image store ready")

	h := handlers.NewHandler(
		services.NewAuthService(repos.Users, cfg.JWT.Secret, cfg.JWT.TTL),
		services.NewUserService(repos.Users, images),
		services.NewPostService(repos.Posts, repos.Users, images),
		repos,
	)

	router := server.NewRouter(server.RouterConfig{
		JWTSecret:    cfg.JWT.Secret,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		CORSOrigins:  cfg.Server.CORSOrigins,
		AssetsDir:    cfg.Upload.AssetsDir,
		UploadFolder: cfg.Upload.Folder,
	}, h, images)

	srv := server.New(":"+cfg.Server.Port, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("server listening")
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return <-errCh
}
