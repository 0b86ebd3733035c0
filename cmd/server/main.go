package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"eventsphere/config"
	"eventsphere/internal/adapters/media"
	"eventsphere/internal/cache"
	"eventsphere/internal/repository/postgres"
	"eventsphere/internal/scheduler"
	"eventsphere/internal/services"
)

const serviceTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := config.NewLogger(cfg.Environment)

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("ping database", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer rdb.Close()

	eventRepo := postgres.NewEventRepository(db)
	participantRepo := postgres.NewParticipantRepository(db)
	organizerRepo := postgres.NewOrganizerRepository(db)
	tagRepo := postgres.NewTagRepository(db)
	mediaRepo := postgres.NewMediaRepository(db)

	mediaStorage, err := media.NewStorage(media.StorageConfig{
		Provider: cfg.Media.Provider,
		S3: media.S3Config{
			Region:          cfg.Media.Region,
			Bucket:          cfg.Media.Bucket,
			AccessKeyID:     cfg.Media.AccessKeyID,
			SecretAccessKey: cfg.Media.SecretAccessKey,
		},
	}, mediaRepo, logger)
	if err != nil {
		logger.Error("init media storage", "error", err)
		os.Exit(1)
	}

	eventCache := cache.New(rdb, cfg.CacheTTL, logger)
	eventService := services.NewEventService(
		eventRepo, participantRepo, organizerRepo, tagRepo,
		mediaStorage, eventCache, logger, serviceTimeout,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting reconciliation scheduler", "interval", cfg.ReconcileInterval)
	scheduler.New(eventService, cfg.ReconcileInterval, logger).Run(ctx)
}
