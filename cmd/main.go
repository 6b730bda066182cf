package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/thiagodapenhafernandes/appdoafiliado/internal/config"
	"github.com/thiagodapenhafernandes/appdoafiliado/internal/database/minio"
	"github.com/thiagodapenhafernandes/appdoafiliado/internal/database/postgres"
	"github.com/thiagodapenhafernandes/appdoafiliado/internal/database/redis"
	"github.com/thiagodapenhafernandes/appdoafiliado/internal/event"
	"github.com/thiagodapenhafernandes/appdoafiliado/internal/handlers"
	"github.com/thiagodapenhafernandes/appdoafiliado/internal/importer"
	"github.com/thiagodapenhafernandes/appdoafiliado/internal/repository"
	"github.com/thiagodapenhafernandes/appdoafiliado/internal/services"
	"github.com/thiagodapenhafernandes/appdoafiliado/internal/shopee"
)

func setupLogging() (*os.File, error) {
	logDir := getLogDir()
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logFile := filepath.Join(logDir, fmt.Sprintf("log_%s.log", time.Now().Format("2006-01-02")))
	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(file, nil)))
	return file, nil
}

func getLogDir() string {
	if dir := os.Getenv("LOG_DIR"); dir != "" {
		return dir
	}
	return filepath.Join("/var", "log", "affiliate_service")
}

// scheduleSyncAll fans out an incremental sync job for every active
// integration on a fixed interval.
func scheduleSyncAll(ctx context.Context, publisher *event.SyncPublisher, cfg config.ShopeeConfig) {
	ticker := time.NewTicker(time.Duration(cfg.SyncIntervalHours) * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			enqueued, err := publisher.PublishSyncAll(ctx, cfg.SyncWindowDays)
			if err != nil {
				slog.Error("scheduled sync fan-out failed", "error", err)
				continue
			}
			slog.Info("scheduled sync jobs enqueued", "count", enqueued)
		}
	}
}

func main() {
	logFile, err := setupLogging()
	if err != nil {
		fmt.Printf("Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	cfg := config.New()

	db, err := postgres.ConnectAndCreateDB(cfg.PostgresCfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		go postgres.RetryConnectOnFailed(30*time.Second, &db, cfg.PostgresCfg)
	}

	redisClient, err := redis.NewRedisClient(cfg.RedisCfg.Host, cfg.RedisCfg.Port, cfg.RedisCfg.Password, cfg.RedisCfg.DB)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var archiver importer.Archiver
	minioClient, err := minio.NewMinioClient(cfg.MinioCfg)
	if err != nil {
		// Raw-file archiving is best effort; imports still run without it.
		slog.Warn("minio unavailable, import archiving disabled", "error", err)
	} else {
		if err := minioClient.EnsureBuckets(ctx); err != nil {
			slog.Warn("failed to ensure minio buckets", "error", err)
		}
		archiver = minioClient
	}

	rabbitConn, err := event.ConnectRabbitMQ(cfg.RabbitMQCfg)
	if err != nil {
		slog.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer rabbitConn.Close()

	// Repositories
	commissionRepo := repository.NewCommissionRepository(db)
	conversionRepo := repository.NewAffiliateConversionRepository(db)
	adSpendRepo := repository.NewSubIDAdSpendRepository(db)
	integrationRepo := repository.NewIntegrationRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	// Services
	limiter := shopee.NewRateLimiter(redisClient.GetClient())
	syncService := shopee.NewSyncService(integrationRepo, conversionRepo, commissionRepo, limiter,
		cfg.ShopeeCfg.PageLimit, cfg.ShopeeCfg.MaxPages)
	importService := importer.NewImportService(commissionRepo, archiver, cfg.MaxUploadSize)
	analyticsService := services.NewAnalyticsService(analyticsRepo, adSpendRepo)
	adSpendService := services.NewAdSpendService(adSpendRepo, analyticsRepo)

	// Background jobs
	publisher, err := event.NewSyncPublisher(rabbitConn, integrationRepo)
	if err != nil {
		slog.Error("failed to set up sync publisher", "error", err)
		os.Exit(1)
	}
	consumer := event.NewSyncConsumer(rabbitConn, syncService)
	go func() {
		if err := consumer.StartConsuming(ctx); err != nil && ctx.Err() == nil {
			slog.Error("sync consumer stopped", "error", err)
		}
	}()
	go scheduleSyncAll(ctx, publisher, cfg.ShopeeCfg)

	app := fiber.New(fiber.Config{
		BodyLimit: int(cfg.MaxUploadSize) + 1024*1024,
	})
	app.Get("/checkhealth", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).SendString("Affiliate service is healthy")
	})

	handlers.NewImportHandler(importService, cfg.MaxUploadSize).Register(app)
	handlers.NewAnalyticsHandler(analyticsService, adSpendService, commissionRepo).Register(app)
	handlers.NewIntegrationHandler(integrationRepo, syncService, publisher).Register(app)

	go func() {
		if err := app.Listen(fmt.Sprintf(":%s", cfg.Port)); err != nil {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()
	slog.Info("affiliate service started", "port", cfg.Port)

	<-ctx.Done()
	slog.Info("shutting down")
	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
}
