package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/afftrack/afftrack/config"
	appmodel "github.com/afftrack/afftrack/internal/app/model"
	apprepository "github.com/afftrack/afftrack/internal/app/repository"
	appserver "github.com/afftrack/afftrack/internal/app/server"
	appservice "github.com/afftrack/afftrack/internal/app/service"
	"github.com/afftrack/afftrack/internal/infra/logger"
	infraNATS "github.com/afftrack/afftrack/internal/infra/nats"
	infraPostgres "github.com/afftrack/afftrack/internal/infra/postgres"
	infraPrometheus "github.com/afftrack/afftrack/internal/infra/prometheus"
	infraRedis "github.com/afftrack/afftrack/internal/infra/redis"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	isDev := os.Getenv("APP_ENV") != "production"
	log := logger.MustInit(logger.Config{
		Development: isDev,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Configuration loaded successfully",
		zap.String("listen_addr", cfg.App.ListenAddr),
		zap.Duration("dedup_window", cfg.App.DedupWindowDuration()),
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.String("redis_host", cfg.Redis.Host),
		zap.Int("redis_port", cfg.Redis.Port),
		zap.String("nats_host", cfg.NATS.Host),
		zap.Int("nats_port", cfg.NATS.Port),
	)

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to open GORM connection", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("Failed to access underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := infraPostgres.AutoMigrate(ctx, gormDB,
		&appmodel.AffiliateLink{},
		&appmodel.Click{},
		&appmodel.Conversion{},
	); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()

	log.Info("Connected to Postgres successfully")

	redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("Connected to Redis successfully")

	natsConn, js, err := infraNATS.Connect(cfg.NATS)
	if err != nil {
		log.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer natsConn.Drain()
	log.Info("Connected to NATS successfully", zap.Bool("jetstream_ready", js != nil))

	metrics := infraPrometheus.NewMetrics("afftrack")

	if !isDev {
		promServer := infraPrometheus.NewServer(cfg.Prometheus)
		go func() {
			log.Info("Starting Prometheus metrics server",
				zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	} else {
		log.Info("Skipping Prometheus metrics server in development mode")
	}

	linkRepo := apprepository.NewLinkRepository(gormDB)
	clickRepo := apprepository.NewClickRepository(gormDB)
	conversionRepo := apprepository.NewConversionRepository(gormDB)
	statsRepo := apprepository.NewStatsRepository(pool)

	hashFilter := appservice.NewHashFilter()
	if err := hashFilter.Warm(ctx, linkRepo); err != nil {
		log.Fatal("Failed to warm hash filter", zap.Error(err))
	}

	publisher := appservice.NewEventPublisher(js, log)

	consumer := appservice.NewEventConsumer(js, log, metrics)
	if err := consumer.Start(); err != nil {
		log.Fatal("Failed to start tracking event consumer", zap.Error(err))
	}
	defer consumer.Stop()

	reconciler := appservice.NewCounterReconciler(log, linkRepo, statsRepo, cfg.App.ReconcileIntervalDuration())
	reconciler.Start()
	defer reconciler.Stop()

	linkService := appservice.NewLinkService(linkRepo, hashFilter, cfg.App.HashLength)
	clickService := appservice.NewClickService(appservice.ClickServiceDeps{
		Logger:      log,
		Links:       linkRepo,
		Clicks:      clickRepo,
		Deduper:     appservice.NewRedisDeduper(redisClient),
		Publisher:   publisher,
		DedupWindow: cfg.App.DedupWindowDuration(),
	})
	conversionService := appservice.NewConversionService(appservice.ConversionServiceDeps{
		Logger:      log,
		Links:       linkRepo,
		Clicks:      clickRepo,
		Conversions: conversionRepo,
		Publisher:   publisher,
	})
	statsService := appservice.NewStatsService(statsRepo)

	server := appserver.New(appserver.Dependencies{
		Logger:      log,
		Redis:       redisClient,
		Metrics:     metrics,
		AdminKey:    cfg.App.AdminKey,
		HashFilter:  hashFilter,
		Links:       linkService,
		Clicks:      clickService,
		Conversions: conversionService,
		Stats:       statsService,
		Click:       clickRepo,
		Conversion:  conversionRepo,
	})

	if err := server.Listen(cfg.App.ListenAddr); err != nil {
		log.Fatal("Fiber server exited", zap.Error(err))
	}
}
