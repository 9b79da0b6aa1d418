package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/anyulbade/commission-ledger/internal/config"
	"github.com/anyulbade/commission-ledger/internal/database"
	"github.com/anyulbade/commission-ledger/internal/events"
	"github.com/anyulbade/commission-ledger/internal/handler"
	"github.com/anyulbade/commission-ledger/internal/lock"
	"github.com/anyulbade/commission-ledger/internal/metrics"
	"github.com/anyulbade/commission-ledger/internal/middleware"
	"github.com/anyulbade/commission-ledger/internal/repository"
	"github.com/anyulbade/commission-ledger/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	gin.SetMode(cfg.GinMode)
	database.MigrationsDir = cfg.MigrationsDir

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := database.RunMigrations(cfg.DatabaseURL()); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
	} else if version, ok, err := database.SchemaVersion(cfg.DatabaseURL()); err != nil {
		log.Fatal().Err(err).Msg("failed to read schema version")
	} else if !ok {
		log.Warn().Msg("database has no schema, set AUTO_MIGRATE=true or run migrations manually")
	} else {
		log.Info().Uint("version", version).Msg("schema version")
	}
	if cfg.SeedDemo {
		if err := database.SeedData(context.Background(), pool); err != nil {
			log.Fatal().Err(err).Msg("failed to seed data")
		}
	}

	locker, closeLocker := setupLocker(ctx, cfg)
	defer closeLocker()

	publisher := setupPublisher(cfg)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close event publisher")
		}
	}()

	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())
	router.Use(gin.Recovery())

	healthHandler := handler.NewHealthHandler(pool)
	if rl, ok := locker.(*lock.RedisLocker); ok {
		healthHandler.WithDependency("job_lock", rl)
	}
	router.GET("/health", healthHandler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.SetupSwagger(router, cfg.SwaggerSpec)
	reconciler := setupAPIRoutes(router, pool, cfg, locker, publisher, jobMetrics)

	jobsCtx, stopJobs := context.WithCancel(context.Background())
	defer stopJobs()
	if cfg.ReconcileInterval > 0 {
		log.Info().Dur("interval", cfg.ReconcileInterval).Msg("scheduled reconciliation enabled")
		go func() {
			_ = reconciler.RunEvery(jobsCtx, cfg.ReconcileInterval)
		}()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.WriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	stopJobs()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}

func setupLocker(ctx context.Context, cfg *config.Config) (lock.Locker, func()) {
	if cfg.RedisURL == "" {
		log.Info().Msg("REDIS_URL not set, job lock is local to this process")
		return lock.NewLocalLocker(), func() {}
	}

	client, err := lock.Connect(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	return lock.NewRedisLocker(client), func() {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close redis client")
		}
	}
}

func setupPublisher(cfg *config.Config) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		log.Info().Msg("KAFKA_BROKERS not set, events are logged only")
		return events.NewLoggingPublisher(log.Logger)
	}

	pub, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create kafka publisher")
	}
	log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing events to kafka")
	return pub
}

func setupAPIRoutes(
	router *gin.Engine,
	pool *pgxpool.Pool,
	cfg *config.Config,
	locker lock.Locker,
	publisher events.Publisher,
	jobMetrics *metrics.JobMetrics,
) *service.ReconcileService {
	saleRepo := repository.NewSaleRepository(pool)
	sellerRepo := repository.NewSellerRepository(pool)
	rateRepo := repository.NewRateRepository(pool)
	commissionRepo := repository.NewCommissionRepository(pool)

	reconcileService, err := service.NewReconcileService(commissionRepo, saleRepo, rateRepo, locker, publisher, jobMetrics, cfg.JobLockTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create reconciliation service")
	}
	backfillService := service.NewBackfillService(commissionRepo, saleRepo, sellerRepo, rateRepo, publisher, jobMetrics)
	commissionService := service.NewCommissionService(commissionRepo, saleRepo, sellerRepo, publisher, jobMetrics)
	diagnosticService := service.NewDiagnosticService(commissionRepo, saleRepo, sellerRepo, rateRepo)
	sellerService := service.NewSellerService(sellerRepo, rateRepo, commissionRepo)

	api := router.Group("/api/v1")
	api.Use(middleware.RequireAdmin(cfg.SessionSecret))
	handler.RegisterRoutes(api, handler.Handlers{
		Commissions: handler.NewCommissionHandler(commissionService, diagnosticService),
		Jobs:        handler.NewJobHandler(reconcileService, backfillService),
		Sellers:     handler.NewSellerHandler(sellerService),
	})

	return reconcileService
}
