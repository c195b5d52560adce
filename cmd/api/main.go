package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/patientcare/backend/internal/adapters/cache"
	"github.com/zatekoja/patientcare/backend/internal/adapters/database"
	"github.com/zatekoja/patientcare/backend/internal/adapters/events"
	"github.com/zatekoja/patientcare/backend/internal/adapters/payment"
	"github.com/zatekoja/patientcare/backend/internal/api/handlers"
	"github.com/zatekoja/patientcare/backend/internal/api/routes"
	"github.com/zatekoja/patientcare/backend/internal/application/loaders"
	"github.com/zatekoja/patientcare/backend/internal/application/services"
	"github.com/zatekoja/patientcare/backend/internal/domain/providers"
	"github.com/zatekoja/patientcare/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/patientcare/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/patientcare/backend/internal/infrastructure/notifications"
	"github.com/zatekoja/patientcare/backend/internal/infrastructure/observability"
	"github.com/zatekoja/patientcare/backend/internal/infrastructure/push"
	"github.com/zatekoja/patientcare/backend/pkg/config"
	"github.com/zatekoja/patientcare/backend/pkg/secrets"
)

func main() {
	// Credentials may live in Vault; they must reach the environment before config.Load
	if _, err := secrets.ApplyVaultSecrets(context.Background(), secrets.LoadVaultConfigFromEnv()); err != nil {
		log.Fatal().Err(err).Msg("Failed to load secrets from Vault")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	observability.InitLogger(cfg.App.ServiceName, cfg.App.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Msg("OpenTelemetry initialized successfully")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	// Redis backs both the cache and the event bus; without it the process
	// falls back to in-memory versions and must run as a single replica
	var (
		cacheProvider providers.CacheProvider
		eventBus      providers.EventBus
	)
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, using in-memory cache and event bus")
		} else {
			defer redisClient.Close()
			cacheProvider = cache.NewRedisAdapter(redisClient)
			eventBus = events.NewRedisEventBus(redisClient)
			log.Info().Msg("Redis client initialized successfully")
		}
	}
	if cacheProvider == nil {
		cacheProvider = cache.NewMemoryAdapter()
		eventBus = events.NewMemoryEventBus()
	}
	defer eventBus.Close()
	cacheProvider = cache.NewInstrumented(cacheProvider, metrics)

	gateway, err := payment.NewGateway(cfg.Payment)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize payment gateway")
	}
	log.Info().Str("provider", cfg.Payment.Provider).Str("key_id", gateway.KeyID()).Msg("Payment gateway ready")

	// Repositories
	appointmentRepo := database.NewAppointmentAdapter(pgClient)
	doctorRepo := database.NewDoctorAdapter(pgClient)
	paymentRepo := database.NewPaymentAdapter(pgClient)
	prescriptionRepo := database.NewPrescriptionAdapter(pgClient)

	// Services
	notificationService := services.NewNotificationService(
		sqlx.NewDb(pgClient.DB(), "postgres"),
		notifications.NewReceiptSender(cfg.WhatsApp),
	)
	appointmentService := services.NewAppointmentService(appointmentRepo, doctorRepo, paymentRepo, eventBus)
	doctorService := services.NewDoctorService(doctorRepo, cacheProvider, cfg.Cache.DoctorListTTL)
	paymentService := services.NewPaymentService(
		gateway,
		doctorRepo,
		paymentRepo,
		cacheProvider,
		notificationService,
		cfg.Payment.Currency,
		cfg.Payment.ReceiptTimeout,
	)
	prescriptionService := services.NewPrescriptionService(prescriptionRepo, appointmentRepo, eventBus)
	statsService := services.NewStatsService(appointmentRepo, prescriptionRepo, cacheProvider, cfg.Cache.StatsTTL)

	// Stats caches are dropped on every portal event
	cacheInvalidation := services.NewCacheInvalidationService(cacheProvider, eventBus)
	if err := cacheInvalidation.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start cache invalidation")
	}
	defer cacheInvalidation.Stop()

	// Push channel: bus events are relayed to WebSocket subscribers
	hub := push.NewHub()
	relay := services.NewEventRelay(eventBus, hub)
	if err := relay.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start event relay")
	}
	defer relay.Stop()

	go func() {
		warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		_ = services.NewCacheWarmingService(doctorService, statsService).WarmCache(warmCtx)
	}()

	router := routes.NewRouter(
		handlers.NewAppointmentHandler(appointmentService, metrics),
		handlers.NewDoctorHandler(doctorService),
		handlers.NewPaymentHandler(paymentService, metrics),
		handlers.NewPrescriptionHandler(prescriptionService),
		handlers.NewStatsHandler(statsService),
		handlers.NewPushHandler(hub, cfg.App.AllowedOrigins, metrics),
		cfg.App.AllowedOrigins,
		metrics,
	)

	handler := loaders.Middleware(doctorRepo, router.SetupRoutes())

	server := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	paymentService.WaitForReceipts()
	cancel()

	log.Info().Msg("Server exited")
}
