package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/sokrateshealth/anamnesis-platform/internal/api/router"
	"github.com/sokrateshealth/anamnesis-platform/internal/auth"
	"github.com/sokrateshealth/anamnesis-platform/internal/clinic"
	appconfig "github.com/sokrateshealth/anamnesis-platform/internal/config"
	"github.com/sokrateshealth/anamnesis-platform/internal/intake"
	"github.com/sokrateshealth/anamnesis-platform/internal/observability/metrics"
	"github.com/sokrateshealth/anamnesis-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting anamnesis API server", "env", cfg.Env, "port", cfg.Port)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		logger.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	intakeMetrics := metrics.NewIntakeMetrics(registry)

	llm, closeLLM, err := buildLLMClient(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build conversation provider", "error", err)
		os.Exit(1)
	}
	defer closeLLM()

	locker, closeLocker := buildSessionLocker(cfg, logger)
	defer closeLocker()

	intakeStore := intake.NewStore(pool)
	engine := intake.NewEngine(intakeStore, llm, locker, intakeMetrics, logger, intake.EngineConfig{
		ChatModel:    cfg.OpenAIChatModel,
		ExtractModel: cfg.OpenAIExtractModel,
		CallTimeout:  cfg.ProviderTimeout,
		MaxRetries:   cfg.ProviderMaxRetries,
		RetryDelay:   cfg.ProviderRetryDelay,
	})

	authService := auth.NewService(auth.NewStore(pool), cfg.JWTSecret, cfg.TokenTTL, logger)
	clinicRepo := clinic.NewRepository(pool)

	r := router.New(&router.Config{
		Logger:             logger,
		IntakeHandler:      intake.NewHandler(engine, logger),
		AuthHandler:        auth.NewHandler(authService, logger),
		ClinicHandler:      clinic.NewHandler(clinicRepo, registry, logger),
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		JWTSecret:          cfg.JWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * cfg.ProviderTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildLLMClient wires the OpenAI primary with an optional Gemini fallback.
func buildLLMClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (intake.LLMClient, func(), error) {
	primary, err := intake.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIChatModel)
	if err != nil {
		return nil, nil, err
	}

	if cfg.GeminiAPIKey == "" {
		return primary, func() {}, nil
	}

	gemini, err := intake.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logger.Warn("gemini fallback unavailable, continuing without it", "error", err)
		return primary, func() {}, nil
	}

	closeFn := func() {
		if err := gemini.Close(); err != nil {
			logger.Warn("failed to close gemini client", "error", err)
		}
	}
	return intake.NewFallbackClient(primary, gemini, logger), closeFn, nil
}

// buildSessionLocker picks redis when configured, otherwise in-process.
func buildSessionLocker(cfg *appconfig.Config, logger *logging.Logger) (intake.SessionLocker, func()) {
	if cfg.RedisAddr == "" {
		logger.Info("redis not configured, using in-process session locks")
		return intake.NewMemorySessionLocker(), func() {}
	}

	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	logger.Info("using redis session locks", "addr", cfg.RedisAddr)

	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Warn("failed to close redis client", "error", err)
		}
	}
	return intake.NewRedisSessionLocker(client, cfg.LockTTL, cfg.LockWaitDelay, cfg.LockMaxWaits), closeFn
}
