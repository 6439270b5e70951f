package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/DesmondD0ss/AccessManager-sub000/internal/audit"
	"github.com/DesmondD0ss/AccessManager-sub000/internal/config"
	"github.com/DesmondD0ss/AccessManager-sub000/internal/database"
	"github.com/DesmondD0ss/AccessManager-sub000/internal/handler"
	"github.com/DesmondD0ss/AccessManager-sub000/internal/jobs"
	"github.com/DesmondD0ss/AccessManager-sub000/internal/middleware"
	"github.com/DesmondD0ss/AccessManager-sub000/internal/redis"
	"github.com/DesmondD0ss/AccessManager-sub000/internal/repository"
	"github.com/DesmondD0ss/AccessManager-sub000/internal/service"
	"github.com/DesmondD0ss/AccessManager-sub000/internal/token"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("APP_ENV") == "production"
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	codeRepo := repository.NewAccessCodeRepository(db.DB)
	sessionRepo := repository.NewGuestSessionRepository(db.DB)
	auditRepo := repository.NewAuditLogRepository(db.DB)

	recorder := audit.NewRecorder(auditRepo)
	tokens := token.NewService(cfg.SessionTokenSecret)

	codeService := service.NewCodeService(codeRepo, recorder)
	sessionService := service.NewSessionService(db, codeRepo, sessionRepo, recorder, tokens)
	sweeper := service.NewSweeper(db, codeRepo, sessionRepo, recorder)
	rateLimiter := service.NewRateLimiter(redisClient.Client)

	adminAuth := middleware.NewAdminAuthMiddleware(cfg.AdminPasswordHash)
	redeemLimiter := middleware.NewIPRateLimitMiddleware(
		rateLimiter, cfg.RedeemLimitPerMin, config.RedeemRateLimitWindow, "redeem",
	)

	guestHandler := handler.NewGuestHandler(codeService, sessionService, redeemLimiter.Handler)
	adminHandler := handler.NewAdminHandler(codeService, sessionService, adminAuth.Handler)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Mount("/guest", guestHandler.Routes())
		r.Mount("/admin", adminHandler.Routes())
	})

	cleanupJob := jobs.NewCleanupJob(sweeper, cfg.CleanupInterval())
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
