package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/devpair/pairing-server-go/internal/config"
	"github.com/devpair/pairing-server-go/internal/database"
	"github.com/devpair/pairing-server-go/internal/handler"
	"github.com/devpair/pairing-server-go/internal/jobs"
	"github.com/devpair/pairing-server-go/internal/middleware"
	"github.com/devpair/pairing-server-go/internal/redis"
	"github.com/devpair/pairing-server-go/internal/repository"
	"github.com/devpair/pairing-server-go/internal/service"
	"github.com/devpair/pairing-server-go/internal/token"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	setLogLevel(cfg.LogLevel)

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

	codeRepo := repository.NewPairingCodeRepository(db.DB)
	sessionRepo := repository.NewSessionRepository(db.DB)

	issuer := token.NewIssuer(cfg.SessionTTL())
	pairingService := service.NewPairingService(codeRepo, sessionRepo, issuer, cfg.CodeTTL())
	sessionService := service.NewSessionService(sessionRepo)
	rateLimiter := service.NewRateLimiter(redisClient.Client)

	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(cfg.IsProduction())
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	pairRateLimitMiddleware := middleware.NewIPRateLimitMiddleware(
		rateLimiter, cfg.PairRateLimitPerMin, config.PairRateLimitWindow, "pair",
	)
	provisionAuthMiddleware := middleware.NewProvisionAuthMiddleware(cfg.ProvisionAPIKey)

	pairingHandler := handler.NewPairingHandler(pairingService, cfg.IsProduction())
	codesHandler := handler.NewCodesHandler(pairingService)
	sessionHandler := handler.NewSessionHandler(sessionService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(securityHeadersMiddleware.Handler)
	r.Use(bodyLimitMiddleware.Handler)

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	r.Get("/health", handler.Health)

	r.With(pairRateLimitMiddleware.Handler).Post("/pair", pairingHandler.Pair)

	r.Route("/v1/codes", func(r chi.Router) {
		r.Use(provisionAuthMiddleware.Handler)
		r.Mount("/", codesHandler.Routes())
	})

	r.Route("/v1/sessions", func(r chi.Router) {
		r.Mount("/", sessionHandler.Routes())
	})

	cleanupJob := jobs.NewCleanupJob(codeRepo, sessionRepo, config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
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
