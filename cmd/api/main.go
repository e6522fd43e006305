// Command api serves the PropSpace marketplace HTTP API.
//
// @title                       PropSpace Marketplace API
// @version                     1.0
// @description                 Auth, identity resolution, profiles and listings for the PropSpace rental marketplace.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @securityDefinitions.apikey  ServiceKey
// @in                          header
// @name                        X-Service-Key
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/propspace/marketplace/internal/api"
	"github.com/propspace/marketplace/internal/core/ports"
	"github.com/propspace/marketplace/internal/core/service"
	"github.com/propspace/marketplace/internal/infrastructure/config"
	mongodb "github.com/propspace/marketplace/internal/infrastructure/db/mongo"
	redisdb "github.com/propspace/marketplace/internal/infrastructure/db/redis"
	"github.com/propspace/marketplace/internal/infrastructure/events"
	"github.com/propspace/marketplace/internal/infrastructure/http/handlers"
	"github.com/propspace/marketplace/internal/infrastructure/queue"
	"github.com/propspace/marketplace/internal/infrastructure/security"
	"github.com/propspace/marketplace/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Development(),
		Service: "propspace-api",
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("api terminated")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		return err
	}
	defer rdb.Close()

	authRepo := mongodb.NewAuthRepository(db)
	profileRepo := mongodb.NewProfileRepository(db)
	propertyRepo := mongodb.NewPropertyRepository(db)
	imageRepo := mongodb.NewImageRepository(db)
	favoriteRepo := mongodb.NewFavoriteRepository(db)
	if err := mongodb.EnsureIndexes(ctx, authRepo, profileRepo, propertyRepo, imageRepo, favoriteRepo); err != nil {
		return err
	}

	// --- Profile events ---
	var publisher ports.EventPublisher = events.NewLoggingPublisher(logger.Component("events"))
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.ProfileTopic)
		if err != nil {
			return err
		}
		defer kp.Close()
		publisher = kp
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	dispatcher := queue.NewDispatcher(cfg.Kafka.Workers, publisher, logger.Component("dispatcher"))
	dispatcher.Start(workerCtx)

	// --- Services ---
	sanitizer := security.NewSanitizer()
	profileCache := redisdb.NewProfileCache(rdb, cfg.Redis.ProfileCacheTTL)
	profileReader := service.NewCachedProfileReader(profileRepo, profileCache, logger.Component("profile_cache"))

	authService := service.NewAuthService(
		authRepo,
		security.NewJWTIssuer(cfg.JWTSecret),
		redisdb.NewSessionStore(rdb),
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
		logger.Component("auth"),
	)
	creator := service.NewProfileCreationService(profileRepo, profileCache, dispatcher, sanitizer, logger.Component("profiles"))
	profiles := service.NewProfileService(profileReader, profileRepo, profileCache, dispatcher, sanitizer, logger.Component("profiles"))
	resolver := service.NewIdentityResolver(profileReader, creator, logger.Component("identity"))

	router := api.NewRouter(api.Dependencies{
		Log:            logger.Component("http"),
		Auth:           authService,
		Resolver:       resolver,
		ResolveTimeout: cfg.ResolveTimeout,
		Profiles:       profiles,
		Creator:        creator,
		Properties:     service.NewPropertyService(propertyRepo, imageRepo, favoriteRepo, sanitizer, logger.Component("properties")),
		Favorites:      service.NewFavoriteService(favoriteRepo, propertyRepo, logger.Component("favorites")),
		ServiceKey:     cfg.ServiceRoleKey,
		AuthRate:       cfg.Auth.RateLimit,
		AuthBurst:      cfg.Auth.RateBurst,
		HealthChecks: map[string]handlers.Check{
			"mongodb": handlers.MongoCheck(db),
			"redis":   handlers.RedisCheck(rdb),
		},
	})

	// --- Serve ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			cancelWorkers()
			dispatcher.Wait()
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	// Requests are drained; stop the workers and wait for in-flight publishes.
	cancelWorkers()
	dispatcher.Wait()
	log.Info().Msg("api stopped")
	return nil
}
