package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/weiawesome/wes-io-live/notify-service/internal/cache"
	"github.com/weiawesome/wes-io-live/notify-service/internal/config"
	"github.com/weiawesome/wes-io-live/notify-service/internal/directory"
	"github.com/weiawesome/wes-io-live/notify-service/internal/domain"
	"github.com/weiawesome/wes-io-live/notify-service/internal/handler"
	"github.com/weiawesome/wes-io-live/notify-service/internal/hub"
	"github.com/weiawesome/wes-io-live/notify-service/internal/identity"
	"github.com/weiawesome/wes-io-live/notify-service/internal/idgen"
	"github.com/weiawesome/wes-io-live/notify-service/internal/platform"
	"github.com/weiawesome/wes-io-live/notify-service/internal/post"
	"github.com/weiawesome/wes-io-live/notify-service/internal/service"
	"github.com/weiawesome/wes-io-live/notify-service/internal/thread"
	"github.com/weiawesome/wes-io-live/pkg/database"
	"github.com/weiawesome/wes-io-live/pkg/jwt"
	pkglog "github.com/weiawesome/wes-io-live/pkg/log"
	"github.com/weiawesome/wes-io-live/pkg/pubsub"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize structured logger
	if cfg.Log.ServiceName == "" {
		cfg.Log.ServiceName = "notify-service"
	}
	pkglog.Init(cfg.Log)
	logger := pkglog.L()

	if cfg.Server.InstanceID == "" {
		cfg.Server.InstanceID = uuid.New().String()
	}
	if cfg.PubSub.Kafka.Member == "" {
		cfg.PubSub.Kafka.Member = cfg.Server.InstanceID
	}

	// Connect to database using GORM
	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db, domain.AllModels()...); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Msg("database migration completed")

	// ID generators
	baseIDs, err := idgen.New(cfg.IDs.Generator)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create id generator")
	}
	store := platform.NewGormStore(db,
		idgen.WithPrefix(cfg.IDs.ThreadPrefix, baseIDs),
		idgen.WithPrefix(cfg.IDs.PostPrefix, baseIDs),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := platform.Seed(ctx, store, cfg.Seed); err != nil {
		logger.Fatal().Err(err).Msg("failed to seed platform store")
	}

	// Pub/sub for cross-instance room fan-out
	bus, err := pubsub.NewPubSub(cfg.PubSub)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create pubsub")
	}
	defer bus.Close()
	logger.Info().Str("driver", cfg.PubSub.Driver).Msg("pubsub ready")

	// Token validation
	jwtManager, err := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Duration)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create jwt manager")
	}

	// The platform handle is built once here and injected everywhere.
	plat := platform.New(
		platform.NewJWTValidator(jwtManager),
		store,
		platform.NewPubSubBroadcaster(bus, cfg.Server.InstanceID),
	)

	// Optional shared organization cache
	var orgCache cache.OrganizationCache
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisOrganizationCache(cfg.Redis, cfg.Cache.Prefix)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisCache.Close()
		orgCache = redisCache
		logger.Info().Msg("redis organization cache connected")
	}

	svc := service.NewNotifyService(service.Deps{
		Identity: identity.NewResolver(plat, identity.Config{
			DevMode:       cfg.Identity.DevMode,
			DevTokenParam: cfg.Identity.DevTokenParam,
			LocalHosts:    cfg.Identity.LocalHosts,
		}),
		Directory:   directory.NewResolver(plat, orgCache, cfg.Cache.TTL),
		Threads:     thread.NewLocator(plat),
		Posts:       post.NewPublisher(plat, cfg.Template.IsMention),
		Access:      plat,
		Broadcaster: plat,
	}, service.Options{
		Policy: service.Policy{
			RequireAuth:    cfg.Policy.RequireAuth,
			RequiredLevel:  cfg.Policy.RequiredLevel,
			ActingIdentity: cfg.Policy.ActingIdentity,
			ServiceID:      cfg.Policy.ServiceID,
		},
		ThreadName: cfg.Thread.Name,
		WhoCanPost: cfg.Thread.WhoCanPost,
		Template: service.Template{
			DefaultTitle:   cfg.Template.DefaultTitle,
			DefaultContent: cfg.Template.DefaultContent,
			TitlePrefix:    cfg.Template.TitlePrefix,
			ContentSuffix:  cfg.Template.ContentSuffix,
			MaxTitleLen:    cfg.Template.MaxTitleLen,
			MaxContentLen:  cfg.Template.MaxContentLen,
		},
		BroadcastText: cfg.Template.BroadcastText,
		CallTimeout:   cfg.Gateway.CallTimeout,
	})

	if cfg.Identity.DevMode {
		logger.Warn().Msg("identity dev mode enabled: unverified local tokens are accepted")
	}

	// Real-time hub
	h := hub.NewHub(cfg.WebSocket)
	go h.Run()

	subscriber := hub.NewSubscriber(bus, h)
	go subscriber.Run(ctx)

	router := handler.NewRouter(
		logger,
		cfg.Server.AllowEmbedding,
		handler.NewHandler(svc),
		handler.NewWSHandler(h, plat, cfg.WebSocket),
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("addr", addr).
			Str("driver", cfg.Database.Driver).
			Bool("require_auth", cfg.Policy.RequireAuth).
			Str("acting_identity", cfg.Policy.ActingIdentity).
			Msg("notify-service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down notify-service")

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		cancel() // 1. stop pubsub subscriber
		<-subscriber.Done()

		h.Stop() // 2. close all WS clients, stop Hub.Run()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown error")
		}
	}()

	select {
	case <-shutdownDone:
		logger.Info().Msg("notify-service stopped")
	case <-time.After(30 * time.Second):
		logger.Warn().Msg("shutdown timed out after 30s")
	}
}
