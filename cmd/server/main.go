package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/avolkov/sonet/internal/cache"
	"github.com/avolkov/sonet/internal/config"
	"github.com/avolkov/sonet/internal/database"
	"github.com/avolkov/sonet/internal/handler"
	"github.com/avolkov/sonet/internal/logger"
	"github.com/avolkov/sonet/internal/mq"
	"github.com/avolkov/sonet/internal/repository"
	appRouter "github.com/avolkov/sonet/internal/router"
	"github.com/avolkov/sonet/internal/service"
	"github.com/avolkov/sonet/internal/taskpool"
	"github.com/avolkov/sonet/internal/version"
	"github.com/avolkov/sonet/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting sonet backend",
		zap.String("project", version.Name),
		zap.String("version", version.Version),
		zap.String("mode", cfg.HTTP.Mode),
	)

	// Authoritative store: master for writes, replicas round-robin for reads.
	db, err := database.Open(&cfg.Postgres)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close(db)

	// Feed cache.
	redisClient, err := cache.Init(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to initialize cache", zap.Error(err))
	}
	defer redisClient.Close()
	cacheService := cache.NewService(redisClient)

	// Event bus: declares both feed exchanges on connect.
	broker, err := mq.Dial(cfg.MQ.Addr(), logger.Logger)
	if err != nil {
		logger.Fatal("Failed to connect to broker", zap.Error(err))
	}
	defer broker.Close()

	// Storage strategies: friend and session storage can each be backed by
	// the relational store or the in-memory store; behavior is identical.
	friendStorage := newFriendStorage(cfg.Storage.Friends, db, cacheService)
	sessionStorage := newSessionStorage(cfg.Storage.Sessions, db, cacheService)

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)

	pool, err := taskpool.New(cfg.Pool.Size, logger.Logger)
	if err != nil {
		logger.Fatal("Failed to create worker pool", zap.Error(err))
	}
	defer pool.Release()

	publisher := mq.NewPublisher(broker, friendStorage, logger.Logger)

	userService := service.NewUserService(userRepo, sessionStorage, &cfg.JWT)
	postService := service.NewPostService(postRepo, publisher)
	feedService := service.NewFeedService(cacheService, postRepo, friendStorage, cfg.Feed.OnePostPerUser)
	friendService := service.NewFriendService(friendStorage, userRepo, cacheService)
	dialogService := service.NewDialogService(&cfg.Dialogs)

	// Cache materializer: broadcast queue + acknowledged consumer.
	feedConsumer := service.NewFeedConsumer(cacheService, friendStorage, pool, cfg.Feed.OnePostPerUser)
	if err := feedConsumer.Start(broker); err != nil {
		logger.Fatal("Failed to start feed consumer", zap.Error(err))
	}

	// Realtime fan-out on its own listener, watchdog included.
	wsServer := ws.NewServer(&cfg.WS, broker)
	if err := wsServer.Start(); err != nil {
		logger.Fatal("Failed to start WS server", zap.Error(err))
	}

	gin.SetMode(cfg.HTTP.Mode)

	engine := appRouter.New(&cfg.HTTP, appRouter.Deps{
		Users:          handler.NewUserHandler(userService),
		Posts:          handler.NewPostHandler(postService, feedService),
		Friends:        handler.NewFriendHandler(friendService),
		Dialogs:        handler.NewDialogHandler(dialogService),
		TokenValidator: userService,
		HealthChecks: map[string]appRouter.HealthFunc{
			"database": func(ctx context.Context) error { return database.HealthCheck(ctx, db) },
			"cache":    func(ctx context.Context) error { return cache.HealthCheck(ctx, redisClient) },
			"broker":   func(ctx context.Context) error { return broker.HealthCheck() },
		},
	})

	srv := &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        engine,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		if cfg.HTTP.TLSEnabled {
			logger.Info("Server listening with TLS", zap.String("address", cfg.HTTP.Address))
			if err := srv.ListenAndServeTLS(cfg.HTTP.TLSCertFile, cfg.HTTP.TLSKeyFile); err != nil && err != http.ErrServerClosed {
				logger.Fatal("Failed to start TLS server", zap.Error(err))
			}
		} else {
			logger.Info("Server listening", zap.String("address", cfg.HTTP.Address))
			logger.Warn("TLS is disabled. Enable TLS in production.")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatal("Failed to start server", zap.Error(err))
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if err := wsServer.Shutdown(ctx); err != nil {
		logger.Error("WS server shutdown failed", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func newFriendStorage(kind string, db *gorm.DB, cacheService cache.Service) repository.FriendStorage {
	if kind == "redis" {
		return repository.NewRedisFriendStorage(cacheService)
	}
	return repository.NewGormFriendStorage(db)
}

func newSessionStorage(kind string, db *gorm.DB, cacheService cache.Service) repository.SessionStorage {
	if kind == "redis" {
		return repository.NewRedisSessionStorage(cacheService)
	}
	return repository.NewGormSessionStorage(db)
}
