package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UkralStul/blog-platform/internal/api"
	"github.com/UkralStul/blog-platform/internal/auth"
	"github.com/UkralStul/blog-platform/internal/cache"
	"github.com/UkralStul/blog-platform/internal/config"
	"github.com/UkralStul/blog-platform/internal/dataloader"
	"github.com/UkralStul/blog-platform/internal/domain"
	"github.com/UkralStul/blog-platform/internal/presence"
	"github.com/UkralStul/blog-platform/internal/service"
	"github.com/UkralStul/blog-platform/internal/storage"
	"github.com/UkralStul/blog-platform/internal/storage/inmemory"
	"github.com/UkralStul/blog-platform/internal/storage/mongo"
	"github.com/UkralStul/blog-platform/internal/storage/postgres"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	storageType := flag.String("storage", "", "Storage type (in-memory, postgres or mongo); overrides config")
	dev := flag.Bool("dev", false, "Development mode: human-readable logs and a default JWT secret")
	seed := flag.Bool("seed", false, "Fill the storage with demo users, posts and comments")
	flag.Parse()

	logger, err := newLogger(*dev)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	cfg, err := config.Load(config.Options{Dev: *dev})
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if *storageType != "" {
		cfg.Storage.Type = *storageType
	}

	ctx := context.Background()

	logger.Info("starting server", zap.String("storage", cfg.Storage.Type))
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	defer store.Close()

	authors, closeCache := openCache(ctx, cfg, logger)
	defer closeCache()

	resolver := dataloader.NewResolver(store, authors, logger)
	svc := service.New(service.Deps{
		Logger:  logger,
		Store:   store,
		Tokens:  auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTExpire),
		Hasher:  auth.NewHasher(cfg.Auth.BcryptCost),
		Authors: resolver,
	})

	if shouldSeed(*seed, *dev, cfg) {
		if err := fillWithMockData(ctx, svc, logger); err != nil {
			logger.Fatal("failed to fill mock data", zap.Error(err))
		}
	}

	router := api.NewRouter(api.Options{
		Service:        svc,
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Loaders:        resolver.Middleware,
		Presence:       presence.NewHub(logger, cfg.Server.AllowedOrigins),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", "http://localhost:"+cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// shouldSeed: демо-пользователи с известным паролем создаются только по явному
// запросу или в dev-режиме.
func shouldSeed(flagSeed, dev bool, cfg *config.Config) bool {
	return flagSeed || cfg.Seed || dev
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	switch cfg.Storage.Type {
	case config.StoragePostgres:
		return postgres.New(cfg.Postgres.DSN, logger)
	case config.StorageMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return mongo.New(connectCtx, cfg.Mongo.URI, cfg.Mongo.Database)
	case config.StorageInMemory:
		return inmemory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}

// openCache возвращает кеш авторов в redis, если он настроен.
// Недоступный redis означает работу без кеша.
func openCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (cache.Authors, func()) {
	if cfg.Redis.Addr == "" {
		return cache.Noop{}, func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis is unavailable, author cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		rdb.Close()
		return cache.Noop{}, func() {}
	}

	logger.Info("author cache enabled", zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", cfg.Redis.TTL))
	return cache.NewRedis(rdb, cfg.Redis.TTL), func() { rdb.Close() }
}

// fillWithMockData заполняет хранилище через сервисы, чтобы пароли хешировались
// и все проверки выполнялись так же, как для обычных запросов.
func fillWithMockData(ctx context.Context, svc *service.Service, logger *zap.Logger) error {
	bio := "Пишу про Go и распределенные системы."
	alice, err := svc.Register(ctx, service.RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "password",
		Bio:      &bio,
	})
	if errors.Is(err, domain.ErrUserAlreadyExists) {
		logger.Info("mock data already present, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create user alice: %w", err)
	}

	bob, err := svc.Register(ctx, service.RegisterInput{
		Username: "bob",
		Email:    "bob@example.com",
		Password: "password",
	})
	if err != nil {
		return fmt.Errorf("failed to create user bob: %w", err)
	}

	post, err := svc.Posts.Create(ctx, alice.User.ID, service.CreatePostInput{
		Title:   "Добро пожаловать в блог",
		Content: "Первый пост платформы. Здесь мы обсуждаем Go и архитектуру сервисов.",
		Tags:    []string{"go", "intro"},
	})
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}

	if _, err := svc.Comments.Create(ctx, bob.User.ID, service.CreateCommentInput{
		PostID:  post.ID,
		Content: "Отличный пост! Очень информативно.",
	}); err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}

	if _, err := svc.Posts.ToggleLike(ctx, bob.User.ID, post.ID); err != nil {
		return fmt.Errorf("failed to like post: %w", err)
	}

	second, err := svc.Posts.Create(ctx, bob.User.ID, service.CreatePostInput{
		Title:   "Пагинация и теги",
		Content: "Посты можно фильтровать по тегу и листать страницами.",
		Tags:    []string{"go", "api"},
	})
	if err != nil {
		return fmt.Errorf("failed to create second post: %w", err)
	}

	logger.Info("mock data filled", zap.String("post_id", post.ID), zap.String("second_post_id", second.ID))
	return nil
}
