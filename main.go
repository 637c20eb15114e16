package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dgraph-io/ristretto/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"todo-backend/auth"
	"todo-backend/config"
	"todo-backend/repository"
	"todo-backend/routes"
	"todo-backend/server"
	"todo-backend/storage"
)

const (
	shutdownTimeout    = 10 * time.Second
	redisStoragePrefix = "todo:"
)

var logger *zap.Logger

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("failed to load .env: %v", err)
	}

	cfg, err := config.Parse(env.ToMap(os.Environ()))
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	logger, err = newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	if cfg.JWTSecret == "" {
		secret, err := auth.GenerateSecret()
		if err != nil {
			logger.Fatal("failed to generate jwt secret", zap.Error(err))
		}
		cfg.JWTSecret = secret
		logger.Warn("JWT_SECRET is not set, using a random secret; tokens will not survive a restart")
	}

	cacheConfig := &ristretto.Config[string, routes.CacheValue]{
		NumCounters: 1e6,      // number of keys to track frequency of (1M).
		MaxCost:     64 << 20, // maximum cost of cache (64MB).
		BufferItems: 64,       // number of keys per Get buffer.
	}

	if cfg.CacheBufferItems > 0 {
		cacheConfig.BufferItems = cfg.CacheBufferItems
	}

	if cfg.CacheMaxCost > 0 {
		cacheConfig.MaxCost = cfg.CacheMaxCost
	}

	if cfg.CacheNumCounters > 0 {
		cacheConfig.NumCounters = cfg.CacheNumCounters
	}

	cache, err := ristretto.NewCache(cacheConfig)
	if err != nil {
		logger.Fatal("failed to create task cache", zap.Error(err))
	}
	defer cache.Close()

	repo, store, err := newStores(&cfg)
	if err != nil {
		logger.Fatal("failed to create repository", zap.Error(err))
	}
	defer repo.Close()
	defer store.Close()

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiration, store)
	if err != nil {
		logger.Fatal("failed to create token manager", zap.Error(err))
	}

	deps := &routes.Dependencies{
		Logger:     logger,
		Config:     &cfg,
		Repository: repo,
		Tokens:     tokens,
		Hasher:     auth.NewBcryptHasher(cfg.BcryptCost),
		TaskCache:  routes.NewTaskListCache(cache, time.Duration(cfg.CacheTTL)*time.Second),
		Storage:    store,
	}

	app := server.New(logger, &cfg, deps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, logger, app, cfg.Address, shutdownTimeout); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()

	atomicLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zapConfig.Level = atomicLevel

	return zapConfig.Build()
}

// newStores picks the repository and the fiber.Storage shared by the auth
// limiter and token revocation. With Redis both live there so every process
// sees the same state.
func newStores(cfg *config.Config) (repository.Repository, fiber.Storage, error) {
	if cfg.RedisAddr == "" {
		logger.Info("using in-memory repository")

		store, err := storage.NewDefaultRistrettoStorage()
		if err != nil {
			return nil, nil, err
		}
		return repository.NewMemoryRepository(), store, nil
	}

	logger.Info("using redis repository", zap.String("address", cfg.RedisAddr))

	repo, err := repository.NewRedisRepository(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	return repo, storage.NewRedisStorage(repo.Client(), redisStoragePrefix), nil
}
