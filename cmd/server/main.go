package main

import (
	"context"
	"strings"
	"time"

	"github.com/kiroku-app/kiroku/internal/ai"
	"github.com/kiroku-app/kiroku/internal/config"
	"github.com/kiroku-app/kiroku/internal/db"
	"github.com/kiroku-app/kiroku/internal/httpapi"
	"github.com/kiroku-app/kiroku/internal/journal"
	"github.com/kiroku-app/kiroku/internal/logging"
	"github.com/kiroku-app/kiroku/internal/models"
	"github.com/kiroku-app/kiroku/internal/store/rabbitmq"
	"github.com/kiroku-app/kiroku/internal/store/redisstore"
	"go.uber.org/zap"
)

func buildRegistry(cfg config.Config) *ai.Registry {
	reg := ai.NewRegistry()

	reg.Register("openai", func(ctx context.Context, model string) (ai.Provider, error) {
		_ = ctx
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.OpenAIModel
		}
		return ai.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, m, cfg.ImageModel), nil
	})

	reg.Register("ollama", func(ctx context.Context, model string) (ai.Provider, error) {
		_ = ctx
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.OllamaModel
		}
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, m), nil
	})

	reg.Register("openrouter", func(ctx context.Context, model string) (ai.Provider, error) {
		_ = ctx
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.OpenRouterModel
		}
		return ai.NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, m, cfg.OpenRouterSiteURL, cfg.OpenRouterAppName), nil
	})

	return reg
}

func main() {
	cfg := config.Load()

	logger := logging.New(cfg.LogFile, cfg.AppEnv == "production")
	defer logger.Sync()

	gdb, err := db.Connect(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		logger.Fatal("db connect failed", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}

	cacheTTL := time.Duration(cfg.CacheTTLMinutes) * time.Minute
	var cache journal.SessionCache
	switch strings.ToLower(cfg.CacheBackend) {
	case "redis":
		rs := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cacheTTL)
		if err := rs.Ping(context.Background()); err != nil {
			logger.Fatal("redis unreachable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		cache = rs
	default:
		cache = journal.NewMemoryCache(cacheTTL)
	}

	store := journal.NewStore(gdb, cache, logger)
	if err := store.AutoMigrate(); err != nil {
		logger.Fatal("migrate failed", zap.Error(err))
	}
	if err := gdb.AutoMigrate(&models.User{}); err != nil {
		logger.Fatal("migrate users failed", zap.Error(err))
	}

	composer := journal.NewComposer()
	engine := journal.NewEngine(store, buildRegistry(cfg), composer, logger, cfg.AIProvider, "", cfg.ImagesDir)
	svc := journal.NewService(store, engine, composer, logger)

	var rabbit *rabbitmq.Publisher
	if cfg.AsyncEnabled {
		rabbit, err = rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			logger.Fatal("rabbit connect failed", zap.String("url", cfg.RabbitURL), zap.Error(err))
		}
		defer rabbit.Close()
	}

	r := httpapi.NewRouter(gdb, cfg, svc, store, rabbit, logger)

	logger.Info("server listening",
		zap.String("port", cfg.Port),
		zap.String("provider", cfg.AIProvider),
		zap.Bool("async", cfg.AsyncEnabled))

	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
