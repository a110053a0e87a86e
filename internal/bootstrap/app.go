package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"studybuddy/internal/ai"
	appsvc "studybuddy/internal/app"
	"studybuddy/internal/cache"
	"studybuddy/internal/config"
	"studybuddy/internal/document"
	"studybuddy/internal/ocr"
	"studybuddy/internal/pkg/logger"
	"studybuddy/internal/platform/database"
	rabbitmqClient "studybuddy/internal/platform/rabbitmq"
	redisClient "studybuddy/internal/platform/redis"
	"studybuddy/internal/repository"
	"studybuddy/internal/worker"
)

type App struct {
	Config *config.Config
	Log    *logger.Logger
	DB     *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection
	OCR    ocr.Provider

	Auth             *appsvc.AuthService
	Chat             *appsvc.ChatService
	Documents        *appsvc.DocumentService
	EnrichmentWorker *worker.EnrichmentWorker

	StartedAt time.Time
}

// New connects every backing service, migrates the schema and wires the
// application services. Redis is skipped when no address is configured and
// RabbitMQ is only dialled for async enrichment.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	a := &App{Config: cfg, Log: log, StartedAt: time.Now()}
	if err := a.connect(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	if err := a.wire(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) connect(ctx context.Context) error {
	cfg := a.Config

	db, err := database.New(ctx, cfg.Database.Driver, cfg.DatabaseDSN())
	if err != nil {
		return err
	}
	a.DB = db
	if err := database.Migrate(db); err != nil {
		return err
	}

	a.Redis, err = redisClient.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if a.Redis == nil {
		a.Log.Warn("redis address empty, caches disabled")
	}

	if cfg.Pipeline.AsyncEnrichment {
		a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.App.Name)
		if err != nil {
			return err
		}
	}

	a.OCR, err = newOCRProvider(ctx, cfg.OCR)
	return err
}

func (a *App) wire(ctx context.Context) error {
	cfg := a.Config

	llm := ai.NewOpenAICompatibleClient(ai.ChatConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})
	pipeline := document.NewPipeline(llm, a.Log)

	userRepo := repository.NewUserRepository(a.DB)
	sessionRepo := repository.NewSessionRepository(a.DB)
	messageRepo := repository.NewMessageRepository(a.DB)
	documentRepo := repository.NewDocumentRepository(a.DB)

	var (
		historyCache appsvc.HistoryCache
		pageCache    appsvc.PageCache
		publisher    appsvc.EnrichmentPublisher
	)
	if a.Redis != nil {
		historyCache = cache.NewHistoryCache(a.Redis, redisClient.TTL(cfg.Redis.HistoryTTLSeconds, 5*time.Minute))
		pageCache = cache.NewPageCache(a.Redis, redisClient.TTL(cfg.Redis.PageTTLSeconds, time.Hour))
	}
	if a.MQConn != nil {
		publisher = rabbitmqClient.NewEnrichmentPublisher(a.MQConn, cfg.RabbitMQ.EnrichmentQueue)
	}

	a.Auth = appsvc.NewAuthService(
		userRepo,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
	)
	a.Documents = appsvc.NewDocumentService(
		sessionRepo,
		documentRepo,
		a.OCR,
		pipeline,
		publisher,
		pageCache,
		appsvc.DocumentOptions{
			MaxUploadBytes: a.MaxUploadBytes(),
			SummaryWords:   cfg.Pipeline.SummaryWords,
		},
		a.Log,
	)
	a.Chat = appsvc.NewChatService(sessionRepo, messageRepo, documentRepo, a.Documents, pipeline, historyCache, a.Log)

	if a.MQConn != nil {
		a.EnrichmentWorker = worker.NewEnrichmentWorker(a.MQConn, a.Documents, cfg.RabbitMQ.EnrichmentQueue, a.Log)
		if err := a.EnrichmentWorker.Start(ctx); err != nil {
			return fmt.Errorf("start enrichment worker failed: %w", err)
		}
	}
	return nil
}

func (a *App) MaxUploadBytes() int64 {
	return int64(a.Config.Pipeline.MaxUploadMB) << 20
}

func newOCRProvider(ctx context.Context, cfg config.OCRConfig) (ocr.Provider, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	switch cfg.Provider {
	case "documentai":
		provider, err := ocr.NewDocumentAI(ctx, ocr.DocumentAIConfig{
			ProjectID:       cfg.DocumentAIProject,
			Location:        cfg.DocumentAILocation,
			ProcessorID:     cfg.DocumentAIProcessor,
			CredentialsFile: cfg.CredentialsFile,
			Timeout:         timeout,
		})
		if err != nil {
			return nil, err
		}
		return provider, nil
	case "local":
		return ocr.NewLocal(), nil
	default:
		return ocr.NewMistral(ocr.MistralConfig{
			BaseURL: cfg.MistralBaseURL,
			APIKey:  cfg.MistralAPIKey,
			Model:   cfg.MistralModel,
			Timeout: timeout,
		}), nil
	}
}

func (a *App) Close() error {
	var errs []error
	if a.EnrichmentWorker != nil {
		a.EnrichmentWorker.Close()
	}
	if a.MQConn != nil && !a.MQConn.IsClosed() {
		if err := a.MQConn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if closer, ok := a.OCR.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
