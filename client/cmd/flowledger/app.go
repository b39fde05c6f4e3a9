package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"flowLedger/client/backend"
	"flowLedger/client/cache"
	"flowLedger/client/config"
	"flowLedger/client/converter"
	"flowLedger/client/database"
	"flowLedger/client/kafka"
	"flowLedger/client/metrics"
	"flowLedger/client/repository"
	"flowLedger/client/service"
	"flowLedger/client/session"
)

// app holds everything a command may need. Integrations whose settings are
// empty stay nil.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	sessions *session.Manager
	client   *backend.Client
	importer *service.Importer
	catalog  *service.CurrencyCatalog
	metrics  *metrics.Metrics

	redis    *database.Cache
	db       *database.DB
	producer kafka.Producer

	closed bool
}

func newLogger(format string) (*zap.Logger, error) {
	if format == "console" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, metrics: metrics.NewMetrics()}

	var (
		tokens   session.TokenStore
		statuses *cache.StatusCache
		repo     repository.Repository
	)

	if cfg.RedisAddr != "" {
		redis, err := database.ConnectCache(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.redis = redis
		tokens = cache.NewTokenStore(redis)
		statuses = cache.NewStatusCache(redis)
	}

	if cfg.DatabaseURL != "" {
		db, err := database.ConnectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.db = db
		repo = repository.NewPostgresRepo(db)
	}

	if brokers := cfg.Brokers(); len(brokers) > 0 {
		producer, err := kafka.NewProducer(brokers, cfg.KafkaTopic)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect kafka: %w", err)
		}
		a.producer = producer
	}

	a.sessions = session.NewManager(tokens, logger)
	if err := a.sessions.Restore(ctx); err != nil {
		logger.Warn("Failed to restore session", zap.Error(err))
	}
	if cfg.Token != "" {
		a.sessions.SetToken(cfg.Token)
	}

	client, err := backend.NewClient(cfg.BaseURL, cfg.HTTPTimeout, a.sessions, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.client = client

	a.catalog = service.NewCurrencyCatalog(client, logger)
	a.catalog.Watch(ctx, a.sessions)

	a.importer = service.NewImporter(client, service.Options{
		Poller:      cfg.PollerConfig(),
		MaxFileSize: cfg.MaxFileSize,
		Receipts:    converter.NewReceiptConverter(cfg.ReceiptMaxWidth, logger),
		Repo:        repo,
		Cache:       statuses,
		Producer:    a.producer,
		Metrics:     a.metrics,
	}, logger)

	if cfg.MetricsAddr != "" {
		go func() {
			if err := a.metrics.Serve(ctx, cfg.MetricsAddr, logger); err != nil {
				logger.Error("Metrics server stopped", zap.Error(err))
			}
		}()
	}

	return a, nil
}

// Close releases every integration. It is safe to call more than once.
func (a *app) Close() {
	if a.closed {
		return
	}
	a.closed = true

	if a.sessions != nil {
		a.sessions.Close()
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("Failed to close kafka producer", zap.Error(err))
		}
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
}
