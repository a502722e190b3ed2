package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	catalogdomain "github.com/felixgeelhaar/sigil/internal/catalog/domain"
	catalogPersistence "github.com/felixgeelhaar/sigil/internal/catalog/infrastructure/persistence"
	entitlementCommands "github.com/felixgeelhaar/sigil/internal/entitlement/application/commands"
	entitlementQueries "github.com/felixgeelhaar/sigil/internal/entitlement/application/queries"
	entitlementServices "github.com/felixgeelhaar/sigil/internal/entitlement/application/services"
	entitlementDomain "github.com/felixgeelhaar/sigil/internal/entitlement/domain"
	"github.com/felixgeelhaar/sigil/internal/entitlement/infrastructure/audit"
	"github.com/felixgeelhaar/sigil/internal/entitlement/infrastructure/encoder"
	"github.com/felixgeelhaar/sigil/internal/entitlement/infrastructure/lock"
	entitlementPersistence "github.com/felixgeelhaar/sigil/internal/entitlement/infrastructure/persistence"
	sharedApplication "github.com/felixgeelhaar/sigil/internal/shared/application"
	"github.com/felixgeelhaar/sigil/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/sigil/internal/shared/infrastructure/outbox"
	sharedPersistence "github.com/felixgeelhaar/sigil/internal/shared/infrastructure/persistence"
	"github.com/felixgeelhaar/sigil/pkg/config"
)

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Database
	DB *pgxpool.Pool

	// Redis
	RedisClient *redis.Client

	// Repositories
	CatalogRepo     catalogdomain.Repository
	EntitlementRepo entitlementDomain.Repository
	PoolRepo        entitlementDomain.PoolRepository
	ConsumerRepo    entitlementDomain.ConsumerRepository
	OutboxRepo      outbox.Repository

	// Infrastructure services
	SerialSequence entitlementDomain.SerialSequence
	Encoder        entitlementDomain.CertificateEncoder
	ConsumerLock   entitlementDomain.ConsumerLock
	RevocationLog  entitlementDomain.RevocationRecorder
	EventPublisher eventbus.Publisher
	UnitOfWork     sharedApplication.UnitOfWork

	// Local-mode event bus, nil when publishing through RabbitMQ.
	LocalEventBus *eventbus.InProcessEventBus

	// Application services
	Regenerator *entitlementServices.Regenerator

	// Command handlers
	BindHandler          *entitlementCommands.BindEntitlementHandler
	UnbindHandler        *entitlementCommands.UnbindEntitlementHandler
	DeletePoolHandler    *entitlementCommands.DeletePoolHandler
	AutoBindHandler      *entitlementCommands.AutoBindHandler
	UpdateProductHandler *entitlementCommands.UpdateProductHandler

	// Query handlers
	GetEntitlementHandler   *entitlementQueries.GetEntitlementHandler
	ListEntitlementsHandler *entitlementQueries.ListEntitlementsHandler
	ListCertificatesHandler *entitlementQueries.ListCertificatesHandler

	// Outbox processor (worker only)
	OutboxProcessor *outbox.Processor

	revocationLog *audit.SQLiteRevocationLog
}

// NewContainer wires the full production stack: PostgreSQL, Redis (when
// enabled), RabbitMQ and the SQLite revocation log.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: logger,
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	c.DB = pool
	logger.Info("connected to database")

	// Redis backs the distributed consumer lock in multi-node deployments.
	if cfg.RedisLockEnabled {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		redisClient := redis.NewClient(opt)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			if !cfg.IsDevelopment() {
				pool.Close()
				return nil, fmt.Errorf("failed to connect to Redis: %w", err)
			}
			logger.Warn("Redis not available, falling back to in-process consumer lock", "error", err)
		} else {
			c.RedisClient = redisClient
			logger.Info("connected to Redis")
		}
	}

	c.CatalogRepo = catalogPersistence.NewPostgresCatalogRepository(pool)
	c.EntitlementRepo = entitlementPersistence.NewPostgresEntitlementRepository(pool)
	c.PoolRepo = entitlementPersistence.NewPostgresPoolRepository(pool)
	c.ConsumerRepo = entitlementPersistence.NewPostgresConsumerRepository(pool)
	c.OutboxRepo = outbox.NewPostgresRepository(pool)
	c.SerialSequence = entitlementPersistence.NewPostgresSerialSequence(pool)
	c.UnitOfWork = sharedPersistence.NewPostgresUnitOfWork(pool)

	if c.RedisClient != nil {
		c.ConsumerLock = lock.NewRedisConsumerLock(c.RedisClient, cfg.LockLeaseTTL, logger)
	} else {
		c.ConsumerLock = lock.NewInMemoryConsumerLock()
	}

	revocationLog, err := audit.NewSQLiteRevocationLog(cfg.RevocationDB)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to open revocation log: %w", err)
	}
	c.revocationLog = revocationLog
	c.RevocationLog = revocationLog

	if err := c.initEncoder(); err != nil {
		c.Close()
		return nil, err
	}

	publisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, logger)
	if err != nil {
		if cfg.IsDevelopment() {
			logger.Warn("RabbitMQ not available, using noop publisher")
			c.EventPublisher = eventbus.NewNoopPublisher(logger)
		} else {
			c.Close()
			return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
	} else {
		c.EventPublisher = publisher
	}

	c.wireHandlers()
	return c, nil
}

// NewLocalContainer wires an in-memory stack: no PostgreSQL, Redis or
// RabbitMQ, an ephemeral signing key and an in-process consumer lock. Useful
// for demos and tests.
func NewLocalContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: logger,
	}

	c.CatalogRepo = catalogPersistence.NewInMemoryCatalogRepository()
	c.EntitlementRepo = entitlementPersistence.NewInMemoryEntitlementRepository()
	c.PoolRepo = entitlementPersistence.NewInMemoryPoolRepository()
	c.ConsumerRepo = entitlementPersistence.NewInMemoryConsumerRepository()
	c.OutboxRepo = outbox.NewInMemoryRepository()
	c.SerialSequence = entitlementPersistence.NewInMemorySerialSequence(0)
	c.UnitOfWork = sharedPersistence.NewNoopUnitOfWork()
	c.ConsumerLock = lock.NewInMemoryConsumerLock()
	c.RevocationLog = audit.NewInMemoryRevocationLog()
	c.LocalEventBus = eventbus.NewInProcessEventBus(logger)
	c.EventPublisher = c.LocalEventBus

	enc, _, err := encoder.GenerateEncoder(c.SerialSequence)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	c.Encoder = encoder.NewBreakerEncoder(enc, c.breakerConfig(), logger)

	c.wireHandlers()
	return c, nil
}

func (c *Container) initEncoder() error {
	pemData, err := os.ReadFile(c.Config.SigningKeyPath)
	if err != nil {
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to read signing key: %w", err)
		}
		c.Logger.Warn("signing key not found, generating ephemeral key", "path", c.Config.SigningKeyPath)
		enc, _, genErr := encoder.GenerateEncoder(c.SerialSequence)
		if genErr != nil {
			return fmt.Errorf("failed to generate signing key: %w", genErr)
		}
		c.Encoder = encoder.NewBreakerEncoder(enc, c.breakerConfig(), c.Logger)
		return nil
	}
	enc, err := encoder.NewEd25519EncoderFromPEM(pemData, c.SerialSequence)
	if err != nil {
		return fmt.Errorf("failed to parse signing key: %w", err)
	}
	c.Encoder = encoder.NewBreakerEncoder(enc, c.breakerConfig(), c.Logger)
	return nil
}

func (c *Container) breakerConfig() encoder.BreakerConfig {
	bc := encoder.DefaultBreakerConfig()
	if c.Config.EncoderBreakerThreshold > 0 {
		bc.FailureThreshold = c.Config.EncoderBreakerThreshold
	}
	if c.Config.EncoderBreakerTimeout > 0 {
		bc.Timeout = c.Config.EncoderBreakerTimeout
	}
	return bc
}

func (c *Container) wireHandlers() {
	c.Regenerator = entitlementServices.NewRegenerator(c.EntitlementRepo, c.CatalogRepo,
		c.Encoder, c.RevocationLog, c.ConsumerLock, c.OutboxRepo, c.UnitOfWork, c.Logger)

	c.BindHandler = entitlementCommands.NewBindEntitlementHandler(c.EntitlementRepo,
		c.PoolRepo, c.CatalogRepo, c.Encoder, c.Regenerator, c.OutboxRepo, c.UnitOfWork)
	c.UnbindHandler = entitlementCommands.NewUnbindEntitlementHandler(c.EntitlementRepo,
		c.RevocationLog, c.Regenerator, c.OutboxRepo, c.UnitOfWork)
	c.DeletePoolHandler = entitlementCommands.NewDeletePoolHandler(c.EntitlementRepo,
		c.PoolRepo, c.RevocationLog, c.Regenerator, c.OutboxRepo, c.UnitOfWork, c.Logger)
	c.AutoBindHandler = entitlementCommands.NewAutoBindHandler(c.ConsumerRepo,
		c.EntitlementRepo, c.PoolRepo, c.BindHandler, c.Logger)
	c.UpdateProductHandler = entitlementCommands.NewUpdateProductHandler(c.EntitlementRepo,
		c.Regenerator, c.Logger)

	c.GetEntitlementHandler = entitlementQueries.NewGetEntitlementHandler(c.EntitlementRepo)
	c.ListEntitlementsHandler = entitlementQueries.NewListEntitlementsHandler(c.EntitlementRepo)
	c.ListCertificatesHandler = entitlementQueries.NewListCertificatesHandler(c.EntitlementRepo)
}

// StartOutboxProcessor starts relaying outbox messages to the event publisher.
func (c *Container) StartOutboxProcessor(ctx context.Context) error {
	cfg := outbox.DefaultProcessorConfig()
	cfg.PollInterval = c.Config.OutboxPollInterval
	cfg.BatchSize = c.Config.OutboxBatchSize
	cfg.MaxRetries = c.Config.OutboxMaxRetries

	c.OutboxProcessor = outbox.NewProcessor(c.OutboxRepo, c.EventPublisher, cfg, c.Logger)
	return c.OutboxProcessor.Start(ctx)
}

// Close cleans up all resources.
func (c *Container) Close() {
	if c.OutboxProcessor != nil {
		c.OutboxProcessor.Stop()
	}

	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}

	if c.revocationLog != nil {
		if err := c.revocationLog.Close(); err != nil {
			c.Logger.Warn("error closing revocation log", "error", err)
		}
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("error closing Redis connection", "error", err)
		}
	}

	if c.DB != nil {
		c.DB.Close()
		c.Logger.Info("PostgreSQL connection closed")
	}
}
