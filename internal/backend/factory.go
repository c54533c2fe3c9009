package backend

import (
	"context"
	"fmt"

	"clinica/internal/amqp"
	"clinica/internal/ledger"
	"clinica/internal/ledger/memory"
	"clinica/internal/log"
	"clinica/internal/services"
	"clinica/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentBackend)
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store   ledger.Store
		ready   func(context.Context) error
		closers []func() error
	)

	switch config.Type {
	case SQLiteBackend:
		repo, err := f.createSQLiteStore(ctx, config)
		if err != nil {
			return nil, err
		}
		store, ready = repo, repo.Ping
		closers = append(closers, repo.Close)
	case MemoryBackend:
		mem, err := memory.NewFromFile(config.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load seed data: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized memory backend", "seed_file", config.SeedFile)
		store = mem
		ready = func(context.Context) error { return nil }
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	// a nil *amqp.Client must never reach the service as a non-nil interface
	var publisher services.Publisher
	if client := f.createPublisher(ctx, config); client != nil {
		publisher = client
		closers = append(closers, client.Close)
	}

	svc := services.NewTransactionService(store, publisher, f.logger.WithComponent(log.ComponentStore), closers...)

	return &BackendResult{
		Store:      svc,
		Ready:      ready,
		Cleanup:    svc.Close,
		Publishing: publisher != nil,
	}, nil
}

func (f *DefaultFactory) createSQLiteStore(ctx context.Context, config Config) (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger.WithComponent(log.ComponentStorage))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	seed, err := memory.LoadSeed(config.SeedFile)
	if err != nil {
		repo.Close()
		return nil, err
	}
	if err := repo.SeedIfEmpty(ctx, seed); err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to seed SQLite repository: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return repo, nil
}

// createPublisher connects to the broker when configured. A broker that is
// down at startup only disables events; the store keeps serving.
func (f *DefaultFactory) createPublisher(ctx context.Context, config Config) *amqp.Client {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger.WithComponent(log.ComponentAMQP))
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		return nil
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}
