package backend

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"backoffice/internal/amqp"
	"backoffice/internal/cache"
	"backoffice/internal/ledger"
	"backoffice/internal/ports"
	"backoffice/internal/services"
	"backoffice/internal/sources"
	"backoffice/internal/storage"
	"backoffice/internal/storage/memory"
)

const cacheCleanupInterval = 5 * time.Minute

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// opened is a store plus the repositories it hands out.
type opened struct {
	store      Store
	accounts   ports.AccountRepository
	categories ports.CategoryRepository
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		o   opened
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		o, err = f.openSQLite(config)
	case MemoryBackend:
		o, err = f.openMemory(config)
	default:
		err = fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	return f.assemble(ctx, config, o), nil
}

func (f *DefaultFactory) openSQLite(config Config) (opened, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return opened{}, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return opened{store: repo, accounts: repo.Accounts(), categories: repo.Categories()}, nil
}

func (f *DefaultFactory) openMemory(config Config) (opened, error) {
	store, err := memory.NewFromDir(config.SeedDir)
	if err != nil {
		return opened{}, fmt.Errorf("failed to load memory backend from %q: %w", config.SeedDir, err)
	}
	f.logger.Info("Initialized memory backend", "seed_dir", config.SeedDir)
	return opened{store: store, accounts: store.Accounts(), categories: store.Categories()}, nil
}

// assemble wires the ledger on top of an opened store. The event bus is
// optional: when it cannot be reached the ledger runs without events.
func (f *DefaultFactory) assemble(ctx context.Context, config Config, o opened) *BackendResult {
	var aggOpts []ledger.AggregatorOption
	if config.AggregateTimeout > 0 {
		aggOpts = append(aggOpts, ledger.WithFetchTimeout(config.AggregateTimeout))
	}
	aggregator := ledger.NewAggregator(sources.All(o.store, o.store), aggOpts...)
	taxonomy := ledger.NewTaxonomy(o.categories)
	writer := ledger.NewWriter(o.store, o.accounts, taxonomy, ledger.WithOverdraft(config.AllowOverdraft))

	var (
		opts    []services.Option
		closers []io.Closer
	)
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without ledger events", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			opts = append(opts, services.WithPublisher(client))
			closers = append(closers, client)
		}
	}
	closers = append(closers, o.store)
	opts = append(opts, services.WithClosers(closers...))

	svc := services.NewLedgerService(aggregator, writer, taxonomy, o.accounts, opts...)

	caches := cache.NewManager()
	caches.Register("categories", taxonomy.Cache())
	caches.StartCleanup(ctx, cacheCleanupInterval)

	f.logger.Info("Ledger ready",
		"backend", config.Type.String(),
		"events_enabled", len(closers) > 1,
		"allow_overdraft", config.AllowOverdraft)

	return &BackendResult{
		Service: svc,
		Ready:   o.store.Ping,
		Caches:  caches,
		Cleanup: func() error {
			caches.Stop()
			return svc.Close()
		},
	}
}
