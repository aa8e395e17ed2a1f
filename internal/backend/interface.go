package backend

import (
	"context"
	"time"

	"backoffice/internal/cache"
	"backoffice/internal/ports"
	"backoffice/internal/services"
	"backoffice/internal/sources"
)

// Store is what a storage backend must provide for the ledger to run on it.
type Store interface {
	ports.ManualStore
	sources.NativeReaders
	Ping(ctx context.Context) error
	Close() error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the wired ledger service and its lifecycle hooks.
type BackendResult struct {
	Service *services.LedgerService
	// Ready reports whether the store answers; it backs /readyz.
	Ready   func(ctx context.Context) error
	Caches  *cache.Manager
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory backend specific
	SeedDir string

	// Event bus, optional for both backends
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Ledger behaviour
	AggregateTimeout time.Duration
	AllowOverdraft   bool
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
