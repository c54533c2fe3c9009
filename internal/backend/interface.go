package backend

import (
	"context"

	"clinica/internal/ledger"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the store the REST resource serves from, a
// readiness probe and an optional cleanup function.
type BackendResult struct {
	Store   ledger.Store
	Ready   func(ctx context.Context) error
	Cleanup CleanupFunc

	// Publishing reports whether accepted changes are announced on AMQP.
	Publishing bool
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// Seed data for an empty store; empty means the built-in demo records
	SeedFile string

	// SQLite specific
	SQLiteDBPath string

	// Event publishing, optional for every backend type
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
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
