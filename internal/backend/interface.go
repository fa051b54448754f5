package backend

import (
	"context"

	"billing/internal/services"
	"billing/internal/storage"
)

// CleanupFunc releases the resources of a backend.
type CleanupFunc func() error

// BackendResult is a ready billing store plus what its callers may need
// beyond the store interface.
type BackendResult struct {
	// Store publishes a change event after every successful write when
	// AMQP is configured.
	Store *services.BillingService
	// Repo is the SQL repository behind Store, nil for the memory backend.
	Repo    *storage.SQLRepository
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQL backends
	SQLiteDBPath string
	DatabaseURL  string

	// Change events, optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Memory backend seed data
	DataDirectory string
	Practitioner  string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
