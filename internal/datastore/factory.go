package datastore

import (
	"context"
	"fmt"
)

// NewStore builds a Store by name.
//
//   - "memory": in-process, lost on restart.
//   - "postgres": durable, requires a non-empty dbDSN.
//
// Postgres pool creation validates the DSN but does not verify
// connectivity; call pool.Ping if you want to fail fast.
func NewStore(ctx context.Context, storeType, dbDSN string) (Store, error) {
	switch storeType {
	case "", "memory":
		return NewMemoryStore(), nil
	case "postgres":
		if dbDSN == "" {
			return nil, fmt.Errorf("database DSN cannot be empty when using postgres store")
		}
		pool, err := NewPool(ctx, dbDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		return NewPostgresStore(pool), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s (must be 'memory' or 'postgres')", storeType)
	}
}
