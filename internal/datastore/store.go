// Package datastore holds the last-known-good state of every flag and
// segment: the single source of truth the evaluator reads against. Reads
// never block on writes (RWMutex) and writers serialize through whatever
// coordinator owns Init/Upsert — the store itself only guarantees each
// individual call is atomic, not cross-call ordering.
package datastore

import (
	"context"

	"github.com/launchdarkly/go-sdk-evaluation-core/internal/ldmodel"
)

// Store is the persistence contract the evaluator and the data-source
// coordinator both depend on. Implementations must be safe for concurrent
// use; Get/GetAll must never block behind a slow writer for long.
type Store interface {
	// Init replaces the entire contents of the store in one atomic swap.
	// Kinds not present in allData, like kinds present with an empty map,
	// hold no items afterwards.
	Init(ctx context.Context, allData map[ldmodel.DataKind]map[string]ldmodel.ItemDescriptor) error

	// Get returns the current item for key under kind. The second return
	// value is false only when the store holds nothing for the key; a
	// tombstone is still "found" (its ItemDescriptor.IsTombstone() is true).
	Get(ctx context.Context, kind ldmodel.DataKind, key string) (ldmodel.ItemDescriptor, bool, error)

	// GetAll returns every non-deleted item of the given kind.
	GetAll(ctx context.Context, kind ldmodel.DataKind) (map[string]ldmodel.ItemDescriptor, error)

	// Upsert applies item only if item.Version is strictly newer than the
	// stored version (tombstones included; an equal version is never
	// applied), and reports whether the update was actually applied.
	Upsert(ctx context.Context, kind ldmodel.DataKind, key string, item ldmodel.ItemDescriptor) (bool, error)

	// Initialized reports whether Init has ever succeeded.
	Initialized(ctx context.Context) bool

	// Close releases resources. After Close the store must not be used.
	Close() error
}
