package datastore

import (
	"context"
	"sync"

	"github.com/launchdarkly/go-sdk-evaluation-core/internal/ldmodel"
)

// MemoryStore is the default in-process Store: two nested maps guarded by
// one RWMutex, the same shape the teacher's in-memory store used for a
// single flat map — generalized here to the kind/key/item triple the wire
// model requires.
type MemoryStore struct {
	mu          sync.RWMutex
	items       map[ldmodel.DataKind]map[string]ldmodel.ItemDescriptor
	initialized bool
}

// NewMemoryStore builds an empty, uninitialized store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[ldmodel.DataKind]map[string]ldmodel.ItemDescriptor),
	}
}

func (m *MemoryStore) Init(_ context.Context, allData map[ldmodel.DataKind]map[string]ldmodel.ItemDescriptor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[ldmodel.DataKind]map[string]ldmodel.ItemDescriptor, len(allData))
	for kind, items := range allData {
		kindCopy := make(map[string]ldmodel.ItemDescriptor, len(items))
		for k, v := range items {
			kindCopy[k] = v
		}
		m.items[kind] = kindCopy
	}
	m.initialized = true
	return nil
}

func (m *MemoryStore) Get(_ context.Context, kind ldmodel.DataKind, key string) (ldmodel.ItemDescriptor, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byKey, ok := m.items[kind]
	if !ok {
		return ldmodel.ItemDescriptor{}, false, nil
	}
	item, ok := byKey[key]
	return item, ok, nil
}

func (m *MemoryStore) GetAll(_ context.Context, kind ldmodel.DataKind) (map[string]ldmodel.ItemDescriptor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byKey := m.items[kind]
	result := make(map[string]ldmodel.ItemDescriptor, len(byKey))
	for k, v := range byKey {
		if v.IsTombstone() {
			continue
		}
		result[k] = v
	}
	return result, nil
}

func (m *MemoryStore) Upsert(_ context.Context, kind ldmodel.DataKind, key string, item ldmodel.ItemDescriptor) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byKey, ok := m.items[kind]
	if !ok {
		byKey = make(map[string]ldmodel.ItemDescriptor)
		m.items[kind] = byKey
	}

	if existing, found := byKey[key]; found && existing.Version >= item.Version {
		return false, nil
	}
	byKey[key] = item
	return true, nil
}

func (m *MemoryStore) Initialized(_ context.Context) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

func (m *MemoryStore) Close() error {
	return nil
}
