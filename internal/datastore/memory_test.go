package datastore

import (
	"context"
	"testing"

	"github.com/launchdarkly/go-sdk-evaluation-core/internal/ldmodel"
)

func TestMemoryStoreInitAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if s.Initialized(ctx) {
		t.Fatalf("expected uninitialized store before Init")
	}

	flag := &ldmodel.Flag{Key: "my-flag", Version: 1, On: true}
	err := s.Init(ctx, map[ldmodel.DataKind]map[string]ldmodel.ItemDescriptor{
		ldmodel.Features: {"my-flag": {Version: 1, Item: flag}},
	})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !s.Initialized(ctx) {
		t.Fatalf("expected initialized store after Init")
	}

	item, ok, err := s.Get(ctx, ldmodel.Features, "my-flag")
	if err != nil || !ok {
		t.Fatalf("Get: item=%v ok=%v err=%v", item, ok, err)
	}
	if item.Item.(*ldmodel.Flag).Key != "my-flag" {
		t.Fatalf("unexpected item: %#v", item.Item)
	}

	_, ok, err = s.Get(ctx, ldmodel.Features, "missing")
	if err != nil || ok {
		t.Fatalf("expected not-found for missing key, got ok=%v err=%v", ok, err)
	}
}

func TestMemoryStoreUpsertVersioning(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	applied, err := s.Upsert(ctx, ldmodel.Features, "f", ldmodel.ItemDescriptor{Version: 2, Item: &ldmodel.Flag{Key: "f", Version: 2}})
	if err != nil || !applied {
		t.Fatalf("expected first upsert to apply: applied=%v err=%v", applied, err)
	}

	applied, err = s.Upsert(ctx, ldmodel.Features, "f", ldmodel.ItemDescriptor{Version: 1, Item: &ldmodel.Flag{Key: "f", Version: 1}})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if applied {
		t.Fatalf("expected stale version to be rejected")
	}

	applied, err = s.Upsert(ctx, ldmodel.Features, "f", ldmodel.Tombstone(3))
	if err != nil || !applied {
		t.Fatalf("expected newer tombstone to apply: applied=%v err=%v", applied, err)
	}

	item, ok, err := s.Get(ctx, ldmodel.Features, "f")
	if err != nil || !ok {
		t.Fatalf("Get after tombstone: ok=%v err=%v", ok, err)
	}
	if !item.IsTombstone() {
		t.Fatalf("expected tombstone, got %#v", item)
	}
}

func TestMemoryStoreGetAllExcludesTombstones(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, _ = s.Upsert(ctx, ldmodel.Features, "live", ldmodel.ItemDescriptor{Version: 1, Item: &ldmodel.Flag{Key: "live"}})
	_, _ = s.Upsert(ctx, ldmodel.Features, "dead", ldmodel.Tombstone(1))

	all, err := s.GetAll(ctx, ldmodel.Features)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if _, ok := all["live"]; !ok {
		t.Fatalf("expected live item present")
	}
	if _, ok := all["dead"]; ok {
		t.Fatalf("expected tombstoned item excluded from GetAll")
	}
}
