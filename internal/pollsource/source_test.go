package pollsource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/launchdarkly/go-sdk-evaluation-core/internal/broadcast"
	"github.com/launchdarkly/go-sdk-evaluation-core/internal/datasourceupdates"
	"github.com/launchdarkly/go-sdk-evaluation-core/internal/datastore"
	"github.com/launchdarkly/go-sdk-evaluation-core/internal/ldmodel"
	"github.com/launchdarkly/go-sdk-evaluation-core/internal/sdklog"
)

const testLogLevel = 3 // zerolog.ErrorLevel, keep test output quiet

func newTestCoordinator(store datastore.Store) *datasourceupdates.Coordinator {
	flagChanges := broadcast.NewFlagChangeBroadcaster(2)
	log := sdklog.New(nil, testLogLevel)
	return datasourceupdates.New(store, flagChanges, log, 0)
}

func TestNewClampsIntervalToMinimum(t *testing.T) {
	src := New("https://example.com", "sdk-key", time.Second, newTestCoordinator(datastore.NewMemoryStore()), sdklog.New(nil, testLogLevel))
	if src.interval != minPollInterval {
		t.Fatalf("expected interval clamped to %s, got %s", minPollInterval, src.interval)
	}
}

func TestPollSuccessInitializesStoreAndClosesStartChannel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "sdk-key" {
			t.Errorf("expected Authorization header sdk-key, got %q", got)
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(`{"flags":{"bool-flag":{"key":"bool-flag","version":1,"on":true}},"segments":{}}`))
	}))
	defer server.Close()

	store := datastore.NewMemoryStore()
	coord := newTestCoordinator(store)
	src := New(server.URL, "sdk-key", minPollInterval, coord, sdklog.New(nil, testLogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startCh := src.Start(ctx)
	select {
	case <-startCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first poll to complete")
	}

	if _, ok, err := store.Get(ctx, ldmodel.Features, "bool-flag"); err != nil || !ok {
		t.Fatalf("expected bool-flag to be present in store, ok=%v err=%v", ok, err)
	}

	if err := src.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestPollNotModifiedDoesNotReinitialize(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.Header().Set("ETag", `"v1"`)
			w.Write([]byte(`{"flags":{},"segments":{}}`))
			return
		}
		if got := r.Header.Get("If-None-Match"); got != `"v1"` {
			t.Errorf("expected conditional request to carry prior ETag, got %q", got)
		}
		w.WriteHeader(http.StatusNotModified)
	}))
	defer server.Close()

	coord := newTestCoordinator(datastore.NewMemoryStore())
	src := New(server.URL, "sdk-key", minPollInterval, coord, sdklog.New(nil, testLogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src.poll(ctx)
	src.poll(ctx)

	if requests != 2 {
		t.Fatalf("expected 2 requests, got %d", requests)
	}
}

func TestPollUnauthorizedMarksDataSourceOff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	coord := newTestCoordinator(datastore.NewMemoryStore())
	src := New(server.URL, "bad-key", minPollInterval, coord, sdklog.New(nil, testLogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src.poll(ctx)

	if got := coord.Status().State; got != datasourceupdates.StateOff {
		t.Fatalf("expected status OFF after unauthorized response, got %v", got)
	}
}
