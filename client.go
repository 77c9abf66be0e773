// Package ldclient is the top-level façade: it wires the data store,
// evaluator, data-source-updates coordinator, a streaming or polling data
// source, and the change broadcasters into one Client, the way
// cmd/server/main.go wires its own components together at startup (load
// config, build store, build data source, wait for the start signal, then
// serve).
package ldclient

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/launchdarkly/go-sdk-evaluation-core/internal/broadcast"
	"github.com/launchdarkly/go-sdk-evaluation-core/internal/datasourceupdates"
	"github.com/launchdarkly/go-sdk-evaluation-core/internal/datastore"
	"github.com/launchdarkly/go-sdk-evaluation-core/internal/eval"
	"github.com/launchdarkly/go-sdk-evaluation-core/internal/ldcontext"
	"github.com/launchdarkly/go-sdk-evaluation-core/internal/ldmodel"
	"github.com/launchdarkly/go-sdk-evaluation-core/internal/sdklog"
	"github.com/launchdarkly/go-sdk-evaluation-core/internal/securehash"
	"github.com/launchdarkly/go-sdk-evaluation-core/internal/telemetry"
)

// User is re-exported so callers don't need to import internal/ldcontext
// directly to build one.
type User = ldcontext.User

// Client evaluates feature flags against data kept current by a
// background data source. A Client is safe for concurrent use by any
// number of goroutines; build exactly one per SDK key and reuse it.
type Client struct {
	sdkKey  string
	offline bool

	store       datastore.Store
	coord       *datasourceupdates.Coordinator
	source      dataSource
	flagChanges *broadcast.FlagChangeBroadcaster

	metricsEnabled bool

	cancel context.CancelFunc
	closed int32

	log *sdklog.Logger
}

// New builds a Client and blocks until the data source has completed its
// first Init or config.StartWaitTimeout elapses, whichever comes first. A
// timeout is not an error: the returned Client is still usable and the
// data source keeps retrying in the background, exactly as Initialized()
// reports.
func New(sdkKey string, config Config) (*Client, error) {
	log := sdklog.New(config.LogWriter, config.LogLevel)

	if config.Offline {
		return &Client{sdkKey: sdkKey, offline: true, log: log.Component("ldclient")}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	store, err := datastore.NewStore(ctx, config.StoreType, config.DatabaseDSN)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("building data store: %w", err)
	}

	flagChanges := broadcast.NewFlagChangeBroadcaster(config.BroadcasterConcurrency)
	coord := datasourceupdates.New(store, flagChanges, log, config.OutageTimeout)

	builder := config.DataSource
	if builder == nil {
		builder = StreamingDataSource()
	}
	source := builder.build(sdkKey, dataSourceDeps{coord: coord, log: log})

	if config.MetricsEnabled {
		telemetry.Init()
	}

	startCh := source.Start(ctx)

	waitTimeout := config.StartWaitTimeout
	if waitTimeout <= 0 {
		waitTimeout = DefaultStartWaitTimeout
	}
	select {
	case <-startCh:
	case <-time.After(waitTimeout):
		log.Component("ldclient").Warn("timed out waiting for data source init, continuing in background")
	}

	c := &Client{
		sdkKey:         sdkKey,
		store:          store,
		coord:          coord,
		source:         source,
		flagChanges:    flagChanges,
		metricsEnabled: config.MetricsEnabled,
		cancel:         cancel,
		log:            log.Component("ldclient"),
	}
	return c, nil
}

// Initialized reports whether the data store has ever received a
// successful Init. An offline Client is always initialized.
func (c *Client) Initialized() bool {
	if c.offline {
		return true
	}
	return c.store.Initialized(context.Background())
}

// DataSourceStatus returns the current data source connection status.
// Calling this on an offline Client returns the zero Status.
func (c *Client) DataSourceStatus() datasourceupdates.Status {
	if c.offline || c.coord == nil {
		return datasourceupdates.Status{}
	}
	return c.coord.Status()
}

// SecureModeHash computes the secure-mode proof for user, for embedding in
// client-side SDK initialization so it can confirm this user key wasn't
// forged in transit.
func (c *Client) SecureModeHash(user *User) string {
	if user == nil {
		return ""
	}
	return securehash.Hash(c.sdkKey, user.Key)
}

// BoolVariation evaluates flagKey for user, returning defaultValue if the
// flag doesn't exist, isn't a bool, or the client is offline.
func (c *Client) BoolVariation(flagKey string, user *User, defaultValue bool) bool {
	detail := c.evaluate(flagKey, user)
	if v, ok := detail.Value.(bool); ok {
		return v
	}
	return defaultValue
}

// StringVariation evaluates flagKey for user, returning defaultValue if
// the flag doesn't exist, isn't a string, or the client is offline.
func (c *Client) StringVariation(flagKey string, user *User, defaultValue string) string {
	detail := c.evaluate(flagKey, user)
	if v, ok := detail.Value.(string); ok {
		return v
	}
	return defaultValue
}

// IntVariation evaluates flagKey for user, returning defaultValue if the
// flag doesn't exist, isn't numeric, or the client is offline. Variation
// values decode from JSON as float64; this truncates toward zero.
func (c *Client) IntVariation(flagKey string, user *User, defaultValue int) int {
	detail := c.evaluate(flagKey, user)
	switch v := detail.Value.(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return defaultValue
	}
}

// JSONVariation evaluates flagKey for user, returning defaultValue if the
// flag doesn't exist or the client is offline. The value is whatever JSON
// shape the flag's variation held (bool, string, float64, []any,
// map[string]any, or nil).
func (c *Client) JSONVariation(flagKey string, user *User, defaultValue any) any {
	detail := c.evaluate(flagKey, user)
	if detail.VariationIndex == nil {
		return defaultValue
	}
	return detail.Value
}

// VariationDetail evaluates flagKey for user and returns the full Detail,
// for callers that want the evaluation reason alongside the value.
func (c *Client) VariationDetail(flagKey string, user *User) eval.Detail {
	return c.evaluate(flagKey, user)
}

// AllFlagsState evaluates every known flag for user, returning a map of
// flag key to resolved value. Intended for bootstrapping a client-side SDK
// with the evaluated state for one user; every flag in the store is
// included, whatever its ClientSideAvailability says.
func (c *Client) AllFlagsState(user *User) map[string]any {
	result := map[string]any{}
	if c.offline {
		return result
	}
	ctx := context.Background()
	items, err := c.store.GetAll(ctx, ldmodel.Features)
	if err != nil {
		c.log.ErrorErr("failed to list flags for AllFlagsState", err)
		return result
	}
	for key, item := range items {
		flag, ok := item.Item.(*ldmodel.Flag)
		if !ok {
			continue
		}
		detail, _ := eval.Evaluate(ctx, c.store, flag, user)
		result[key] = detail.Value
	}
	return result
}

func (c *Client) evaluate(flagKey string, user *User) eval.Detail {
	if c.offline {
		return eval.Detail{Reason: eval.Reason{Kind: eval.ReasonOff}}
	}

	ctx := context.Background()

	if !c.store.Initialized(ctx) && c.coord.Status().State != datasourceupdates.StateOff {
		return eval.Detail{Reason: eval.Reason{Kind: eval.ReasonError, ErrorKind: eval.ErrorClientNotReady}}
	}

	item, ok, err := c.store.Get(ctx, ldmodel.Features, flagKey)
	if err != nil {
		c.log.ErrorErr("failed to look up flag", err)
		return eval.Detail{Reason: eval.Reason{Kind: eval.ReasonError, ErrorKind: eval.ErrorException}}
	}
	if !ok || item.IsTombstone() {
		return eval.Detail{Reason: eval.Reason{Kind: eval.ReasonError, ErrorKind: eval.ErrorFlagNotFound}}
	}
	flag, ok := item.Item.(*ldmodel.Flag)
	if !ok {
		return eval.Detail{Reason: eval.Reason{Kind: eval.ReasonError, ErrorKind: eval.ErrorMalformedFlag}}
	}

	detail, _ := eval.Evaluate(ctx, c.store, flag, user)
	if c.metricsEnabled {
		telemetry.RecordEvaluation(detail.Reason.Kind)
	}
	return detail
}

// Close shuts down the background data source and releases the data
// store. Safe to call more than once; subsequent calls are no-ops.
func (c *Client) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	if c.offline {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	if c.source != nil {
		_ = c.source.Close()
	}
	if c.flagChanges != nil {
		c.flagChanges.Close()
	}
	return c.store.Close()
}
