// Package datasourceupdates coordinates writes from a data source (polling
// or streaming) into the data store, derives which flags were affected by
// each change, and tracks the data source's connection status.
//
// All writes go through a single Coordinator instance serialized by one
// mutex; reads of the underlying store stay lock-free because datastore.Store
// itself uses an RWMutex. Listener dispatch happens on the broadcaster's
// worker pool, outside this lock, so a slow listener can't stall Init/Upsert.
package datasourceupdates

import (
	"context"
	"sync"
	"time"

	"github.com/launchdarkly/go-sdk-evaluation-core/internal/broadcast"
	"github.com/launchdarkly/go-sdk-evaluation-core/internal/datastore"
	"github.com/launchdarkly/go-sdk-evaluation-core/internal/ldmodel"
	"github.com/launchdarkly/go-sdk-evaluation-core/internal/sdklog"
)

// Coordinator is the single writer for a Store: it's the only thing a data
// source (streaming or polling) should call Init/Upsert through.
type Coordinator struct {
	mu    sync.Mutex
	store datastore.Store
	graph *dependencyGraph

	flagChanges *broadcast.FlagChangeBroadcaster
	status      *statusBroadcaster
	outage      *outageAggregator

	currentStatus Status
	log           *sdklog.Logger
}

// New builds a Coordinator writing into store, logging under the given
// component tag. outageTimeout is how long the data source must stay
// continuously non-Valid before an aggregated outage summary is logged;
// zero disables outage logging.
func New(store datastore.Store, flagChanges *broadcast.FlagChangeBroadcaster, log *sdklog.Logger, outageTimeout time.Duration) *Coordinator {
	c := &Coordinator{
		store:       store,
		graph:       newDependencyGraph(),
		flagChanges: flagChanges,
		status:      newStatusBroadcaster(),
		currentStatus: Status{
			State:      StateInitializing,
			StateSince: time.Now(),
		},
		log: log,
	}
	c.outage = newOutageAggregator(c.log, outageTimeout)
	return c
}

// Init replaces the entire data set, rebuilds the dependency graph from
// scratch, and notifies listeners of the flags actually affected: the
// symmetric diff between the old and new flag data, expanded through the
// dependency graph for any segment whose version changed. A full Init is
// not treated as "everything changed" — most Inits are a reconnect with an
// unchanged or near-unchanged data set, and broadcasting every flag on
// every one would fire listeners for flags whose value couldn't have moved.
func (c *Coordinator) Init(ctx context.Context, allData map[ldmodel.DataKind]map[string]ldmodel.ItemDescriptor) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	oldFlags, err := c.store.GetAll(ctx, ldmodel.Features)
	if err != nil {
		return err
	}
	oldSegments, err := c.store.GetAll(ctx, ldmodel.Segments)
	if err != nil {
		return err
	}

	if err := c.store.Init(ctx, allData); err != nil {
		return err
	}

	c.graph = newDependencyGraph()
	for key, item := range allData[ldmodel.Features] {
		if item.IsTombstone() {
			continue
		}
		if flag, ok := item.Item.(*ldmodel.Flag); ok {
			c.graph.indexFlag(flag)
		}
	}

	changedFlags := diffItemKeys(oldFlags, allData[ldmodel.Features])
	changedSegments := diffItemKeys(oldSegments, allData[ldmodel.Segments])

	c.setStatusLocked(StateValid, nil)
	if c.flagChanges != nil {
		affected := c.graph.affectedFlagKeys(changedFlags, changedSegments)
		if len(affected) > 0 {
			c.flagChanges.Broadcast(affected)
		}
	}
	return nil
}

// diffItemKeys returns every key added, removed, or version-bumped between
// an old and an updated snapshot of one data kind.
func diffItemKeys(old, updated map[string]ldmodel.ItemDescriptor) []string {
	var changed []string
	for key, updatedItem := range updated {
		oldItem, ok := old[key]
		if !ok || oldItem.Version != updatedItem.Version {
			changed = append(changed, key)
		}
	}
	for key := range old {
		if _, ok := updated[key]; !ok {
			changed = append(changed, key)
		}
	}
	return changed
}

// Upsert applies a single item update and broadcasts the transitive set of
// flags whose evaluation result may now be different. Returns whether the
// update was actually applied (false for a stale/out-of-order update).
func (c *Coordinator) Upsert(ctx context.Context, kind ldmodel.DataKind, key string, item ldmodel.ItemDescriptor) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	applied, err := c.store.Upsert(ctx, kind, key, item)
	if err != nil {
		c.setStatusLocked(c.currentStatus.State, &ErrorInfo{Kind: ErrorKindStoreError, Message: err.Error(), Time: time.Now()})
		return false, err
	}
	if !applied {
		return false, nil
	}

	var affected []string
	switch kind {
	case ldmodel.Features:
		c.graph.removeFlag(key)
		if !item.IsTombstone() {
			if flag, ok := item.Item.(*ldmodel.Flag); ok {
				c.graph.indexFlag(flag)
			}
		}
		affected = c.graph.affectedFlagKeys([]string{key}, nil)
	case ldmodel.Segments:
		affected = c.graph.affectedFlagKeys(nil, []string{key})
	}

	if c.flagChanges != nil && len(affected) > 0 {
		c.flagChanges.Broadcast(affected)
	}
	return true, nil
}

// UpdateStatus records a state transition from the data source. A nil
// errorInfo leaves LastError unchanged — callers use nil to report "still
// in this state" without implying the previous error cleared.
func (c *Coordinator) UpdateStatus(newState State, errorInfo *ErrorInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setStatusLocked(newState, errorInfo)
}

// setStatusLocked applies the Initializing-sticky rule: once Valid has
// been reached, a data source reporting an error moves to Interrupted, not
// back to Initializing — Initializing only ever regresses to Off.
func (c *Coordinator) setStatusLocked(newState State, errorInfo *ErrorInfo) {
	if c.currentStatus.State == StateInitializing && newState == StateInterrupted {
		newState = StateInitializing
	}

	if errorInfo != nil {
		c.outage.recordError(*errorInfo)
	}

	changed := newState != c.currentStatus.State
	if changed {
		c.currentStatus.State = newState
		c.currentStatus.StateSince = time.Now()
		if newState == StateValid {
			c.outage.flush()
		}
	}
	if errorInfo != nil {
		c.currentStatus.LastError = errorInfo
	}

	if (changed || errorInfo != nil) && c.status != nil {
		c.status.publish(c.currentStatus)
	}
}

// Status returns the current data source status.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentStatus
}

// SubscribeStatus registers a listener for future status changes.
func (c *Coordinator) SubscribeStatus() (StatusListener, func()) {
	return c.status.Subscribe()
}
