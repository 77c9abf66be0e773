package ldclient

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// DefaultStreamBaseURI and DefaultPollBaseURI match the hosted service's
// default endpoints; a Relay Proxy or test server overrides these via
// StreamingDataSourceBuilder.BaseURI / PollingDataSourceBuilder.BaseURI.
const (
	DefaultStreamBaseURI = "https://stream.launchdarkly.com"
	DefaultPollBaseURI   = "https://sdk.launchdarkly.com"

	// DefaultStartWaitTimeout is how long New blocks waiting for the data
	// source's first successful Init before giving up and returning the
	// client uninitialized (it keeps trying in the background).
	DefaultStartWaitTimeout = 5 * time.Second
)

// dataSource is whatever New's DataSourceBuilder produces: a background
// component that feeds a datasourceupdates.Coordinator and reports back
// via the channel returned from Start.
type dataSource interface {
	Start(ctx context.Context) <-chan struct{}
	Close() error
}

// Config configures a Client. The zero value is valid: it means "connect
// to the production streaming service, store data in memory, log debug
// and above to stderr."
type Config struct {
	// DataSource builds the background component that keeps the client's
	// data store up to date. Defaults to StreamingDataSource().
	DataSource DataSourceBuilder

	// StoreType selects the data store backend: "" or "memory" for the
	// in-process store, "postgres" for a durable one (requires DatabaseDSN).
	StoreType string
	// DatabaseDSN is the postgres connection string, required when
	// StoreType is "postgres".
	DatabaseDSN string

	// Offline, when true, skips the data source and store entirely:
	// every variation call returns the caller's default value with reason
	// OFF, and the client reports itself initialized immediately. Useful
	// for local development and tests that don't need real flag data.
	Offline bool

	// LogWriter is where log output goes; nil defaults to os.Stderr.
	LogWriter io.Writer
	// LogLevel is the minimum level logged. The zero value is
	// zerolog.DebugLevel; set it explicitly (e.g. zerolog.InfoLevel) for
	// anything other than local debugging.
	LogLevel zerolog.Level

	// StartWaitTimeout bounds how long New waits for the data source's
	// first Init before returning; zero uses DefaultStartWaitTimeout. The
	// data source keeps trying in the background even after a timeout.
	StartWaitTimeout time.Duration

	// MetricsEnabled registers this client's Prometheus metrics
	// (internal/telemetry) with the default registry on construction.
	MetricsEnabled bool

	// BroadcasterConcurrency bounds how many listener dispatches run
	// concurrently per broadcaster; zero means unbounded.
	BroadcasterConcurrency int

	// OutageTimeout is how long the data source must stay continuously
	// non-Valid before an aggregated outage summary is logged. Zero
	// disables outage logging entirely.
	OutageTimeout time.Duration
}

// DataSourceBuilder builds the background data source component for a
// Client. The two implementations are StreamingDataSourceBuilder and
// PollingDataSourceBuilder; callers construct one via StreamingDataSource()
// or PollingDataSource() and assign it to Config.DataSource.
type DataSourceBuilder interface {
	build(sdkKey string, deps dataSourceDeps) dataSource
}
