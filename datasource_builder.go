package ldclient

import (
	"time"

	"github.com/launchdarkly/go-sdk-evaluation-core/internal/datasourceupdates"
	"github.com/launchdarkly/go-sdk-evaluation-core/internal/pollsource"
	"github.com/launchdarkly/go-sdk-evaluation-core/internal/sdklog"
	"github.com/launchdarkly/go-sdk-evaluation-core/internal/streamsource"
)

// dataSourceDeps bundles what a DataSourceBuilder needs to construct its
// component, keeping the DataSourceBuilder interface itself free of
// internal package types.
type dataSourceDeps struct {
	coord *datasourceupdates.Coordinator
	log   *sdklog.Logger
}

// StreamingDataSourceBuilder configures the streaming (SSE) data source.
// Build one with StreamingDataSource() and attach it to Config.DataSource.
type StreamingDataSourceBuilder struct {
	baseURI string
}

// StreamingDataSource returns a builder for the streaming data source,
// defaulting to the production streaming endpoint.
func StreamingDataSource() *StreamingDataSourceBuilder {
	return &StreamingDataSourceBuilder{baseURI: DefaultStreamBaseURI}
}

// BaseURI overrides the streaming service root, e.g. to point at a Relay
// Proxy or a test server.
func (b *StreamingDataSourceBuilder) BaseURI(uri string) *StreamingDataSourceBuilder {
	b.baseURI = uri
	return b
}

func (b *StreamingDataSourceBuilder) build(sdkKey string, deps dataSourceDeps) dataSource {
	return streamsource.New(b.baseURI, sdkKey, deps.coord, deps.log)
}

// PollingDataSourceBuilder configures the polling data source.
// Build one with PollingDataSource() and attach it to Config.DataSource.
type PollingDataSourceBuilder struct {
	baseURI  string
	interval time.Duration
}

// PollingDataSource returns a builder for the polling data source,
// defaulting to the production polling endpoint and a 30 second interval.
func PollingDataSource() *PollingDataSourceBuilder {
	return &PollingDataSourceBuilder{baseURI: DefaultPollBaseURI, interval: 30 * time.Second}
}

// BaseURI overrides the polling service root.
func (b *PollingDataSourceBuilder) BaseURI(uri string) *PollingDataSourceBuilder {
	b.baseURI = uri
	return b
}

// PollInterval sets how often the source polls; pollsource.New clamps this
// to its own floor, so a too-small value here is adjusted rather than
// rejected.
func (b *PollingDataSourceBuilder) PollInterval(interval time.Duration) *PollingDataSourceBuilder {
	b.interval = interval
	return b
}

func (b *PollingDataSourceBuilder) build(sdkKey string, deps dataSourceDeps) dataSource {
	return pollsource.New(b.baseURI, sdkKey, b.interval, deps.coord, deps.log)
}
