// Package telemetry exposes Prometheus metrics for the SDK's own internal
// state: data source health, store contents, and evaluation outcomes. None
// of this is required for correct evaluation — it's purely observability,
// and a caller that never calls Init() simply runs with Prometheus
// unregistered.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/launchdarkly/go-sdk-evaluation-core/internal/datasourceupdates"
	"github.com/launchdarkly/go-sdk-evaluation-core/internal/eval"
)

var (
	// DataSourceState is 0=INITIALIZING, 1=VALID, 2=INTERRUPTED, 3=OFF.
	DataSourceState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ld_evaluation_data_source_state",
		Help: "Current data source connection state (0=initializing 1=valid 2=interrupted 3=off)",
	})

	StoreFlagCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ld_evaluation_store_flag_count",
		Help: "Number of non-deleted flags currently held in the data store",
	})

	StoreSegmentCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ld_evaluation_store_segment_count",
		Help: "Number of non-deleted segments currently held in the data store",
	})

	EvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ld_evaluation_results_total",
			Help: "Total flag evaluations, labeled by result reason",
		},
		[]string{"reason"},
	)
)

// Init registers every metric in this package with the default Prometheus
// registry. Calling it more than once panics, matching prometheus's own
// MustRegister contract — callers should call it exactly once at startup.
func Init() {
	prometheus.MustRegister(DataSourceState, StoreFlagCount, StoreSegmentCount, EvaluationsTotal)
}

// RecordEvaluation increments the counter for the reason kind a Detail
// resolved to.
func RecordEvaluation(reason eval.ReasonKind) {
	EvaluationsTotal.WithLabelValues(string(reason)).Inc()
}

var stateValues = map[datasourceupdates.State]float64{
	datasourceupdates.StateInitializing: 0,
	datasourceupdates.StateValid:        1,
	datasourceupdates.StateInterrupted:  2,
	datasourceupdates.StateOff:          3,
}

// RecordDataSourceState updates the data-source-state gauge.
func RecordDataSourceState(state datasourceupdates.State) {
	DataSourceState.Set(stateValues[state])
}
