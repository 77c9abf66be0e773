package datasourceupdates

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/launchdarkly/go-sdk-evaluation-core/internal/sdklog"
)

// tallyKey identifies one distinct kind of error for outage tallying —
// ErrorResponse errors are counted per status code, so a run of 501s and a
// run of 502s show up as separate entries instead of collapsing into one
// ERROR_RESPONSE count.
type tallyKey struct {
	kind       ErrorKind
	statusCode int
}

// outageAggregator tallies errors seen during a connection outage and, if
// the outage is still ongoing after a configured timeout, logs one
// aggregated summary line naming each distinct error and how many times it
// occurred — then, if that summary was logged, a final summary when the
// outage ends. Disabled entirely when timeout is zero.
type outageAggregator struct {
	mu        sync.Mutex
	timeout   time.Duration
	active    bool
	reported  bool
	startedAt time.Time
	tally     map[tallyKey]int
	timer     *time.Timer
	log       *sdklog.Logger
}

func newOutageAggregator(log *sdklog.Logger, timeout time.Duration) *outageAggregator {
	return &outageAggregator{tally: make(map[tallyKey]int), log: log, timeout: timeout}
}

func (a *outageAggregator) recordError(info ErrorInfo) {
	if a.timeout <= 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.tally[tallyKey{kind: info.Kind, statusCode: info.StatusCode}]++
	if !a.active {
		a.active = true
		a.startedAt = time.Now()
		a.timer = time.AfterFunc(a.timeout, a.logOutageSummary)
	}
}

// logOutageSummary fires exactly once per outage, timeout after the outage
// began — it is a one-shot timer, not a recurring ticker. flush disarms it
// if the outage ends first.
func (a *outageAggregator) logOutageSummary() {
	a.mu.Lock()
	if !a.active {
		a.mu.Unlock()
		return
	}
	a.reported = true
	summary := formatTally(a.tally)
	elapsed := time.Since(a.startedAt)
	a.mu.Unlock()

	if a.log != nil {
		a.log.Error(fmt.Sprintf("data source outage: duration=%s errors=%s", elapsed.Round(time.Second), summary))
	}
}

// flush ends the current outage window, logging a final summary only if
// the outage summary already fired (an outage that ends before the timeout
// logs nothing), and resets state for the next outage.
func (a *outageAggregator) flush() {
	if a.timeout <= 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.active {
		return
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	if a.reported && len(a.tally) > 0 && a.log != nil {
		summary := formatTally(a.tally)
		elapsed := time.Since(a.startedAt)
		a.log.Info(fmt.Sprintf("data source recovered after outage: duration=%s errors=%s", elapsed.Round(time.Second), summary))
	}
	a.active = false
	a.reported = false
	a.tally = make(map[tallyKey]int)
}

// formatTally renders a tally as "KIND (n times), KIND(code) (m times), …",
// matching the wording LaunchDarkly's own SDKs use for outage summaries.
func formatTally(tally map[tallyKey]int) string {
	parts := make([]string, 0, len(tally))
	for key, count := range tally {
		label := string(key.kind)
		if key.kind == ErrorKindErrorResponse {
			label = fmt.Sprintf("%s(%d)", key.kind, key.statusCode)
		}
		unit := "times"
		if count == 1 {
			unit = "time"
		}
		parts = append(parts, fmt.Sprintf("%s (%d %s)", label, count, unit))
	}
	return strings.Join(parts, ", ")
}
