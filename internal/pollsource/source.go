// Package pollsource is the polling data source: a fixed-interval
// conditional GET against {baseURI}/sdk/latest-all that feeds a full
// snapshot into a datasourceupdates.Coordinator on every non-304 response.
package pollsource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/launchdarkly/go-sdk-evaluation-core/internal/datasourceupdates"
	"github.com/launchdarkly/go-sdk-evaluation-core/internal/ldmodel"
	"github.com/launchdarkly/go-sdk-evaluation-core/internal/sdklog"
)

// minPollInterval is the floor every configured interval is clamped to;
// polling faster than this risks tripping rate limits for no real benefit.
const minPollInterval = 30 * time.Second

// Source is a polling data source.
type Source struct {
	baseURI  string
	sdkKey   string
	interval time.Duration
	coord    *datasourceupdates.Coordinator
	log      *sdklog.Logger
	client   *http.Client

	mu   sync.Mutex
	etag string

	startOnce sync.Once
	startCh   chan struct{}

	cancel context.CancelFunc
}

// New builds a polling Source. interval is clamped to minPollInterval.
func New(baseURI, sdkKey string, interval time.Duration, coord *datasourceupdates.Coordinator, log *sdklog.Logger) *Source {
	if interval < minPollInterval {
		interval = minPollInterval
	}
	return &Source{
		baseURI:  strings.TrimRight(baseURI, "/"),
		sdkKey:   sdkKey,
		interval: interval,
		coord:    coord,
		log:      log.Component("pollsource"),
		client:   &http.Client{Timeout: 30 * time.Second},
		startCh:  make(chan struct{}),
	}
}

// Start launches the polling loop and returns a channel that closes once,
// the first time a poll completes successfully.
func (s *Source) Start(ctx context.Context) <-chan struct{} {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	go s.run(ctx)
	return s.startCh
}

// Close stops the polling loop. Safe to call more than once.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

func (s *Source) run(ctx context.Context) {
	s.poll(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *Source) poll(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURI+"/sdk/latest-all", nil)
	if err != nil {
		s.log.ErrorErr("failed to build poll request", err)
		return
	}
	req.Header.Set("Authorization", s.sdkKey)

	s.mu.Lock()
	if s.etag != "" {
		req.Header.Set("If-None-Match", s.etag)
	}
	s.mu.Unlock()

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.ErrorErr("poll request failed", err)
		s.coord.UpdateStatus(datasourceupdates.StateInterrupted, &datasourceupdates.ErrorInfo{
			Kind:    datasourceupdates.ErrorKindNetworkError,
			Message: err.Error(),
			Time:    time.Now(),
		})
		return
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		s.coord.UpdateStatus(datasourceupdates.StateValid, nil)
		return
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		s.log.Error(fmt.Sprintf("poll request unauthorized: status=%d", resp.StatusCode))
		s.coord.UpdateStatus(datasourceupdates.StateOff, &datasourceupdates.ErrorInfo{
			Kind:       datasourceupdates.ErrorKindErrorResponse,
			StatusCode: resp.StatusCode,
			Message:    "unauthorized",
			Time:       time.Now(),
		})
		s.mu.Lock()
		if s.cancel != nil {
			s.cancel()
		}
		s.mu.Unlock()
		return
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		s.log.Error(fmt.Sprintf("poll request returned non-2xx status: status=%d", resp.StatusCode))
		s.coord.UpdateStatus(datasourceupdates.StateInterrupted, &datasourceupdates.ErrorInfo{
			Kind:       datasourceupdates.ErrorKindErrorResponse,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected status %d", resp.StatusCode),
			Time:       time.Now(),
		})
		return
	}

	var payload struct {
		Flags    map[string]*ldmodel.Flag    `json:"flags"`
		Segments map[string]*ldmodel.Segment `json:"segments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		s.log.ErrorErr("failed to decode poll response", err)
		s.coord.UpdateStatus(datasourceupdates.StateInterrupted, &datasourceupdates.ErrorInfo{
			Kind:    datasourceupdates.ErrorKindInvalidData,
			Message: err.Error(),
			Time:    time.Now(),
		})
		return
	}

	allData := map[ldmodel.DataKind]map[string]ldmodel.ItemDescriptor{
		ldmodel.Features: make(map[string]ldmodel.ItemDescriptor, len(payload.Flags)),
		ldmodel.Segments: make(map[string]ldmodel.ItemDescriptor, len(payload.Segments)),
	}
	for key, flag := range payload.Flags {
		allData[ldmodel.Features][key] = ldmodel.ItemDescriptor{Version: flag.Version, Item: flag}
	}
	for key, segment := range payload.Segments {
		allData[ldmodel.Segments][key] = ldmodel.ItemDescriptor{Version: segment.Version, Item: segment}
	}

	if err := s.coord.Init(ctx, allData); err != nil {
		s.log.ErrorErr("failed to apply poll response to store", err)
		return
	}

	s.mu.Lock()
	s.etag = resp.Header.Get("ETag")
	s.mu.Unlock()

	s.startOnce.Do(func() { close(s.startCh) })
}
