// Package streamsource is the streaming data source: a persistent SSE
// connection against {baseURI}/all that feeds put/patch/delete events into
// a datasourceupdates.Coordinator.
package streamsource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	es "github.com/launchdarkly/eventsource"

	"github.com/launchdarkly/go-sdk-evaluation-core/internal/datasourceupdates"
	"github.com/launchdarkly/go-sdk-evaluation-core/internal/ldmodel"
	"github.com/launchdarkly/go-sdk-evaluation-core/internal/sdklog"
)

const (
	putEvent    = "put"
	patchEvent  = "patch"
	deleteEvent = "delete"

	// readTimeout is how long the stream can go without any event
	// (including a keep-alive comment) before it's considered dead.
	readTimeout = 5 * time.Minute
)

// Source is a streaming data source.
type Source struct {
	baseURI string
	sdkKey  string
	coord   *datasourceupdates.Coordinator
	log     *sdklog.Logger
	client  *http.Client

	mu     sync.RWMutex
	stream *es.Stream
	closed bool

	startOnce sync.Once
	startCh   chan struct{}
}

// New builds a streaming Source. baseURI is the streaming service root
// (e.g. "https://stream.launchdarkly.com"); the source subscribes to
// baseURI+"/all".
func New(baseURI, sdkKey string, coord *datasourceupdates.Coordinator, log *sdklog.Logger) *Source {
	return &Source{
		baseURI: strings.TrimRight(baseURI, "/"),
		sdkKey:  sdkKey,
		coord:   coord,
		log:     log.Component("streamsource"),
		client:  &http.Client{Timeout: 0}, // the stream itself is long-lived
		startCh: make(chan struct{}),
	}
}

// Start launches the connect/reconnect loop and returns a channel that
// closes exactly once, the first time the stream delivers an initial Init.
// Subsequent reconnects do not produce further signals on this channel.
func (s *Source) Start(ctx context.Context) <-chan struct{} {
	go s.run(ctx)
	return s.startCh
}

func (s *Source) run(ctx context.Context) {
	backoffSeq := newDecorrelatedJitterBackoff()

	for {
		if ctx.Err() != nil {
			return
		}

		delay := backoffSeq.Next()
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
		}

		s.mu.RLock()
		closed := s.closed
		s.mu.RUnlock()
		if closed {
			return
		}

		connID := uuid.NewString()
		connLog := s.log.Field("conn_id", connID)

		connectedAt := time.Now()
		err := s.connectAndConsume(ctx, connLog)
		if err != nil {
			if unrecoverable, statusCode := classifyError(err); unrecoverable {
				connLog.ErrorErr("unrecoverable error, stopping stream", err)
				s.coord.UpdateStatus(datasourceupdates.StateOff, &datasourceupdates.ErrorInfo{
					Kind:       datasourceupdates.ErrorKindErrorResponse,
					StatusCode: statusCode,
					Message:    err.Error(),
					Time:       time.Now(),
				})
				return
			}
			connLog.ErrorErr("stream connection lost, will retry", err)
			s.coord.UpdateStatus(datasourceupdates.StateInterrupted, &datasourceupdates.ErrorInfo{
				Kind:    datasourceupdates.ErrorKindNetworkError,
				Message: err.Error(),
				Time:    time.Now(),
			})
		}

		if time.Since(connectedAt) >= resetThreshold {
			backoffSeq.Reset()
		}

		if ctx.Err() != nil {
			return
		}
	}
}

// connectAndConsume subscribes and processes events until the stream
// errors out or ctx is canceled. A nil return means ctx was canceled
// cleanly, not that the connection ended on its own (SSE streams don't
// end on their own short of an error).
func (s *Source) connectAndConsume(ctx context.Context, connLog *sdklog.Logger) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURI+"/all", nil)
	if err != nil {
		return fmt.Errorf("building stream request: %w", err)
	}
	req.Header.Set("Authorization", s.sdkKey)

	stream, err := es.SubscribeWithRequest("", req)
	if err != nil {
		return fmt.Errorf("subscribing to stream: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		stream.Close()
		return nil
	}
	s.stream = stream
	s.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			stream.Close()
			return nil
		case event, ok := <-stream.Events:
			if !ok {
				return fmt.Errorf("stream closed")
			}
			if err := s.handleEvent(ctx, event); err != nil {
				connLog.ErrorErr("failed to process stream event", err)
			}
		case err, ok := <-stream.Errors:
			if !ok || err == nil {
				continue
			}
			return err
		case <-time.After(readTimeout):
			return fmt.Errorf("stream read timeout after %s", readTimeout)
		}
	}
}

func (s *Source) handleEvent(ctx context.Context, event es.Event) error {
	switch event.Event() {
	case putEvent:
		return s.handlePut(ctx, event.Data())
	case patchEvent:
		return s.handlePatch(ctx, event.Data())
	case deleteEvent:
		return s.handleDelete(ctx, event.Data())
	default:
		return fmt.Errorf("unrecognized stream event type %q", event.Event())
	}
}

type putData struct {
	Data struct {
		Flags    map[string]*ldmodel.Flag    `json:"flags"`
		Segments map[string]*ldmodel.Segment `json:"segments"`
	} `json:"data"`
}

func (s *Source) handlePut(ctx context.Context, raw string) error {
	var payload putData
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return fmt.Errorf("unmarshalling put event: %w", err)
	}

	allData := map[ldmodel.DataKind]map[string]ldmodel.ItemDescriptor{
		ldmodel.Features: make(map[string]ldmodel.ItemDescriptor, len(payload.Data.Flags)),
		ldmodel.Segments: make(map[string]ldmodel.ItemDescriptor, len(payload.Data.Segments)),
	}
	for key, flag := range payload.Data.Flags {
		allData[ldmodel.Features][key] = ldmodel.ItemDescriptor{Version: flag.Version, Item: flag}
	}
	for key, segment := range payload.Data.Segments {
		allData[ldmodel.Segments][key] = ldmodel.ItemDescriptor{Version: segment.Version, Item: segment}
	}

	if err := s.coord.Init(ctx, allData); err != nil {
		return fmt.Errorf("initializing store from put event: %w", err)
	}

	s.startOnce.Do(func() { close(s.startCh) })
	return nil
}

type patchData struct {
	Path string          `json:"path"`
	Data json.RawMessage `json:"data"`
}

func (s *Source) handlePatch(ctx context.Context, raw string) error {
	var payload patchData
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return fmt.Errorf("unmarshalling patch event: %w", err)
	}

	kind, key, err := parsePath(payload.Path)
	if err != nil {
		return err
	}

	item, err := decodePatchItem(kind, payload.Data)
	if err != nil {
		return err
	}

	_, err = s.coord.Upsert(ctx, kind, key, item)
	return err
}

type deleteData struct {
	Path    string `json:"path"`
	Version int    `json:"version"`
}

func (s *Source) handleDelete(ctx context.Context, raw string) error {
	var payload deleteData
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return fmt.Errorf("unmarshalling delete event: %w", err)
	}

	kind, key, err := parsePath(payload.Path)
	if err != nil {
		return err
	}

	_, err = s.coord.Upsert(ctx, kind, key, ldmodel.Tombstone(payload.Version))
	return err
}

func parsePath(path string) (ldmodel.DataKind, string, error) {
	trimmed := strings.TrimPrefix(path, "/")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 {
		return ldmodel.DataKind{}, "", fmt.Errorf("malformed path %q", path)
	}
	switch parts[0] {
	case "flags":
		return ldmodel.Features, parts[1], nil
	case "segments":
		return ldmodel.Segments, parts[1], nil
	default:
		return ldmodel.DataKind{}, "", fmt.Errorf("unrecognized path kind %q", parts[0])
	}
}

func decodePatchItem(kind ldmodel.DataKind, raw json.RawMessage) (ldmodel.ItemDescriptor, error) {
	switch kind {
	case ldmodel.Features:
		var flag ldmodel.Flag
		if err := json.Unmarshal(raw, &flag); err != nil {
			return ldmodel.ItemDescriptor{}, fmt.Errorf("unmarshalling patched flag: %w", err)
		}
		return ldmodel.ItemDescriptor{Version: flag.Version, Item: &flag}, nil
	case ldmodel.Segments:
		var segment ldmodel.Segment
		if err := json.Unmarshal(raw, &segment); err != nil {
			return ldmodel.ItemDescriptor{}, fmt.Errorf("unmarshalling patched segment: %w", err)
		}
		return ldmodel.ItemDescriptor{Version: segment.Version, Item: &segment}, nil
	default:
		return ldmodel.ItemDescriptor{}, fmt.Errorf("unrecognized data kind")
	}
}

// classifyError reports whether err represents an unrecoverable stream
// failure (auth rejected, in practice a 401 or 403) as opposed to a
// transient one worth retrying.
func classifyError(err error) (unrecoverable bool, statusCode int) {
	var se es.SubscriptionError
	if ok := asSubscriptionError(err, &se); ok {
		if se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden {
			return true, se.Code
		}
		return false, se.Code
	}
	return false, 0
}

func asSubscriptionError(err error, target *es.SubscriptionError) bool {
	se, ok := err.(es.SubscriptionError)
	if ok {
		*target = se
	}
	return ok
}

// Close stops the stream and prevents any further reconnect attempts.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.stream != nil {
		s.stream.Close()
	}
	return nil
}
