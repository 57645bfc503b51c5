package hosted

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"saferoute/internal/apperr"
	"saferoute/internal/model"
	"saferoute/internal/service/directions"
	"saferoute/internal/service/geocoding"
	"saferoute/internal/util"
)

// DefaultTimeout bounds how long a browser gets to answer a request
const DefaultTimeout = 20 * time.Second

// ErrUnknownRequest is returned when answering a request that is not pending
var ErrUnknownRequest = errors.New("unknown or expired hosted request")

// RequestKind names the browser API a request targets
type RequestKind string

const (
	KindDirections RequestKind = "directions"
	KindGeocode    RequestKind = "geocode"
)

// Request is pushed to the browser, which answers it through Fulfill or Reject
type Request struct {
	ID          string            `json:"id"`
	Kind        RequestKind       `json:"kind"`
	Origin      *model.Coordinate `json:"origin,omitempty"`
	Destination *model.Coordinate `json:"destination,omitempty"`
	Address     string            `json:"address,omitempty"`
}

type pendingRequest struct {
	kind  RequestKind
	reply chan reply
}

type reply struct {
	payload json.RawMessage
	err     error
}

// Bridge hands directions and geocoding work to a browser running the Maps
// JavaScript API and waits for its answer. It implements
// directions.HostedRouter and geocoding.HostedGeocoder.
type Bridge struct {
	mu        sync.Mutex
	pending   map[string]*pendingRequest
	listeners map[int]func(Request)
	nextID    int
	timeout   time.Duration
	closed    bool
}

// NewBridge creates a bridge; a non-positive timeout uses DefaultTimeout
func NewBridge(timeout time.Duration) *Bridge {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Bridge{
		pending:   make(map[string]*pendingRequest),
		listeners: make(map[int]func(Request)),
		timeout:   timeout,
	}
}

// Subscribe registers a browser connection. The returned func unsubscribes it.
func (b *Bridge) Subscribe(fn func(Request)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

// Ready reports whether any browser is connected
func (b *Bridge) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners) > 0
}

// Pending returns the number of unanswered requests
func (b *Bridge) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func (b *Bridge) HostedRoutes(ctx context.Context, origin, destination model.Coordinate) ([]directions.HostedRoute, error) {
	payload, err := b.roundTrip(ctx, Request{Kind: KindDirections, Origin: &origin, Destination: &destination})
	if err != nil {
		return nil, err
	}

	var routes []directions.HostedRoute
	if err := json.Unmarshal(payload, &routes); err != nil {
		return nil, apperr.Wrapf(apperr.KindUnknown, err, "malformed directions answer from browser")
	}
	return routes, nil
}

func (b *Bridge) HostedGeocode(ctx context.Context, address string) (geocoding.HostedResult, error) {
	payload, err := b.roundTrip(ctx, Request{Kind: KindGeocode, Address: address})
	if err != nil {
		return geocoding.HostedResult{}, err
	}

	var result geocoding.HostedResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return geocoding.HostedResult{}, apperr.Wrapf(apperr.KindGeocodingFailed, err, "malformed geocode answer from browser")
	}
	return result, nil
}

func (b *Bridge) roundTrip(ctx context.Context, req Request) (json.RawMessage, error) {
	req.ID = util.NewRequestID()
	pending := &pendingRequest{kind: req.Kind, reply: make(chan reply, 1)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, apperr.New(apperr.KindNetwork, "session closed")
	}
	if len(b.listeners) == 0 {
		b.mu.Unlock()
		return nil, apperr.New(apperr.KindNetwork, "browser maps API is not ready")
	}
	b.pending[req.ID] = pending
	listeners := make([]func(Request), 0, len(b.listeners))
	for _, fn := range b.listeners {
		listeners = append(listeners, fn)
	}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, req.ID)
		b.mu.Unlock()
	}()

	for _, fn := range listeners {
		fn(req)
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case r := <-pending.reply:
		return r.payload, r.err
	case <-timer.C:
		return nil, apperr.Wrapf(apperr.KindNetwork, context.DeadlineExceeded, "browser did not answer %s request in %v", req.Kind, b.timeout)
	case <-ctx.Done():
		return nil, apperr.Wrap(apperr.KindNetwork, ctx.Err())
	}
}

// Close fails every pending request with NETWORK_ERROR and refuses new ones.
// It is safe to call more than once.
func (b *Bridge) Close() {
	b.mu.Lock()
	b.closed = true
	pending := b.pending
	b.pending = make(map[string]*pendingRequest)
	clear(b.listeners)
	b.mu.Unlock()

	for _, p := range pending {
		p.reply <- reply{err: apperr.New(apperr.KindNetwork, "session closed")}
	}
}

// Fulfill answers a pending request with the browser's JSON payload
func (b *Bridge) Fulfill(id string, payload json.RawMessage) error {
	return b.answer(id, func(RequestKind) reply {
		return reply{payload: payload}
	})
}

// Reject fails a pending request with the browser-reported status and message
func (b *Bridge) Reject(id, status, message string) error {
	return b.answer(id, func(kind RequestKind) reply {
		return reply{err: rejectError(kind, status, message)}
	})
}

func (b *Bridge) answer(id string, build func(RequestKind) reply) error {
	b.mu.Lock()
	pending, ok := b.pending[id]
	if ok {
		delete(b.pending, id)
	}
	b.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRequest, id)
	}
	pending.reply <- build(pending.kind)
	return nil
}

func rejectError(kind RequestKind, status, message string) *apperr.Error {
	notFound := status == "ZERO_RESULTS" || status == "NOT_FOUND"
	switch {
	case kind == KindGeocode && notFound:
		return apperr.New(apperr.KindGeocodingNoResults, message)
	case kind == KindGeocode:
		return apperr.New(apperr.KindGeocodingFailed, message)
	case notFound:
		return apperr.New(apperr.KindRouteNotFound, message)
	case status == "OVER_QUERY_LIMIT" || status == "REQUEST_DENIED":
		return apperr.New(apperr.KindNetwork, message)
	default:
		return apperr.New(apperr.KindUnknown, message)
	}
}
