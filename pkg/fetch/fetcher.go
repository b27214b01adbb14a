// Package fetch wraps net/http with the request discipline used by every
// call site of the bakery client: one request in flight at a time, explicit
// cancellation of superseded requests, and a small fixed-backoff retry.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// DefaultBackoff is the fixed wait between retries.
const DefaultBackoff = 300 * time.Millisecond

const defaultUserAgent = "bakery-client/1.0"

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request describes one logical call. Body is JSON encoded unless it is
// already a []byte or json.RawMessage.
type Request struct {
	Method string
	URL    string
	Body   any
	Header http.Header
	Retry  int
}

// Result is a successful response with its raw JSON body.
type Result struct {
	Status    int
	Header    http.Header
	Body      json.RawMessage
	RequestID string
}

// Decode unmarshals the body into v.
func (r *Result) Decode(v any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("fetch: empty body: %w", ErrInvalidJSON)
	}
	return json.Unmarshal(r.Body, v)
}

// Fetcher is a single-flight HTTP helper bound to one logical call site.
// Concurrent Do calls are rejected with ErrInFlight, never queued.
type Fetcher struct {
	name      string
	client    Doer
	userAgent string
	backoff   time.Duration
	logger    *slog.Logger

	gate *semaphore.Weighted

	mu     sync.Mutex
	cancel context.CancelFunc
	gen    uint64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets the HTTP client. Defaults to http.DefaultClient.
func WithClient(c Doer) Option { return func(f *Fetcher) { f.client = c } }

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option { return func(f *Fetcher) { f.userAgent = ua } }

// WithBackoff sets the fixed delay before each retry.
func WithBackoff(d time.Duration) Option { return func(f *Fetcher) { f.backoff = d } }

// WithLogger sets the logger used for request and retry messages.
func WithLogger(l *slog.Logger) Option { return func(f *Fetcher) { f.logger = l } }

// New creates a Fetcher for the call site identified by name.
func New(name string, opts ...Option) *Fetcher {
	f := &Fetcher{
		name:      name,
		client:    http.DefaultClient,
		userAgent: defaultUserAgent,
		backoff:   DefaultBackoff,
		logger:    slog.Default(),
		gate:      semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With("component", "fetch", "call_site", name)
	return f
}

func (f *Fetcher) Name() string { return f.name }

// InFlight reports whether a request currently holds the call site.
func (f *Fetcher) InFlight() bool {
	if f.gate.TryAcquire(1) {
		f.gate.Release(1)
		return false
	}
	return true
}

// Do performs req unless another request from this call site is running, in
// which case it returns ErrInFlight immediately.
func (f *Fetcher) Do(ctx context.Context, req Request) (*Result, error) {
	if !f.gate.TryAcquire(1) {
		f.logger.Debug("request dropped, call site busy", "url", req.URL)
		return nil, ErrInFlight
	}
	defer f.gate.Release(1)

	f.mu.Lock()
	gen := f.gen
	f.mu.Unlock()
	return f.run(ctx, req, gen)
}

// Replace cancels the request currently in flight, waits for it to unwind
// and then performs req. If yet another Replace arrives meanwhile, this call
// returns ErrCancelled without touching the network.
func (f *Fetcher) Replace(ctx context.Context, req Request) (*Result, error) {
	f.mu.Lock()
	f.gen++
	gen := f.gen
	if f.cancel != nil {
		f.cancel()
	}
	f.mu.Unlock()

	if err := f.gate.Acquire(ctx, 1); err != nil {
		return nil, ErrCancelled
	}
	defer f.gate.Release(1)
	return f.run(ctx, req, gen)
}

// Cancel aborts the in-flight request, if any.
func (f *Fetcher) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	if f.cancel != nil {
		f.cancel()
	}
}

func (f *Fetcher) run(ctx context.Context, req Request, gen uint64) (*Result, error) {
	if err := validateMethod(req.Method); err != nil {
		return nil, err
	}
	if req.Retry < 0 {
		return nil, fmt.Errorf("fetch: negative retry count %d", req.Retry)
	}

	ctx, cancel := context.WithCancel(ctx)
	f.mu.Lock()
	if f.gen != gen {
		f.mu.Unlock()
		cancel()
		return nil, ErrCancelled
	}
	f.cancel = cancel
	f.mu.Unlock()
	defer func() {
		cancel()
		f.mu.Lock()
		f.cancel = nil
		f.mu.Unlock()
	}()

	payload, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}
	requestID := uuid.NewString()

	retries := req.Retry
	for {
		res, err := f.once(ctx, req, payload, requestID)
		if err == nil {
			return res, nil
		}
		if errors.Is(err, ErrCancelled) {
			f.logger.Debug("request cancelled", "url", req.URL, "request_id", requestID)
			return nil, err
		}
		if retries == 0 {
			f.logger.Warn("request failed", "url", req.URL, "request_id", requestID, "error", err)
			return nil, err
		}
		retries--
		f.logger.Info("retrying request", "url", req.URL, "request_id", requestID, "remaining", retries, "error", err)

		timer := time.NewTimer(f.backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, cancelledOr(ctx, err)
		}
	}
}

func (f *Fetcher) once(ctx context.Context, req Request, payload []byte, requestID string) (*Result, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("fetch: build request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", f.userAgent)
	httpReq.Header.Set("X-Request-ID", requestID)
	if payload != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	f.logger.Debug("sending request", "method", req.Method, "url", req.URL, "request_id", requestID)
	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, cancelledOr(ctx, &NetworkError{Err: err})
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, cancelledOr(ctx, &NetworkError{Err: err})
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{Status: resp.StatusCode, Body: data}
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && !json.Valid(data) {
		return nil, ErrInvalidJSON
	}
	return &Result{Status: resp.StatusCode, Header: resp.Header, Body: data, RequestID: requestID}, nil
}

// cancelledOr maps a cancelled context to ErrCancelled. Deadlines stay
// network errors: a timeout is a failure, not a supersession.
func cancelledOr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ErrCancelled
	}
	if ctx.Err() != nil {
		var netErr *NetworkError
		if errors.As(err, &netErr) {
			return err
		}
		return &NetworkError{Err: ctx.Err()}
	}
	return err
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("fetch: encode body: %w", err)
		}
		return data, nil
	}
}

var methods = map[string]struct{}{
	http.MethodGet: {}, http.MethodHead: {}, http.MethodPost: {}, http.MethodPut: {},
	http.MethodPatch: {}, http.MethodDelete: {}, http.MethodOptions: {},
}

// ErrInvalidMethod is returned for verbs outside the standard set.
var ErrInvalidMethod = errors.New("fetch: unsupported HTTP method")

func validateMethod(m string) error {
	if _, ok := methods[m]; !ok {
		return fmt.Errorf("%w %q", ErrInvalidMethod, m)
	}
	return nil
}
