// Package geolocation resolves the device coordinates once per session.
//
// The resolver is a small state machine:
//
//	NotRequested -> Requesting -> Resolved(coords) | Denied
//
// Denied is terminal for the session; only ForceResolve leaves it. Callers
// treat Denied as "no location bias", never as a failure.
package geolocation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"bakery/internal/session"
	"bakery/models"
)

// DefaultTimeout bounds one platform location request.
const DefaultTimeout = 8 * time.Second

var (
	ErrUnavailable      = errors.New("geolocation: capability unavailable")
	ErrPermissionDenied = errors.New("geolocation: permission denied")
	ErrTimeout          = errors.New("geolocation: timed out")
)

type State int

const (
	NotRequested State = iota
	Requesting
	Resolved
	Denied
)

func (s State) String() string {
	switch s {
	case NotRequested:
		return "not-requested"
	case Requesting:
		return "requesting"
	case Resolved:
		return "resolved"
	case Denied:
		return "denied"
	}
	return "unknown"
}

// Provider is the platform capability that knows where the device is.
type Provider interface {
	Locate(ctx context.Context) (models.Coordinates, error)
}

type ProviderFunc func(ctx context.Context) (models.Coordinates, error)

func (f ProviderFunc) Locate(ctx context.Context) (models.Coordinates, error) { return f(ctx) }

type Resolver struct {
	provider Provider
	store    session.Store
	timeout  time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	state   State
	coords  *models.Coordinates
	reason  error
	pending chan struct{}
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTimeout bounds how long a single location request may take.
func WithTimeout(d time.Duration) Option { return func(r *Resolver) { r.timeout = d } }

// WithLogger sets the logger used for state transitions.
func WithLogger(l *slog.Logger) Option { return func(r *Resolver) { r.logger = l } }

// NewResolver builds a resolver. A nil provider means the capability is
// absent. If the store already holds coordinates the resolver starts Resolved.
func NewResolver(p Provider, store session.Store, opts ...Option) *Resolver {
	r := &Resolver{
		provider: p,
		store:    store,
		timeout:  DefaultTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "geolocation")
	if store != nil {
		if c, ok := store.Coordinates(); ok {
			r.state = Resolved
			r.coords = c
		}
	}
	return r
}

// State returns the current state and, when Denied, the reason.
func (r *Resolver) State() (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state, r.reason
}

// Resolve returns the session coordinates, requesting them from the platform
// on first use. A nil result means Denied (or the caller's context ended
// before the request finished).
func (r *Resolver) Resolve(ctx context.Context) (*models.Coordinates, State) {
	return r.resolve(ctx, false)
}

// ForceResolve re-enters Requesting even from Resolved or Denied, as a
// user-triggered "use my location" would.
func (r *Resolver) ForceResolve(ctx context.Context) (*models.Coordinates, State) {
	return r.resolve(ctx, true)
}

func (r *Resolver) resolve(ctx context.Context, force bool) (*models.Coordinates, State) {
	r.mu.Lock()
	switch {
	case r.state == Requesting:
		wait := r.pending
		r.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, Requesting
		}
		return r.current()
	case !force && (r.state == Resolved || r.state == Denied):
		r.mu.Unlock()
		return r.current()
	}
	prev := r.state
	r.state = Requesting
	r.pending = make(chan struct{})
	r.mu.Unlock()

	coords, err := r.locate(ctx)
	r.finish(ctx, prev, coords, err)
	return r.current()
}

func (r *Resolver) current() (*models.Coordinates, State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.coords == nil || r.state != Resolved {
		return nil, r.state
	}
	c := *r.coords
	return &c, r.state
}

func (r *Resolver) locate(ctx context.Context) (models.Coordinates, error) {
	if r.provider == nil {
		return models.Coordinates{}, ErrUnavailable
	}
	lctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type result struct {
		coords models.Coordinates
		err    error
	}
	// Buffered so a provider that ignores ctx can still finish later.
	out := make(chan result, 1)
	go func() {
		c, err := r.provider.Locate(lctx)
		out <- result{c, err}
	}()

	select {
	case res := <-out:
		if errors.Is(res.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return models.Coordinates{}, ErrTimeout
		}
		if res.err == nil && !res.coords.Valid() {
			return models.Coordinates{}, errors.New("geolocation: provider returned out of range coordinates")
		}
		return res.coords, res.err
	case <-lctx.Done():
		if ctx.Err() != nil {
			return models.Coordinates{}, ctx.Err()
		}
		return models.Coordinates{}, ErrTimeout
	}
}

func (r *Resolver) finish(ctx context.Context, prev State, coords models.Coordinates, err error) {
	r.mu.Lock()
	defer func() {
		close(r.pending)
		r.pending = nil
		r.mu.Unlock()
	}()

	if err != nil && ctx.Err() != nil && !errors.Is(err, ErrTimeout) {
		// Abandoned by the caller, not refused by the platform.
		r.state = prev
		return
	}
	if err != nil {
		r.logger.Info("location unavailable, continuing without location bias", "reason", err)
		r.state = Denied
		r.coords = nil
		r.reason = err
		return
	}
	r.state = Resolved
	r.coords = &coords
	r.reason = nil
	if r.store != nil {
		if err := r.store.SetCoordinates(coords); err != nil {
			r.logger.Warn("failed to persist coordinates to session", "error", err)
		}
	}
	r.logger.Debug("location resolved", "coordinates", coords.String())
}
