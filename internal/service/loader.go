package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"bakery/pkg/fetch"
)

// ErrNoKey is returned by LoadNext and Refresh before any key was loaded.
var ErrNoKey = errors.New("service: loader has no query key")

// ErrPageMismatch is set when a response reports a different page than the
// one requested. Such a page is not applied.
var ErrPageMismatch = errors.New("service: response page does not match request")

// Loader accumulates pages for one query key at a time.
//
// Within a key, loads are strictly sequential: a call made while a page is
// loading is dropped, not queued. Switching keys cancels the in-flight load
// and bumps a generation counter; a result that arrives for an older
// generation is discarded without touching the state.
type Loader[T Entity] struct {
	fetch  PageFetcher[T]
	logger *slog.Logger

	mu     sync.Mutex
	state  ListState[T]
	hasKey bool
	gen    uint64
	cancel context.CancelFunc
}

type LoaderOption func(*loaderOptions)

type loaderOptions struct {
	logger *slog.Logger
}

func WithLoaderLogger(l *slog.Logger) LoaderOption {
	return func(o *loaderOptions) { o.logger = l }
}

func NewLoader[T Entity](fetcher PageFetcher[T], opts ...LoaderOption) *Loader[T] {
	o := loaderOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Loader[T]{
		fetch:  fetcher,
		logger: o.logger.With("component", "loader"),
	}
}

// Snapshot returns a copy of the current state.
func (l *Loader[T]) Snapshot() ListState[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.state
	s.Items = append([]T(nil), l.state.Items...)
	return s
}

// Load fetches page for key. Page 1 replaces the accumulated items, later
// pages are appended in arrival order. A different key resets the state
// first. It reports whether a page was applied; a dropped or superseded call
// returns false with a nil error.
func (l *Loader[T]) Load(ctx context.Context, key QueryKey, page int) (bool, error) {
	if page < 1 {
		return false, fmt.Errorf("service: invalid page %d", page)
	}
	return l.run(ctx, func() (QueryKey, int, bool) {
		if !l.hasKey || !l.state.Key.Equal(key) {
			l.resetLocked(key)
		} else if l.state.Loading {
			return key, 0, false
		}
		return key, page, true
	})
}

// SetKey switches to key and loads its first page. Re-setting the current key
// is a no-op so views can call it on every render.
func (l *Loader[T]) SetKey(ctx context.Context, key QueryKey) (bool, error) {
	l.mu.Lock()
	same := l.hasKey && l.state.Key.Equal(key) && (l.state.CurrentPage > 0 || l.state.Loading)
	l.mu.Unlock()
	if same {
		return false, nil
	}
	return l.Load(ctx, key, 1)
}

// LoadNext fetches the page after the current one. It is a no-op while a load
// is in flight and once the last page has been applied. After a failed first
// page it retries page 1.
func (l *Loader[T]) LoadNext(ctx context.Context) (bool, error) {
	noKey := false
	applied, err := l.run(ctx, func() (QueryKey, int, bool) {
		if !l.hasKey {
			noKey = true
			return QueryKey{}, 0, false
		}
		s := l.state
		if s.Loading || (s.CurrentPage > 0 && s.CurrentPage >= s.TotalPages) {
			return s.Key, 0, false
		}
		return s.Key, s.CurrentPage + 1, true
	})
	if noKey {
		return false, ErrNoKey
	}
	return applied, err
}

// Refresh reloads page 1 of the current key, cancelling any in-flight load.
func (l *Loader[T]) Refresh(ctx context.Context) (bool, error) {
	l.mu.Lock()
	if !l.hasKey {
		l.mu.Unlock()
		return false, ErrNoKey
	}
	key := l.state.Key
	l.abortLocked()
	l.mu.Unlock()
	return l.Load(ctx, key, 1)
}

// Reset drops the key and all accumulated items.
func (l *Loader[T]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.abortLocked()
	l.state = ListState[T]{}
	l.hasKey = false
}

// Cancel aborts the in-flight load without changing the accumulated items.
func (l *Loader[T]) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.abortLocked()
}

func (l *Loader[T]) abortLocked() {
	l.gen++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.state.Loading = false
}

func (l *Loader[T]) resetLocked(key QueryKey) {
	if l.hasKey {
		l.logger.Debug("query key changed, resetting list", "from", l.state.Key.ID(), "to", key.ID())
	}
	l.abortLocked()
	l.state = ListState[T]{Key: key}
	l.hasKey = true
}

// run selects the page under the lock, fetches without it, and applies the
// result only if no newer generation started meanwhile.
func (l *Loader[T]) run(ctx context.Context, pick func() (QueryKey, int, bool)) (bool, error) {
	l.mu.Lock()
	key, page, ok := pick()
	if !ok {
		l.mu.Unlock()
		return false, nil
	}
	gen := l.gen
	lctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.state.Loading = true
	l.mu.Unlock()
	defer cancel()

	l.logger.Debug("loading page", "key", key.ID(), "page", page)
	p, err := l.fetch(lctx, key, page)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		l.logger.Debug("discarding stale page", "key", key.ID(), "page", page)
		return false, nil
	}
	l.cancel = nil
	l.state.Loading = false

	if err != nil {
		if fetch.IsCancelled(err) || errors.Is(err, fetch.ErrInFlight) {
			return false, nil
		}
		l.state.Err = err
		l.logger.Warn("page load failed", "key", key.ID(), "page", page, "error", err)
		return false, err
	}

	if p.Number > 0 && p.Number != page {
		err := fmt.Errorf("%w: requested %d, got %d", ErrPageMismatch, page, p.Number)
		l.state.Err = err
		l.logger.Warn("page load failed", "key", key.ID(), "page", page, "error", err)
		return false, err
	}

	if page == 1 {
		l.state.Items = append([]T(nil), p.Items...)
	} else {
		l.state.Items = append(l.state.Items, p.Items...)
	}
	l.state.CurrentPage = page
	l.state.TotalPages = p.TotalPages
	if l.state.TotalPages < l.state.CurrentPage {
		l.state.TotalPages = l.state.CurrentPage
	}
	l.state.Err = nil
	return true, nil
}
