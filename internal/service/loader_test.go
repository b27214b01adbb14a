package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bakery/internal/session"
	"bakery/models"
	"bakery/pkg/fetch"
	"bakery/pkg/geo"
	"bakery/pkg/geolocation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type shop string

func (s shop) Key() string { return string(s) }

// pagedFixture serves pages keyed by QueryKey.ID().
type pagedFixture struct {
	mu    sync.Mutex
	pages map[string][]Page[shop]
	calls atomic.Int32
	fail  map[int]error
}

func (f *pagedFixture) fetch(ctx context.Context, key QueryKey, page int) (Page[shop], error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[page]; err != nil {
		delete(f.fail, page)
		return Page[shop]{}, err
	}
	pages := f.pages[key.ID()]
	if page > len(pages) {
		return Page[shop]{Number: page, TotalPages: len(pages)}, nil
	}
	return pages[page-1], nil
}

var bagels = QueryKey{View: "shops", Term: "bagels"}

func bagelFixture() *pagedFixture {
	return &pagedFixture{pages: map[string][]Page[shop]{
		bagels.ID(): {
			{Items: []shop{"A", "B"}, Number: 1, TotalPages: 2},
			{Items: []shop{"C"}, Number: 2, TotalPages: 2},
		},
	}}
}

func TestLoader_BagelsScenario(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	f := bagelFixture()
	l := NewLoader(f.fetch)

	applied, err := l.Load(ctx, bagels, 1)
	require.NoError(t, err)
	require.True(t, applied)
	assert.Equal(t, []string{"A", "B"}, l.Snapshot().Keys())
	assert.True(t, l.Snapshot().HasMore())

	applied, err = l.LoadNext(ctx)
	require.NoError(t, err)
	require.True(t, applied)
	s := l.Snapshot()
	assert.Equal(t, []string{"A", "B", "C"}, s.Keys())
	assert.Equal(t, 2, s.CurrentPage)
	assert.Equal(t, 2, s.TotalPages)

	for i := 0; i < 3; i++ {
		applied, err = l.LoadNext(ctx)
		require.NoError(t, err)
		assert.False(t, applied)
	}
	assert.Equal(t, []string{"A", "B", "C"}, l.Snapshot().Keys())
	assert.Equal(t, int32(2), f.calls.Load(), "boundary LoadNext must not fetch")
}

func TestLoader_KeyChangeReplaces(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	croissants := QueryKey{View: "shops", Term: "croissants"}
	f := bagelFixture()
	f.pages[croissants.ID()] = []Page[shop]{{Items: []shop{"X"}, Number: 1, TotalPages: 1}}
	l := NewLoader(f.fetch)

	_, err := l.SetKey(ctx, bagels)
	require.NoError(t, err)
	_, err = l.LoadNext(ctx)
	require.NoError(t, err)
	require.Len(t, l.Snapshot().Items, 3)

	applied, err := l.SetKey(ctx, croissants)
	require.NoError(t, err)
	assert.True(t, applied)
	s := l.Snapshot()
	assert.Equal(t, []string{"X"}, s.Keys())
	assert.Equal(t, 1, s.CurrentPage)
	assert.True(t, s.Key.Equal(croissants))

	calls := f.calls.Load()
	applied, err = l.SetKey(ctx, croissants)
	require.NoError(t, err)
	assert.False(t, applied, "same key is a no-op")
	assert.Equal(t, calls, f.calls.Load())
}

func TestLoader_ConcurrentLoadNextCollapses(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()

	release := make(chan struct{})
	var calls atomic.Int32
	fetcher := func(ctx context.Context, key QueryKey, page int) (Page[shop], error) {
		calls.Add(1)
		<-release
		return Page[shop]{Items: []shop{shop(rune('A' + page - 1))}, Number: page, TotalPages: 5}, nil
	}
	l := NewLoader(fetcher)

	done := make(chan bool)
	go func() {
		applied, _ := l.Load(ctx, bagels, 1)
		done <- applied
	}()
	require.Eventually(t, func() bool { return l.Snapshot().Loading }, time.Second, time.Millisecond)

	for i := 0; i < 5; i++ {
		applied, err := l.LoadNext(ctx)
		require.NoError(t, err)
		assert.False(t, applied)
	}
	applied, err := l.Load(ctx, bagels, 2)
	require.NoError(t, err)
	assert.False(t, applied, "same-key load while loading is dropped")

	close(release)
	assert.True(t, <-done)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, []string{"A"}, l.Snapshot().Keys())
}

func TestLoader_LateResponseForOldKeyIsDiscarded(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()

	noCoords := QueryKey{View: "shops", Term: "bagels"}
	withCoords := QueryKey{View: "shops", Term: "bagels", Coordinates: &models.Coordinates{Latitude: 12.97, Longitude: 77.59}}

	slow := make(chan struct{})
	fetcher := func(ctx context.Context, key QueryKey, page int) (Page[shop], error) {
		if key.Coordinates == nil {
			<-slow // ignores cancellation to simulate a response that still arrives
			return Page[shop]{Items: []shop{"popular-1", "popular-2"}, Number: 1, TotalPages: 3}, nil
		}
		return Page[shop]{Items: []shop{"near-1"}, Number: 1, TotalPages: 1}, nil
	}
	l := NewLoader(fetcher)

	oldDone := make(chan bool)
	go func() {
		applied, _ := l.SetKey(ctx, noCoords)
		oldDone <- applied
	}()
	require.Eventually(t, func() bool { return l.Snapshot().Loading }, time.Second, time.Millisecond)

	applied, err := l.SetKey(ctx, withCoords)
	require.NoError(t, err)
	require.True(t, applied)

	close(slow)
	assert.False(t, <-oldDone, "stale response must not be applied")

	s := l.Snapshot()
	assert.Equal(t, []string{"near-1"}, s.Keys())
	assert.True(t, s.Key.Equal(withCoords))
	assert.False(t, s.HasMore())
}

func TestLoader_FailureKeepsItems(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	f := bagelFixture()
	boom := &fetch.HTTPError{Status: 500}
	f.fail = map[int]error{2: boom}
	l := NewLoader(f.fetch)

	_, err := l.Load(ctx, bagels, 1)
	require.NoError(t, err)

	applied, err := l.LoadNext(ctx)
	assert.False(t, applied)
	assert.ErrorIs(t, err, boom)
	s := l.Snapshot()
	assert.Equal(t, []string{"A", "B"}, s.Keys())
	assert.Equal(t, 1, s.CurrentPage)
	assert.ErrorIs(t, s.Err, boom)
	assert.False(t, s.Loading)

	applied, err = l.LoadNext(ctx)
	require.NoError(t, err)
	assert.True(t, applied)
	s = l.Snapshot()
	assert.Equal(t, []string{"A", "B", "C"}, s.Keys())
	assert.NoError(t, s.Err)
}

func TestLoader_FirstPageFailureThenRetry(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	f := bagelFixture()
	f.fail = map[int]error{1: &fetch.NetworkError{Err: errors.New("connection refused")}}
	l := NewLoader(f.fetch)

	_, err := l.SetKey(ctx, bagels)
	require.Error(t, err)
	assert.False(t, l.Snapshot().Empty(), "a failed list is not an empty list")

	applied, err := l.LoadNext(ctx)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, []string{"A", "B"}, l.Snapshot().Keys())
}

func TestLoader_CancelledFetchIsSilent(t *testing.T) {
	defer goleak.VerifyNone(t)
	fetcher := func(ctx context.Context, key QueryKey, page int) (Page[shop], error) {
		return Page[shop]{}, fetch.ErrCancelled
	}
	l := NewLoader(fetcher)
	applied, err := l.Load(context.Background(), bagels, 1)
	assert.False(t, applied)
	assert.NoError(t, err)
	assert.NoError(t, l.Snapshot().Err)
}

func TestLoader_RefreshAndReset(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	f := bagelFixture()
	l := NewLoader(f.fetch)

	_, err := l.LoadNext(ctx)
	assert.ErrorIs(t, err, ErrNoKey)
	_, err = l.Refresh(ctx)
	assert.ErrorIs(t, err, ErrNoKey)

	_, _ = l.Load(ctx, bagels, 1)
	_, _ = l.LoadNext(ctx)
	applied, err := l.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, []string{"A", "B"}, l.Snapshot().Keys())

	l.Reset()
	s := l.Snapshot()
	assert.Empty(t, s.Items)
	assert.Equal(t, 0, s.CurrentPage)

	_, err = l.Load(ctx, bagels, 0)
	assert.Error(t, err)
}

func TestLoader_EmptyResult(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := &pagedFixture{pages: map[string][]Page[shop]{}}
	l := NewLoader(f.fetch)
	_, err := l.SetKey(context.Background(), QueryKey{View: "search", Term: "nothing"})
	require.NoError(t, err)
	s := l.Snapshot()
	assert.True(t, s.Empty())
	assert.False(t, s.HasMore())
}

func TestLocatedKey_DeniedLocationProceedsWithoutBias(t *testing.T) {
	defer goleak.VerifyNone(t)
	silent := geolocation.ProviderFunc(func(ctx context.Context) (models.Coordinates, error) {
		<-ctx.Done()
		return models.Coordinates{}, ctx.Err()
	})
	r := geolocation.NewResolver(silent, session.NewMemoryStore(), geolocation.WithTimeout(15*time.Millisecond))

	key := LocatedKey(context.Background(), r, "shops", "")
	assert.Nil(t, key.Coordinates)
	st, _ := r.State()
	assert.Equal(t, geolocation.Denied, st)

	var seen *models.Coordinates
	fetcher := func(ctx context.Context, k QueryKey, page int) (Page[shop], error) {
		seen = k.Coordinates
		return Page[shop]{Items: []shop{"popular"}, Number: 1, TotalPages: 1}, nil
	}
	l := NewLoader(fetcher)
	applied, err := l.SetKey(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Nil(t, seen)
}

func TestQueryKey_Identity(t *testing.T) {
	a := QueryKey{View: "search", Term: "cake", Coordinates: &models.Coordinates{Latitude: 12.97160, Longitude: 77.59460}}
	tests := []struct {
		name  string
		other QueryKey
		equal bool
	}{
		{"same coordinates, padded term", QueryKey{View: "search", Term: " cake ", Coordinates: &models.Coordinates{Latitude: 12.9716, Longitude: 77.5946}}, true},
		{"nearby coordinates", QueryKey{View: "search", Term: "cake", Coordinates: &models.Coordinates{Latitude: 12.97165, Longitude: 77.59462}}, false},
		{"no coordinates", QueryKey{View: "search", Term: "cake"}, false},
		{"other term", QueryKey{View: "search", Term: "bread", Coordinates: a.Coordinates}, false},
		{"other view", QueryKey{View: "shops", Term: "cake", Coordinates: a.Coordinates}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, a.Equal(tt.other))
		})
	}
}

func TestLoader_MoveWithinCellReloads(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	here := &models.Coordinates{Latitude: 12.9716, Longitude: 77.5946}
	moved := &models.Coordinates{Latitude: 12.9725, Longitude: 77.5960}
	require.Equal(t, geo.Cell(here), geo.Cell(moved))

	var calls atomic.Int32
	var seen []*models.Coordinates
	fetcher := func(ctx context.Context, k QueryKey, page int) (Page[shop], error) {
		calls.Add(1)
		seen = append(seen, k.Coordinates)
		return Page[shop]{Items: []shop{"A", "B"}, Number: page, TotalPages: 2}, nil
	}
	l := NewLoader(fetcher)

	_, err := l.SetKey(ctx, QueryKey{View: "home", Coordinates: here})
	require.NoError(t, err)
	_, err = l.LoadNext(ctx)
	require.NoError(t, err)
	require.Len(t, l.Snapshot().Items, 4)

	applied, err := l.SetKey(ctx, QueryKey{View: "home", Coordinates: moved})
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, int32(3), calls.Load())
	s := l.Snapshot()
	assert.Equal(t, []string{"A", "B"}, s.Keys())
	assert.Equal(t, 1, s.CurrentPage)
	assert.Equal(t, moved, s.Key.Coordinates)
	assert.Equal(t, moved, seen[2])
}

func TestLoader_PageNumberMismatch(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	var calls atomic.Int32
	fetcher := func(ctx context.Context, k QueryKey, page int) (Page[shop], error) {
		calls.Add(1)
		if page == 1 {
			return Page[shop]{Items: []shop{"A", "B"}, Number: 1, TotalPages: 2}, nil
		}
		// backend clamps to the first page
		return Page[shop]{Items: []shop{"C"}, Number: 1, TotalPages: 2}, nil
	}
	l := NewLoader(fetcher)

	_, err := l.SetKey(ctx, bagels)
	require.NoError(t, err)

	applied, err := l.LoadNext(ctx)
	assert.False(t, applied)
	assert.ErrorIs(t, err, ErrPageMismatch)
	s := l.Snapshot()
	assert.Equal(t, []string{"A", "B"}, s.Keys())
	assert.Equal(t, 1, s.CurrentPage)
	assert.ErrorIs(t, s.Err, ErrPageMismatch)

	for i := 0; i < 2; i++ {
		_, err = l.LoadNext(ctx)
		assert.ErrorIs(t, err, ErrPageMismatch)
	}
	assert.Equal(t, []string{"A", "B"}, l.Snapshot().Keys())
	assert.Equal(t, int32(4), calls.Load())
}
