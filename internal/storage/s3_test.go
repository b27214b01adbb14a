package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"bakery/internal/service"
	"bakery/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memObjects struct {
	mu      sync.Mutex
	buckets map[string]map[string][]byte
}

func newMemObjects() *memObjects {
	return &memObjects{buckets: make(map[string]map[string][]byte)}
}

func (m *memObjects) BucketExists(_ context.Context, bucket string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.buckets[bucket]
	return ok, nil
}

func (m *memObjects) MakeBucket(_ context.Context, bucket, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets[bucket] = make(map[string][]byte)
	return nil
}

func (m *memObjects) Put(_ context.Context, bucket, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[bucket]
	if !ok {
		return fmt.Errorf("no bucket %s", bucket)
	}
	b[key] = append([]byte(nil), data...)
	return nil
}

func (m *memObjects) Get(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.buckets[bucket][key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memObjects) List(_ context.Context, bucket, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.buckets[bucket] {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func TestMinioConfig_Validate(t *testing.T) {
	assert.Error(t, MinioConfig{Endpoint: "localhost:9000"}.Validate())
	assert.NoError(t, MinioConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"}.Validate())
}

func TestSnapshotStore_ExportAndLoad(t *testing.T) {
	ctx := context.Background()
	objects := newMemObjects()
	store := newSnapshotStore(objects, "snapshots", "", nil)
	store.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }

	require.NoError(t, store.EnsureBucket(ctx))
	require.NoError(t, store.EnsureBucket(ctx))

	here := &models.Coordinates{Latitude: 12.9716, Longitude: 77.5946}
	state := service.ListState[models.Product]{
		Key:         service.QueryKey{View: "search", Term: "bagels", Coordinates: here},
		Items:       []models.Product{{ID: "A"}, {ID: "B"}},
		CurrentPage: 1,
		TotalPages:  2,
	}
	key, err := Export(ctx, store, state)
	require.NoError(t, err)
	assert.Equal(t, "snapshots/search/tdr1v9/bagels.json", key)

	// Exporting again overwrites the same key.
	state.Items = append(state.Items, models.Product{ID: "C"})
	state.CurrentPage = 2
	_, err = Export(ctx, store, state)
	require.NoError(t, err)

	snap, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Count)
	assert.Equal(t, 2, snap.CurrentPage)
	assert.Equal(t, "tdr1v9", snap.Cell)
	assert.True(t, store.now().Equal(snap.ExportedAt))

	var items []models.Product
	require.NoError(t, json.Unmarshal(snap.Items, &items))
	assert.Len(t, items, 3)

	keys, err := store.List(ctx, "search")
	require.NoError(t, err)
	assert.Equal(t, []string{key}, keys)

	_, err = store.Load(ctx, "snapshots/none.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewSnapshot_EmptyList(t *testing.T) {
	snap, err := NewSnapshot(service.ListState[models.ShopListing]{Key: service.QueryKey{View: "home"}, CurrentPage: 1, TotalPages: 1}, time.Now())
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(snap.Items))
	assert.Equal(t, "snapshots/home/none/all.json", snap.Key())
}
