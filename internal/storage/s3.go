// Package storage exports list snapshots to S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"bakery/internal/keys"
	"bakery/internal/service"
	"bakery/models"
	"bakery/pkg/geo"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var ErrNotFound = errors.New("storage: snapshot not found")

// MinioConfig holds the connection settings for the object store.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

func (c MinioConfig) Validate() error {
	if c.Endpoint == "" || c.AccessKey == "" || c.SecretKey == "" {
		return fmt.Errorf("storage: missing one or more of MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY")
	}
	return nil
}

// Snapshot is a point-in-time copy of a list: the key it was loaded for,
// its pagination and the accumulated items.
type Snapshot struct {
	View        string              `json:"view"`
	Term        string              `json:"term,omitempty"`
	Cell        string              `json:"cell,omitempty"`
	Coordinates *models.Coordinates `json:"coordinates,omitempty"`
	CurrentPage int                 `json:"currentPage"`
	TotalPages  int                 `json:"totalPages"`
	Count       int                 `json:"count"`
	Items       json.RawMessage     `json:"items"`
	ExportedAt  time.Time           `json:"exportedAt"`
}

// NewSnapshot captures state. A state that is still loading is captured as is.
func NewSnapshot[T service.Entity](state service.ListState[T], now time.Time) (Snapshot, error) {
	items := state.Items
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return Snapshot{}, fmt.Errorf("storage: encode items: %w", err)
	}
	return Snapshot{
		View:        state.Key.View,
		Term:        state.Key.Term,
		Cell:        geo.Cell(state.Key.Coordinates),
		Coordinates: state.Key.Coordinates,
		CurrentPage: state.CurrentPage,
		TotalPages:  state.TotalPages,
		Count:       len(state.Items),
		Items:       data,
		ExportedAt:  now.UTC(),
	}, nil
}

// Key is the object key the snapshot is stored under.
func (s Snapshot) Key() string {
	return keys.Snapshot(service.QueryKey{View: s.View, Term: s.Term, Coordinates: s.Coordinates})
}

// objectStore is the slice of the S3 API the snapshot store uses.
type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket, region string) error
	Put(ctx context.Context, bucket, key string, data []byte) error
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	List(ctx context.Context, bucket, prefix string) ([]string, error)
}

// SnapshotStore writes and reads snapshots in one bucket.
type SnapshotStore struct {
	objects objectStore
	bucket  string
	region  string
	logger  *slog.Logger
	now     func() time.Time
}

// NewSnapshotStore connects to the object store described by cfg.
func NewSnapshotStore(cfg MinioConfig, bucket string, logger *slog.Logger) (*SnapshotStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if bucket == "" {
		return nil, fmt.Errorf("storage: SNAPSHOT_BUCKET is not set")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: create minio client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "snapshot-store", "bucket", bucket)
	logger.Debug("minio client ready", "endpoint", cfg.Endpoint)
	return newSnapshotStore(minioObjects{client: client}, bucket, cfg.Region, logger), nil
}

func newSnapshotStore(objects objectStore, bucket, region string, logger *slog.Logger) *SnapshotStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotStore{objects: objects, bucket: bucket, region: region, logger: logger, now: time.Now}
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *SnapshotStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.objects.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("storage: check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.objects.MakeBucket(ctx, s.bucket, s.region); err != nil {
		return fmt.Errorf("storage: create bucket %s: %w", s.bucket, err)
	}
	s.logger.Info("bucket created")
	return nil
}

// Save writes snap under its key, replacing an older snapshot of the same key.
func (s *SnapshotStore) Save(ctx context.Context, snap Snapshot) (string, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("storage: encode snapshot: %w", err)
	}
	key := snap.Key()
	if err := s.objects.Put(ctx, s.bucket, key, data); err != nil {
		return "", fmt.Errorf("storage: put %s: %w", key, err)
	}
	s.logger.Info("snapshot stored", "key", key, "items", snap.Count)
	return key, nil
}

// Export captures state and saves it.
func Export[T service.Entity](ctx context.Context, s *SnapshotStore, state service.ListState[T]) (string, error) {
	snap, err := NewSnapshot(state, s.now())
	if err != nil {
		return "", err
	}
	return s.Save(ctx, snap)
}

// Load reads the snapshot stored under key.
func (s *SnapshotStore) Load(ctx context.Context, key string) (*Snapshot, error) {
	obj, err := s.objects.Get(ctx, s.bucket, key)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	var snap Snapshot
	if err := json.NewDecoder(obj).Decode(&snap); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("storage: decode %s: %w", key, err)
	}
	return &snap, nil
}

// List returns the keys of the stored snapshots of view, or of every view
// when view is empty.
func (s *SnapshotStore) List(ctx context.Context, view string) ([]string, error) {
	return s.objects.List(ctx, s.bucket, keys.SnapshotPrefix(view))
}

type minioObjects struct {
	client *minio.Client
}

func (m minioObjects) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return m.client.BucketExists(ctx, bucket)
}

func (m minioObjects) MakeBucket(ctx context.Context, bucket, region string) error {
	return m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region})
}

func (m minioObjects) Put(ctx context.Context, bucket, key string, data []byte) error {
	_, err := m.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	return err
}

// Get returns the object stream; a missing key surfaces on the first read.
func (m minioObjects) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	return m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
}

func (m minioObjects) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	var out []string
	for obj := range m.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		out = append(out, obj.Key)
	}
	return out, nil
}
