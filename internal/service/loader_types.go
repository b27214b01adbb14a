package service

import (
	"context"
	"strconv"
	"strings"

	"bakery/models"
	"bakery/pkg/geolocation"
)

// Entity is anything the loader accumulates. Key is the identifier views use
// as list key; the loader never looks inside entities otherwise.
type Entity interface {
	Key() string
}

// QueryKey identifies one accumulation session. Any change to the term or to
// the exact coordinates is a different key.
type QueryKey struct {
	View        string
	Term        string
	Coordinates *models.Coordinates
}

// ID is the canonical form used for equality and storage keys.
func (k QueryKey) ID() string {
	return strings.Join([]string{k.View, strings.TrimSpace(k.Term), formatCoordinates(k.Coordinates)}, "|")
}

func formatCoordinates(c *models.Coordinates) string {
	if c == nil {
		return ""
	}
	return strconv.FormatFloat(c.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(c.Longitude, 'f', -1, 64)
}

func (k QueryKey) Equal(o QueryKey) bool { return k.ID() == o.ID() }

// Page is one fetch response: a slice of the result set plus its position.
type Page[T any] struct {
	Items      []T
	Number     int
	TotalPages int
}

// PageFetcher loads page number page for key. Implementations must honor ctx
// cancellation; a cancelled fetch should return fetch.ErrCancelled.
type PageFetcher[T any] func(ctx context.Context, key QueryKey, page int) (Page[T], error)

// ListState is the render-ready view of a loader. Snapshots are copies.
type ListState[T Entity] struct {
	Key         QueryKey
	Items       []T
	CurrentPage int
	TotalPages  int
	Loading     bool
	Err         error
}

// HasMore reports whether LoadNext would fetch another page.
func (s ListState[T]) HasMore() bool { return s.CurrentPage < s.TotalPages }

// Empty distinguishes "loaded, nothing found" from "still loading" and "failed".
func (s ListState[T]) Empty() bool {
	return !s.Loading && s.Err == nil && s.CurrentPage > 0 && len(s.Items) == 0
}

func (s ListState[T]) Keys() []string {
	keys := make([]string, len(s.Items))
	for i, it := range s.Items {
		keys[i] = it.Key()
	}
	return keys
}

// CoordinateSource is satisfied by *geolocation.Resolver.
type CoordinateSource interface {
	Resolve(ctx context.Context) (*models.Coordinates, geolocation.State)
}

// LocatedKey builds a location-sensitive key. It blocks until the source has
// resolved or definitively denied, so page 1 is never loaded twice (once
// without bias and once with). A nil source means no location bias.
func LocatedKey(ctx context.Context, src CoordinateSource, view, term string) QueryKey {
	key := QueryKey{View: view, Term: term}
	if src == nil {
		return key
	}
	coords, _ := src.Resolve(ctx)
	key.Coordinates = coords
	return key
}
