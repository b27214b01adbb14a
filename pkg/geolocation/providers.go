package geolocation

import (
	"context"
	"fmt"

	"bakery/models"
)

// Static reports fixed coordinates, e.g. from configuration.
func Static(c models.Coordinates) Provider {
	return ProviderFunc(func(context.Context) (models.Coordinates, error) { return c, nil })
}

// Refusing always denies; it models a user who declined the permission prompt.
func Refusing() Provider {
	return ProviderFunc(func(context.Context) (models.Coordinates, error) {
		return models.Coordinates{}, ErrPermissionDenied
	})
}

// Geocoder turns a free-form place query into a location.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*models.Location, error)
}

// Geocoded locates the device by geocoding a configured address or place
// name, which is the closest a terminal client gets to a location prompt.
func Geocoded(g Geocoder, query string) Provider {
	return ProviderFunc(func(ctx context.Context) (models.Coordinates, error) {
		loc, err := g.Geocode(ctx, query)
		if err != nil {
			return models.Coordinates{}, fmt.Errorf("geocode %q: %w", query, err)
		}
		return loc.Coordinates, nil
	})
}
