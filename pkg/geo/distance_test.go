package geo

import (
	"math"
	"testing"

	"bakery/models"
)

func TestDistanceKm(t *testing.T) {
	cases := []struct {
		name string
		a, b models.Coordinates
		want float64
	}{
		{"same point", models.Coordinates{Latitude: 12.97, Longitude: 77.59}, models.Coordinates{Latitude: 12.97, Longitude: 77.59}, 0},
		{"bengaluru to mysuru", models.Coordinates{Latitude: 12.9716, Longitude: 77.5946}, models.Coordinates{Latitude: 12.2958, Longitude: 76.6394}, 128.0},
		{"one degree of latitude", models.Coordinates{Latitude: 0, Longitude: 0}, models.Coordinates{Latitude: 1, Longitude: 0}, 111.2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RoundKm(DistanceKm(tc.a, tc.b)); math.Abs(got-tc.want) > 0.2 {
				t.Fatalf("DistanceKm(%v, %v) = %.1f; want %.1f", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestIsNearby(t *testing.T) {
	home := models.Coordinates{Latitude: 12.9716, Longitude: 77.5946}
	cases := []struct {
		name    string
		other   models.Coordinates
		expects bool
	}{
		{"across the street", models.Coordinates{Latitude: 12.9720, Longitude: 77.5950}, true},
		{"another city", models.Coordinates{Latitude: 12.2958, Longitude: 76.6394}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsNearby(home, tc.other); got != tc.expects {
				t.Fatalf("IsNearby(%v) = %v; want %v", tc.other, got, tc.expects)
			}
		})
	}
}

func TestCell(t *testing.T) {
	if got := Cell(nil); got != "" {
		t.Fatalf("Cell(nil) = %q; want empty", got)
	}
	a := &models.Coordinates{Latitude: 12.97160, Longitude: 77.59460}
	b := &models.Coordinates{Latitude: 12.97165, Longitude: 77.59462}
	if Cell(a) != Cell(b) {
		t.Fatalf("nearby fixes should share a cell: %q vs %q", Cell(a), Cell(b))
	}
	if len(Cell(a)) != CellPrecision {
		t.Fatalf("cell %q has wrong precision", Cell(a))
	}
	center := CellCenter(Cell(a))
	if DistanceKm(center, *a) > 1 {
		t.Fatalf("cell center %v too far from %v", center, *a)
	}
}
