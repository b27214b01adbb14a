package models

import (
	"bytes"
	"encoding/json"
)

type Shop struct {
	ID              string   `json:"_id"`
	ShopName        string   `json:"shopName"`
	ShopDescription string   `json:"shopDescription,omitempty"`
	ShopCategory    string   `json:"shopCategory,omitempty"`
	City            string   `json:"city,omitempty"`
	CoverImage      string   `json:"coverImage,omitempty"`
	Portfolio       []string `json:"portfolio,omitempty"`
	TotalReviews    int      `json:"totalReviews,omitempty"`
	Location        *Point   `json:"location,omitempty"`
}

// Point is a GeoJSON point as stored by the backend: [longitude, latitude].
type Point struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// LatLng returns the point as Coordinates. ok is false for malformed points.
func (p *Point) LatLng() (Coordinates, bool) {
	if p == nil || len(p.Coordinates) != 2 {
		return Coordinates{}, false
	}
	return Coordinates{Latitude: p.Coordinates[1], Longitude: p.Coordinates[0]}, true
}

// ShopListing is one element of the shop listing endpoint.
type ShopListing struct {
	Shop         Shop     `json:"shop"`
	DistanceInKm *float64 `json:"distanceInKm,omitempty"`
}

func (l ShopListing) Key() string { return l.Shop.ID }

// ShopRef is a reference to a shop that the backend sends either as a bare id
// or as a populated document.
type ShopRef struct {
	ID       string `json:"_id"`
	ShopName string `json:"shopName,omitempty"`
}

func (r *ShopRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.ID)
	}
	type plain ShopRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = ShopRef(p)
	return nil
}
