// Package location talks to a Nominatim compatible geocoder. The bakery
// client uses it to turn a typed address into device coordinates and to label
// resolved coordinates with a city name.
package location

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"bakery/models"
	"bakery/pkg/fetch"
)

const DefaultBaseURL = "https://nominatim.openstreetmap.org"

type Client struct {
	baseURL string
	geocode *fetch.Fetcher
	reverse *fetch.Fetcher
}

type Option func(*options)

type options struct {
	baseURL   string
	userAgent string
	http      fetch.Doer
	logger    *slog.Logger
}

func WithBaseURL(u string) Option { return func(o *options) { o.baseURL = u } }

func WithUserAgent(ua string) Option { return func(o *options) { o.userAgent = ua } }

func WithHTTPClient(c fetch.Doer) Option { return func(o *options) { o.http = c } }

func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

func NewClient(opts ...Option) *Client {
	o := options{
		baseURL:   DefaultBaseURL,
		userAgent: "golang-nominatim-client/1.0",
		http:      http.DefaultClient,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	common := []fetch.Option{fetch.WithClient(o.http), fetch.WithUserAgent(o.userAgent), fetch.WithLogger(o.logger)}
	return &Client{
		baseURL: o.baseURL,
		geocode: fetch.New("nominatim.search", common...),
		reverse: fetch.New("nominatim.reverse", common...),
	}
}

// address is the subset of the Nominatim address block we read.
type address struct {
	Road        string `json:"road"`
	Suburb      string `json:"suburb"`
	City        string `json:"city"`
	Town        string `json:"town"`
	Village     string `json:"village"`
	State       string `json:"state"`
	Postcode    string `json:"postcode"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
}

func (a address) city() string {
	switch {
	case a.City != "":
		return a.City
	case a.Town != "":
		return a.Town
	}
	return a.Village
}

// place is one Nominatim result.
type place struct {
	PlaceID     int64   `json:"place_id"`
	OsmType     string  `json:"osm_type"`
	OsmID       int64   `json:"osm_id"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	Type        string  `json:"type"`
	Importance  float64 `json:"importance"`
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Address     address `json:"address"`
}

func (p place) toLocation(name string) (*models.Location, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parse lat %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parse lon %q: %w", p.Lon, err)
	}
	if name == "" {
		name = p.DisplayName
	}
	return &models.Location{
		Name:        name,
		Coordinates: models.Coordinates{Latitude: lat, Longitude: lon},
		City:        p.Address.city(),
		Country:     p.Address.Country,
		Source:      "OpenStreetMap",
	}, nil
}

// Geocode looks up a place or address and returns its coordinates.
func (c *Client) Geocode(ctx context.Context, query string) (*models.Location, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("addressdetails", "1")
	params.Set("limit", "1")
	params.Set("accept-language", "en")

	res, err := c.geocode.Do(ctx, fetch.Request{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode()),
		Retry:  1,
	})
	if err != nil {
		return nil, err
	}
	var results []place
	if err := res.Decode(&results); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no results for %s", query)
	}
	return results[0].toLocation(query)
}

// Reverse labels coordinates with the nearest address.
func (c *Client) Reverse(ctx context.Context, coords models.Coordinates) (*models.Location, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(coords.Latitude, 'f', 6, 64))
	params.Set("lon", strconv.FormatFloat(coords.Longitude, 'f', 6, 64))
	params.Set("format", "json")
	params.Set("addressdetails", "1")
	params.Set("zoom", "14")
	params.Set("accept-language", "en")

	res, err := c.reverse.Do(ctx, fetch.Request{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%s/reverse?%s", c.baseURL, params.Encode()),
		Retry:  1,
	})
	if err != nil {
		return nil, err
	}
	var p place
	if err := res.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode reverse response: %w", err)
	}
	if p.Lat == "" {
		return nil, fmt.Errorf("no address near %s", coords)
	}
	return p.toLocation("")
}
