package location_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"bakery/models"
	"bakery/pkg/location"
)

func fakeNominatim(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("missing User-Agent header")
		}
		if q == "Nowhere" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{{
			"lat": "12.9716", "lon": "77.5946", "type": "bakery", "display_name": q,
			"address": map[string]string{"town": "Bengaluru", "country": "India"},
		}})
	})
	mux.HandleFunc("/reverse", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"lat": r.URL.Query().Get("lat"), "lon": r.URL.Query().Get("lon"),
			"display_name": "Church Street, Bengaluru",
			"address":      map[string]string{"city": "Bengaluru", "country": "India"},
		})
	})
	return httptest.NewServer(mux)
}

func TestGeocode(t *testing.T) {
	srv := fakeNominatim(t)
	defer srv.Close()
	client := location.NewClient(location.WithBaseURL(srv.URL), location.WithUserAgent("test-agent"))

	tests := []struct {
		name     string
		query    string
		wantCity string
		wantErr  bool
	}{
		{name: "town used as city", query: "Church Street Social", wantCity: "Bengaluru"},
		{name: "no results", query: "Nowhere", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := client.Geocode(context.Background(), tt.query)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Geocode(%q) err = %v, wantErr %v", tt.query, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.City != tt.wantCity {
				t.Errorf("City = %s, want %s", got.City, tt.wantCity)
			}
			if got.Coordinates.Latitude != 12.9716 || got.Coordinates.Longitude != 77.5946 {
				t.Errorf("Coordinates = %v", got.Coordinates)
			}
		})
	}
}

func TestReverse(t *testing.T) {
	srv := fakeNominatim(t)
	defer srv.Close()
	client := location.NewClient(location.WithBaseURL(srv.URL))

	got, err := client.Reverse(context.Background(), models.Coordinates{Latitude: 12.97, Longitude: 77.59})
	if err != nil {
		t.Fatalf("Reverse returned error: %v", err)
	}
	if got.City != "Bengaluru" || got.Name != "Church Street, Bengaluru" {
		t.Errorf("unexpected location %+v", got)
	}
}
