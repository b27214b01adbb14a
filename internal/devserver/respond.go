package devserver

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"bakery/models"
)

const (
	defaultLimit = 12
	maxLimit     = 50
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "message": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

type paging struct {
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
	Total      int `json:"total"`
	Limit      int `json:"limit"`
}

// paginate returns the bounds of the requested page. There is always at
// least one page; a page past the end is empty.
func paginate(r *http.Request, n int) (start, end int, p paging) {
	q := r.URL.Query()
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)

	total := max(1, int(math.Ceil(float64(n)/float64(limit))))
	start = min((page-1)*limit, n)
	end = min(start+limit, n)
	return start, end, paging{Page: page, TotalPages: total, Total: n, Limit: limit}
}

// coordinates reads an optional coordinate pair from the query.
func coordinates(r *http.Request, latKey, lngKey string) (*models.Coordinates, bool) {
	q := r.URL.Query()
	rawLat, rawLng := q.Get(latKey), q.Get(lngKey)
	if rawLat == "" && rawLng == "" {
		return nil, true
	}
	lat, err1 := strconv.ParseFloat(rawLat, 64)
	lng, err2 := strconv.ParseFloat(rawLng, 64)
	c := models.Coordinates{Latitude: lat, Longitude: lng}
	if err1 != nil || err2 != nil || !c.Valid() {
		return nil, false
	}
	return &c, true
}

var timeNow = func() time.Time { return time.Now().UTC() }

type ctxKey struct{}

func withUser(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, ctxKey{}, email)
}

func userFrom(ctx context.Context) string {
	email, _ := ctx.Value(ctxKey{}).(string)
	return email
}
