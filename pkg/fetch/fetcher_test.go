package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(name string) *Fetcher {
	return New(name, WithBackoff(5*time.Millisecond))
}

func TestFetcher_Do(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		retry      int
		wantHits   int32
		wantStatus int
		wantNet    bool
	}{
		{
			name: "success returns body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
			},
			wantHits: 1,
		},
		{
			name: "non-2xx becomes HTTPError",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			wantHits:   1,
			wantStatus: http.StatusNotFound,
		},
		{
			name: "retries until exhausted",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			retry:      2,
			wantHits:   3,
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				tt.handler(w, r)
			}))
			defer srv.Close()

			f := newTestFetcher(tt.name)
			res, err := f.Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL, Retry: tt.retry})
			assert.Equal(t, tt.wantHits, hits.Load())
			if tt.wantStatus != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantStatus, StatusOf(err))
				return
			}
			require.NoError(t, err)
			var body map[string]any
			require.NoError(t, res.Decode(&body))
			assert.Equal(t, true, body["success"])
		})
	}
}

func TestFetcher_RetryRecovers(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	f := newTestFetcher("retry")
	start := time.Now()
	res, err := f.Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL, Retry: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(res.Body))
	assert.Equal(t, int32(3), hits.Load())
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond, "two fixed backoffs expected")
}

func TestFetcher_DefaultBackoffIsFixed(t *testing.T) {
	f := New("defaults")
	assert.Equal(t, 300*time.Millisecond, f.backoff)
}

func TestFetcher_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	f := newTestFetcher("closed")
	_, err := f.Do(context.Background(), Request{Method: http.MethodGet, URL: url, Retry: 1})
	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr), "got %v", err)
}

func TestFetcher_SingleFlightRejects(t *testing.T) {
	release := make(chan struct{})
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()
	defer close(release)

	f := newTestFetcher("single")
	done := make(chan error, 1)
	go func() {
		_, err := f.Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})
		done <- err
	}()

	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, time.Millisecond)
	assert.True(t, f.InFlight())

	_, err := f.Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})
	assert.ErrorIs(t, err, ErrInFlight)
	assert.Equal(t, int32(1), hits.Load(), "rejected call must not reach the network")

	release <- struct{}{}
	require.NoError(t, <-done)
	assert.False(t, f.InFlight())
}

func TestFetcher_ReplaceCancelsPrevious(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("slow") == "1" {
			hits.Add(1)
			<-r.Context().Done()
			return
		}
		_, _ = w.Write([]byte(`{"fresh":true}`))
	}))
	defer srv.Close()

	f := newTestFetcher("replace")
	first := make(chan error, 1)
	go func() {
		_, err := f.Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL + "?slow=1", Retry: 3})
		first <- err
	}()
	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, time.Millisecond)

	res, err := f.Replace(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})
	require.NoError(t, err)
	assert.JSONEq(t, `{"fresh":true}`, string(res.Body))

	err = <-first
	assert.True(t, IsCancelled(err), "superseded request should resolve as cancelled, got %v", err)
	assert.Equal(t, int32(1), hits.Load(), "cancelled request must not be retried")
}

func TestFetcher_ContextCancelIsNotFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	f := newTestFetcher("ctx")
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := f.Do(ctx, Request{Method: http.MethodGet, URL: srv.URL})
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestFetcher_SendsHeadersAndBody(t *testing.T) {
	var got struct {
		contentType string
		requestID   string
		body        map[string]string
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.contentType = r.Header.Get("Content-Type")
		got.requestID = r.Header.Get("X-Request-ID")
		_ = json.NewDecoder(r.Body).Decode(&got.body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	f := newTestFetcher("post")
	res, err := f.Do(context.Background(), Request{
		Method: http.MethodPost,
		URL:    srv.URL,
		Body:   map[string]string{"productId": "p1"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, res.Status)
	assert.Equal(t, "application/json", got.contentType)
	assert.NotEmpty(t, got.requestID)
	assert.Equal(t, "p1", got.body["productId"])
}

func TestFetcher_InvalidInput(t *testing.T) {
	f := newTestFetcher("invalid")
	_, err := f.Do(context.Background(), Request{Method: "FETCH", URL: "http://example.invalid"})
	assert.ErrorIs(t, err, ErrInvalidMethod)

	_, err = f.Do(context.Background(), Request{Method: http.MethodGet, URL: "http://example.invalid", Retry: -1})
	assert.Error(t, err)
}

func TestFetcher_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	}))
	defer srv.Close()

	f := newTestFetcher("html")
	_, err := f.Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})
	assert.ErrorIs(t, err, ErrInvalidJSON)
}
