// Package session holds the per-session client state that a browser would
// keep in sessionStorage and its cookie jar: the resolved device coordinates
// and the backend session cookie.
package session

import (
	"net/http"
	"net/url"
	"sync"

	"bakery/models"
)

// Store is the explicit session object handed to the geolocation resolver
// and the API client.
type Store interface {
	Coordinates() (*models.Coordinates, bool)
	SetCoordinates(c models.Coordinates) error
	Cookies(u *url.URL) []*http.Cookie
	SetCookies(u *url.URL, cookies []*http.Cookie) error
	Clear() error
}

// MemoryStore keeps the session in process memory only.
type MemoryStore struct {
	mu      sync.RWMutex
	coords  *models.Coordinates
	cookies map[string][]*http.Cookie
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cookies: make(map[string][]*http.Cookie)}
}

func (s *MemoryStore) Coordinates() (*models.Coordinates, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.coords == nil {
		return nil, false
	}
	c := *s.coords
	return &c, true
}

func (s *MemoryStore) SetCoordinates(c models.Coordinates) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coords = &c
	return nil
}

func (s *MemoryStore) Cookies(u *url.URL) []*http.Cookie {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*http.Cookie(nil), s.cookies[u.Host]...)
}

func (s *MemoryStore) SetCookies(u *url.URL, cookies []*http.Cookie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookies[u.Host] = mergeCookies(s.cookies[u.Host], cookies)
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coords = nil
	s.cookies = make(map[string][]*http.Cookie)
	return nil
}

// mergeCookies replaces cookies by name; a cookie with MaxAge < 0 deletes.
func mergeCookies(existing, incoming []*http.Cookie) []*http.Cookie {
	byName := make(map[string]int, len(existing))
	out := make([]*http.Cookie, 0, len(existing)+len(incoming))
	for _, c := range existing {
		byName[c.Name] = len(out)
		out = append(out, c)
	}
	for _, c := range incoming {
		if i, ok := byName[c.Name]; ok {
			out[i] = c
			continue
		}
		byName[c.Name] = len(out)
		out = append(out, c)
	}
	kept := out[:0]
	for _, c := range out {
		if c.MaxAge < 0 {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}
