package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"bakery/models"
)

type fileCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Path    string    `json:"path,omitempty"`
	Expires time.Time `json:"expires,omitempty"`
}

type fileState struct {
	Coordinates *models.Coordinates     `json:"coordinates,omitempty"`
	Cookies     map[string][]fileCookie `json:"cookies,omitempty"`
}

// FileStore persists the session as JSON so that consecutive CLI invocations
// share one session. Every write rewrites the whole file.
type FileStore struct {
	path string
	mu   sync.Mutex
	mem  *MemoryStore
}

// DefaultPath returns the session file location under the user cache dir.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locate cache dir: %w", err)
	}
	return filepath.Join(dir, "bakery", "session.json"), nil
}

// OpenFile loads the session at path. A missing file is an empty session.
func OpenFile(path string) (*FileStore, error) {
	fs := &FileStore{path: path, mem: NewMemoryStore()}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	var st fileState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode session file %s: %w", path, err)
	}
	if st.Coordinates != nil {
		_ = fs.mem.SetCoordinates(*st.Coordinates)
	}
	now := time.Now()
	for host, cs := range st.Cookies {
		var cookies []*http.Cookie
		for _, c := range cs {
			if !c.Expires.IsZero() && c.Expires.Before(now) {
				continue
			}
			cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: c.Path, Expires: c.Expires})
		}
		fs.mem.cookies[host] = cookies
	}
	return fs, nil
}

func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Coordinates() (*models.Coordinates, bool) { return f.mem.Coordinates() }

func (f *FileStore) SetCoordinates(c models.Coordinates) error {
	_ = f.mem.SetCoordinates(c)
	return f.save()
}

func (f *FileStore) Cookies(u *url.URL) []*http.Cookie { return f.mem.Cookies(u) }

func (f *FileStore) SetCookies(u *url.URL, cookies []*http.Cookie) error {
	_ = f.mem.SetCookies(u, cookies)
	return f.save()
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_ = f.mem.Clear()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

func (f *FileStore) save() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	st := fileState{Cookies: make(map[string][]fileCookie)}
	st.Coordinates, _ = f.mem.Coordinates()
	f.mem.mu.RLock()
	for host, cs := range f.mem.cookies {
		for _, c := range cs {
			st.Cookies[host] = append(st.Cookies[host], fileCookie{Name: c.Name, Value: c.Value, Path: c.Path, Expires: c.Expires})
		}
	}
	f.mem.mu.RUnlock()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return os.Rename(tmp, f.path)
}
