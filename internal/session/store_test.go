package session

import (
	"net/http"
	"net/url"
	"path/filepath"
	"testing"

	"bakery/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Cookies(t *testing.T) {
	u, _ := url.Parse("http://api.local/client")
	s := NewMemoryStore()

	require.NoError(t, s.SetCookies(u, []*http.Cookie{{Name: "sid", Value: "1"}, {Name: "theme", Value: "dark"}}))
	require.NoError(t, s.SetCookies(u, []*http.Cookie{{Name: "sid", Value: "2"}}))

	got := s.Cookies(u)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].Value)

	require.NoError(t, s.SetCookies(u, []*http.Cookie{{Name: "sid", MaxAge: -1}}))
	got = s.Cookies(u)
	require.Len(t, got, 1)
	assert.Equal(t, "theme", got[0].Name)
}

func TestMemoryStore_CoordinatesAreCopied(t *testing.T) {
	s := NewMemoryStore()
	_, ok := s.Coordinates()
	assert.False(t, ok)

	require.NoError(t, s.SetCoordinates(models.Coordinates{Latitude: 1, Longitude: 2}))
	c, ok := s.Coordinates()
	require.True(t, ok)
	c.Latitude = 99

	again, _ := s.Coordinates()
	assert.Equal(t, 1.0, again.Latitude)
}

func TestFileStore_RoundTripAndClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	u, _ := url.Parse("http://api.local")

	fs, err := OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, fs.SetCoordinates(models.Coordinates{Latitude: 12.97, Longitude: 77.59}))
	require.NoError(t, fs.SetCookies(u, []*http.Cookie{{Name: "connect.sid", Value: "abc", Path: "/"}}))

	reopened, err := OpenFile(path)
	require.NoError(t, err)
	c, ok := reopened.Coordinates()
	require.True(t, ok)
	assert.Equal(t, 12.97, c.Latitude)
	cookies := reopened.Cookies(u)
	require.Len(t, cookies, 1)
	assert.Equal(t, "abc", cookies[0].Value)

	require.NoError(t, reopened.Clear())
	_, ok = reopened.Coordinates()
	assert.False(t, ok)

	empty, err := OpenFile(path)
	require.NoError(t, err)
	assert.Empty(t, empty.Cookies(u))
}
