package main

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"bakery/internal/config"
	"bakery/internal/devserver"
	"bakery/pkg/bakeryapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// setup points the CLI at a fresh dev backend and session file.
func setup(t *testing.T, located bool) {
	t.Helper()
	backend, err := devserver.New(devserver.WithPrefix("/client"), devserver.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	t.Setenv("BAKERY_API_URL", srv.URL+"/client")
	t.Setenv("BAKERY_SESSION_FILE", filepath.Join(t.TempDir(), "session.json"))
	t.Setenv("BAKERY_PAGE_LIMIT", "2")
	t.Setenv("BAKERY_LOCATION_QUERY", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("KAFKA_BROKER", "")
	t.Setenv("MINIO_ENDPOINT", "")
	if located {
		t.Setenv("BAKERY_LATITUDE", "12.9720")
		t.Setenv("BAKERY_LONGITUDE", "77.6400")
	} else {
		t.Setenv("BAKERY_LATITUDE", "")
		t.Setenv("BAKERY_LONGITUDE", "")
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	loadAll = false
	category = bakeryapi.AllCategories
	reviewReq = bakeryapi.ReviewRequest{}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestShops(t *testing.T) {
	setup(t, true)

	out, err := run(t, "shops")
	require.NoError(t, err)
	assert.Contains(t, out, "Crumbs & Co")
	assert.Contains(t, out, "0.1 km")
	assert.NotContains(t, out, "Palace Pastries")
	assert.Contains(t, out, "page 1 of 2, 2 shown")

	out, err = run(t, "shops", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "Palace Pastries")
	assert.Contains(t, out, "page 2 of 2, 4 shown")
}

func TestShops_WithoutLocation(t *testing.T) {
	setup(t, false)

	out, err := run(t, "shops")
	require.NoError(t, err)
	assert.Contains(t, out, "No location configured, showing popular shops.")
	assert.Contains(t, out, "Sugar Loaf")
	assert.NotContains(t, out, " km")
}

func TestShopAndProduct(t *testing.T) {
	setup(t, true)

	out, err := run(t, "shop", "shop-crumbs", "--category", "Desserts")
	require.NoError(t, err)
	assert.Contains(t, out, "Categories: All · Breads · Desserts")
	assert.Contains(t, out, "Fudge Brownie")
	assert.NotContains(t, out, "Sesame Bagel")

	out, err = run(t, "product", "prod-bagel")
	require.NoError(t, err)
	assert.Contains(t, out, "Everything Bagel")
	assert.Contains(t, out, "0.1 km away, nearby")
	assert.Contains(t, out, "4.5 from 2 reviews")
	assert.Contains(t, out, "Asha: Best bagels in town.")

	_, err = run(t, "product", "prod-missing")
	assert.Error(t, err)
}

func TestSearch(t *testing.T) {
	setup(t, true)

	out, err := run(t, "search", "bagel", "--all")
	require.NoError(t, err)
	for _, name := range []string{"Everything Bagel", "Sesame Bagel", "Rye Bagel"} {
		assert.Contains(t, out, name)
	}

	out, err = run(t, "search", "croissant")
	require.NoError(t, err)
	assert.Contains(t, out, `Nothing matches "croissant".`)
}

func TestOrderAndReviewFlow(t *testing.T) {
	setup(t, true)

	_, err := run(t, "orders")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "please login first")

	out, err := run(t, "login", "--email", "demo@bakery.test", "--password", "bakery123")
	require.NoError(t, err)
	assert.Contains(t, out, "logged in")

	out, err = run(t, "orders")
	require.NoError(t, err)
	assert.Contains(t, out, "order-1002")
	assert.Contains(t, out, "(awaiting your review)")

	out, err = run(t, "order", "--product", "prod-brownie", "--qty", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "your order was sent to the baker")

	out, err = run(t, "review", "order-1001", "--rating", "5", "--comment", "Perfect")
	require.NoError(t, err)
	assert.Contains(t, out, "thanks for your review")

	_, err = run(t, "review", "order-1001", "--rating", "4")
	assert.Error(t, err)

	_, err = run(t, "logout")
	require.NoError(t, err)
	_, err = run(t, "orders")
	assert.Error(t, err)
}

func TestOptionalInfra(t *testing.T) {
	setup(t, true)

	_, err := run(t, "watch")
	assert.ErrorIs(t, err, config.ErrNoKafka)

	_, err = run(t, "export", "home")
	assert.Error(t, err)
}
