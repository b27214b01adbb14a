// Package bakeryapi is the typed client for the bakery marketplace backend.
// Every endpoint is its own fetch call site, so a second call to the same
// endpoint while one is running is dropped (or, for list endpoints,
// supersedes the first). Responses are checked against embedded JSON
// schemas before they are decoded.
package bakeryapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"bakery/internal/session"
	"bakery/pkg/fetch"

	"golang.org/x/net/publicsuffix"
)

const (
	DefaultPageLimit = 12
	DefaultRetry     = 1
)

type Client struct {
	base      *url.URL
	http      *http.Client
	jar       *sessionJar
	schemas   *validator
	logger    *slog.Logger
	userAgent string
	retry     int
	pageLimit int
	backoff   time.Duration

	mu    sync.Mutex
	sites map[string]*fetch.Fetcher
}

type Option func(*Client)

// WithTransport replaces the HTTP transport; the session cookie jar is kept.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.http.Transport = rt }
}

func WithUserAgent(ua string) Option { return func(c *Client) { c.userAgent = ua } }

// WithRetry sets how many times idempotent requests are retried.
func WithRetry(n int) Option { return func(c *Client) { c.retry = n } }

func WithPageLimit(n int) Option { return func(c *Client) { c.pageLimit = n } }

func WithBackoff(d time.Duration) Option { return func(c *Client) { c.backoff = d } }

func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.logger = l } }

// NewClient creates a client for the backend at baseURL. The session cookie
// is read from and written back to store, which may be nil.
func NewClient(baseURL string, store session.Store, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("bakeryapi: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("bakeryapi: base url %q must be http or https", baseURL)
	}
	schemas, err := loadValidator()
	if err != nil {
		return nil, err
	}

	c := &Client{
		base:      base,
		http:      &http.Client{Timeout: 30 * time.Second},
		schemas:   schemas,
		logger:    slog.Default(),
		retry:     DefaultRetry,
		pageLimit: DefaultPageLimit,
		backoff:   fetch.DefaultBackoff,
		sites:     make(map[string]*fetch.Fetcher),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "bakeryapi")
	if c.pageLimit < 1 {
		c.pageLimit = DefaultPageLimit
	}

	jar, err := newSessionJar(store, base, c.logger)
	if err != nil {
		return nil, err
	}
	c.jar = jar
	c.http.Jar = jar
	return c, nil
}

func (c *Client) BaseURL() string { return c.base.String() }

// site returns the fetcher for one logical call site, creating it on first use.
func (c *Client) site(name string) *fetch.Fetcher {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.sites[name]
	if !ok {
		opts := []fetch.Option{
			fetch.WithClient(c.http),
			fetch.WithBackoff(c.backoff),
			fetch.WithLogger(c.logger),
		}
		if c.userAgent != "" {
			opts = append(opts, fetch.WithUserAgent(c.userAgent))
		}
		f = fetch.New(name, opts...)
		c.sites[name] = f
	}
	return f
}

// CancelAll aborts every in-flight request of this client.
func (c *Client) CancelAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range c.sites {
		f.Cancel()
	}
}

type call struct {
	site   string
	method string
	path   []string
	query  url.Values
	body   any
	schema string
	// replace makes a new call supersede the running one instead of being dropped.
	replace bool
}

// do runs cl and returns the validated body. A {success:false} envelope is
// turned into an APIError even on HTTP 200.
func (c *Client) do(ctx context.Context, cl call) (json.RawMessage, error) {
	u := c.base.JoinPath(cl.path...)
	if len(cl.query) > 0 {
		u.RawQuery = cl.query.Encode()
	}
	req := fetch.Request{Method: cl.method, URL: u.String(), Body: cl.body}
	// Mutations are not retried; a timed out POST may still have been applied.
	if cl.method == http.MethodGet {
		req.Retry = c.retry
	}

	f := c.site(cl.site)
	var (
		res *fetch.Result
		err error
	)
	if cl.replace {
		res, err = f.Replace(ctx, req)
	} else {
		res, err = f.Do(ctx, req)
	}
	if err != nil {
		return nil, translate(err)
	}
	if len(res.Body) == 0 {
		return nil, nil
	}

	if err := c.schemas.validate(cl.schema, res.Body); err != nil {
		c.logger.Warn("unexpected response shape", "call_site", cl.site, "request_id", res.RequestID, "error", err)
		return nil, err
	}
	var env envelope
	if json.Unmarshal(res.Body, &env) == nil && env.Success != nil && !*env.Success {
		msg := env.text()
		if msg == "" {
			msg = "request was not successful"
		}
		return nil, &APIError{Status: res.Status, Message: msg}
	}
	return res.Body, nil
}

// Ack is the reply to a mutation that returns no entity.
type Ack struct {
	Message string
}

func ackOf(body json.RawMessage) Ack {
	var env envelope
	if len(body) > 0 {
		_ = json.Unmarshal(body, &env)
	}
	return Ack{Message: env.text()}
}

// sessionJar is a public-suffix aware cookie jar that mirrors every cookie
// the backend sets into the session store.
type sessionJar struct {
	store  session.Store
	logger *slog.Logger

	mu  sync.RWMutex
	jar *cookiejar.Jar
}

func newSessionJar(store session.Store, base *url.URL, logger *slog.Logger) (*sessionJar, error) {
	s := &sessionJar{store: store, logger: logger}
	if err := s.reset(); err != nil {
		return nil, err
	}
	if store != nil {
		if saved := store.Cookies(base); len(saved) > 0 {
			s.jar.SetCookies(base, saved)
		}
	}
	return s, nil
}

func (s *sessionJar) reset() error {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return fmt.Errorf("bakeryapi: cookie jar: %w", err)
	}
	s.mu.Lock()
	s.jar = jar
	s.mu.Unlock()
	return nil
}

func (s *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	s.mu.RLock()
	s.jar.SetCookies(u, cookies)
	s.mu.RUnlock()
	if s.store == nil {
		return
	}
	if err := s.store.SetCookies(u, cookies); err != nil {
		s.logger.Warn("failed to persist session cookie", "host", u.Host, "error", err)
	}
}

func (s *sessionJar) Cookies(u *url.URL) []*http.Cookie {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jar.Cookies(u)
}
