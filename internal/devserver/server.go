// Package devserver is an in-memory implementation of the bakery backend
// REST contract. It backs the client tests and the devserver command.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"bakery/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const sessionCookie = "token"

// StatusNotifier is told about every order status change;
// *kafkaclient.Publisher satisfies it.
type StatusNotifier interface {
	PublishStatus(ctx context.Context, ev models.OrderStatusEvent) error
}

type Option func(*options)

type options struct {
	logger   *slog.Logger
	prefix   string
	notifier StatusNotifier
	fixtures *Fixtures
	cost     int
}

func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithPrefix mounts the API under prefix, e.g. "/client".
func WithPrefix(p string) Option { return func(o *options) { o.prefix = p } }

func WithNotifier(n StatusNotifier) Option { return func(o *options) { o.notifier = n } }

func WithFixtures(f Fixtures) Option { return func(o *options) { o.fixtures = &f } }

// WithBcryptCost sets the password hashing cost; tests use bcrypt.MinCost.
func WithBcryptCost(c int) Option { return func(o *options) { o.cost = c } }

// Backend is the routed handler plus its state.
type Backend struct {
	state    *state
	logger   *slog.Logger
	notifier StatusNotifier
	router   chi.Router
}

func New(opts ...Option) (*Backend, error) {
	o := options{logger: slog.Default(), cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(&o)
	}
	f := DefaultFixtures()
	if o.fixtures != nil {
		f = *o.fixtures
	}
	st, err := newState(f, o.cost)
	if err != nil {
		return nil, err
	}
	b := &Backend{
		state:    st,
		logger:   o.logger.With("component", "devserver"),
		notifier: o.notifier,
	}
	b.router = b.routes(o.prefix)
	return b, nil
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) { b.router.ServeHTTP(w, r) }

// PendingOTP returns the one-time password last issued to email.
func (b *Backend) PendingOTP(email string) (string, bool) { return b.state.pendingOTP(email) }

func (b *Backend) routes(prefix string) chi.Router {
	r := chi.NewRouter()
	r.Use(requestLogger(b.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})

	api := func(r chi.Router) {
		r.Get("/shop/get", b.listShops)
		r.Get("/shop/{id}", b.getShop)
		r.Get("/shop/product/get/{shopId}", b.shopProducts)
		r.Get("/shop/product/{id}", b.getProduct)
		r.Get("/search", b.search)
		r.Get("/review/product/{id}", b.productReviews)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", b.register)
			r.Post("/otp", b.sendOTP)
			r.Post("/varify", b.verify)
			r.Post("/login", b.login)
			r.Post("/logout", b.logout)
			r.Group(func(r chi.Router) {
				r.Use(b.requireSession)
				r.Get("/profile", b.profile)
				r.Put("/updateprofile", b.updateProfile)
				r.Put("/updatepassword", b.updatePassword)
				r.Post("/address", b.addAddress)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(b.requireSession)
			r.Get("/order/me", b.myOrders)
			r.Post("/order/create", b.createOrder)
			r.Post("/review", b.createReview)
		})

		// Stands in for the baker dashboard.
		r.Post("/dev/order/{id}/status", b.setOrderStatus)
	}
	if prefix == "" || prefix == "/" {
		api(r)
	} else {
		r.Route(prefix, api)
	}
	return r
}

// requestLogger logs every request with the client's request id, or a fresh
// one when the client sent none.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if _, err := uuid.Parse(requestID); err != nil {
				requestID = uuid.NewString()
			}
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", requestID,
			)
		})
	}
}

// Server runs a Backend on a TCP address.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

func NewServer(addr string, b *Backend) *Server {
	return &Server{
		httpServer: &http.Server{Addr: addr, Handler: b, ReadHeaderTimeout: 5 * time.Second},
		logger:     b.logger,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("devserver: listen: %w", err)
	}
	s.logger.Info("dev backend listening", "address", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- s.httpServer.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("devserver: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info("stopping dev backend")
	return s.httpServer.Shutdown(shutdownCtx)
}
