// Package sink drains a stream of metric updates into the registry and
// exposes the resulting snapshot over HTTP for pull-based scraping.
package sink

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/sbilibin2017/promsink/internal/configs"
	httpHandlers "github.com/sbilibin2017/promsink/internal/handlers/http"
	httpMiddlewares "github.com/sbilibin2017/promsink/internal/middlewares/http"
	"github.com/sbilibin2017/promsink/internal/models"
	"github.com/sbilibin2017/promsink/internal/registry"
)

const shutdownTimeout = 5 * time.Second

// Acker receives a consumption acknowledgement after each update is
// merged; the upstream source uses it for backpressure accounting.
type Acker interface {
	Ack(n int)
}

// NopAcker discards acknowledgements, for sources that do not track
// consumption.
type NopAcker struct{}

// Ack implements Acker.
func (NopAcker) Ack(int) {}

// Sink is the exposition sink: a single ingest loop merging updates into
// the registry while the exposition server answers scrapes concurrently.
type Sink struct {
	config   *configs.SinkConfig
	registry *registry.Registry
	logger   *zap.Logger

	mu        sync.Mutex
	server    *http.Server
	addr      string
	serverErr chan error

	started     chan struct{}
	startedOnce sync.Once
}

// New creates a sink over the given registry. The exposition server is not
// started until the ingest loop runs.
func New(config *configs.SinkConfig, reg *registry.Registry, logger *zap.Logger) *Sink {
	return &Sink{
		config:    config,
		registry:  reg,
		logger:    logger,
		serverErr: make(chan error, 1),
		started:   make(chan struct{}),
	}
}

// Started is closed once the exposition listener is bound. Callers wanting
// to hit the endpoint right after startup should wait on it first.
func (s *Sink) Started() <-chan struct{} {
	return s.started
}

// Run starts the exposition server once and then drains updates until the
// channel closes or the context is cancelled, acknowledging one item after
// each merge. Merges never run concurrently. A merge contract violation or
// a transport failure ends the run with an error; cancellation shuts the
// server down gracefully and returns nil.
func (s *Sink) Run(ctx context.Context, updates <-chan models.Metric, acker Acker) error {
	if err := s.startServer(); err != nil {
		return err
	}
	defer s.stopServer()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-s.serverErr:
			return fmt.Errorf("exposition server: %w", err)
		case m, ok := <-updates:
			if !ok {
				return nil
			}
			if err := s.registry.Merge(&m); err != nil {
				return err
			}
			if acker != nil {
				acker.Ack(1)
			}
		}
	}
}

// startServer binds the listener and begins serving. Calling it again
// while the server is running is a no-op.
func (s *Sink) startServer() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.config.Address, err)
	}
	s.addr = ln.Addr().String()

	server := &http.Server{Handler: s.routes()}
	s.server = server
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case s.serverErr <- err:
			default:
			}
		}
	}()

	s.startedOnce.Do(func() { close(s.started) })

	s.logger.Info("exposition server started", zap.String("address", s.addr))
	return nil
}

// routes builds the single-route exposition handler. Anything other than
// GET /metrics gets a bare 404 with an empty body.
func (s *Sink) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(httpMiddlewares.LoggingMiddleware(s.logger))
	r.Get("/metrics", httpHandlers.NewMetricsHandler(s.registry, s.config.Namespace, s.config.Buckets, s.config.Quantiles))
	r.NotFound(httpHandlers.NewNotFoundHandler())
	r.MethodNotAllowed(httpHandlers.NewNotFoundHandler())
	return r
}

// stopServer shuts the server down cooperatively: in-flight requests
// complete before the listener closes.
func (s *Sink) stopServer() {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.mu.Unlock()

	if server == nil {
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("exposition server shutdown", zap.Error(err))
	}
}

// Healthcheck requests the exposition endpoint once and reports whether it
// answered 200.
func (s *Sink) Healthcheck(ctx context.Context) error {
	s.mu.Lock()
	addr := s.addr
	s.mu.Unlock()
	if addr == "" {
		addr = s.config.Address
	}

	client := resty.New().
		SetBaseURL("http://" + addr).
		SetRetryCount(3).
		SetRetryWaitTime(100 * time.Millisecond)

	resp, err := client.R().SetContext(ctx).Get("/metrics")
	if err != nil {
		return fmt.Errorf("healthcheck: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("healthcheck: unexpected status %d", resp.StatusCode())
	}
	return nil
}
