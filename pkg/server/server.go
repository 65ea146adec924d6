package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-go-golems/sevasetu/pkg/assistant"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Assistant is the request driver behind the HTTP surface.
type Assistant interface {
	HandleText(ctx context.Context, text string, langKey string) (assistant.Reply, error)
	HandleAudio(ctx context.Context, audio []byte, langKey string) (assistant.Reply, error)
}

const (
	DefaultMaxUploadBytes  = 10 << 20
	DefaultShutdownTimeout = 10 * time.Second
)

type Server struct {
	assistant Assistant

	corsOrigin      string
	limit           rate.Limit
	burst           int
	maxUploadBytes  int64
	shutdownTimeout time.Duration

	limiters *limiterPool
	mux      *http.ServeMux
	server   *http.Server
}

type Option func(*Server)

func WithCORSOrigin(origin string) Option {
	return func(s *Server) { s.corsOrigin = origin }
}

// WithRateLimit limits each client address to rps requests per second. A
// non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		s.limit = rate.Limit(rps)
		s.burst = burst
	}
}

func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

func NewServer(a Assistant, opts ...Option) *Server {
	s := &Server{
		assistant:       a,
		corsOrigin:      "*",
		maxUploadBytes:  DefaultMaxUploadBytes,
		shutdownTimeout: DefaultShutdownTimeout,
		mux:             http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limit > 0 {
		if s.burst < 1 {
			s.burst = 1
		}
		s.limiters = newLimiterPool(s.limit, s.burst)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/chat", s.handleChat)
	s.mux.HandleFunc("/ask", s.handleAsk)
	s.mux.HandleFunc("/healthz", s.handleHealth)
}

// Handler returns the mux wrapped in the request id, CORS and rate limit middlewares.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = s.rateLimit(h)
	h = s.cors(h)
	h = requestID(h)
	return h
}

func (s *Server) newHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = s.newHTTPServer(addr)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := s.newHTTPServer(addr)
	s.server = srv
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Dur("timeout", s.shutdownTimeout).Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
