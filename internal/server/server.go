// Package server exposes the object store adapter over a small JSON API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"front50store/internal/objects"
)

const (
	serverReadHeaderTimeout = 5 * time.Second
	serverReadTimeout       = 30 * time.Second
	serverWriteTimeout      = 90 * time.Second
	serverIdleTimeout       = 60 * time.Second
	serverMaxHeaderBytes    = 1 << 20
	shutdownTimeout         = 5 * time.Second
)

type Options struct {
	Address     string
	AuthToken   string
	AllowRemote bool
	Logger      zerolog.Logger
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

type Server struct {
	svc      *objects.Service
	registry *objects.Registry
	addr     string
	tokens   []string
	logger   zerolog.Logger
	handler  http.Handler
}

func New(svc *objects.Service, registry *objects.Registry, opts Options) (*Server, error) {
	if svc == nil {
		return nil, errors.New("object service is required")
	}
	if registry == nil {
		registry = objects.DefaultRegistry()
	}
	addr, err := ValidateAddress(opts.Address, opts.AllowRemote)
	if err != nil {
		return nil, err
	}

	s := &Server{
		svc:      svc,
		registry: registry,
		addr:     addr,
		tokens:   parseAuthTokens(opts.AuthToken),
		logger:   opts.Logger.With().Str("component", "server").Logger(),
	}
	s.handler = s.newRouter(opts.Gatherer)
	return s, nil
}

func (s *Server) Address() string { return s.addr }

func (s *Server) Handler() http.Handler { return s.handler }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := s.newHTTPServer()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Str("address", s.addr).Msg("listening")
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) newHTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: serverReadHeaderTimeout,
		ReadTimeout:       serverReadTimeout,
		WriteTimeout:      serverWriteTimeout,
		IdleTimeout:       serverIdleTimeout,
		MaxHeaderBytes:    serverMaxHeaderBytes,
	}
}

func (s *Server) newRouter(gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(withIdentity)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.Get("/v1/status", s.handleStatus)
	r.Get("/v1/types", s.handleTypes)
	r.Route("/v1/objects/{type}", func(r chi.Router) {
		r.Get("/", s.handleListObjects)
		r.Get("/{key}", s.handleGetObject)
		r.With(s.requireWriteAuth).Put("/{key}", s.handlePutObject)
		r.With(s.requireWriteAuth).Delete("/{key}", s.handleDeleteObject)
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.logger.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("route", route).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
