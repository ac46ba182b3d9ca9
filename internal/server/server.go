package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/speedwagon-io/wastemon/internal/lib/logger/sl"
)

// RouteRegistrar mounts a component's routes on the shared router.
type RouteRegistrar interface {
	Routes(r chi.Router)
}

type Server struct {
	log     *slog.Logger
	address string
	router  chi.Router
	server  *http.Server
	addr    net.Addr
}

func New(log *slog.Logger, address string, registrars ...RouteRegistrar) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(log))

	for _, reg := range registrars {
		reg.Routes(r)
	}

	return &Server{
		log:     log,
		address: address,
		router:  r,
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the listener synchronously so address errors surface here.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	s.addr = ln.Addr()

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.log.Info("starting http server", slog.String("address", s.addr.String()))

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server error", sl.Err(err))
		}
	}()

	return nil
}

// Addr is the bound address, nil before Start.
func (s *Server) Addr() net.Addr {
	return s.addr
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// RequestLogger logs one http_request record per request.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			log.Info("http_request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("component", "http_server"),
			)
		})
	}
}
