// Package server exposes retrieval, prompt building and answering over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/hieu7404/nlp-rag/internal/domain"
	"github.com/hieu7404/nlp-rag/internal/errs"
	"github.com/hieu7404/nlp-rag/internal/service"
)

// RAG is the subset of the service the API serves.
type RAG interface {
	Retrieve(ctx context.Context, question string, topK int) ([]domain.Passage, error)
	Prompt(ctx context.Context, question string, topK int) ([]domain.Passage, string, error)
	Answer(ctx context.Context, question string, topK int) (service.Result, error)
}

// Config holds HTTP server configuration.
type Config struct {
	ListenAddr   string
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// Version is reported in the OpenAPI document.
	Version string
	// Chunks and Model describe the loaded index for /healthz.
	Chunks int
	Model  string
}

// Server wraps a chi router with a huma API.
type Server struct {
	router chi.Router
	api    huma.API
	rag    RAG
	cfg    Config
}

// New creates a Server with its middleware and routes registered.
func New(rag RAG, cfg Config) (*Server, error) {
	if rag == nil {
		return nil, errs.New(errs.CodeConfigValidateInvalidValue, "server requires a RAG service")
	}
	if cfg.ListenAddr == "" {
		return nil, errs.New(errs.CodeConfigValidateInvalidValue, "listen address is required")
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 120 * time.Second
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(cfg.CORSOrigins))

	humaConfig := huma.DefaultConfig("RAG API", cfg.Version)
	humaConfig.Info.Description = "Retrieval-augmented question answering over a prebuilt index"
	api := humachi.New(r, humaConfig)

	s := &Server{router: r, api: api, rag: rag, cfg: cfg}
	s.registerRoutes()
	return s, nil
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return errs.Wrap(err, errs.CodeServerInternal, "listening", errs.Field("addr", s.cfg.ListenAddr))
	}
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	slog.Info("http server listening", "addr", ln.Addr().String())

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return errs.Wrap(err, errs.CodeServerInternal, "serving http")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errs.Wrap(err, errs.CodeServerInternal, "shutting down")
	}
	return <-errCh
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		if id := middleware.GetReqID(r.Context()); id != "" {
			w.Header().Set(middleware.RequestIDHeader, id)
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// apiError converts a coded error into a problem response with the status
// errs.HTTPStatus assigns to it.
func apiError(err error) error {
	status := errs.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "error", err, "code", errs.CodeOf(err))
	}
	return huma.NewError(status, err.Error())
}
