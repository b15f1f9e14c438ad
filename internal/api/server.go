package api

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"nexus/internal/config"
	"nexus/internal/monitor"
)

// Server is the HTTP front end: JSON API plus the embedded web UI.
type Server struct {
	httpServer *http.Server
	handlers   *Handlers
	cfg        *config.Config
}

// NewServer creates and configures the HTTP server with all routes and middleware.
func NewServer(cfg *config.Config, deps Deps, metrics *monitor.Metrics) *Server {
	handlers := NewHandlers(deps)

	s := &Server{
		handlers: handlers,
		cfg:      cfg,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", handleIndex)
	mux.HandleFunc("GET /index.html", handleIndex)

	mux.HandleFunc("GET /api/files", handlers.HandleListFiles)
	mux.HandleFunc("GET /api/view", handlers.HandleView)
	mux.HandleFunc("POST /api/create", handlers.HandleCreate)
	mux.HandleFunc("POST /api/edit", handlers.HandleEdit)
	mux.HandleFunc("POST /api/delete", handlers.HandleDelete)
	mux.HandleFunc("GET /api/exists", handlers.HandleExists)
	mux.HandleFunc("GET /api/browse", handlers.HandleBrowse)
	mux.HandleFunc("POST /api/execute", handlers.HandleExecute)
	mux.HandleFunc("GET /api/known", handlers.HandleKnown)
	mux.HandleFunc("GET /api/languages", handlers.HandleLanguages)
	mux.HandleFunc("GET /api/executions", handlers.HandleListExecutions)
	mux.HandleFunc("GET /api/executions/{id}", handlers.HandleGetExecution)

	mux.HandleFunc("GET /health", handlers.HandleHealth)
	if cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	}

	// Apply middleware chain (outermost first)
	var handler http.Handler = mux
	handler = MetricsMiddleware(metrics)(handler)
	handler = RateLimitMiddleware(cfg.Security.RateLimitRPS, cfg.Security.RateLimitBurst)(handler)
	handler = MaxBodyMiddleware(cfg.Server.MaxRequestBody)(handler)
	handler = SecurityHeadersMiddleware(handler)
	handler = LoggingMiddleware(handler)
	handler = RequestIDMiddleware(handler)
	handler = RecoveryMiddleware(handler)

	s.httpServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for requests. Uses TLS if configured.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	if s.cfg.TLS.Enabled {
		log.Info().
			Str("addr", ln.Addr().String()).
			Str("cert", s.cfg.TLS.CertFile).
			Msg("starting HTTPS server with TLS")

		s.httpServer.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
		return s.httpServer.ServeTLS(ln, s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
	}

	log.Info().
		Str("addr", ln.Addr().String()).
		Msg("starting HTTP server")
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
