package server

import (
	"log/slog"
	"net/http"

	"github.com/joseph-ayodele/order-intake/internal/auth"
	"github.com/joseph-ayodele/order-intake/internal/export"
	"github.com/joseph-ayodele/order-intake/internal/repository"
	"github.com/joseph-ayodele/order-intake/internal/services/order"
)

// Options tunes the HTTP layer.
type Options struct {
	MaxUploadBytes int64
	Production     bool
}

// Server is the HTTP API over orders and users.
type Server struct {
	orders     *order.Service
	auth       *auth.Service
	export     *export.Service
	activity   repository.ActivityRepository
	logger     *slog.Logger
	maxUpload  int64
	production bool
	routes     []route
}

type route struct {
	method  string
	path    string
	handler http.HandlerFunc
}

// New creates the HTTP server. activity may be nil to disable request recording.
func New(orders *order.Service, authSvc *auth.Service, exp *export.Service, activity repository.ActivityRepository, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	s := &Server{
		orders:     orders,
		auth:       authSvc,
		export:     exp,
		activity:   activity,
		logger:     logger,
		maxUpload:  opts.MaxUploadBytes,
		production: opts.Production,
	}
	s.routes = []route{
		{http.MethodGet, "/{$}", s.handleRoot},
		{http.MethodGet, "/health", s.handleHealth},
		{http.MethodGet, "/routes", s.handleRoutes},

		{http.MethodPost, "/auth/register", s.handleRegister},
		{http.MethodPost, "/auth/login", s.handleLogin},
		{http.MethodGet, "/auth/me", s.handleMe},

		{http.MethodPost, "/order/{$}", s.handleCreateOrder},
		{http.MethodGet, "/order/{$}", s.handleListOrders},
		{http.MethodGet, "/order/export.xlsx", s.handleExportOrders},
		{http.MethodGet, "/order/{id}", s.handleGetOrder},
		{http.MethodPut, "/order/{id}", s.handleUpdateOrder},
		{http.MethodDelete, "/order/{id}", s.handleDeleteOrder},
	}
	return s
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	for _, rt := range s.routes {
		mux.HandleFunc(rt.method+" "+rt.path, rt.handler)
	}

	var h http.Handler = s.fallback(mux)
	h = recoverer(s.logger, s.production, h)
	h = s.recordActivity(h)
	h = s.optionalAuth(h)
	h = requestID(h)
	return h
}

// fallback replaces the mux's plain-text 404 and 405 responses with JSON bodies.
func (s *Server) fallback(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, pattern := mux.Handler(r); pattern != "" {
			mux.ServeHTTP(w, r)
			return
		}
		mux.ServeHTTP(&jsonStatusWriter{ResponseWriter: w, server: s, r: r}, r)
	})
}

// jsonStatusWriter swallows the mux's text body for 404 and 405.
type jsonStatusWriter struct {
	http.ResponseWriter
	server  *Server
	r       *http.Request
	swallow bool
}

func (j *jsonStatusWriter) WriteHeader(code int) {
	switch code {
	case http.StatusNotFound:
		j.swallow = true
		j.Header().Del("X-Content-Type-Options")
		j.server.notFound(j.ResponseWriter, j.r)
	case http.StatusMethodNotAllowed:
		j.swallow = true
		writeDetail(j.ResponseWriter, code, "Method Not Allowed", msgRequestError)
	default:
		j.ResponseWriter.WriteHeader(code)
	}
}

func (j *jsonStatusWriter) Write(b []byte) (int, error) {
	if j.swallow {
		return len(b), nil
	}
	return j.ResponseWriter.Write(b)
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to the Order Management API",
		"routes":  "/routes",
		"health":  "/health",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleRoutes(w http.ResponseWriter, _ *http.Request) {
	seen := make(map[string]bool, len(s.routes))
	paths := make([]string, 0, len(s.routes))
	for _, rt := range s.routes {
		p := rt.path
		if p == "/{$}" {
			p = "/"
		} else if len(p) > 4 && p[len(p)-4:] == "/{$}" {
			p = p[:len(p)-3]
		}
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	writeJSON(w, http.StatusOK, paths)
}
