package server

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cyp0633/librecur/recurrence"
	"github.com/cyp0633/librecur/server/auth"
	"github.com/cyp0633/librecur/server/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const (
	// HTTP headers
	headerContentType = "Content-Type"
	headerAcceptLang  = "Accept-Language"

	// MIME types
	mimeTypeJSON     = "application/json; charset=utf-8"
	mimeTypeXML      = "application/xml; charset=utf-8"
	mimeTypeCalendar = "text/calendar; charset=utf-8"

	// Occurrence listing bounds
	defaultOccurrenceCount = 10
	maxOccurrenceCount     = 500

	// healthPath is served without authentication
	healthPath = "/healthz"
)

// Server is the HTTP API over a schedule store and a recurrence engine
type Server struct {
	storage storage.Storage
	engine  *recurrence.Engine
	logger  *slog.Logger
	router  chi.Router
	now     func() time.Time

	authenticator auth.Authenticator
	realm         string
	corsOrigins   []string
}

// Option represents a configuration option for the Server
type Option func(*Server)

// WithLogger sets the logger for the server
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEngine sets the recurrence engine. The caller keeps ownership and
// closes it.
func WithEngine(engine *recurrence.Engine) Option {
	return func(s *Server) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// WithAuthenticator puts every route except the health check behind
// authenticator.
func WithAuthenticator(authenticator auth.Authenticator, realm string) Option {
	return func(s *Server) {
		s.authenticator = authenticator
		s.realm = realm
	}
}

// WithCORS allows cross-origin requests from origins.
func WithCORS(origins ...string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// WithClock overrides the time source used for DTSTAMP values.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a new API server
func New(store storage.Storage, opts ...Option) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}

	s := &Server{
		storage: store,
		engine:  recurrence.NewEngine(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if len(s.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.corsOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Accept-Language", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}
	if s.authenticator != nil {
		r.Use(auth.Middleware(s.authenticator, s.realm, healthPath))
	}

	r.Get(healthPath, s.handleHealth)
	r.Post("/preview", s.handlePreview)

	r.Route("/schedules", func(r chi.Router) {
		r.Get("/", s.handleListSchedules)
		r.Post("/", s.handleCreateSchedule)
		r.Post("/import", s.handleImportSchedule)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSchedule)
			r.Put("/", s.handleUpdateSchedule)
			r.Delete("/", s.handleDeleteSchedule)
			r.Get("/ics", s.handleExportSchedule)

			r.Put("/recurrence", s.handlePutRecurrence)
			r.Delete("/recurrence", s.handleDeleteRecurrence)

			r.Get("/exceptions", s.handleListExceptions)
			r.Post("/exceptions", s.handleAddException)
			r.Delete("/exceptions/{date}", s.handleDeleteException)

			r.Get("/occurrences", s.handleOccurrences)
		})
	})

	return r
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestLogger logs one line per request after it completes
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
