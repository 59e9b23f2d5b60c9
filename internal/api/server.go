// internal/api/server.go
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"query-orchestrator/internal/audit"
	"query-orchestrator/internal/common/logger"
	"query-orchestrator/internal/common/validation"
	"query-orchestrator/internal/models"
)

const maxBodyBytes = 64 << 10

// Answerer is the orchestration core as seen by the HTTP layer.
type Answerer interface {
	Answer(ctx context.Context, q models.Query) models.FusedResponse
}

// AuditLog records answered queries and lists recent ones.
type AuditLog interface {
	Observe(ctx context.Context, q models.Query, resp models.FusedResponse, duration time.Duration)
	Recent(ctx context.Context, limit int) ([]audit.Entry, error)
}

// CacheInvalidator drops a cached dataset so the next query reloads it.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type Config struct {
	AllowedOrigins []string
	Version        string
	MetricsHandler http.Handler
	// SEOCache is nil when the crawl export is read uncached.
	SEOCache CacheInvalidator
}

type Server struct {
	config    Config
	answerer  Answerer
	audit     AuditLog
	checks    map[string]ReadinessCheck
	validator *validation.Validator
	logger    logger.Logger
	started   time.Time
}

// NewServer wires the handlers. auditLog may be nil.
func NewServer(config Config, answerer Answerer, auditLog AuditLog, checks map[string]ReadinessCheck, log logger.Logger) *Server {
	if config.MetricsHandler == nil {
		config.MetricsHandler = promhttp.Handler()
	}
	return &Server{
		config:    config,
		answerer:  answerer,
		audit:     auditLog,
		checks:    checks,
		validator: validation.NewQueryValidator(),
		logger: log.With(map[string]interface{}{
			"component": "api",
		}),
		started: time.Now(),
	}
}

// Handler returns the router wrapped in CORS.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/query", s.handleQuery).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/query", s.handleQuery).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/audit/recent", s.handleRecentAudit).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/seo/cache", s.handleInvalidateSEOCache).Methods(http.MethodDelete)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	r.Handle("/metrics", s.config.MetricsHandler).Methods(http.MethodGet)
	r.Use(s.logRequests)

	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         600,
	})
	return c.Handler(r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			return
		}
		s.logger.Info("request handled", map[string]interface{}{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"durationMs": time.Since(start).Milliseconds(),
		})
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
