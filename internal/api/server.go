// Package api exposes the search pipeline over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"smart-dealer/internal/adapters"
	"smart-dealer/internal/common/logger"
	"smart-dealer/internal/deals"
	"smart-dealer/internal/intent"
	"smart-dealer/internal/models"
	"smart-dealer/internal/profile"
	"smart-dealer/internal/search"
)

const maxBodyBytes = 64 << 10

// Searcher runs one search; *search.Orchestrator satisfies it.
type Searcher interface {
	Search(ctx context.Context, intent models.SearchIntent) (*search.Response, error)
}

// Options wires the server. Searcher, Parser and Registry are required.
type Options struct {
	Searcher Searcher
	Parser   *intent.Parser
	Registry *adapters.Registry
	Deals    deals.Source
	Profiles profile.Store
	// Ready reports whether backing infrastructure is reachable.
	Ready func(ctx context.Context) error
	// RateLimitPerMinute bounds search requests across all clients; 0 disables it.
	RateLimitPerMinute int
	Logger             logger.Logger
}

type Server struct {
	searcher  Searcher
	parser    *intent.Parser
	registry  *adapters.Registry
	deals     deals.Source
	profiles  profile.Store
	ready     func(ctx context.Context) error
	limiter   *rate.Limiter
	perMinute int
	logger    logger.Logger
	now       func() time.Time
}

func NewServer(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	s := &Server{
		searcher:  opts.Searcher,
		parser:    opts.Parser,
		registry:  opts.Registry,
		deals:     opts.Deals,
		profiles:  opts.Profiles,
		ready:     opts.Ready,
		perMinute: opts.RateLimitPerMinute,
		logger:    logger.ForComponent(log, "api"),
		now:       time.Now,
	}
	if opts.RateLimitPerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RateLimitPerMinute)), opts.RateLimitPerMinute)
	}
	return s
}

// Handler returns the routed API including the health and metrics endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/search/{$}", s.handleSearch)
	mux.HandleFunc("GET /api/search/quick", s.handleQuickSearch)
	mux.HandleFunc("GET /api/deals", s.handleDeals)
	mux.HandleFunc("GET /api/deals/{$}", s.handleDeals)
	mux.HandleFunc("GET /api/profile/{id}", s.handleGetProfile)
	mux.HandleFunc("PUT /api/profile/{id}", s.handlePutProfile)
	mux.HandleFunc("GET /api/platforms", s.handlePlatforms)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s.withLogging(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
				"time":   s.now().UTC().Format(time.RFC3339),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   s.now().UTC().Format(time.RFC3339),
	})
}

type platformView struct {
	models.PlatformInfo
	Enabled bool `json:"enabled"`
}

func (s *Server) handlePlatforms(w http.ResponseWriter, _ *http.Request) {
	out := make(map[models.Category][]platformView, len(models.Categories))
	for category, infos := range models.PlatformCatalog() {
		for _, info := range infos {
			_, enabled := s.registry.Get(info.ID)
			out[category] = append(out[category], platformView{PlatformInfo: info, Enabled: enabled})
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"platforms": out})
}

func (s *Server) handleDeals(w http.ResponseWriter, r *http.Request) {
	category, err := models.ParseCategory(r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, invalidRequest("category must be one of food, product, ride, hotel"))
		return
	}
	if s.deals == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"category": category, "deals": []models.Deal{}, "count": 0})
		return
	}

	active, err := s.deals.ActiveDeals(r.Context(), category, s.now())
	if err != nil {
		s.logger.Error("listing deals failed", map[string]interface{}{"category": string(category), "error": err.Error()})
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"category": category,
		"deals":    active,
		"count":    len(active),
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

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if p := recover(); p != nil {
				s.logger.Error("handler panicked", map[string]interface{}{
					"method": r.Method,
					"path":   r.URL.Path,
					"panic":  p,
				})
				writeJSON(rec, http.StatusInternalServerError, errorBody{Error: internalError()})
			}

			fields := map[string]interface{}{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     rec.status,
				"durationMs": time.Since(start).Milliseconds(),
			}
			if rec.status >= http.StatusInternalServerError {
				s.logger.Warn("request failed", fields)
			} else {
				s.logger.Debug("request served", fields)
			}
		}()

		next.ServeHTTP(rec, r)
	})
}
