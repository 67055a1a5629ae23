// Package http serves the operator endpoints of `rentdesk watch`: health,
// version, Prometheus metrics and cache diagnostics.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/artpar/rentdesk/core/querycache"
	"github.com/artpar/rentdesk/core/registry"
	"github.com/artpar/rentdesk/domain/tag"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// VersionResponse is the body of GET /version.
type VersionResponse struct {
	Version string `json:"version"`
	Service string `json:"service"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CacheInspector is the part of the query cache exposed to operators.
type CacheInspector interface {
	Snapshot() []querycache.EntryInfo
	Invalidate(ctx context.Context, tags ...tag.Tag) int
}

// EndpointLister describes the registered backend endpoints.
type EndpointLister interface {
	List() []registry.Endpoint
	Audit() []registry.Finding
}

// DebugHandler serves cache and registry diagnostics.
type DebugHandler struct {
	cache     CacheInspector
	endpoints EndpointLister
	logger    zerolog.Logger
}

// NewDebugHandler creates a debug handler. Either dependency may be nil.
func NewDebugHandler(cache CacheInspector, endpoints EndpointLister, logger zerolog.Logger) *DebugHandler {
	return &DebugHandler{cache: cache, endpoints: endpoints, logger: logger}
}

// CacheResponse is the body of GET /debug/cache.
type CacheResponse struct {
	Entries []querycache.EntryInfo `json:"entries"`
	Count   int                    `json:"count"`
}

// Cache lists every cached entry.
func (h *DebugHandler) Cache(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		writeError(w, http.StatusServiceUnavailable, "cache not configured")
		return
	}
	entries := h.cache.Snapshot()
	if entries == nil {
		entries = []querycache.EntryInfo{}
	}
	writeJSON(w, http.StatusOK, CacheResponse{Entries: entries, Count: len(entries)})
}

// InvalidateResponse is the body of POST /debug/cache/invalidate.
type InvalidateResponse struct {
	Tags        []string `json:"tags"`
	Invalidated int      `json:"invalidated"`
}

// Invalidate marks entries stale by tag, e.g. ?tag=Vehicle:42&tag=Booking:LIST.
func (h *DebugHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		writeError(w, http.StatusServiceUnavailable, "cache not configured")
		return
	}

	raw := r.URL.Query()["tag"]
	if len(raw) == 0 {
		writeError(w, http.StatusBadRequest, "at least one tag parameter is required")
		return
	}
	tags := make([]tag.Tag, 0, len(raw))
	names := make([]string, 0, len(raw))
	for _, s := range raw {
		t, err := tag.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		tags = append(tags, t)
		names = append(names, t.String())
	}

	n := h.cache.Invalidate(r.Context(), tags...)
	h.logger.Info().
		Strs("tags", names).
		Int("invalidated", n).
		Str("request_id", middleware.GetReqID(r.Context())).
		Msg("cache invalidated by operator")
	writeJSON(w, http.StatusOK, InvalidateResponse{Tags: names, Invalidated: n})
}

// EndpointView is the JSON form of a registered endpoint.
type EndpointView struct {
	Name        string     `json:"name"`
	Domain      string     `json:"domain"`
	Kind        string     `json:"kind"`
	Method      string     `json:"method"`
	Path        string     `json:"path"`
	Provides    []tag.Type `json:"provides,omitempty"`
	Invalidates []tag.Type `json:"invalidates,omitempty"`
}

// EndpointsResponse is the body of GET /debug/endpoints.
type EndpointsResponse struct {
	Endpoints []EndpointView `json:"endpoints"`
	Findings  []string       `json:"findings"`
}

// Endpoints lists the registry and its tag-coverage audit.
func (h *DebugHandler) Endpoints(w http.ResponseWriter, r *http.Request) {
	if h.endpoints == nil {
		writeError(w, http.StatusServiceUnavailable, "registry not configured")
		return
	}

	resp := EndpointsResponse{Endpoints: []EndpointView{}, Findings: []string{}}
	for _, ep := range h.endpoints.List() {
		resp.Endpoints = append(resp.Endpoints, EndpointView{
			Name:        ep.Name,
			Domain:      ep.Domain,
			Kind:        string(ep.Kind),
			Method:      ep.Method,
			Path:        ep.Path,
			Provides:    ep.Provides,
			Invalidates: ep.Invalidates,
		})
	}
	for _, f := range h.endpoints.Audit() {
		resp.Findings = append(resp.Findings, f.String())
	}
	writeJSON(w, http.StatusOK, resp)
}

// Liveness returns a simple liveness check.
func Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// VersionHandler reports the build version.
func VersionHandler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, VersionResponse{Version: version, Service: "rentdesk"})
	}
}

// RouterConfig holds optional configuration for the router.
type RouterConfig struct {
	// MetricsHandler serves MetricsPath; promhttp.Handler() when nil.
	MetricsHandler http.Handler
	MetricsPath    string // default: /metrics
	Debug          *DebugHandler
	Version        string
}

// NewRouter creates the operator HTTP router.
func NewRouter(logger zerolog.Logger, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", Liveness)
	r.Get("/health/live", Liveness)

	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	r.Get("/version", VersionHandler(version))

	metricsPath := cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	if cfg.MetricsHandler != nil {
		r.Handle(metricsPath, cfg.MetricsHandler)
	} else {
		r.Handle(metricsPath, promhttp.Handler())
	}

	if cfg.Debug != nil {
		r.Route("/debug", func(r chi.Router) {
			r.Get("/cache", cfg.Debug.Cache)
			r.Post("/cache/invalidate", cfg.Debug.Invalidate)
			r.Get("/endpoints", cfg.Debug.Endpoints)
		})
	}

	return r
}

// NewLoggingMiddleware logs every request at debug level.
func NewLoggingMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			// Skip logging for health checks and metrics
			if strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == "/metrics" {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
