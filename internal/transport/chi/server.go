// Package chi exposes the facetmux engine over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/facetmux/facetmux"
	"github.com/facetmux/facetmux/internal/domain"
	"github.com/facetmux/facetmux/internal/metrics"
)

// Server handles search HTTP requests by driving the SDK client.
type Server struct {
	client *facetmux.Client
	logger *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(client *facetmux.Client, logger *zap.Logger) *Server {
	return &Server{client: client, logger: logger}
}

// Handler builds the chi router with middleware and routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(metrics.Middleware())

	r.Post("/search", s.handleSearch)
	r.Post("/federated-search", s.handleFederatedSearch)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Collection == "" {
		writeError(w, http.StatusBadRequest, "collection is required")
		return
	}

	b := s.client.Collection(req.Collection).Query(req.Query)
	if len(req.QueryBy) > 0 {
		b.QueryBy(req.QueryBy...)
	}
	if len(req.FacetBy) > 0 {
		b.FacetOn(req.FacetBy...)
	}
	if len(req.DisjunctiveFacets) > 0 {
		b.DisjunctiveOn(req.DisjunctiveFacets...)
	}
	if req.SortBy != "" {
		b.SortBy(req.SortBy)
	}
	if req.Page > 0 {
		b.Page(req.Page)
	}
	if req.PerPage > 0 {
		b.PerPage(req.PerPage)
	}
	applyFilters(b, req.Filters)

	result, err := b.Do(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponseFromResult(result))
}

func (s *Server) handleFederatedSearch(w http.ResponseWriter, r *http.Request) {
	var req federatedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Collections) == 0 {
		writeError(w, http.StatusBadRequest, "collections is required")
		return
	}

	names := make([]string, len(req.Collections))
	for i, c := range req.Collections {
		names[i] = c.Name
	}

	b := s.client.Federated(names...).Query(req.Query)
	if req.Strategy != "" {
		b.Strategy(req.Strategy)
	}
	if req.MaxResults > 0 {
		b.MaxResults(req.MaxResults)
	}
	for _, c := range req.Collections {
		if c.Weight != nil {
			b.Weight(c.Name, *c.Weight)
		}
		if c.Limit > 0 {
			b.Limit(c.Name, c.Limit)
		}
		if c.SortBy != "" {
			b.SortBy(c.Name, c.SortBy)
		}
		applyCollectionFilters(b, c.Name, c.Filters)
	}

	result, err := b.Do(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, federatedResponseFromResult(result))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r, 5*time.Second)
	defer cancel()

	report := s.client.Health(ctx)
	status := http.StatusOK
	if !report.OK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{OK: report.OK, Checks: report.Checks})
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidFilter),
		errors.Is(err, domain.ErrInvalidSort),
		errors.Is(err, domain.ErrInvalidStrategy),
		errors.Is(err, domain.ErrNoCollections):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnknownCollection):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrPrimaryQueryFailed),
		errors.Is(err, domain.ErrAllCollectionsFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error("search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Message: msg})
}
