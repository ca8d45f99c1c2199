// Package facetmux is a client-side query-construction and result-aggregation
// engine for faceted search against a backing search service. It builds the
// service's wire-level filter and sort expressions from typed state,
// orchestrates the auxiliary queries needed for correct facet counts under
// OR-semantics filtering, and merges ranked result lists from independently
// queried collections.
package facetmux

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/facetmux/facetmux/internal/backend"
	"github.com/facetmux/facetmux/internal/backend/typesense"
	"github.com/facetmux/facetmux/internal/domain/collection/field"
	"github.com/facetmux/facetmux/internal/domain/search/merge"
	"github.com/facetmux/facetmux/internal/domain/search/sortby"
	facetsuc "github.com/facetmux/facetmux/internal/usecase/facets"
	federateuc "github.com/facetmux/facetmux/internal/usecase/federate"
	healthuc "github.com/facetmux/facetmux/internal/usecase/health"
)

// Client is the facetmux SDK entry point.
type Client struct {
	searcher    backend.Searcher
	facetsSvc   *facetsuc.Service
	fedSvc      *federateuc.Service
	healthSvc   *healthuc.Service
	collections map[string]collectionMeta
	logger      *zap.Logger

	maxFacetValues int
	defaultPerPage int
	maxPerPage     int
	strategy       merge.Strategy
	globalMax      int
}

type collectionMeta struct {
	spec   CollectionSpec
	weight float64
	schema field.Schema
	sort   []sortby.Field
}

type clientConfig struct {
	url         string
	apiKey      string
	timeout     time.Duration
	httpClient  *http.Client
	collections []CollectionSpec
	disjunctive bool

	maxFacetValues int
	defaultPerPage int
	maxPerPage     int
	strategy       string
	globalMax      int

	logger *zap.Logger
}

// Option configures the Client.
type Option func(*clientConfig)

// WithServer sets the backing search service endpoint and API key.
func WithServer(url, apiKey string) Option {
	return func(c *clientConfig) {
		c.url = url
		c.apiKey = apiKey
	}
}

// WithTimeout bounds one backend round trip.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.timeout = d }
}

// WithHTTPClient overrides the underlying HTTP client (tests, custom transports).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) { c.httpClient = hc }
}

// WithCollections registers searchable collections. A spec's Weight of zero
// defaults to 1.0 at registration; federated searches can still assign an
// explicit zero weight per call.
func WithCollections(specs ...CollectionSpec) Option {
	return func(c *clientConfig) { c.collections = append(c.collections, specs...) }
}

// WithDisjunctiveFacets toggles the disjunctive fan-out globally. Off, every
// search is a single round trip and facet counts are naive
// (self-suppressing for refined fields).
func WithDisjunctiveFacets(enabled bool) Option {
	return func(c *clientConfig) { c.disjunctive = enabled }
}

// WithMergeDefaults sets the default federated merge strategy and global
// result cap.
func WithMergeDefaults(strategy string, globalMax int) Option {
	return func(c *clientConfig) {
		c.strategy = strategy
		c.globalMax = globalMax
	}
}

// WithPagination sets the default and maximum per-page sizes.
func WithPagination(defaultPerPage, maxPerPage int) Option {
	return func(c *clientConfig) {
		c.defaultPerPage = defaultPerPage
		c.maxPerPage = maxPerPage
	}
}

// WithMaxFacetValues caps facet values returned per field.
func WithMaxFacetValues(n int) Option {
	return func(c *clientConfig) { c.maxFacetValues = n }
}

// WithLogger sets the logger used by orchestration diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) { c.logger = l }
}

// New creates a facetmux Client.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		disjunctive:    true,
		maxFacetValues: 10,
		defaultPerPage: 20,
		maxPerPage:     100,
		strategy:       string(merge.Relevance),
	}
	for _, o := range opts {
		o(cfg)
	}

	if cfg.url == "" {
		return nil, errors.New("facetmux: server URL required (use WithServer)")
	}
	if !merge.Strategy(cfg.strategy).IsValid() {
		return nil, fmt.Errorf("facetmux: unknown merge strategy %q", cfg.strategy)
	}

	searcher, err := typesense.NewClient(typesense.Config{
		URL:        cfg.url,
		APIKey:     cfg.apiKey,
		Timeout:    cfg.timeout,
		HTTPClient: cfg.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("facetmux: create backend client: %w", err)
	}

	c := &Client{
		searcher:       searcher,
		healthSvc:      healthuc.New(searcher),
		fedSvc:         federateuc.New(searcher),
		collections:    make(map[string]collectionMeta, len(cfg.collections)),
		logger:         cfg.logger,
		maxFacetValues: cfg.maxFacetValues,
		defaultPerPage: cfg.defaultPerPage,
		maxPerPage:     cfg.maxPerPage,
		strategy:       merge.Strategy(cfg.strategy),
		globalMax:      cfg.globalMax,
	}
	if cfg.logger == nil {
		c.logger = zap.NewNop()
	}
	if cfg.disjunctive {
		c.facetsSvc = facetsuc.New(searcher)
	} else {
		c.facetsSvc = facetsuc.NewDisabled(searcher)
	}

	for _, spec := range cfg.collections {
		meta, err := newCollectionMeta(spec)
		if err != nil {
			return nil, fmt.Errorf("facetmux: collection %q: %w", spec.Name, err)
		}
		c.collections[spec.Name] = meta
	}
	return c, nil
}

func newCollectionMeta(spec CollectionSpec) (collectionMeta, error) {
	if spec.Name == "" {
		return collectionMeta{}, errors.New("name is required")
	}
	if spec.Weight < 0 {
		return collectionMeta{}, fmt.Errorf("weight must be >= 0, got %v", spec.Weight)
	}
	weight := spec.Weight
	if weight == 0 {
		weight = 1.0
	}

	fields := make([]field.Field, 0, len(spec.Fields))
	for _, fs := range spec.Fields {
		f, err := field.New(fs.Name, field.Type(fs.Type))
		if err != nil {
			return collectionMeta{}, err
		}
		fields = append(fields, f)
	}

	var sortFields []sortby.Field
	if spec.DefaultSort != "" {
		var err error
		sortFields, err = sortby.Parse(spec.DefaultSort)
		if err != nil {
			return collectionMeta{}, fmt.Errorf("default_sort: %w", err)
		}
	}

	return collectionMeta{
		spec:   spec,
		weight: weight,
		schema: field.NewSchema(fields),
		sort:   sortFields,
	}, nil
}

// Health probes the backing search service.
func (c *Client) Health(ctx context.Context) HealthReport {
	report := c.healthSvc.Check(ctx)
	out := HealthReport{OK: report.Status == healthuc.Healthy, Checks: make(map[string]bool)}
	for name, r := range report.Checks {
		out.Checks[name] = r == healthuc.CheckOK
	}
	return out
}
