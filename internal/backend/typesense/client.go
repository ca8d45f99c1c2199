package typesense

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/facetmux/facetmux/internal/backend"
	"github.com/facetmux/facetmux/internal/metrics"
)

const (
	apiKeyHeader   = "X-TYPESENSE-API-KEY"
	defaultTimeout = 10 * time.Second
)

// Client is an HTTP client for the backing search service's search and
// health endpoints. It implements backend.Searcher and backend.Pinger.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Config holds connection settings for the backing search service.
type Config struct {
	// URL is the base endpoint, e.g. "http://localhost:8108".
	URL    string
	APIKey string
	// Timeout bounds one round trip. Zero means 10s.
	Timeout time.Duration
	// HTTPClient overrides the underlying client (tests). Timeout is
	// ignored when set.
	HTTPClient *http.Client
}

// NewClient creates a backend client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("backend URL is required")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		http:    hc,
	}, nil
}

// Search executes one collection query via the documents/search endpoint.
func (c *Client) Search(
	ctx context.Context, collection string, params backend.SearchParams,
) (*backend.SearchResponse, error) {
	if collection == "" {
		return nil, &backend.Error{Op: backend.OpSearch, Err: fmt.Errorf("collection is required")}
	}

	endpoint := fmt.Sprintf(
		"%s/collections/%s/documents/search", c.baseURL, url.PathEscape(collection),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &backend.Error{Op: backend.OpSearch, Err: err}
	}
	req.URL.RawQuery = encodeParams(params).Encode()
	req.Header.Set(apiKeyHeader, c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveBackendRequest(start, false)
		return nil, &backend.Error{Op: backend.OpSearch, Err: err}
	}
	metrics.ObserveBackendRequest(start, resp.StatusCode == http.StatusOK)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &backend.Error{Op: backend.OpSearch, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &backend.Error{
			Op:  backend.OpSearch,
			Err: &backend.StatusError{StatusCode: resp.StatusCode, Message: errorMessage(body)},
		}
	}

	var wire wireResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, &backend.Error{Op: backend.OpSearch, Err: fmt.Errorf("decode response: %w", err)}
	}
	return wire.toResponse(), nil
}

// Ping probes the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return &backend.Error{Op: backend.OpHealth, Err: err}
	}
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return &backend.Error{Op: backend.OpHealth, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &backend.Error{
			Op:  backend.OpHealth,
			Err: &backend.StatusError{StatusCode: resp.StatusCode, Message: "health check failed"},
		}
	}
	return nil
}

func encodeParams(p backend.SearchParams) url.Values {
	q := url.Values{}
	query := p.Query
	if query == "" {
		query = "*"
	}
	q.Set("q", query)
	if len(p.QueryBy) > 0 {
		q.Set("query_by", strings.Join(p.QueryBy, ","))
	}
	if p.FilterBy != "" {
		q.Set("filter_by", p.FilterBy)
	}
	if p.SortBy != "" {
		q.Set("sort_by", p.SortBy)
	}
	if len(p.FacetBy) > 0 {
		q.Set("facet_by", strings.Join(p.FacetBy, ","))
	}
	if p.MaxFacetValues > 0 {
		q.Set("max_facet_values", strconv.Itoa(p.MaxFacetValues))
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(p.PerPage))
	}
	return q
}

func errorMessage(body []byte) string {
	var msg struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &msg); err == nil && msg.Message != "" {
		return msg.Message
	}
	return strings.TrimSpace(string(body))
}

// --- Wire format ---

type wireResponse struct {
	Found        int         `json:"found"`
	Page         int         `json:"page"`
	SearchTimeMs int         `json:"search_time_ms"`
	Hits         []wireHit   `json:"hits"`
	FacetCounts  []wireFacet `json:"facet_counts"`

	RequestParams struct {
		PerPage int `json:"per_page"`
	} `json:"request_params"`
}

type wireHit struct {
	Document  map[string]any `json:"document"`
	Highlight map[string]any `json:"highlight"`
	TextMatch float64        `json:"text_match"`
}

type wireFacet struct {
	FieldName string `json:"field_name"`
	Counts    []struct {
		Value string `json:"value"`
		Count int    `json:"count"`
	} `json:"counts"`
	Stats *struct {
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	} `json:"stats"`
}

func (w *wireResponse) toResponse() *backend.SearchResponse {
	resp := &backend.SearchResponse{
		Found:        w.Found,
		Page:         w.Page,
		PerPage:      w.RequestParams.PerPage,
		SearchTimeMs: w.SearchTimeMs,
	}
	resp.Hits = make([]backend.Hit, len(w.Hits))
	for i, h := range w.Hits {
		resp.Hits[i] = backend.Hit{
			Document:  h.Document,
			Highlight: h.Highlight,
			Score:     h.TextMatch,
		}
	}
	for _, f := range w.FacetCounts {
		fc := backend.FacetCount{FieldName: f.FieldName}
		for _, c := range f.Counts {
			fc.Counts = append(fc.Counts, backend.FacetValue{Value: c.Value, Count: c.Count})
		}
		if f.Stats != nil {
			fc.Stats = &backend.FacetStats{Min: f.Stats.Min, Max: f.Stats.Max}
		}
		resp.FacetCounts = append(resp.FacetCounts, fc)
	}
	return resp
}
