package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/clipscout/scraper/pkg/cache"
	"github.com/clipscout/scraper/pkg/keyring"
)

// Prometheus metrics for search calls.
var (
	searchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scraper_search_requests_total",
		Help: "Total search calls by key slot and status",
	}, []string{"key", "status"})

	searchRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scraper_search_request_duration_seconds",
		Help:    "Search call duration in seconds by key slot",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"key"})
)

// ExecutorConfig holds the executor configuration.
type ExecutorConfig struct {
	// Host is the RapidAPI host, sent in the x-rapidapi-host header.
	Host string

	// BaseURL overrides the request target (default "https://" + Host).
	// Used by tests to point at a mock server; the auth headers still
	// carry Host.
	BaseURL string

	// Region is the region code sent with every call.
	Region string

	// HTTPClient is the transport for remote calls. The executor sets no
	// timeout of its own; callers cancel via ctx if they need a bound.
	HTTPClient *http.Client

	// Cache is the optional response cache. Nil disables caching.
	Cache *cache.Manager

	// CacheTTL is how long successful payloads stay cached.
	CacheTTL time.Duration
}

// DefaultExecutorConfig returns a safe default configuration.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		Host:     DefaultHost,
		Region:   DefaultRegion,
		CacheTTL: 15 * time.Minute,
	}
}

// Executor performs one externally-paginated fetch per call, authenticated
// with the given credential. Usage is booked against the registry on every
// attempt: a failed call still consumed quota on the remote side.
type Executor struct {
	registry   *keyring.Registry
	httpClient *http.Client
	cache      *cache.Manager
	cacheTTL   time.Duration
	host       string
	baseURL    string
	region     string
	logger     zerolog.Logger
}

// NewExecutor creates an executor over the given registry.
func NewExecutor(registry *keyring.Registry, cfg ExecutorConfig, logger zerolog.Logger) *Executor {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://" + cfg.Host
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 15 * time.Minute
	}

	return &Executor{
		registry:   registry,
		httpClient: cfg.HTTPClient,
		cache:      cfg.Cache,
		cacheTTL:   cfg.CacheTTL,
		host:       cfg.Host,
		baseURL:    cfg.BaseURL,
		region:     cfg.Region,
		logger:     logger,
	}
}

// Execute issues one search call with the given credential. Transport
// failures and non-2xx responses become failed Outcomes, never errors.
func (e *Executor) Execute(ctx context.Context, key *keyring.ApiKey, req Request) Outcome {
	outcome := Outcome{
		KeyName:    key.Name,
		NextCursor: req.Cursor + req.Count,
	}

	// Cache hit: no remote call happened, so no quota is booked.
	if e.cache != nil {
		cacheKey := cache.Key{Term: req.Term, Region: e.region, Cursor: req.Cursor, Count: req.Count}
		entry, err := e.cache.Get(ctx, cacheKey)
		if err == nil {
			e.logger.Debug().
				Str("term", req.Term).
				Int("cursor", req.Cursor).
				Bool("cache_hit", true).
				Msg("Search served from cache")
			outcome.OK = true
			outcome.Payload = entry.Payload
			outcome.FromCache = true
			return outcome
		}
		if err != cache.ErrCacheMiss {
			e.logger.Warn().Err(err).Str("term", req.Term).Msg("Cache get error")
		}
	}

	// Book the attempt before knowing the result.
	e.registry.RecordUsage(key.Name)

	start := time.Now()
	defer func() {
		searchRequestDuration.WithLabelValues(key.Name).Observe(time.Since(start).Seconds())
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+searchPath, nil)
	if err != nil {
		searchRequestsTotal.WithLabelValues(key.Name, "request_error").Inc()
		outcome.Err = fmt.Sprintf("build search request: %v", err)
		return outcome
	}

	q := url.Values{}
	q.Set("keywords", req.Term)
	q.Set("region", e.region)
	q.Set("count", strconv.Itoa(req.Count))
	q.Set("cursor", strconv.Itoa(req.Cursor))
	q.Set("publish_time", publishTimeFlag)
	q.Set("sort_type", sortTypeFlag)
	httpReq.URL.RawQuery = q.Encode()

	httpReq.Header.Set("x-rapidapi-key", key.Secret)
	httpReq.Header.Set("x-rapidapi-host", e.host)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		searchRequestsTotal.WithLabelValues(key.Name, "network_error").Inc()
		e.logger.Warn().
			Err(err).
			Str("key", key.Name).
			Str("term", req.Term).
			Int("cursor", req.Cursor).
			Msg("Search call failed")
		outcome.Err = fmt.Sprintf("search request: %v", err)
		return outcome
	}
	defer resp.Body.Close()

	searchRequestsTotal.WithLabelValues(key.Name, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e.logger.Warn().
			Str("key", key.Name).
			Str("term", req.Term).
			Int("status_code", resp.StatusCode).
			Msg("Search call returned non-success status")
		outcome.Err = fmt.Sprintf("search request: unexpected status %d", resp.StatusCode)
		return outcome
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		e.logger.Warn().
			Err(err).
			Str("key", key.Name).
			Str("term", req.Term).
			Msg("Failed to read search response body")
		outcome.Err = fmt.Sprintf("read search response: %v", err)
		return outcome
	}

	outcome.OK = true
	outcome.Payload = body

	if e.cache != nil {
		cacheKey := cache.Key{Term: req.Term, Region: e.region, Cursor: req.Cursor, Count: req.Count}
		if err := e.cache.Set(ctx, cacheKey, body, e.cacheTTL); err != nil {
			e.logger.Warn().Err(err).Str("term", req.Term).Msg("Failed to cache search response")
		}
	}

	return outcome
}
