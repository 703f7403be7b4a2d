// Package client provides the core TeselaGen HTTP session: authentication,
// laboratory selection, throttling, retries, caching and error mapping.
// Module packages (build, test, discover, design) are built on top of it.
package client

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/teselagen-client/pkg/cache"
	"github.com/Sternrassler/teselagen-client/pkg/logging"
	"github.com/Sternrassler/teselagen-client/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Defaults for Config.
const (
	DefaultHostURL      = "https://platform.teselagen.com"
	DefaultAPITokenName = "x-tg-cli-token"
	DefaultModuleName   = "design"
	DefaultUserAgent    = "teselagen-client-go/0.1.0"
	DefaultExpiresIn    = "1d"

	// ActiveLabHeader carries the selected laboratory id.
	ActiveLabHeader = "tg-active-lab-id"
)

// Client is a TeselaGen platform session.
// It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	throttle   *ratelimit.Tracker
	cache      *cache.Manager
	config     Config
	hostURL    string
	module     string
	logger     zerolog.Logger

	loginMu sync.Mutex
	mu      sync.RWMutex
	token   string
	labID   string
}

// Config holds the client configuration.
type Config struct {
	// HostURL is the platform base URL
	HostURL string

	// APITokenName is the header carrying the session token
	APITokenName string

	// ModuleName is the module serving shared endpoints (auth, status, info)
	ModuleName string

	// UserAgent header
	UserAgent string

	// HTTPClient used for every request (default: 30s timeout)
	HTTPClient *http.Client

	// Redis enables the response cache and shares throttle state (optional)
	Redis *redis.Client

	// Credentials used for automatic login (optional)
	Credentials Credentials

	// Retry
	MaxRetries     int
	InitialBackoff time.Duration

	// ThrottleMaxWait is the longest Retry-After window a request waits through
	ThrottleMaxWait time.Duration

	// LogoutWait is how long Logout waits for the short-lived token to expire
	LogoutWait time.Duration
}

// DefaultConfig returns a default configuration for the public platform.
func DefaultConfig() Config {
	return Config{
		HostURL:         DefaultHostURL,
		APITokenName:    DefaultAPITokenName,
		ModuleName:      DefaultModuleName,
		UserAgent:       DefaultUserAgent,
		HTTPClient:      &http.Client{Timeout: 30 * time.Second},
		MaxRetries:      3,
		InitialBackoff:  1 * time.Second,
		ThrottleMaxWait: ratelimit.DefaultMaxWait,
		LogoutWait:      3 * time.Second,
	}
}

// New creates a new platform client.
func New(cfg Config) (*Client, error) {
	cfg.HostURL = strings.TrimRight(strings.TrimSpace(cfg.HostURL), "/")
	u, err := url.Parse(cfg.HostURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("host_url must be an absolute http(s) URL (got %q)", cfg.HostURL)
	}

	if cfg.APITokenName == "" {
		return nil, fmt.Errorf("api_token_name is required")
	}

	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("max_retries must be >= 1 (got %d)", cfg.MaxRetries)
	}

	if cfg.ModuleName == "" {
		cfg.ModuleName = DefaultModuleName
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 1 * time.Second
	}

	logger := logging.NewLogger("tg-client")

	throttle := ratelimit.NewTracker(cfg.Redis, logger)
	if cfg.ThrottleMaxWait > 0 {
		throttle.SetMaxWait(cfg.ThrottleMaxWait)
	}

	var cacheManager *cache.Manager
	if cfg.Redis != nil {
		cacheManager = cache.NewManager(cfg.Redis)
	}

	return &Client{
		httpClient: cfg.HTTPClient,
		throttle:   throttle,
		cache:      cacheManager,
		config:     cfg,
		hostURL:    cfg.HostURL,
		module:     ModuleSegment(cfg.ModuleName),
		logger:     logger,
	}, nil
}

// ModuleSegment maps a module name to its URL segment.
// DISCOVER is served under "evolve".
func ModuleSegment(module string) string {
	module = strings.ToLower(strings.TrimSpace(module))
	if module == "discover" {
		return "evolve"
	}
	return module
}

// HostURL returns the platform base URL without trailing slash.
func (c *Client) HostURL() string {
	return c.hostURL
}

// ModuleURL returns {host}/{module}/cli-api/{parts...}.
func (c *Client) ModuleURL(module string, parts ...string) string {
	segments := []string{c.hostURL, ModuleSegment(module), "cli-api"}
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			segments = append(segments, p)
		}
	}
	return strings.Join(segments, "/")
}

// Do performs an HTTP request with throttling, caching, retries and status
// mapping. Responses with status >= 400 are returned as *APIError; the caller
// owns the body of every returned response.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path

	startTime := time.Now()
	defer func() {
		tgRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Throttle gate
	if err := c.throttle.Wait(ctx); err != nil {
		c.logger.Warn().Err(err).Str("url", endpoint).Msg("Request held back by throttle")
		tgRequestsTotal.WithLabelValues(endpoint, "throttled").Inc()
		return nil, fmt.Errorf("throttle gate: %w", err)
	}

	c.setSessionHeaders(req)

	// Step 2: Cache lookup
	useCache := c.cache != nil && req.Method == http.MethodGet &&
		!strings.Contains(req.Header.Get("Cache-Control"), "no-store")

	var cacheKey cache.CacheKey
	var cachedEntry *cache.CacheEntry
	if useCache {
		cacheKey = c.cacheKey(req)
		entry, err := c.cache.Get(ctx, cacheKey)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("url", endpoint).Msg("Cache get error")
		}
		cachedEntry = entry

		// Step 3: Conditional request
		if cache.ShouldMakeConditionalRequest(cachedEntry) {
			cache.AddConditionalHeaders(req, cachedEntry)
			cache.ConditionalRequestsSent.Inc()
			c.logger.Debug().
				Str("url", endpoint).
				Str("etag", cachedEntry.ETag).
				Msg("Making conditional request")
		}
	}

	// Step 4: Execute with retry
	resp, err := c.execute(req)
	if err != nil {
		return nil, err
	}

	// Step 5: 304 Not Modified
	if resp.StatusCode == http.StatusNotModified && cachedEntry != nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		c.logger.Debug().Str("url", endpoint).Msg("304 Not Modified - using cache")
		tgRequestsTotal.WithLabelValues(endpoint, "304").Inc()
		cache.NotModifiedResponses.Inc()

		newExpires := time.Now().Add(cache.DefaultTTL)
		if expiresStr := resp.Header.Get("Expires"); expiresStr != "" {
			if t, err := http.ParseTime(expiresStr); err == nil {
				newExpires = t
			}
		}
		if err := c.cache.UpdateTTL(ctx, cacheKey, newExpires); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update cache TTL")
		}

		return cache.EntryToResponse(cachedEntry), nil
	}

	// Step 6: Status mapping
	if resp.StatusCode >= 400 {
		apiErr := newAPIError(req.URL.String(), resp)
		tgRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", apiErr.StatusCode)).Inc()
		tgErrorsTotal.WithLabelValues(string(apiErr.Class)).Inc()
		c.logger.Warn().
			Str("url", endpoint).
			Int("status", apiErr.StatusCode).
			Str("error_class", string(apiErr.Class)).
			Msg("Platform request error")
		return nil, apiErr
	}

	tgRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	// Step 7: Writes invalidate the collection they touched
	if c.cache != nil && req.Method != http.MethodGet && req.Method != http.MethodHead {
		collection := collectionPath(endpoint)
		if n, err := c.cache.Invalidate(ctx, collection); err != nil {
			c.logger.Warn().Err(err).Str("url", collection).Msg("Cache invalidation failed")
		} else if n > 0 {
			c.logger.Debug().Str("url", collection).Int("entries", n).Msg("Invalidated cached responses")
		}
	}

	// Step 8: Cache fill
	if useCache && cache.IsCacheable(resp) {
		entry, err := cache.ResponseToEntry(resp)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		} else {
			c.logger.Debug().
				Str("url", endpoint).
				Dur("ttl", entry.TTL()).
				Msg("Cached response")
		}
	}

	return resp, nil
}

// execute sends req, retrying retryable failures.
// Returns the final response for any status that is not retried.
func (c *Client) execute(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path

	retryCfg := DefaultRetryConfig()
	retryCfg.MaxAttempts = c.config.MaxRetries
	retryCfg.InitialBackoff = c.config.InitialBackoff

	c.logger.Debug().
		Str("url", endpoint).
		Str("method", req.Method).
		Msg("Executing platform request")

	var resp *http.Response
	attempt := 0

	err := retryWithBackoff(ctx, retryCfg, c.logger, func() (ErrorClass, error) {
		attempt++
		r := req
		if attempt > 1 {
			if err := c.throttle.Wait(ctx); err != nil {
				return "", fmt.Errorf("throttle gate: %w", err)
			}
			var err error
			if r, err = rewind(req); err != nil {
				return "", err
			}
		}

		res, err := c.httpClient.Do(r)
		if err != nil {
			if ctx.Err() != nil {
				return "", fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
			}
			c.logger.Error().Err(err).Str("url", endpoint).Msg("HTTP request failed")
			tgErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			tgRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return ErrorClassNetwork, err
		}

		if err := c.throttle.UpdateFromResponse(ctx, res); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update throttle state")
		}

		errClass := classifyStatus(res.StatusCode)
		if shouldRetry(errClass) {
			apiErr := newAPIError(r.URL.String(), res)
			tgErrorsTotal.WithLabelValues(string(errClass)).Inc()
			tgRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", res.StatusCode)).Inc()
			return errClass, apiErr
		}

		resp = res
		return "", nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// rewind returns a copy of req with a fresh body for another attempt.
func rewind(req *http.Request) (*http.Request, error) {
	r := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return r, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("request body for %s cannot be replayed", req.URL.Path)
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("rewind request body: %w", err)
	}
	r.Body = body
	return r, nil
}

// setSessionHeaders applies the headers every platform request carries.
func (c *Client) setSessionHeaders(req *http.Request) {
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	token, labID := c.session()
	if token != "" {
		req.Header.Set(c.config.APITokenName, token)
	}
	if labID != "" {
		req.Header.Set(ActiveLabHeader, labID)
	}
}

func (c *Client) session() (token, labID string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token, c.labID
}

// cacheKey scopes a request to the active lab and session token.
func (c *Client) cacheKey(req *http.Request) cache.CacheKey {
	token, labID := c.session()
	return cache.CacheKey{
		Endpoint:    req.URL.Path,
		QueryParams: req.URL.Query(),
		LabID:       labID,
		Token:       cache.Fingerprint(token),
	}
}

// collectionPath trims a module path to its collection,
// "/test/cli-api/experiments/5/assays" -> "/test/cli-api/experiments".
func collectionPath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) >= 3 && segments[1] == "cli-api" {
		return "/" + strings.Join(segments[:3], "/")
	}
	return path
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetCache returns the cache manager, nil without Redis.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}

// Throttle returns the throttle tracker.
func (c *Client) Throttle() *ratelimit.Tracker {
	return c.throttle
}

// Logger returns the client's component logger.
func (c *Client) Logger() zerolog.Logger {
	return c.logger
}
