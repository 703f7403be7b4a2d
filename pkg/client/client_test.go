package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/teselagen-client/internal/testutil"
	"github.com/Sternrassler/teselagen-client/pkg/cache"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// testConfig returns a fast-retrying config pointed at mock.
func testConfig(mock *testutil.MockPlatform) Config {
	cfg := DefaultConfig()
	cfg.HostURL = mock.URL()
	cfg.InitialBackoff = time.Millisecond
	cfg.LogoutWait = 0
	return cfg
}

// newTestClient returns a logged-in client for mock.
func newTestClient(t *testing.T, mock *testutil.MockPlatform) *Client {
	t.Helper()
	c, err := New(testConfig(mock))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	c.UpdateToken(testutil.DefaultToken)
	return c
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func get(t *testing.T, c *Client, url string) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	return c.Do(req)
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:     "relative host",
			mutate:   func(c *Config) { c.HostURL = "platform.teselagen.com" },
			errorMsg: `host_url must be an absolute http(s) URL (got "platform.teselagen.com")`,
		},
		{
			name:     "unsupported scheme",
			mutate:   func(c *Config) { c.HostURL = "ftp://example.com" },
			errorMsg: `host_url must be an absolute http(s) URL (got "ftp://example.com")`,
		},
		{
			name:     "empty token name",
			mutate:   func(c *Config) { c.APITokenName = "" },
			errorMsg: "api_token_name is required",
		},
		{
			name:     "no attempts",
			mutate:   func(c *Config) { c.MaxRetries = 0 },
			errorMsg: "max_retries must be >= 1 (got 0)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			client, err := New(cfg)
			if tt.errorMsg == "" {
				if err != nil {
					t.Fatalf("New() unexpected error = %v", err)
				}
				if client == nil {
					t.Fatal("New() returned nil client")
				}
				return
			}
			if err == nil {
				t.Fatal("Expected error but got nil")
			}
			if err.Error() != tt.errorMsg {
				t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(Config{HostURL: "https://example.com/", APITokenName: "x-token", MaxRetries: 1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if c.HostURL() != "https://example.com" {
		t.Errorf("HostURL() = %q, want trailing slash trimmed", c.HostURL())
	}
	if c.module != "design" {
		t.Errorf("module = %q, want design", c.module)
	}
	if c.config.UserAgent != DefaultUserAgent {
		t.Errorf("UserAgent = %q, want %q", c.config.UserAgent, DefaultUserAgent)
	}
	if c.GetCache() != nil {
		t.Error("cache should be disabled without Redis")
	}
	if c.Throttle() == nil {
		t.Error("throttle tracker should always be set")
	}
}

func TestModuleSegment(t *testing.T) {
	tests := []struct {
		module string
		want   string
	}{
		{"design", "design"},
		{"build", "build"},
		{"test", "test"},
		{"discover", "evolve"},
		{" Discover ", "evolve"},
		{"evolve", "evolve"},
	}

	for _, tt := range tests {
		if got := ModuleSegment(tt.module); got != tt.want {
			t.Errorf("ModuleSegment(%q) = %q, want %q", tt.module, got, tt.want)
		}
	}
}

func TestModuleURL(t *testing.T) {
	c, err := New(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		module string
		parts  []string
		want   string
	}{
		{"build", []string{"aliquots"}, "https://platform.teselagen.com/build/cli-api/aliquots"},
		{"build", []string{"aliquots", "42"}, "https://platform.teselagen.com/build/cli-api/aliquots/42"},
		{"discover", []string{"/get-model/"}, "https://platform.teselagen.com/evolve/cli-api/get-model"},
		{"design", nil, "https://platform.teselagen.com/design/cli-api"},
	}

	for _, tt := range tests {
		if got := c.ModuleURL(tt.module, tt.parts...); got != tt.want {
			t.Errorf("ModuleURL(%q, %v) = %q, want %q", tt.module, tt.parts, got, tt.want)
		}
	}
}

func TestDo_SessionHeaders(t *testing.T) {
	mock := testutil.NewMockPlatform()
	defer mock.Close()
	mock.SetJSON("/build/cli-api/aliquots", []any{})

	c := newTestClient(t, mock)
	c.labID = "7"

	resp, err := get(t, c, c.ModuleURL("build", "aliquots"))
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	resp.Body.Close()

	h := mock.LastRequestHeader
	checks := map[string]string{
		"Content-Type":     "application/json",
		"Accept":           "application/json",
		"User-Agent":       DefaultUserAgent,
		"X-Tg-Cli-Token":   testutil.DefaultToken,
		"Tg-Active-Lab-Id": "7",
	}
	for header, want := range checks {
		if got := h.Get(header); got != want {
			t.Errorf("header %s = %q, want %q", header, got, want)
		}
	}
}

func TestDo_NoLabHeaderForCommon(t *testing.T) {
	mock := testutil.NewMockPlatform()
	defer mock.Close()
	mock.SetJSON("/build/cli-api/samples", []any{})

	c := newTestClient(t, mock)
	c.UpdateToken("")

	resp, err := get(t, c, c.ModuleURL("build", "samples"))
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	resp.Body.Close()

	if mock.LastRequestHeader.Get(ActiveLabHeader) != "" {
		t.Error("lab header must be absent for the Common lab")
	}
	if mock.LastRequestHeader.Get(DefaultAPITokenName) != "" {
		t.Error("token header must be absent without a token")
	}
}

func TestDo_StatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantMsg  func(url string) string
		sentinel error
	}{
		{
			name:     "bad request",
			status:   http.StatusBadRequest,
			body:     `{"error": "pageSize must be positive"}`,
			wantMsg:  func(string) string { return "Bad Request: pageSize must be positive" },
			sentinel: ErrBadRequest,
		},
		{
			name:     "unauthorized",
			status:   http.StatusUnauthorized,
			wantMsg:  func(u string) string { return "URL : " + u + " access is unauthorized." },
			sentinel: ErrUnauthorized,
		},
		{
			name:     "not found",
			status:   http.StatusNotFound,
			wantMsg:  func(u string) string { return "URL : " + u + " cannot be found." },
			sentinel: ErrNotFound,
		},
		{
			name:     "method not allowed",
			status:   http.StatusMethodNotAllowed,
			wantMsg:  func(u string) string { return "Method not allowed. URL : " + u },
			sentinel: ErrMethodNotAllowed,
		},
		{
			name:    "other client error",
			status:  http.StatusTeapot,
			wantMsg: func(string) string { return "Got code : 418. Reason : I'm a teapot" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockPlatform()
			defer mock.Close()
			mock.SetResponse("/test/cli-api/thing", testutil.MockResponse{StatusCode: tt.status, Body: tt.body})

			c := newTestClient(t, mock)
			url := c.ModuleURL("test", "thing")

			_, err := get(t, c, url)
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("Do() error = %v, want *APIError", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if want := tt.wantMsg(url); apiErr.Error() != want {
				t.Errorf("Error() = %q, want %q", apiErr.Error(), want)
			}
			if tt.sentinel != nil && !errors.Is(err, tt.sentinel) {
				t.Errorf("errors.Is(err, %v) = false", tt.sentinel)
			}
			if mock.GetRequestCount() != 1 {
				t.Errorf("request count = %d, want 1 (4xx must not be retried)", mock.GetRequestCount())
			}
		})
	}
}

func TestDo_RetriesServerErrors(t *testing.T) {
	mock := testutil.NewMockPlatform()
	defer mock.Close()

	var calls atomic.Int32
	mock.SetHandler("/test/cli-api/flaky", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok": true}`))
	})

	c := newTestClient(t, mock)
	resp, err := get(t, c, c.ModuleURL("test", "flaky"))
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	defer resp.Body.Close()

	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"ok": true}` {
		t.Errorf("body = %s", body)
	}
}

func TestDo_RetryExhausted(t *testing.T) {
	mock := testutil.NewMockPlatform()
	defer mock.Close()
	mock.SetResponse("/test/cli-api/down", testutil.NewServerErrorResponse())

	c := newTestClient(t, mock)
	_, err := get(t, c, c.ModuleURL("test", "down"))

	if !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("Do() error = %v, want ErrRetryExhausted", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("last error = %v, want *APIError with status 500", err)
	}
	if !strings.Contains(err.Error(), "Got code : 500. Reason : Internal Server Error") {
		t.Errorf("error = %q, want the mapped 500 message", err.Error())
	}
	if mock.GetRequestCount() != 3 {
		t.Errorf("request count = %d, want 3", mock.GetRequestCount())
	}
}

func TestDo_RetriesThrottledRequests(t *testing.T) {
	mock := testutil.NewMockPlatform()
	defer mock.Close()

	var calls atomic.Int32
	mock.SetHandler("/build/cli-api/aliquots", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`[]`))
	})

	c := newTestClient(t, mock)
	resp, err := get(t, c, c.ModuleURL("build", "aliquots"))
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	resp.Body.Close()

	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestDo_ThrottleWindowTooLong(t *testing.T) {
	mock := testutil.NewMockPlatform()
	defer mock.Close()
	mock.SetResponse("/build/cli-api/aliquots", testutil.NewRateLimitResponse("600"))

	c := newTestClient(t, mock)
	_, err := get(t, c, c.ModuleURL("build", "aliquots"))
	if err == nil {
		t.Fatal("Do() should fail while throttled")
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("request count = %d, want 1 (retry must honor the throttle window)", mock.GetRequestCount())
	}

	// Later requests are held back without reaching the server.
	if _, err := get(t, c, c.ModuleURL("build", "aliquots")); err == nil {
		t.Error("second Do() should be rejected by the throttle gate")
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("request count = %d, want 1", mock.GetRequestCount())
	}
}

func TestDo_NetworkError(t *testing.T) {
	mock := testutil.NewMockPlatform()
	c := newTestClient(t, mock)
	url := c.ModuleURL("test", "experiments")
	mock.Close()

	_, err := get(t, c, url)
	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Do() error = %v, want ErrRetryExhausted", err)
	}
}

func TestDo_ReplaysBodyOnRetry(t *testing.T) {
	mock := testutil.NewMockPlatform()
	defer mock.Close()

	var calls atomic.Int32
	mock.SetHandler("/test/cli-api/experiments", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"id": "1"}`))
	})

	c := newTestClient(t, mock)
	var out map[string]any
	if err := c.PostJSON(context.Background(), c.ModuleURL("test", "experiments"), map[string]string{"name": "exp"}, &out); err != nil {
		t.Fatalf("PostJSON() error = %v", err)
	}

	reqs := mock.RequestsTo("/test/cli-api/experiments")
	if len(reqs) != 2 {
		t.Fatalf("requests = %d, want 2", len(reqs))
	}
	for i, r := range reqs {
		if string(r.Body) != `{"name":"exp"}` {
			t.Errorf("attempt %d body = %s", i+1, r.Body)
		}
	}
}

func TestDo_CacheAndConditionalRequest(t *testing.T) {
	mock := testutil.NewMockPlatform()
	defer mock.Close()
	mock.SetHandler("/build/cli-api/aliquots", testutil.NewConditionalHandler(`"v1"`, `[{"id":"1"}]`))

	cfg := testConfig(mock)
	cfg.Redis = newRedis(t)
	c, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	c.UpdateToken(testutil.DefaultToken)
	url := c.ModuleURL("build", "aliquots")

	resp, err := get(t, c, url)
	if err != nil {
		t.Fatalf("first Do() error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != `[{"id":"1"}]` {
		t.Fatalf("first body = %s", body)
	}

	resp, err = get(t, c, url)
	if err != nil {
		t.Fatalf("second Do() error = %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()

	if mock.GetConditionalCount() != 1 {
		t.Errorf("conditional requests = %d, want 1", mock.GetConditionalCount())
	}
	if resp.Header.Get("X-Cache") != "HIT" {
		t.Error("second response should be served from cache")
	}
	if string(body) != `[{"id":"1"}]` {
		t.Errorf("cached body = %s", body)
	}

	// A different lab must not see the entry.
	c.labID = "9"
	resp, err = get(t, c, url)
	if err != nil {
		t.Fatalf("third Do() error = %v", err)
	}
	resp.Body.Close()
	if mock.GetConditionalCount() != 1 {
		t.Errorf("conditional requests = %d, want 1 (lab scope)", mock.GetConditionalCount())
	}
}

func TestDo_CacheSkipsNonGet(t *testing.T) {
	mock := testutil.NewMockPlatform()
	defer mock.Close()
	mock.SetResponse("/test/cli-api/experiments", testutil.NewHealthyResponse(`{"id":"1"}`))

	cfg := testConfig(mock)
	cfg.Redis = newRedis(t)
	c, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	c.UpdateToken(testutil.DefaultToken)

	url := c.ModuleURL("test", "experiments")
	for range 2 {
		if err := c.PostJSON(context.Background(), url, map[string]string{"name": "x"}, nil); err != nil {
			t.Fatalf("PostJSON() error = %v", err)
		}
	}

	if mock.GetConditionalCount() != 0 {
		t.Error("POST responses must not be cached")
	}
	key := cache.CacheKey{Endpoint: "/test/cli-api/experiments", Token: cache.Fingerprint(testutil.DefaultToken)}
	if _, err := c.GetCache().Get(context.Background(), key); !errors.Is(err, cache.ErrCacheMiss) {
		t.Errorf("cache Get() error = %v, want ErrCacheMiss", err)
	}
}

func TestGetJSON_UseNumber(t *testing.T) {
	mock := testutil.NewMockPlatform()
	defer mock.Close()
	mock.SetResponse("/build/cli-api/aliquots/1", testutil.MockResponse{StatusCode: http.StatusOK, Body: `{"id": 12345678901234567890}`})

	c := newTestClient(t, mock)
	var out map[string]any
	if err := c.GetJSON(context.Background(), c.ModuleURL("build", "aliquots", "1"), nil, &out); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if got, ok := out["id"].(interface{ String() string }); !ok || got.String() != "12345678901234567890" {
		t.Errorf("id = %#v, want json.Number 12345678901234567890", out["id"])
	}
}

func TestGetJSON_QueryAndNoContent(t *testing.T) {
	mock := testutil.NewMockPlatform()
	defer mock.Close()
	mock.SetResponse("/test/cli-api/assays", testutil.MockResponse{StatusCode: http.StatusNoContent})

	c := newTestClient(t, mock)
	out := map[string]any{"untouched": true}
	url := c.ModuleURL("test", "assays") + "?a=1"
	if err := c.DeleteJSON(context.Background(), url, map[string][]string{"b": {"2"}}, &out); err != nil {
		t.Fatalf("DeleteJSON() error = %v", err)
	}
	if out["untouched"] != true {
		t.Error("204 must leave out untouched")
	}

	reqs := mock.RequestsTo("/test/cli-api/assays")
	if len(reqs) != 1 || reqs[0].Query.Get("a") != "1" || reqs[0].Query.Get("b") != "2" {
		t.Errorf("requests = %+v, want merged query a=1&b=2", reqs)
	}
	if reqs[0].Method != http.MethodDelete {
		t.Errorf("method = %s, want DELETE", reqs[0].Method)
	}
}

func TestGetJSON_RequiresLogin(t *testing.T) {
	mock := testutil.NewMockPlatform()
	defer mock.Close()

	c, err := New(testConfig(mock))
	if err != nil {
		t.Fatal(err)
	}

	err = c.GetJSON(context.Background(), c.ModuleURL("test", "experiments"), nil, nil)
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("GetJSON() error = %v, want ErrNotAuthenticated", err)
	}
	if mock.GetRequestCount() != 0 {
		t.Error("no request should reach the server without a token")
	}
}

func TestDo_WriteInvalidatesCollection(t *testing.T) {
	mock := testutil.NewMockPlatform()
	defer mock.Close()
	mock.SetJSON("GET /test/cli-api/experiments", []map[string]any{{"id": "1"}})
	mock.SetJSON("DELETE /test/cli-api/experiments/1", map[string]any{})

	cfg := testConfig(mock)
	cfg.Redis = newRedis(t)
	c, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	c.UpdateToken(testutil.DefaultToken)
	ctx := context.Background()
	key := cache.CacheKey{Endpoint: "/test/cli-api/experiments", Token: cache.Fingerprint(testutil.DefaultToken)}

	var out []map[string]any
	if err := c.GetJSON(ctx, c.ModuleURL("test", "experiments"), nil, &out); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if _, err := c.GetCache().Get(ctx, key); err != nil {
		t.Fatalf("cache Get() after GET error = %v", err)
	}

	if err := c.DeleteJSON(ctx, c.ModuleURL("test", "experiments", "1"), nil, nil); err != nil {
		t.Fatalf("DeleteJSON() error = %v", err)
	}
	if _, err := c.GetCache().Get(ctx, key); !errors.Is(err, cache.ErrCacheMiss) {
		t.Errorf("cache Get() after DELETE error = %v, want ErrCacheMiss", err)
	}
}

func TestCollectionPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "/test/cli-api/experiments", want: "/test/cli-api/experiments"},
		{path: "/test/cli-api/experiments/5/assays", want: "/test/cli-api/experiments"},
		{path: "/evolve/cli-api/submit-model", want: "/evolve/cli-api/submit-model"},
		{path: "/design/register", want: "/design/register"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := collectionPath(tt.path); got != tt.want {
				t.Errorf("collectionPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
