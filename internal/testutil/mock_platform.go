// Package testutil provides testing utilities for the TeselaGen client.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Defaults served by a new MockPlatform.
const (
	DefaultToken     = "test-token"
	DefaultUsername  = "user@example.com"
	DefaultPassword  = "secret"
	DefaultTokenName = "x-tg-cli-token"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is a request received by the mock.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// MockPlatform is a configurable mock TeselaGen server for testing.
// Besides custom handlers it serves token auth, laboratories and paged
// collections registered with SetCollection.
type MockPlatform struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// Token is handed out by the auth endpoint and required on private endpoints.
	Token string
	// Users maps usernames to accepted passwords (or API keys).
	Users map[string]string
	// Labs served by /test/cli-api/laboratories.
	Labs []map[string]any

	collections map[string][]map[string]any

	// Tracking
	RequestCount      int
	ConditionalCount  int
	LastRequestHeader http.Header
	requests          []RecordedRequest
}

// NewMockPlatform creates a new mock platform server.
func NewMockPlatform() *MockPlatform {
	mock := &MockPlatform{
		handlers:    make(map[string]http.HandlerFunc),
		collections: make(map[string][]map[string]any),
		Token:       DefaultToken,
		Users:       map[string]string{DefaultUsername: DefaultPassword},
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()

		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.ConditionalCount++
		}
		mock.requests = append(mock.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		handler, exists := mock.handlers[r.Method+" "+r.URL.Path]
		if !exists {
			handler, exists = mock.handlers[r.URL.Path]
		}
		mock.mu.Unlock()

		r.Body = io.NopCloser(strings.NewReader(string(body)))
		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r, body)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockPlatform) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockPlatform) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockPlatform) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.LastRequestHeader = nil
	m.requests = nil
}

// SetHandler sets a custom handler for a path. pattern is either "/path"
// or "METHOD /path"; the method-specific form wins.
func (m *MockPlatform) SetHandler(pattern string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[pattern] = handler
}

// SetResponse configures a fixed response for a pattern.
func (m *MockPlatform) SetResponse(pattern string, resp MockResponse) {
	m.SetHandler(pattern, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetJSON configures a 200 JSON response for a pattern.
func (m *MockPlatform) SetJSON(pattern string, v any) {
	data, _ := json.Marshal(v)
	m.SetResponse(pattern, MockResponse{
		StatusCode: http.StatusOK,
		Body:       string(data),
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	})
}

// SetCollection serves records at path as a paged list honoring pageNumber,
// pageSize (default 100) and a gqlFilter of the form {"id": "..."}.
// GET path/{id} returns the matching record or 404.
func (m *MockPlatform) SetCollection(path string, records []map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[strings.TrimRight(path, "/")] = records
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockPlatform) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockPlatform) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// Requests returns the requests received so far.
func (m *MockPlatform) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RecordedRequest(nil), m.requests...)
}

// RequestsTo returns the received requests whose path equals path.
func (m *MockPlatform) RequestsTo(path string) []RecordedRequest {
	var out []RecordedRequest
	for _, r := range m.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// defaultHandler provides platform-like responses.
func (m *MockPlatform) defaultHandler(w http.ResponseWriter, r *http.Request, body []byte) {
	path := r.URL.Path

	switch {
	case strings.HasSuffix(path, "/cli-api/public/status"):
		w.Write([]byte("Server is up"))
		return
	case strings.HasSuffix(path, "/cli-api/public/auth") && r.Method == http.MethodPut:
		m.handleCreateToken(w, body)
		return
	case strings.HasSuffix(path, "/register") && r.Method == http.MethodPost:
		writeJSON(w, http.StatusOK, map[string]any{"id": "1"})
		return
	}

	if !m.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Unauthorized"})
		return
	}

	switch {
	case strings.HasSuffix(path, "/cli-api/public/auth") && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"username": DefaultUsername})
		return
	case strings.HasSuffix(path, "/cli-api/info"):
		w.Write([]byte("TeselaGen CLI API"))
		return
	case path == "/test/cli-api/laboratories":
		m.mu.RLock()
		labs := m.Labs
		m.mu.RUnlock()
		if labs == nil {
			labs = []map[string]any{}
		}
		writeJSON(w, http.StatusOK, labs)
		return
	}

	if r.Method == http.MethodGet && m.serveCollection(w, r) {
		return
	}

	writeJSON(w, http.StatusNotFound, map[string]any{"error": "Not Found"})
}

func (m *MockPlatform) authorized(r *http.Request) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Token != "" && r.Header.Get(DefaultTokenName) == m.Token
}

func (m *MockPlatform) handleCreateToken(w http.ResponseWriter, body []byte) {
	var req struct {
		Username  string `json:"username"`
		Password  string `json:"password"`
		ExpiresIn string `json:"expiresIn"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid body"})
		return
	}

	m.mu.RLock()
	password, ok := m.Users[req.Username]
	token := m.Token
	m.mu.RUnlock()

	if !ok || password != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid credentials"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":          token,
		"expirationDate": time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	})
}

// serveCollection answers paged list and by-id requests for registered collections.
func (m *MockPlatform) serveCollection(w http.ResponseWriter, r *http.Request) bool {
	path := strings.TrimRight(r.URL.Path, "/")

	m.mu.RLock()
	records, ok := m.collections[path]
	m.mu.RUnlock()

	if !ok {
		i := strings.LastIndex(path, "/")
		if i <= 0 {
			return false
		}
		m.mu.RLock()
		records, ok = m.collections[path[:i]]
		m.mu.RUnlock()
		if !ok {
			return false
		}

		id := path[i+1:]
		for _, rec := range records {
			if idOf(rec) == id {
				writeJSON(w, http.StatusOK, rec)
				return true
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Not Found"})
		return true
	}

	q := r.URL.Query()
	if filter := q.Get("gqlFilter"); filter != "" {
		var f map[string]any
		if err := json.Unmarshal([]byte(filter), &f); err == nil {
			if want, ok := f["id"]; ok {
				var filtered []map[string]any
				for _, rec := range records {
					if idOf(rec) == idOf(map[string]any{"id": want}) {
						filtered = append(filtered, rec)
					}
				}
				records = filtered
			}
		}
	}

	pageNumber, err := strconv.Atoi(q.Get("pageNumber"))
	if err != nil || pageNumber < 1 {
		pageNumber = 1
	}
	pageSize, err := strconv.Atoi(q.Get("pageSize"))
	if err != nil || pageSize < 1 {
		pageSize = 100
	}

	start := (pageNumber - 1) * pageSize
	page := []map[string]any{}
	if start < len(records) {
		end := min(start+pageSize, len(records))
		page = records[start:end]
	}
	writeJSON(w, http.StatusOK, page)
	return true
}

func idOf(rec map[string]any) string {
	switch v := rec["id"].(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		data, _ := json.Marshal(v)
		return string(data)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// NewHealthyResponse creates a standard 200 OK JSON response with validators.
func NewHealthyResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"ETag":         `"test-etag-123"`,
			"Expires":      time.Now().Add(5 * time.Minute).Format(http.TimeFormat),
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Too many requests"}`,
		Headers: map[string]string{
			"Retry-After":  retryAfter,
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewConditionalHandler creates a handler that responds with 304 for conditional requests.
func NewConditionalHandler(etag string, data string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		if r.Header.Get("If-None-Match") == etag {
			w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("ETag", etag)
		w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(data))
	}
}
