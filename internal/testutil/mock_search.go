// Package testutil provides testing utilities for the scraper.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"
)

// MockSearchResponse defines the behavior for a mock search endpoint response.
type MockSearchResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedCall captures one request seen by the mock server.
type RecordedCall struct {
	Path   string
	Query  url.Values
	Header http.Header
}

// MockSearchAPI is a configurable mock of the remote search endpoint.
type MockSearchAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	Calls             []RecordedCall
	LastRequestHeader http.Header
}

// NewMockSearchAPI creates a new mock search server.
func NewMockSearchAPI() *MockSearchAPI {
	mock := &MockSearchAPI{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.Calls = append(mock.Calls, RecordedCall{
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
		})
		mock.mu.Unlock()

		// Check for custom handler
		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockSearchAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockSearchAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking state.
func (m *MockSearchAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.Calls = nil
	m.LastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockSearchAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockSearchAPI) SetResponse(path string, resp MockSearchResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		// Add delay if specified
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

// GetRequestCount returns the number of requests made to the server.
func (m *MockSearchAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetCalls returns a copy of the recorded calls in arrival order.
func (m *MockSearchAPI) GetCalls() []RecordedCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	calls := make([]RecordedCall, len(m.Calls))
	copy(calls, m.Calls)
	return calls
}

// KeysSeen returns the distinct x-rapidapi-key header values observed.
func (m *MockSearchAPI) KeysSeen() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]int)
	for _, call := range m.Calls {
		seen[call.Header.Get("x-rapidapi-key")]++
	}
	return seen
}

// defaultHandler provides a default successful search response.
func (m *MockSearchAPI) defaultHandler(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"code":0,"msg":"success","data":{"videos":[{"video_id":"v-%s"}],"cursor":%s,"hasMore":true}}`, cursor, cursor)
}

// NewSearchOKResponse creates a standard 200 OK search payload.
func NewSearchOKResponse(body string) MockSearchResponse {
	return MockSearchResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockSearchResponse {
	return MockSearchResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"message": "Too many requests"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockSearchResponse {
	return MockSearchResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
