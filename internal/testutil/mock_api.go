// Package testutil provides testing utilities for listsync.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// Item is the record served by MockAPI datasets.
type Item struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Items returns n sequential items with IDs 1..n.
func Items(n int) []Item {
	out := make([]Item, n)
	for i := range out {
		out[i] = Item{ID: i + 1, Name: fmt.Sprintf("item-%d", i+1)}
	}
	return out
}

// MockResponse defines a fixed response for a path.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a configurable paginated API server for testing.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	datasets map[string][]Item
	failures map[string][]int

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
	LastQuery         map[string][]string

	// RateLimitRemaining is reported in X-RateLimit-Remaining when positive.
	RateLimitRemaining int
}

// NewMockAPI creates a new mock API server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers: make(map[string]http.HandlerFunc),
		datasets: make(map[string][]Item),
		failures: make(map[string][]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.LastQuery = r.URL.Query()
		remaining := mock.RateLimitRemaining

		var failStatus int
		if queue := mock.failures[r.URL.Path]; len(queue) > 0 {
			failStatus = queue[0]
			mock.failures[r.URL.Path] = queue[1:]
		}
		handler, hasHandler := mock.handlers[r.URL.Path]
		items, hasDataset := mock.datasets[r.URL.Path]
		mock.mu.Unlock()

		if remaining > 0 {
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", "60")
		}

		switch {
		case failStatus != 0:
			writeJSON(w, failStatus, map[string]string{"error": http.StatusText(failStatus)})
		case hasHandler:
			handler(w, r)
		case hasDataset:
			servePage(w, r, items)
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		}
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastRequestHeader = nil
	m.LastQuery = nil
}

// SetDataset serves items at path in pages selected by the page and limit
// query parameters.
func (m *MockAPI) SetDataset(path string, items []Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.datasets[path] = items
}

// FailNext makes the next requests to path answer with the given statuses,
// one per request, before normal service resumes.
func (m *MockAPI) FailNext(path string, statuses ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[path] = append(m.failures[path], statuses...)
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
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

// SetRateLimitRemaining sets the quota reported in X-RateLimit-Remaining.
// Zero disables the headers.
func (m *MockAPI) SetRateLimitRemaining(remaining int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RateLimitRemaining = remaining
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetLastQuery returns the query parameters of the last request.
func (m *MockAPI) GetLastQuery() map[string][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastQuery
}

func servePage(w http.ResponseWriter, r *http.Request, items []Item) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	start := (page - 1) * limit
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}

	pageCount := (len(items) + limit - 1) / limit
	if pageCount == 0 {
		pageCount = 1
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":      items[start:end],
		"count":     end - start,
		"total":     len(items),
		"page":      page,
		"pageCount": pageCount,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response that also
// reports an exhausted quota.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     "30",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}
