package testutil

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/salesflow/salesflow-api/internal/auth"
	"github.com/salesflow/salesflow-api/internal/backend"
	"github.com/salesflow/salesflow-api/internal/config"
	"github.com/salesflow/salesflow-api/internal/domain"
	"go.uber.org/zap"
)

// RecordedRequest is one call received by a FakeBackend
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   map[string]any
}

// FakeBackend is an httptest CRM backend with per-route handlers
type FakeBackend struct {
	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []RecordedRequest
	server   *httptest.Server
}

// NewFakeBackend starts a fake backend that is closed with the test
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	f := &FakeBackend{routes: map[string]http.HandlerFunc{}}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

// Handle registers a handler for "METHOD /path"
func (f *FakeBackend) Handle(method, path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = h
}

// JSON registers a handler answering status with v encoded as JSON
func (f *FakeBackend) JSON(method, path string, status int, v any) {
	f.Handle(method, path, func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, status, v)
	})
}

// Requests returns the calls received so far
func (f *FakeBackend) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

// Calls counts the calls received for "METHOD /path"
func (f *FakeBackend) Calls(method, path string) int {
	n := 0
	for _, r := range f.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// URL is the fake backend's base URL
func (f *FakeBackend) URL() string {
	return f.server.URL
}

// Client returns a backend client pointed at the fake
func (f *FakeBackend) Client() *backend.Client {
	return backend.NewClient(&config.BackendConfig{BaseURL: f.server.URL, Timeout: 5}, zap.NewNop())
}

func (f *FakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	rec := RecordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Auth: r.Header.Get("Authorization")}
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		_ = json.Unmarshal(data, &rec.Body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, rec)
	h, ok := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if !ok {
		WriteJSON(w, http.StatusNotFound, map[string]string{"title": "Not Found"})
		return
	}
	h(w, r)
}

// WriteJSON writes v as a JSON response
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ContextWithRole returns a context carrying a user with the given role and a bearer token
func ContextWithRole(role domain.UserRole) context.Context {
	return ContextWithUser(uuid.New(), role)
}

// ContextWithUser returns a context carrying the given user id and role
func ContextWithUser(id uuid.UUID, role domain.UserRole) context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		UserID:      id,
		DisplayName: "Test User",
		Email:       "test@example.com",
		Roles:       []domain.UserRole{role},
		AccessToken: "test-token",
	})
}
