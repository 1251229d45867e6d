// Package backend is a typed HTTP client for the SalesFlow CRM REST API.
// Every call forwards the bearer token found in the request context.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/salesflow/salesflow-api/internal/auth"
	"github.com/salesflow/salesflow-api/internal/config"
	"github.com/salesflow/salesflow-api/internal/domain"
	"go.uber.org/zap"
)

// Collection paths on the backend
const (
	PathUsers           = "/api/Users"
	PathClients         = "/api/Clients"
	PathContacts        = "/api/Contacts"
	PathOpportunities   = "/api/Opportunities"
	PathProposals       = "/api/Proposals"
	PathContracts       = "/api/Contracts"
	PathActivities      = "/api/Activities"
	PathPricingRequests = "/api/PricingRequests"
	PathDashboard       = "/api/Dashboard"
	PathReports         = "/api/Reports"
	PathAuth            = "/api/Auth"
)

const maxResponseBytes = 16 << 20

// ErrNotConfigured is returned when no backend URL is set
var ErrNotConfigured = errors.New("backend API URL is not configured")

// Error is a non-2xx response from the backend
type Error struct {
	Status  int
	Method  string
	Path    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// StatusCode returns the HTTP status the backend answered with
func (e *Error) StatusCode() int {
	return e.Status
}

// StatusOf returns the backend status carried by err, or 0
func StatusOf(err error) int {
	var be *Error
	if errors.As(err, &be) {
		return be.Status
	}
	return 0
}

// IsNotFound reports whether the backend answered 404
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

// Client calls the CRM backend
type Client struct {
	baseURL    string
	authURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a backend client from configuration
func NewClient(cfg *config.BackendConfig, logger *zap.Logger) *Client {
	timeout := cfg.TimeoutDuration()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = cfg.BaseURL
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		authURL:    authURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// BaseURL returns the configured backend root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do performs a request and returns the response body of a 2xx answer
func (c *Client) do(ctx context.Context, base, method, path string, query url.Values, body any) ([]byte, error) {
	if base == "" {
		return nil, ErrNotConfigured
	}

	endpoint := base + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := auth.TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call backend %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read backend response: %w", err)
	}

	c.logger.Debug("backend call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{
			Status:  resp.StatusCode,
			Method:  method,
			Path:    path,
			Message: ExtractErrorMessage(data, resp.StatusCode),
		}
	}
	return data, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	data, err := c.do(ctx, c.baseURL, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func pageQuery(q domain.PageQuery) url.Values {
	values := url.Values{}
	if q.PageNumber > 0 {
		values.Set("pageNumber", strconv.Itoa(q.PageNumber))
	}
	if q.PageSize > 0 {
		values.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	if q.Search != "" {
		values.Set("search", q.Search)
	}
	for k, v := range q.Filters {
		if v != "" {
			values.Set(k, v)
		}
	}
	return values
}

// Resource is a typed view over one backend collection
type Resource[T any] struct {
	client *Client
	path   string
}

// NewResource binds a collection path to an entity type
func NewResource[T any](client *Client, path string) Resource[T] {
	return Resource[T]{client: client, path: path}
}

// List fetches one page; bare-array responses are normalized into a page
func (r Resource[T]) List(ctx context.Context, q domain.PageQuery) (*domain.Page[T], error) {
	data, err := r.client.do(ctx, r.client.baseURL, http.MethodGet, r.path, pageQuery(q), nil)
	if err != nil {
		return nil, err
	}
	return DecodeList[T](data)
}

// Get fetches a single entity
func (r Resource[T]) Get(ctx context.Context, id uuid.UUID) (*T, error) {
	var out T
	if err := r.client.getJSON(ctx, r.itemPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create posts a new entity and returns the stored version
func (r Resource[T]) Create(ctx context.Context, body any) (*T, error) {
	data, err := r.client.do(ctx, r.client.baseURL, http.MethodPost, r.path, nil, body)
	if err != nil {
		return nil, err
	}
	return r.decodeOrFetch(ctx, data, nil)
}

// Update replaces an entity. A body-less answer is followed by a read.
func (r Resource[T]) Update(ctx context.Context, id uuid.UUID, body any) (*T, error) {
	data, err := r.client.do(ctx, r.client.baseURL, http.MethodPut, r.itemPath(id), nil, body)
	if err != nil {
		return nil, err
	}
	return r.decodeOrFetch(ctx, data, &id)
}

// Delete removes an entity
func (r Resource[T]) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.client.do(ctx, r.client.baseURL, http.MethodDelete, r.itemPath(id), nil, nil)
	return err
}

// Action calls a sub-resource command such as PUT /{id}/stage
func (r Resource[T]) Action(ctx context.Context, method string, id uuid.UUID, action string, body any) (*T, error) {
	data, err := r.client.do(ctx, r.client.baseURL, method, r.itemPath(id)+"/"+action, nil, body)
	if err != nil {
		return nil, err
	}
	return r.decodeOrFetch(ctx, data, &id)
}

func (r Resource[T]) itemPath(id uuid.UUID) string {
	return r.path + "/" + id.String()
}

func (r Resource[T]) decodeOrFetch(ctx context.Context, data []byte, id *uuid.UUID) (*T, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		if id == nil {
			return nil, fmt.Errorf("backend returned an empty body for %s", r.path)
		}
		return r.Get(ctx, *id)
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", r.path, err)
	}
	return &out, nil
}

func (c *Client) Users() Resource[domain.User] { return NewResource[domain.User](c, PathUsers) }
func (c *Client) Clients() Resource[domain.Client] { return NewResource[domain.Client](c, PathClients) }
func (c *Client) Contacts() Resource[domain.Contact] {
	return NewResource[domain.Contact](c, PathContacts)
}
func (c *Client) Opportunities() Resource[domain.Opportunity] {
	return NewResource[domain.Opportunity](c, PathOpportunities)
}
func (c *Client) Proposals() Resource[domain.Proposal] {
	return NewResource[domain.Proposal](c, PathProposals)
}
func (c *Client) Contracts() Resource[domain.Contract] {
	return NewResource[domain.Contract](c, PathContracts)
}
func (c *Client) Activities() Resource[domain.Activity] {
	return NewResource[domain.Activity](c, PathActivities)
}
func (c *Client) PricingRequests() Resource[domain.PricingRequest] {
	return NewResource[domain.PricingRequest](c, PathPricingRequests)
}

// StageHistory reads the backend's stage change log for an opportunity
func (c *Client) StageHistory(ctx context.Context, opportunityID uuid.UUID) ([]domain.StageHistoryEntry, error) {
	data, err := c.do(ctx, c.baseURL, http.MethodGet, PathOpportunities+"/"+opportunityID.String()+"/stage-history", nil, nil)
	if err != nil {
		return nil, err
	}
	page, err := DecodeList[domain.StageHistoryEntry](data)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// Pipeline returns the backend's precomputed pipeline payload unchanged
func (c *Client) Pipeline(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, PathOpportunities+"/pipeline", nil)
}

// Dashboard returns the dashboard overview payload unchanged
func (c *Client) Dashboard(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, PathDashboard, nil)
}

// Report returns a named report payload unchanged
func (c *Client) Report(ctx context.Context, name string, query url.Values) (json.RawMessage, error) {
	return c.raw(ctx, PathReports+"/"+url.PathEscape(name), query)
}

// ExpiringContracts lists contracts ending within the given number of days
func (c *Client) ExpiringContracts(ctx context.Context, days int) ([]domain.Contract, error) {
	data, err := c.do(ctx, c.baseURL, http.MethodGet, PathContracts+"/expiring", url.Values{"days": {strconv.Itoa(days)}}, nil)
	if err != nil {
		return nil, err
	}
	page, err := DecodeList[domain.Contract](data)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// CurrentUser returns the profile of the token owner
func (c *Client) CurrentUser(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := c.getJSON(ctx, PathAuth+"/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges credentials for a session token
func (c *Client) Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResult, error) {
	data, err := c.do(ctx, c.authURL, http.MethodPost, PathAuth+"/login", nil, req)
	if err != nil {
		return nil, err
	}
	var body struct {
		domain.AuthResult
		AccessToken    string `json:"accessToken"`
		AccessTokenAlt string `json:"access_token"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("failed to decode login response: %w", err)
	}
	result := body.AuthResult
	if result.Token == "" {
		result.Token = body.AccessToken
	}
	if result.Token == "" {
		result.Token = body.AccessTokenAlt
	}
	if result.Token == "" {
		return nil, fmt.Errorf("login response did not contain a token")
	}
	return &result, nil
}

// FetchRawPage reads one page of a collection as untyped records
func (c *Client) FetchRawPage(ctx context.Context, path string, pageNumber, pageSize int) (*domain.Page[map[string]any], error) {
	data, err := c.do(ctx, c.baseURL, http.MethodGet, path, pageQuery(domain.PageQuery{PageNumber: pageNumber, PageSize: pageSize}), nil)
	if err != nil {
		return nil, err
	}
	return DecodeList[map[string]any](data)
}

// FetchRaw reads a single JSON document as an untyped value
func (c *Client) FetchRaw(ctx context.Context, path string) (any, error) {
	var out any
	if err := c.getJSON(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ping checks that the backend answers at all
func (c *Client) Ping(ctx context.Context) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+PathAuth+"/me", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("backend unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) raw(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	data, err := c.do(ctx, c.baseURL, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("backend returned invalid JSON for %s", path)
	}
	return json.RawMessage(data), nil
}
