package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/salesflow/salesflow-api/internal/domain"
	"github.com/salesflow/salesflow-api/internal/service"
	"go.uber.org/zap"
)

// maxAuditBody caps how much of a request body is kept for the audit entry
const maxAuditBody = 64 << 10

// AuditConfig holds configuration for audit middleware
type AuditConfig struct {
	// SkipPaths contains path prefixes that should not be audited
	SkipPaths []string
	// SkipMethods contains HTTP methods that should not be audited (e.g., OPTIONS)
	SkipMethods []string
	// AuditReads enables auditing of GET requests (defaults to false)
	AuditReads bool
}

// DefaultAuditConfig returns default audit configuration. Assistant calls are
// recorded as interactions; logins and invites are recorded by their handlers.
func DefaultAuditConfig() *AuditConfig {
	return &AuditConfig{
		SkipPaths: []string{
			"/health",
			"/swagger",
			"/api/assistant",
			"/api/v1/auth",
			"/api/v1/users/invite",
		},
		SkipMethods: []string{
			http.MethodOptions,
			http.MethodHead,
		},
	}
}

// entityTypes maps route segments to audited entity types
var entityTypes = map[string]string{
	"clients":          "Client",
	"contacts":         "Contact",
	"opportunities":    "Opportunity",
	"proposals":        "Proposal",
	"contracts":        "Contract",
	"activities":       "Activity",
	"pricing-requests": "PricingRequest",
	"users":            "User",
	"snapshots":        "PipelineSnapshot",
}

// AuditMiddleware provides audit logging for HTTP requests
type AuditMiddleware struct {
	auditService *service.AuditLogService
	config       *AuditConfig
	logger       *zap.Logger
	pending      sync.WaitGroup
}

// NewAuditMiddleware creates a new audit middleware
func NewAuditMiddleware(auditService *service.AuditLogService, config *AuditConfig, logger *zap.Logger) *AuditMiddleware {
	if config == nil {
		config = DefaultAuditConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditMiddleware{
		auditService: auditService,
		config:       config,
		logger:       logger,
	}
}

// Audit returns middleware that records successful modifications in the audit log.
// Entries are written after the response, off the request path.
func (m *AuditMiddleware) Audit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.shouldAudit(r) {
			next.ServeHTTP(w, r)
			return
		}

		var requestBody []byte
		if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) {
			requestBody, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(requestBody))
		}

		rw := &responseCapture{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		// route params are only resolved once the router has run
		entityType, entityID := m.extractEntityInfo(r)

		m.pending.Add(1)
		go func() {
			defer m.pending.Done()
			m.logAudit(context.WithoutCancel(r.Context()), r, rw.statusCode, entityType, entityID, requestBody)
		}()
	})
}

// Wait blocks until every pending audit entry has been written
func (m *AuditMiddleware) Wait() {
	m.pending.Wait()
}

func (m *AuditMiddleware) shouldAudit(r *http.Request) bool {
	for _, method := range m.config.SkipMethods {
		if r.Method == method {
			return false
		}
	}

	if r.Method == http.MethodGet && !m.config.AuditReads {
		return false
	}

	for _, skipPath := range m.config.SkipPaths {
		if strings.HasPrefix(r.URL.Path, skipPath) {
			return false
		}
	}

	return true
}

func (m *AuditMiddleware) logAudit(ctx context.Context, r *http.Request, statusCode int, entityType string, entityID *uuid.UUID, requestBody []byte) {
	if m.auditService == nil {
		return
	}

	// only successful modifications
	if statusCode < 200 || statusCode >= 300 {
		return
	}

	action := m.methodToAction(r.Method)
	if action == "" {
		return
	}

	var values interface{}
	if len(requestBody) > 0 && len(requestBody) <= maxAuditBody {
		var parsed map[string]interface{}
		if json.Unmarshal(requestBody, &parsed) == nil {
			values = parsed
		}
	}

	entry := service.LogEntry{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		NewValues:  values,
		StatusCode: statusCode,
	}

	if err := m.auditService.Log(ctx, r, entry); err != nil {
		m.logger.Warn("failed to create audit log entry",
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method),
			zap.Error(err))
	}
}

func (m *AuditMiddleware) methodToAction(method string) domain.AuditAction {
	switch method {
	case http.MethodPost:
		return domain.AuditActionCreate
	case http.MethodPut, http.MethodPatch:
		return domain.AuditActionUpdate
	case http.MethodDelete:
		return domain.AuditActionDelete
	case http.MethodGet:
		return domain.AuditActionAPICall
	default:
		return ""
	}
}

// extractEntityInfo reads the entity type from the chi route pattern and the id from its {id} param
func (m *AuditMiddleware) extractEntityInfo(r *http.Request) (string, *uuid.UUID) {
	routeCtx := chi.RouteContext(r.Context())
	if routeCtx == nil || routeCtx.RoutePattern() == "" {
		return EntityTypeFromPath(r.URL.Path), nil
	}

	var entityID *uuid.UUID
	if idStr := routeCtx.URLParam("id"); idStr != "" {
		if id, err := uuid.Parse(idStr); err == nil {
			entityID = &id
		}
	}

	return EntityTypeFromPath(routeCtx.RoutePattern()), entityID
}

// EntityTypeFromPath returns the audited entity type of the last known
// resource segment in path, or "Unknown"
func EntityTypeFromPath(path string) string {
	entityType := "Unknown"
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if t, ok := entityTypes[part]; ok {
			entityType = t
		}
	}
	return entityType
}

// responseCapture wraps ResponseWriter to capture the status code
type responseCapture struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseCapture) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseCapture) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
