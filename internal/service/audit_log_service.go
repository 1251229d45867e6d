package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/salesflow/salesflow-api/internal/auth"
	"github.com/salesflow/salesflow-api/internal/domain"
	"github.com/salesflow/salesflow-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// sensitiveKeys are stripped from recorded request bodies
var sensitiveKeys = []string{"password", "secret", "token", "apiKey", "accessToken", "privateKey"}

// AuditLogService handles audit logging operations
type AuditLogService struct {
	auditRepo *repository.AuditLogRepository
	logger    *zap.Logger
}

// NewAuditLogService creates a new audit log service
func NewAuditLogService(auditRepo *repository.AuditLogRepository, logger *zap.Logger) *AuditLogService {
	return &AuditLogService{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// LogEntry represents the input for creating an audit log entry
type LogEntry struct {
	Action     domain.AuditAction
	EntityType string
	EntityID   *uuid.UUID
	NewValues  interface{}
	StatusCode int
}

// Log creates an audit log entry from context and request
func (s *AuditLogService) Log(ctx context.Context, r *http.Request, entry LogEntry) error {
	auditLog := &domain.AuditLog{
		Action:      entry.Action,
		EntityType:  entry.EntityType,
		EntityID:    entry.EntityID,
		StatusCode:  entry.StatusCode,
		PerformedAt: time.Now().UTC(),
	}

	if userCtx, ok := auth.FromContext(ctx); ok {
		auditLog.UserID = userCtx.UserID.String()
		auditLog.UserEmail = userCtx.Email
		auditLog.UserName = userCtx.DisplayName
	}

	if r != nil {
		auditLog.IPAddress = clientIP(r)
		auditLog.UserAgent = r.UserAgent()
		auditLog.RequestID = r.Header.Get("X-Request-ID")
	}

	if entry.NewValues != nil {
		if data, err := json.Marshal(redact(entry.NewValues)); err == nil {
			auditLog.NewValues = string(data)
		}
	}

	if err := s.auditRepo.Create(ctx, auditLog); err != nil {
		s.logger.Error("failed to create audit log",
			zap.String("action", string(entry.Action)),
			zap.String("entity_type", entry.EntityType),
			zap.Error(err))
		return err
	}
	return nil
}

// LogLogin records a successful login for the given email
func (s *AuditLogService) LogLogin(ctx context.Context, r *http.Request, email string, user *domain.User) error {
	entry := LogEntry{
		Action:     domain.AuditActionLogin,
		EntityType: "User",
		NewValues:  map[string]interface{}{"email": email},
		StatusCode: http.StatusOK,
	}
	if user != nil && user.ID != uuid.Nil {
		id := user.ID
		entry.EntityID = &id
	}
	return s.Log(ctx, r, entry)
}

// LogInvite records a user invitation
func (s *AuditLogService) LogInvite(ctx context.Context, r *http.Request, user *domain.User, notified bool) error {
	entry := LogEntry{
		Action:     domain.AuditActionInvite,
		EntityType: "User",
		NewValues: map[string]interface{}{
			"email":    user.Email,
			"role":     user.Role,
			"notified": notified,
		},
		StatusCode: http.StatusCreated,
	}
	if user.ID != uuid.Nil {
		id := user.ID
		entry.EntityID = &id
	}
	return s.Log(ctx, r, entry)
}

// LogExport records a pipeline report export
func (s *AuditLogService) LogExport(ctx context.Context, entityType string, entityID uuid.UUID, path string) error {
	return s.Log(ctx, nil, LogEntry{
		Action:     domain.AuditActionExport,
		EntityType: entityType,
		EntityID:   &entityID,
		NewValues:  map[string]interface{}{"path": path},
	})
}

// AuditLogQueryParams represents query parameters for listing audit logs
type AuditLogQueryParams struct {
	UserID     string
	Action     *domain.AuditAction
	EntityType string
	EntityID   *uuid.UUID
	RequestID  string
	StartTime  *time.Time
	EndTime    *time.Time
	Sort       repository.SortConfig
	Page       int
	PageSize   int
}

// List retrieves audit logs with filters. Admin only.
func (s *AuditLogService) List(ctx context.Context, params AuditLogQueryParams) (*domain.Page[domain.AuditLog], error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	filter := &repository.AuditLogFilter{
		UserID:     params.UserID,
		Action:     params.Action,
		EntityType: params.EntityType,
		EntityID:   params.EntityID,
		RequestID:  params.RequestID,
		StartTime:  params.StartTime,
		EndTime:    params.EndTime,
	}
	page, err := s.auditRepo.List(ctx, filter, params.Sort, params.Page, params.PageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return page, nil
}

// GetByID retrieves a specific audit log entry. Admin only.
func (s *AuditLogService) GetByID(ctx context.Context, id uuid.UUID) (*domain.AuditLog, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	log, err := s.auditRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: audit log", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get audit log: %w", err)
	}
	return log, nil
}

// GetByEntity retrieves audit logs for a specific entity. Admin only.
func (s *AuditLogService) GetByEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit int) ([]domain.AuditLog, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > repository.MaxPageSize {
		limit = repository.MaxPageSize
	}
	return s.auditRepo.ListByEntity(ctx, entityType, entityID, limit)
}

// GetStats returns audit log counts per action for a time range. Admin only.
func (s *AuditLogService) GetStats(ctx context.Context, start, end time.Time) (map[domain.AuditAction]int64, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.auditRepo.CountByAction(ctx, start, end)
}

// CleanupOldLogs removes logs older than the specified retention period
func (s *AuditLogService) CleanupOldLogs(ctx context.Context, retentionDays int) (int64, error) {
	before := time.Now().AddDate(0, 0, -retentionDays)
	count, err := s.auditRepo.DeleteOlderThan(ctx, before)
	if err != nil {
		s.logger.Error("failed to cleanup old audit logs",
			zap.Int("retention_days", retentionDays),
			zap.Error(err))
		return 0, err
	}

	if count > 0 {
		s.logger.Info("cleaned up old audit logs",
			zap.Int64("deleted_count", count),
			zap.Int("retention_days", retentionDays))
	}
	return count, nil
}

// redact drops sensitive keys from decoded request bodies
func redact(v interface{}) interface{} {
	m, ok := v.(map[string]interface{})
	if !ok {
		return v
	}
	out := make(map[string]interface{}, len(m))
	for k, val := range m {
		out[k] = val
	}
	for _, key := range sensitiveKeys {
		for k := range out {
			if strings.EqualFold(k, key) {
				delete(out, k)
			}
		}
	}
	return out
}

// clientIP extracts the client IP address from the request
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
