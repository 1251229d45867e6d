package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/salesflow/salesflow-api/internal/domain"
	"github.com/salesflow/salesflow-api/internal/repository"
	"github.com/salesflow/salesflow-api/internal/service"
	"go.uber.org/zap"
)

// defaultStatsWindow is the range used for stats when no start time is given
const defaultStatsWindow = 30 * 24 * time.Hour

// AuditHandler handles audit log related HTTP requests
type AuditHandler struct {
	auditService *service.AuditLogService
	logger       *zap.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *service.AuditLogService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		logger:       logger,
	}
}

// AuditLogDTO represents an audit log entry for API response
type AuditLogDTO struct {
	ID          string                 `json:"id"`
	UserID      string                 `json:"userId,omitempty"`
	UserEmail   string                 `json:"userEmail,omitempty"`
	UserName    string                 `json:"userName,omitempty"`
	Action      string                 `json:"action"`
	EntityType  string                 `json:"entityType"`
	EntityID    string                 `json:"entityId,omitempty"`
	NewValues   map[string]interface{} `json:"newValues,omitempty"`
	StatusCode  int                    `json:"statusCode,omitempty"`
	IPAddress   string                 `json:"ipAddress,omitempty"`
	UserAgent   string                 `json:"userAgent,omitempty"`
	RequestID   string                 `json:"requestId,omitempty"`
	PerformedAt string                 `json:"performedAt"`
}

// AuditStatsResponse represents audit log statistics
type AuditStatsResponse struct {
	ActionCounts map[string]int64 `json:"actionCounts"`
	StartTime    string           `json:"startTime"`
	EndTime      string           `json:"endTime"`
}

// List godoc
// @Summary List audit logs
// @Description Returns a paginated list of audit log entries with optional filters. Admin only.
// @Tags Audit
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 200)"
// @Param userId query string false "Filter by user ID"
// @Param action query string false "Filter by action type"
// @Param entityType query string false "Filter by entity type"
// @Param entityId query string false "Filter by entity ID"
// @Param requestId query string false "Filter by request ID"
// @Param startTime query string false "Filter by start time (RFC3339)"
// @Param endTime query string false "Filter by end time (RFC3339)"
// @Param sortBy query string false "Sort field" Enums(performedAt, action, entityType, userEmail, statusCode)
// @Param sortOrder query string false "Sort order" Enums(asc, desc)
// @Success 200 {object} domain.Page[AuditLogDTO]
// @Failure 401 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /audit [get]
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := service.AuditLogQueryParams{
		UserID:     q.Get("userId"),
		EntityType: q.Get("entityType"),
		RequestID:  q.Get("requestId"),
		Sort: repository.SortConfig{
			Field: q.Get("sortBy"),
			Order: repository.ParseSortOrder(q.Get("sortOrder")),
		},
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "pageSize", repository.DefaultPageSize),
	}

	if actionStr := q.Get("action"); actionStr != "" {
		action := domain.AuditAction(actionStr)
		params.Action = &action
	}
	if entityIDStr := q.Get("entityId"); entityIDStr != "" {
		entityID, err := uuid.Parse(entityIDStr)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid entityId: must be a valid UUID")
			return
		}
		params.EntityID = &entityID
	}
	if startStr := q.Get("startTime"); startStr != "" {
		if startTime, err := time.Parse(time.RFC3339, startStr); err == nil {
			params.StartTime = &startTime
		}
	}
	if endStr := q.Get("endTime"); endStr != "" {
		if endTime, err := time.Parse(time.RFC3339, endStr); err == nil {
			params.EndTime = &endTime
		}
	}

	logs, err := h.auditService.List(r.Context(), params)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, domain.MapPage(logs, toAuditLogDTO))
}

// GetByID godoc
// @Summary Get audit log by ID
// @Description Returns a specific audit log entry. Admin only.
// @Tags Audit
// @Produce json
// @Param id path string true "Audit log ID"
// @Success 200 {object} AuditLogDTO
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /audit/{id} [get]
func (h *AuditHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	log, err := h.auditService.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toAuditLogDTO(*log))
}

// GetByEntity godoc
// @Summary Get audit logs for an entity
// @Description Returns audit logs for a specific entity, newest first. Admin only.
// @Tags Audit
// @Produce json
// @Param entityType path string true "Entity type (e.g., Opportunity, Contract)"
// @Param entityId path string true "Entity ID"
// @Param limit query int false "Maximum number of entries (default: 50)"
// @Success 200 {array} AuditLogDTO
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /audit/entity/{entityType}/{entityId} [get]
func (h *AuditHandler) GetByEntity(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	entityID, ok := parseUUIDParam(w, r, "entityId")
	if !ok {
		return
	}

	logs, err := h.auditService.GetByEntity(r.Context(), entityType, entityID, parseIntQuery(r, "limit", 50))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	dtos := make([]AuditLogDTO, len(logs))
	for i, log := range logs {
		dtos[i] = toAuditLogDTO(log)
	}
	respondJSON(w, http.StatusOK, dtos)
}

// GetStats godoc
// @Summary Get audit log statistics
// @Description Returns counts per action for a time range. Admin only.
// @Tags Audit
// @Produce json
// @Param startTime query string false "Start time (RFC3339), default 30 days ago"
// @Param endTime query string false "End time (RFC3339), default now"
// @Success 200 {object} AuditStatsResponse
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /audit/stats [get]
func (h *AuditHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	end := time.Now().UTC()
	start := end.Add(-defaultStatsWindow)
	if v := r.URL.Query().Get("startTime"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			start = t
		}
	}
	if v := r.URL.Query().Get("endTime"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			end = t
		}
	}

	counts, err := h.auditService.GetStats(r.Context(), start, end)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	actionCounts := make(map[string]int64, len(counts))
	for action, count := range counts {
		actionCounts[string(action)] = count
	}
	respondJSON(w, http.StatusOK, AuditStatsResponse{
		ActionCounts: actionCounts,
		StartTime:    start.Format(time.RFC3339),
		EndTime:      end.Format(time.RFC3339),
	})
}

func toAuditLogDTO(log domain.AuditLog) AuditLogDTO {
	dto := AuditLogDTO{
		ID:          log.ID.String(),
		UserID:      log.UserID,
		UserEmail:   log.UserEmail,
		UserName:    log.UserName,
		Action:      string(log.Action),
		EntityType:  log.EntityType,
		StatusCode:  log.StatusCode,
		IPAddress:   log.IPAddress,
		UserAgent:   log.UserAgent,
		RequestID:   log.RequestID,
		PerformedAt: log.PerformedAt.Format(time.RFC3339),
	}
	if log.EntityID != nil {
		dto.EntityID = log.EntityID.String()
	}
	if log.NewValues != "" {
		var values map[string]interface{}
		if err := json.Unmarshal([]byte(log.NewValues), &values); err == nil {
			dto.NewValues = values
		}
	}
	return dto
}

// parseIntQuery parses an integer query parameter with a default value
func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val < 1 {
		return defaultVal
	}
	return val
}
