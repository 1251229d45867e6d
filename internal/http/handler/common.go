package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/salesflow/salesflow-api/internal/assistant"
	"github.com/salesflow/salesflow-api/internal/backend"
	"github.com/salesflow/salesflow-api/internal/domain"
	"github.com/salesflow/salesflow-api/internal/logger"
	"github.com/salesflow/salesflow-api/internal/repository"
	"github.com/salesflow/salesflow-api/internal/service"
	"go.uber.org/zap"
)

// maxBodyBytes bounds every JSON request body
const maxBodyBytes = 1 << 20

var validate = validator.New()

// listFilterParams are query parameters passed through to backend list calls
var listFilterParams = []string{
	"clientId", "opportunityId", "assignedToId", "ownerId", "status", "stage",
	"type", "priority", "relatedToType", "relatedToId", "role", "isActive",
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondRawJSON writes a backend payload as-is
func respondRawJSON(w http.ResponseWriter, data json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// respondValidationError sends a standardized validation error response with specific field messages
func respondValidationError(w http.ResponseWriter, err error) {
	fields := make(map[string]string)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[toJSONFieldName(fe.Field())] = formatValidationError(fe)
		}
	}

	respondJSON(w, http.StatusBadRequest, domain.APIError{
		Type:   domain.ErrorTypeValidation,
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
		Detail: "One or more fields failed validation",
		Errors: fields,
	})
}

// formatValidationError creates a human-readable validation error message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", toJSONFieldName(fe.Field()))
	case "email":
		return "Must be a valid email address"
	case "max":
		return fmt.Sprintf("Must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("Must be less than or equal to %s", fe.Param())
	case "len":
		return fmt.Sprintf("Must be exactly %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	default:
		return domain.GetValidationMessage(fe.Tag())
	}
}

// toJSONFieldName converts a Go struct field name to its JSON equivalent (camelCase)
func toJSONFieldName(field string) string {
	if field == "" {
		return field
	}
	if strings.HasSuffix(field, "ID") {
		field = strings.TrimSuffix(field, "ID") + "Id"
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// respondWithError sends a standardized JSON error response
func respondWithError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, domain.APIError{
		Type:   domain.ErrorTypeForStatus(status),
		Title:  http.StatusText(status),
		Status: status,
		Detail: message,
	})
}

// decodeJSON reads and validates a JSON request body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := validate.Struct(v); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			respondValidationError(w, err)
			return false
		}
	}
	return true
}

// decodeOptionalJSON is decodeJSON for bodies that may be absent
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	return decodeJSON(w, r, v)
}

// parseID reads the {id} route parameter
func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	return parseUUIDParam(w, r, "id")
}

func parseUUIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s: must be a valid UUID", name))
		return uuid.Nil, false
	}
	return id, true
}

// parsePageQuery reads page, pageSize, search and the pass-through filters
func parsePageQuery(r *http.Request) domain.PageQuery {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page == 0 {
		page, _ = strconv.Atoi(q.Get("pageNumber"))
	}
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))
	page, pageSize = repository.NormalizePaging(page, pageSize)

	pq := domain.PageQuery{PageNumber: page, PageSize: pageSize, Search: strings.TrimSpace(q.Get("search"))}
	for _, name := range listFilterParams {
		if v := strings.TrimSpace(q.Get(name)); v != "" {
			if pq.Filters == nil {
				pq.Filters = map[string]string{}
			}
			pq.Filters[name] = v
		}
	}
	return pq
}

// respondError maps service, backend and assistant errors to problem responses
func respondError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status, detail := errorStatus(err)
	if status >= 500 {
		logger.FromContext(r.Context(), log).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}
	respondWithError(w, status, detail)
}

func errorStatus(err error) (int, string) {
	var be *backend.Error
	var upstream *assistant.UpstreamError
	var netErr net.Error

	switch {
	case errors.Is(err, service.ErrUserContextRequired):
		return http.StatusUnauthorized, "Authentication required"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "Insufficient permissions"
	case errors.Is(err, service.ErrLossReasonRequired):
		return http.StatusBadRequest, "A loss reason is required to close an opportunity as lost"
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, detailAfter(err, service.ErrInvalidInput)
	case errors.Is(err, service.ErrInvalidState):
		return http.StatusConflict, detailAfter(err, service.ErrInvalidState)
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "Resource not found"
	case errors.Is(err, assistant.ErrNotConfigured):
		return http.StatusInternalServerError, "AI assistant is not configured"
	case errors.As(err, &upstream):
		return http.StatusBadGateway, "The AI provider returned an error"
	case errors.Is(err, assistant.ErrUnavailable):
		return http.StatusServiceUnavailable, "The AI provider is unavailable"
	case errors.As(err, &be):
		if be.Status >= 400 && be.Status < 500 {
			return be.Status, be.Message
		}
		return http.StatusBadGateway, be.Message
	case errors.Is(err, backend.ErrNotConfigured):
		return http.StatusInternalServerError, "Backend API is not configured"
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		return http.StatusBadGateway, "The CRM backend could not be reached"
	default:
		return http.StatusInternalServerError, "An unexpected error occurred"
	}
}

// detailAfter returns the message of err without the sentinel prefix
func detailAfter(err, sentinel error) string {
	msg := err.Error()
	if i := strings.Index(msg, sentinel.Error()+": "); i >= 0 {
		return msg[i+len(sentinel.Error())+2:]
	}
	return sentinel.Error()
}
