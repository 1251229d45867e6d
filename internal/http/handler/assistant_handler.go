package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/salesflow/salesflow-api/internal/domain"
	"github.com/salesflow/salesflow-api/internal/repository"
	"github.com/salesflow/salesflow-api/internal/service"
	"go.uber.org/zap"
)

// defaultUsageWindow is how far back usage is aggregated when no since is given
const defaultUsageWindow = 30 * 24 * time.Hour

// AssistantHandler serves the AI assistant routes
type AssistantHandler struct {
	assistantService *service.AssistantService
	logger           *zap.Logger
}

// NewAssistantHandler creates a new assistant handler
func NewAssistantHandler(assistantService *service.AssistantService, logger *zap.Logger) *AssistantHandler {
	return &AssistantHandler{
		assistantService: assistantService,
		logger:           logger,
	}
}

// Query godoc
// @Summary Ask the assistant
// @Description Answers a question using the caller's CRM data. navigateTo is null or one of the allow-listed app routes.
// @Tags Assistant
// @Accept json
// @Produce json
// @Param request body domain.AssistantQueryRequest true "Prompt"
// @Success 200 {object} domain.AssistantQueryResponse
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Failure 502 {object} domain.APIError
// @Failure 503 {object} domain.APIError
// @Security BearerAuth
// @Router /assistant/query [post]
func (h *AssistantHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req domain.AssistantQueryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.assistantService.Query(r.Context(), &req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// ContractTerms godoc
// @Summary Draft or improve contract terms
// @Tags Assistant
// @Accept json
// @Produce json
// @Param request body domain.ContractTermsRequest true "Mode, contract and optional current terms"
// @Success 200 {object} domain.ContractTermsResponse
// @Failure 400 {object} domain.APIError
// @Failure 502 {object} domain.APIError
// @Failure 503 {object} domain.APIError
// @Security BearerAuth
// @Router /assistant/contract-terms [post]
func (h *AssistantHandler) ContractTerms(w http.ResponseWriter, r *http.Request) {
	var req domain.ContractTermsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.assistantService.ContractTerms(r.Context(), &req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// ClientDraft godoc
// @Summary Draft client fields from a description
// @Tags Assistant
// @Accept json
// @Produce json
// @Param request body domain.ClientDraftRequest true "Company description"
// @Success 200 {object} domain.ClientDraftResponse
// @Failure 400 {object} domain.APIError
// @Failure 502 {object} domain.APIError
// @Failure 503 {object} domain.APIError
// @Security BearerAuth
// @Router /assistant/client-draft [post]
func (h *AssistantHandler) ClientDraft(w http.ResponseWriter, r *http.Request) {
	var req domain.ClientDraftRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.assistantService.ClientDraft(r.Context(), &req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// Context godoc
// @Summary Get assistant context
// @Description The aggregated CRM snapshot sent with assistant questions. Failed sources are listed in unavailable.
// @Tags Assistant
// @Produce json
// @Success 200 {object} assistant.Context
// @Security BearerAuth
// @Router /assistant/context [get]
func (h *AssistantHandler) Context(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.assistantService.Context(r.Context()))
}

// Usage godoc
// @Summary Get assistant usage
// @Description Call counts and average latency per route and outcome. Admin only.
// @Tags Assistant
// @Produce json
// @Param since query string false "Start of the window (RFC3339 or YYYY-MM-DD), default 30 days ago"
// @Success 200 {array} repository.AssistantUsage
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /assistant/usage [get]
func (h *AssistantHandler) Usage(w http.ResponseWriter, r *http.Request) {
	since, err := parseTimeParam(r, "since")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if since == nil {
		t := time.Now().Add(-defaultUsageWindow)
		since = &t
	}
	usage, err := h.assistantService.Usage(r.Context(), *since)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, usage)
}

// Interactions godoc
// @Summary List assistant interactions
// @Description Admin only
// @Tags Assistant
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param route query string false "Filter by route" Enums(query, contract-terms, client-draft)
// @Param userId query string false "Filter by user ID"
// @Param outcome query string false "Filter by outcome" Enums(ok, fallback, upstream_error, unavailable)
// @Param since query string false "Recorded at or after (RFC3339 or YYYY-MM-DD)"
// @Success 200 {object} domain.Page[domain.AssistantInteraction]
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /assistant/interactions [get]
func (h *AssistantHandler) Interactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	since, err := parseTimeParam(r, "since")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter := &repository.AssistantInteractionFilter{
		Route:   q.Get("route"),
		UserID:  q.Get("userId"),
		Outcome: domain.AssistantOutcome(q.Get("outcome")),
		Since:   since,
	}
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))

	result, err := h.assistantService.Interactions(r.Context(), filter, page, pageSize)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
