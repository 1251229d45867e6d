package handler

import (
	"net/http"
	"strconv"

	"github.com/salesflow/salesflow-api/internal/domain"
	"github.com/salesflow/salesflow-api/internal/service"
	"go.uber.org/zap"
)

type OpportunityHandler struct {
	opportunityService *service.OpportunityService
	logger             *zap.Logger
}

func NewOpportunityHandler(opportunityService *service.OpportunityService, logger *zap.Logger) *OpportunityHandler {
	return &OpportunityHandler{
		opportunityService: opportunityService,
		logger:             logger,
	}
}

// List godoc
// @Summary List opportunities
// @Tags Opportunities
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param search query string false "Search by title"
// @Param stage query int false "Filter by stage (1-6)"
// @Param clientId query string false "Filter by client ID"
// @Param ownerId query string false "Filter by owner ID"
// @Success 200 {object} domain.Page[domain.Opportunity]
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /opportunities [get]
func (h *OpportunityHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.opportunityService.List(r.Context(), parsePageQuery(r))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// GetByID godoc
// @Summary Get opportunity
// @Tags Opportunities
// @Produce json
// @Param id path string true "Opportunity ID"
// @Success 200 {object} domain.Opportunity
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /opportunities/{id} [get]
func (h *OpportunityHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	opp, err := h.opportunityService.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, opp)
}

// Create godoc
// @Summary Create opportunity
// @Description New opportunities start as leads unless a stage is given
// @Tags Opportunities
// @Accept json
// @Produce json
// @Param request body domain.CreateOpportunityRequest true "Opportunity data"
// @Success 201 {object} domain.Opportunity
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /opportunities [post]
func (h *OpportunityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateOpportunityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	opp, err := h.opportunityService.Create(r.Context(), &req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, opp)
}

// Update godoc
// @Summary Update opportunity
// @Description Stage changes go through the stage endpoint
// @Tags Opportunities
// @Accept json
// @Produce json
// @Param id path string true "Opportunity ID"
// @Param request body domain.UpdateOpportunityRequest true "Opportunity data"
// @Success 200 {object} domain.Opportunity
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /opportunities/{id} [put]
func (h *OpportunityHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req domain.UpdateOpportunityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	opp, err := h.opportunityService.Update(r.Context(), id, &req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, opp)
}

// Delete godoc
// @Summary Delete opportunity
// @Description Privileged roles only
// @Tags Opportunities
// @Param id path string true "Opportunity ID"
// @Success 204
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /opportunities/{id} [delete]
func (h *OpportunityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.opportunityService.Delete(r.Context(), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateStage godoc
// @Summary Move opportunity to a stage
// @Description Closing as lost requires a loss reason. Closing as won accepts optional notes.
// @Tags Opportunities
// @Accept json
// @Produce json
// @Param id path string true "Opportunity ID"
// @Param request body domain.UpdateStageRequest true "Target stage"
// @Success 200 {object} domain.Opportunity
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /opportunities/{id}/stage [put]
func (h *OpportunityHandler) UpdateStage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req domain.UpdateStageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	opp, err := h.opportunityService.UpdateStage(r.Context(), id, &req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, opp)
}

// GetStageHistory godoc
// @Summary Get stage history
// @Tags Opportunities
// @Produce json
// @Param id path string true "Opportunity ID"
// @Success 200 {array} domain.StageHistoryEntry
// @Security BearerAuth
// @Router /opportunities/{id}/stage-history [get]
func (h *OpportunityHandler) GetStageHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	history, err := h.opportunityService.GetStageHistory(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if history == nil {
		history = []domain.StageHistoryEntry{}
	}
	respondJSON(w, http.StatusOK, history)
}

// Assign godoc
// @Summary Reassign opportunity owner
// @Description Privileged roles only
// @Tags Opportunities
// @Accept json
// @Produce json
// @Param id path string true "Opportunity ID"
// @Param request body domain.AssignRequest true "New owner"
// @Success 200 {object} domain.Opportunity
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /opportunities/{id}/assign [put]
func (h *OpportunityHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req domain.AssignRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	opp, err := h.opportunityService.Assign(r.Context(), id, &req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, opp)
}

// Advance godoc
// @Summary Advance open opportunities one stage
// @Description Moves every open opportunity one funnel stage forward, stopping at Negotiation. Privileged roles only.
// @Tags Opportunities
// @Produce json
// @Param dryRun query bool false "Report planned moves without applying them"
// @Success 200 {array} domain.AdvanceResult
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /opportunities/advance [post]
func (h *OpportunityHandler) Advance(w http.ResponseWriter, r *http.Request) {
	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dryRun"))
	results, err := h.opportunityService.AdvanceOpen(r.Context(), service.AdvanceOptions{DryRun: dryRun})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, results)
}

// Pipeline godoc
// @Summary Get pipeline
// @Description Backend pipeline payload, passed through unchanged
// @Tags Pipeline
// @Produce json
// @Success 200 {object} object
// @Security BearerAuth
// @Router /pipeline [get]
func (h *OpportunityHandler) Pipeline(w http.ResponseWriter, r *http.Request) {
	data, err := h.opportunityService.Pipeline(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondRawJSON(w, data)
}

// Metrics godoc
// @Summary Get computed pipeline metrics
// @Description Per-stage counts and values, weighted value, win rate and average deal size, computed from a bounded sample of opportunities
// @Tags Pipeline
// @Produce json
// @Success 200 {object} domain.PipelineMetricsResponse
// @Security BearerAuth
// @Router /pipeline/metrics [get]
func (h *OpportunityHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.opportunityService.ComputedMetrics(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, metrics)
}
