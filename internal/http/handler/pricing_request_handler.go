package handler

import (
	"net/http"

	"github.com/salesflow/salesflow-api/internal/domain"
	"github.com/salesflow/salesflow-api/internal/service"
	"go.uber.org/zap"
)

type PricingRequestHandler struct {
	pricingService *service.PricingRequestService
	logger         *zap.Logger
}

func NewPricingRequestHandler(pricingService *service.PricingRequestService, logger *zap.Logger) *PricingRequestHandler {
	return &PricingRequestHandler{
		pricingService: pricingService,
		logger:         logger,
	}
}

// List godoc
// @Summary List pricing requests
// @Tags PricingRequests
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param status query int false "Filter by status"
// @Param opportunityId query string false "Filter by opportunity ID"
// @Success 200 {object} domain.Page[domain.PricingRequest]
// @Security BearerAuth
// @Router /pricing-requests [get]
func (h *PricingRequestHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.pricingService.List(r.Context(), parsePageQuery(r))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// GetByID godoc
// @Summary Get pricing request
// @Tags PricingRequests
// @Produce json
// @Param id path string true "Pricing request ID"
// @Success 200 {object} domain.PricingRequest
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /pricing-requests/{id} [get]
func (h *PricingRequestHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	pr, err := h.pricingService.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, pr)
}

// Create godoc
// @Summary Create pricing request
// @Tags PricingRequests
// @Accept json
// @Produce json
// @Param request body domain.CreatePricingRequestRequest true "Pricing request data"
// @Success 201 {object} domain.PricingRequest
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /pricing-requests [post]
func (h *PricingRequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreatePricingRequestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	pr, err := h.pricingService.Create(r.Context(), &req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, pr)
}

// Update godoc
// @Summary Update pricing request
// @Tags PricingRequests
// @Accept json
// @Produce json
// @Param id path string true "Pricing request ID"
// @Param request body domain.UpdatePricingRequestRequest true "Pricing request data"
// @Success 200 {object} domain.PricingRequest
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /pricing-requests/{id} [put]
func (h *PricingRequestHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req domain.UpdatePricingRequestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	pr, err := h.pricingService.Update(r.Context(), id, &req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, pr)
}

// Delete godoc
// @Summary Delete pricing request
// @Tags PricingRequests
// @Param id path string true "Pricing request ID"
// @Success 204
// @Security BearerAuth
// @Router /pricing-requests/{id} [delete]
func (h *PricingRequestHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.pricingService.Delete(r.Context(), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Assign godoc
// @Summary Assign pricing request
// @Description Moves a pending request to in progress. Privileged roles only.
// @Tags PricingRequests
// @Accept json
// @Produce json
// @Param id path string true "Pricing request ID"
// @Param request body domain.AssignRequest true "Assignee"
// @Success 200 {object} domain.PricingRequest
// @Failure 403 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /pricing-requests/{id}/assign [put]
func (h *PricingRequestHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req domain.AssignRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	pr, err := h.pricingService.Assign(r.Context(), id, &req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, pr)
}

// Complete godoc
// @Summary Complete pricing request
// @Tags PricingRequests
// @Accept json
// @Produce json
// @Param id path string true "Pricing request ID"
// @Param request body domain.CompletePricingRequestRequest false "Completion notes"
// @Success 200 {object} domain.PricingRequest
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /pricing-requests/{id}/complete [put]
func (h *PricingRequestHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req domain.CompletePricingRequestRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	pr, err := h.pricingService.Complete(r.Context(), id, &req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, pr)
}
