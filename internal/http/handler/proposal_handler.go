package handler

import (
	"net/http"

	"github.com/salesflow/salesflow-api/internal/domain"
	"github.com/salesflow/salesflow-api/internal/service"
	"go.uber.org/zap"
)

type ProposalHandler struct {
	proposalService *service.ProposalService
	logger          *zap.Logger
}

func NewProposalHandler(proposalService *service.ProposalService, logger *zap.Logger) *ProposalHandler {
	return &ProposalHandler{
		proposalService: proposalService,
		logger:          logger,
	}
}

// List godoc
// @Summary List proposals
// @Tags Proposals
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param opportunityId query string false "Filter by opportunity ID"
// @Param status query int false "Filter by status"
// @Success 200 {object} domain.Page[domain.Proposal]
// @Security BearerAuth
// @Router /proposals [get]
func (h *ProposalHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.proposalService.List(r.Context(), parsePageQuery(r))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// GetByID godoc
// @Summary Get proposal
// @Tags Proposals
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 200 {object} domain.Proposal
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /proposals/{id} [get]
func (h *ProposalHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	proposal, err := h.proposalService.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, proposal)
}

// Create godoc
// @Summary Create proposal
// @Tags Proposals
// @Accept json
// @Produce json
// @Param request body domain.CreateProposalRequest true "Proposal data"
// @Success 201 {object} domain.Proposal
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /proposals [post]
func (h *ProposalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateProposalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	proposal, err := h.proposalService.Create(r.Context(), &req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, proposal)
}

// Update godoc
// @Summary Update proposal
// @Description Only draft proposals can be edited
// @Tags Proposals
// @Accept json
// @Produce json
// @Param id path string true "Proposal ID"
// @Param request body domain.UpdateProposalRequest true "Proposal data"
// @Success 200 {object} domain.Proposal
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /proposals/{id} [put]
func (h *ProposalHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req domain.UpdateProposalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	proposal, err := h.proposalService.Update(r.Context(), id, &req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, proposal)
}

// Delete godoc
// @Summary Delete proposal
// @Tags Proposals
// @Param id path string true "Proposal ID"
// @Success 204
// @Security BearerAuth
// @Router /proposals/{id} [delete]
func (h *ProposalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.proposalService.Delete(r.Context(), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Submit godoc
// @Summary Submit proposal for approval
// @Tags Proposals
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 200 {object} domain.Proposal
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /proposals/{id}/submit [put]
func (h *ProposalHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	proposal, err := h.proposalService.Submit(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, proposal)
}

// Approve godoc
// @Summary Approve proposal
// @Description Privileged roles only
// @Tags Proposals
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 200 {object} domain.Proposal
// @Failure 403 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /proposals/{id}/approve [put]
func (h *ProposalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	proposal, err := h.proposalService.Approve(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, proposal)
}

// Reject godoc
// @Summary Reject proposal
// @Description Privileged roles only
// @Tags Proposals
// @Accept json
// @Produce json
// @Param id path string true "Proposal ID"
// @Param request body domain.RejectProposalRequest true "Rejection reason"
// @Success 200 {object} domain.Proposal
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /proposals/{id}/reject [put]
func (h *ProposalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req domain.RejectProposalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	proposal, err := h.proposalService.Reject(r.Context(), id, &req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, proposal)
}
