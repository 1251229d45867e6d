package handler

import (
	"net/http"
	"strconv"

	"github.com/salesflow/salesflow-api/internal/domain"
	"github.com/salesflow/salesflow-api/internal/service"
	"go.uber.org/zap"
)

// defaultExpiringDays is the look-ahead window for expiring contracts
const defaultExpiringDays = 30

type ContractHandler struct {
	contractService *service.ContractService
	logger          *zap.Logger
}

func NewContractHandler(contractService *service.ContractService, logger *zap.Logger) *ContractHandler {
	return &ContractHandler{
		contractService: contractService,
		logger:          logger,
	}
}

// List godoc
// @Summary List contracts
// @Tags Contracts
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param clientId query string false "Filter by client ID"
// @Param status query int false "Filter by status"
// @Success 200 {object} domain.Page[domain.Contract]
// @Security BearerAuth
// @Router /contracts [get]
func (h *ContractHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.contractService.List(r.Context(), parsePageQuery(r))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// Expiring godoc
// @Summary List expiring contracts
// @Tags Contracts
// @Produce json
// @Param days query int false "Look-ahead window in days" default(30)
// @Success 200 {array} domain.Contract
// @Security BearerAuth
// @Router /contracts/expiring [get]
func (h *ContractHandler) Expiring(w http.ResponseWriter, r *http.Request) {
	days := defaultExpiringDays
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 365 {
			respondWithError(w, http.StatusBadRequest, "days must be between 1 and 365")
			return
		}
		days = parsed
	}
	contracts, err := h.contractService.Expiring(r.Context(), days)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if contracts == nil {
		contracts = []domain.Contract{}
	}
	respondJSON(w, http.StatusOK, contracts)
}

// GetByID godoc
// @Summary Get contract
// @Tags Contracts
// @Produce json
// @Param id path string true "Contract ID"
// @Success 200 {object} domain.Contract
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /contracts/{id} [get]
func (h *ContractHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	contract, err := h.contractService.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, contract)
}

// Create godoc
// @Summary Create contract
// @Tags Contracts
// @Accept json
// @Produce json
// @Param request body domain.CreateContractRequest true "Contract data"
// @Success 201 {object} domain.Contract
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /contracts [post]
func (h *ContractHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateContractRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	contract, err := h.contractService.Create(r.Context(), &req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, contract)
}

// Update godoc
// @Summary Update contract
// @Tags Contracts
// @Accept json
// @Produce json
// @Param id path string true "Contract ID"
// @Param request body domain.UpdateContractRequest true "Contract data"
// @Success 200 {object} domain.Contract
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /contracts/{id} [put]
func (h *ContractHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req domain.UpdateContractRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	contract, err := h.contractService.Update(r.Context(), id, &req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, contract)
}

// Delete godoc
// @Summary Delete contract
// @Tags Contracts
// @Param id path string true "Contract ID"
// @Success 204
// @Security BearerAuth
// @Router /contracts/{id} [delete]
func (h *ContractHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.contractService.Delete(r.Context(), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Activate godoc
// @Summary Activate draft contract
// @Description Privileged roles only
// @Tags Contracts
// @Produce json
// @Param id path string true "Contract ID"
// @Success 200 {object} domain.Contract
// @Failure 403 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /contracts/{id}/activate [put]
func (h *ContractHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	contract, err := h.contractService.Activate(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, contract)
}

// Cancel godoc
// @Summary Cancel contract
// @Description Privileged roles only. Draft and active contracts can be cancelled.
// @Tags Contracts
// @Accept json
// @Produce json
// @Param id path string true "Contract ID"
// @Param request body domain.CancelContractRequest false "Cancellation reason"
// @Success 200 {object} domain.Contract
// @Failure 403 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /contracts/{id}/cancel [put]
func (h *ContractHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req domain.CancelContractRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	contract, err := h.contractService.Cancel(r.Context(), id, &req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, contract)
}
