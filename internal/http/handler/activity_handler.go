package handler

import (
	"net/http"

	"github.com/salesflow/salesflow-api/internal/domain"
	"github.com/salesflow/salesflow-api/internal/service"
	"go.uber.org/zap"
)

type ActivityHandler struct {
	activityService *service.ActivityService
	logger          *zap.Logger
}

func NewActivityHandler(activityService *service.ActivityService, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{
		activityService: activityService,
		logger:          logger,
	}
}

// List godoc
// @Summary List activities
// @Tags Activities
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param assignedToId query string false "Filter by assignee"
// @Param relatedToType query int false "Filter by related entity type"
// @Param relatedToId query string false "Filter by related entity ID"
// @Param status query int false "Filter by status"
// @Success 200 {object} domain.Page[domain.Activity]
// @Security BearerAuth
// @Router /activities [get]
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.activityService.List(r.Context(), parsePageQuery(r))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// ListMine godoc
// @Summary List my activities
// @Description Activities assigned to the current user
// @Tags Activities
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Success 200 {object} domain.Page[domain.Activity]
// @Security BearerAuth
// @Router /activities/my [get]
func (h *ActivityHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	page, err := h.activityService.ListMine(r.Context(), parsePageQuery(r))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// GetByID godoc
// @Summary Get activity
// @Tags Activities
// @Produce json
// @Param id path string true "Activity ID"
// @Success 200 {object} domain.Activity
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /activities/{id} [get]
func (h *ActivityHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	activity, err := h.activityService.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, activity)
}

// Create godoc
// @Summary Create activity
// @Description Unassigned activities are assigned to the caller
// @Tags Activities
// @Accept json
// @Produce json
// @Param request body domain.CreateActivityRequest true "Activity data"
// @Success 201 {object} domain.Activity
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /activities [post]
func (h *ActivityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateActivityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	activity, err := h.activityService.Create(r.Context(), &req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, activity)
}

// Update godoc
// @Summary Update activity
// @Description Non-privileged users may only edit planned activities assigned to them
// @Tags Activities
// @Accept json
// @Produce json
// @Param id path string true "Activity ID"
// @Param request body domain.UpdateActivityRequest true "Activity data"
// @Success 200 {object} domain.Activity
// @Failure 403 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /activities/{id} [put]
func (h *ActivityHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req domain.UpdateActivityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	activity, err := h.activityService.Update(r.Context(), id, &req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, activity)
}

// Delete godoc
// @Summary Delete activity
// @Tags Activities
// @Param id path string true "Activity ID"
// @Success 204
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /activities/{id} [delete]
func (h *ActivityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.activityService.Delete(r.Context(), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Complete godoc
// @Summary Complete activity
// @Tags Activities
// @Accept json
// @Produce json
// @Param id path string true "Activity ID"
// @Param request body domain.CompleteActivityRequest false "Outcome"
// @Success 200 {object} domain.Activity
// @Failure 403 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /activities/{id}/complete [put]
func (h *ActivityHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req domain.CompleteActivityRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	activity, err := h.activityService.Complete(r.Context(), id, &req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, activity)
}

// Cancel godoc
// @Summary Cancel activity
// @Tags Activities
// @Produce json
// @Param id path string true "Activity ID"
// @Success 200 {object} domain.Activity
// @Failure 403 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /activities/{id}/cancel [put]
func (h *ActivityHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	activity, err := h.activityService.Cancel(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, activity)
}
