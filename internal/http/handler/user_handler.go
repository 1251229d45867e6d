package handler

import (
	"net/http"

	"github.com/salesflow/salesflow-api/internal/domain"
	"github.com/salesflow/salesflow-api/internal/service"
	"go.uber.org/zap"
)

// UserHandler handles CRM user accounts and invitations
type UserHandler struct {
	userService       *service.UserService
	invitationService *service.InvitationService
	auditService      *service.AuditLogService
	logger            *zap.Logger
}

// NewUserHandler creates a new user handler. auditService may be nil.
func NewUserHandler(
	userService *service.UserService,
	invitationService *service.InvitationService,
	auditService *service.AuditLogService,
	logger *zap.Logger,
) *UserHandler {
	return &UserHandler{
		userService:       userService,
		invitationService: invitationService,
		auditService:      auditService,
		logger:            logger,
	}
}

// List godoc
// @Summary List users
// @Tags Users
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param search query string false "Search by name or email"
// @Param role query string false "Filter by role"
// @Success 200 {object} domain.Page[domain.User]
// @Security BearerAuth
// @Router /users [get]
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.userService.List(r.Context(), parsePageQuery(r))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// GetByID godoc
// @Summary Get user
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} domain.User
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /users/{id} [get]
func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// Update godoc
// @Summary Update user
// @Description Admin only
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param request body domain.UpdateUserRequest true "User data"
// @Success 200 {object} domain.User
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /users/{id} [put]
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req domain.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.userService.Update(r.Context(), id, &req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// Deactivate godoc
// @Summary Deactivate user
// @Description Admin only. Admins cannot deactivate their own account.
// @Tags Users
// @Param id path string true "User ID"
// @Success 204
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /users/{id} [delete]
func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.userService.Deactivate(r.Context(), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Invite godoc
// @Summary Invite user
// @Description Creates the user in the CRM and emails an invitation. The response reports whether the email was sent.
// @Tags Users
// @Accept json
// @Produce json
// @Param request body domain.InviteUserRequest true "Invitation"
// @Success 201 {object} domain.InviteUserResponse
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /users/invite [post]
func (h *UserHandler) Invite(w http.ResponseWriter, r *http.Request) {
	var req domain.InviteUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.invitationService.Invite(r.Context(), &req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if h.auditService != nil {
		_ = h.auditService.LogInvite(r.Context(), r, resp.User, resp.Notified)
	}
	respondJSON(w, http.StatusCreated, resp)
}
