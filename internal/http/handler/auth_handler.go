package handler

import (
	"net/http"

	"github.com/salesflow/salesflow-api/internal/domain"
	"github.com/salesflow/salesflow-api/internal/service"
	"go.uber.org/zap"
)

// AuthHandler handles sign-in and the current user's profile
type AuthHandler struct {
	authService  *service.AuthService
	auditService *service.AuditLogService
	logger       *zap.Logger
}

// NewAuthHandler creates a new auth handler. auditService may be nil.
func NewAuthHandler(authService *service.AuthService, auditService *service.AuditLogService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		auditService: auditService,
		logger:       logger,
	}
}

// Login godoc
// @Summary Sign in
// @Description Exchanges credentials for a CRM backend token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body domain.LoginRequest true "Credentials"
// @Success 200 {object} domain.AuthResult
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if h.auditService != nil {
		_ = h.auditService.LogLogin(r.Context(), r, req.Email, result.User)
	}
	respondJSON(w, http.StatusOK, result)
}

// Me godoc
// @Summary Get current user
// @Description Returns the CRM profile of the token owner
// @Tags Auth
// @Produce json
// @Success 200 {object} domain.User
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.Me(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}
