package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/salesflow/salesflow-api/internal/domain"
	"go.uber.org/zap"
)

// UnauthorizedMessage is returned for every missing or unusable bearer token
const UnauthorizedMessage = "Missing or invalid authorization token"

// Middleware handles authentication for HTTP requests
type Middleware struct {
	verifier Verifier
	logger   *zap.Logger
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(verifier Verifier, logger *zap.Logger) *Middleware {
	return &Middleware{verifier: verifier, logger: logger}
}

// BearerToken returns the token from an "Authorization: Bearer <token>" header
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// Authenticate requires a verified bearer token and stores its identity in the request context
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r)
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, UnauthorizedMessage)
			return
		}

		userCtx, err := m.verifier.Verify(r.Context(), token)
		if errors.Is(err, ErrIdentityUnavailable) {
			writeAuthError(w, http.StatusServiceUnavailable, "Unable to confirm identity, try again later")
			return
		}
		if err != nil {
			m.logger.Warn("token rejected",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err),
			)
			writeAuthError(w, http.StatusUnauthorized, UnauthorizedMessage)
			return
		}

		m.logger.Debug("request authenticated",
			zap.String("path", r.URL.Path),
			zap.String("user_id", userCtx.UserID.String()),
			zap.Strings("roles", userCtx.RolesAsStrings()),
		)

		next.ServeHTTP(w, r.WithContext(WithUserContext(r.Context(), userCtx)))
	})
}

// RequireRole middleware ensures user has one of the roles
func (m *Middleware) RequireRole(roles ...domain.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userCtx, ok := FromContext(r.Context())
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, UnauthorizedMessage)
				return
			}
			if !userCtx.HasAnyRole(roles...) {
				writeAuthError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePrivileged allows Admin and SalesManager users only
func (m *Middleware) RequirePrivileged(next http.Handler) http.Handler {
	return m.RequireRole(domain.RoleAdmin, domain.RoleSalesManager)(next)
}

func writeAuthError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(domain.APIError{
		Type:   domain.ErrorTypeForStatus(status),
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
}
