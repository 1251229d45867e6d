package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/salesflow/salesflow-api/internal/domain"
)

// UserContext holds the caller identity decoded from the forwarded bearer token
type UserContext struct {
	UserID      uuid.UUID
	DisplayName string
	Email       string
	Roles       []domain.UserRole
	// AccessToken is forwarded to the backend on every call made for this user
	AccessToken string
}

type contextKey string

const (
	userContextKey contextKey = "userContext"
	tokenKey       contextKey = "accessToken"
)

// WithUserContext adds user context (and its token) to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	ctx = context.WithValue(ctx, userContextKey, user)
	if user != nil && user.AccessToken != "" {
		ctx = WithToken(ctx, user.AccessToken)
	}
	return ctx
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok && user != nil
}

// WithToken attaches a bearer token without a decoded identity (CLI and jobs)
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// TokenFromContext returns the bearer token to forward to the backend
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

// HasRole checks if user has a specific role
func (u *UserContext) HasRole(role domain.UserRole) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole checks if user has any of the specified roles
func (u *UserContext) HasAnyRole(roles ...domain.UserRole) bool {
	for _, role := range roles {
		if u.HasRole(role) {
			return true
		}
	}
	return false
}

// IsPrivileged reports whether the user may act on records assigned to others
func (u *UserContext) IsPrivileged() bool {
	for _, r := range u.Roles {
		if r.IsPrivileged() {
			return true
		}
	}
	return false
}

// RolesAsStrings returns roles as a slice of strings
func (u *UserContext) RolesAsStrings() []string {
	result := make([]string, len(u.Roles))
	for i, role := range u.Roles {
		result[i] = string(role)
	}
	return result
}
