package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/salesflow/salesflow-api/internal/backend"
	"github.com/salesflow/salesflow-api/internal/domain"
	"go.uber.org/zap"
)

// AuthService signs users in against the backend's auth endpoint
type AuthService struct {
	client *backend.Client
	logger *zap.Logger
}

// NewAuthService creates a new AuthService instance
func NewAuthService(client *backend.Client, logger *zap.Logger) *AuthService {
	return &AuthService{client: client, logger: logger}
}

// Login exchanges credentials for a backend token. Credentials are never logged.
func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResult, error) {
	req.Email = strings.TrimSpace(req.Email)
	result, err := s.client.Login(ctx, *req)
	if err != nil {
		s.logger.Info("login failed", zap.Int("status", backend.StatusOf(err)))
		return nil, fmt.Errorf("failed to log in: %w", err)
	}
	return result, nil
}

// Me returns the profile of the token owner
func (s *AuthService) Me(ctx context.Context) (*domain.User, error) {
	user, err := s.client.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return user, nil
}
