package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/salesflow/salesflow-api/internal/backend"
	"github.com/salesflow/salesflow-api/internal/domain"
	"github.com/salesflow/salesflow-api/internal/email"
	"go.uber.org/zap"
)

// InvitationService creates users in the backend and emails them an invitation
type InvitationService struct {
	users  backend.Resource[domain.User]
	sender email.Sender
	logger *zap.Logger
}

// NewInvitationService creates a new InvitationService. sender may be nil.
func NewInvitationService(client *backend.Client, sender email.Sender, logger *zap.Logger) *InvitationService {
	return &InvitationService{users: client.Users(), sender: sender, logger: logger}
}

// Invite creates the user and sends the invitation email. Email failures do not
// undo the user; the response reports whether the email went out.
func (s *InvitationService) Invite(ctx context.Context, req *domain.InviteUserRequest) (*domain.InviteUserResponse, error) {
	if _, err := requirePrivileged(ctx); err != nil {
		return nil, err
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Role = domain.ParseUserRole(string(req.Role))

	user, err := s.users.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.logger.Info("user invited",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
		userField(ctx))

	resp := &domain.InviteUserResponse{User: user}
	if s.sender == nil {
		return resp, nil
	}

	name := user.FullName()
	if name == "" {
		name = strings.TrimSpace(req.FirstName + " " + req.LastName)
	}
	err = s.sender.SendInvite(ctx, email.Invite{
		Email:     req.Email,
		Name:      name,
		Role:      string(req.Role),
		InvitedBy: callerName(ctx),
	})
	switch {
	case err == nil:
		resp.Notified = true
	case errors.Is(err, email.ErrNotConfigured):
		s.logger.Debug("invitation email skipped: sender not configured")
	default:
		s.logger.Warn("failed to send invitation email",
			zap.String("user_id", user.ID.String()),
			zap.Error(err))
	}
	return resp, nil
}
