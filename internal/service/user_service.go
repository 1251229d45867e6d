package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/salesflow/salesflow-api/internal/backend"
	"github.com/salesflow/salesflow-api/internal/domain"
	"go.uber.org/zap"
)

// UserService handles CRM user accounts
type UserService struct {
	resourceService[domain.User]
}

// NewUserService creates a new UserService instance
func NewUserService(client *backend.Client, logger *zap.Logger) *UserService {
	return &UserService{resourceService: newResourceService(client.Users(), "user", logger)}
}

func (s *UserService) List(ctx context.Context, q domain.PageQuery) (*domain.Page[domain.User], error) {
	return s.list(ctx, q)
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.get(ctx, id)
}

// Update changes a user's name, role or active flag. Admin only.
func (s *UserService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateUserRequest) (*domain.User, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.update(ctx, id, req)
}

// Deactivate removes a user's access. Admin only; an admin cannot deactivate themselves.
func (s *UserService) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if user, _ := requireUser(ctx); user.UserID == id {
		return fmt.Errorf("%w: cannot deactivate your own account", ErrInvalidInput)
	}
	return s.delete(ctx, id)
}

func requireAdmin(ctx context.Context) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}
	if !user.HasRole(domain.RoleAdmin) {
		return ErrForbidden
	}
	return nil
}
