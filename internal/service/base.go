package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/salesflow/salesflow-api/internal/auth"
	"github.com/salesflow/salesflow-api/internal/backend"
	"github.com/salesflow/salesflow-api/internal/domain"
	"go.uber.org/zap"
)

// resourceService holds the backend calls shared by every entity service.
// Errors keep the wrapped *backend.Error so callers can read the upstream status.
type resourceService[T any] struct {
	resource backend.Resource[T]
	entity   string
	logger   *zap.Logger
}

func newResourceService[T any](resource backend.Resource[T], entity string, logger *zap.Logger) resourceService[T] {
	return resourceService[T]{resource: resource, entity: entity, logger: logger}
}

func (s resourceService[T]) list(ctx context.Context, q domain.PageQuery) (*domain.Page[T], error) {
	page, err := s.resource.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.entity, err)
	}
	return page, nil
}

func (s resourceService[T]) get(ctx context.Context, id uuid.UUID) (*T, error) {
	item, err := s.resource.Get(ctx, id)
	if err != nil {
		return nil, s.wrap("get", err)
	}
	return item, nil
}

func (s resourceService[T]) create(ctx context.Context, body any) (*T, error) {
	item, err := s.resource.Create(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", s.entity, err)
	}
	s.logger.Info(s.entity+" created", userField(ctx))
	return item, nil
}

func (s resourceService[T]) update(ctx context.Context, id uuid.UUID, body any) (*T, error) {
	item, err := s.resource.Update(ctx, id, body)
	if err != nil {
		return nil, s.wrap("update", err)
	}
	s.logger.Info(s.entity+" updated", zap.String("id", id.String()), userField(ctx))
	return item, nil
}

func (s resourceService[T]) delete(ctx context.Context, id uuid.UUID) error {
	if err := s.resource.Delete(ctx, id); err != nil {
		return s.wrap("delete", err)
	}
	s.logger.Info(s.entity+" deleted", zap.String("id", id.String()), userField(ctx))
	return nil
}

// action calls a state-changing sub-route such as /{id}/submit
func (s resourceService[T]) action(ctx context.Context, method string, id uuid.UUID, name string, body any) (*T, error) {
	item, err := s.resource.Action(ctx, method, id, name, body)
	if err != nil {
		return nil, s.wrap(name, err)
	}
	s.logger.Info(s.entity+" "+name,
		zap.String("id", id.String()),
		userField(ctx))
	return item, nil
}

func (s resourceService[T]) wrap(verb string, err error) error {
	if backend.IsNotFound(err) {
		return fmt.Errorf("%w: %s: %w", ErrNotFound, s.entity, err)
	}
	return fmt.Errorf("failed to %s %s: %w", verb, s.entity, err)
}

func requireUser(ctx context.Context) (*auth.UserContext, error) {
	user, ok := auth.FromContext(ctx)
	if !ok || user == nil {
		return nil, ErrUserContextRequired
	}
	return user, nil
}

func requirePrivileged(ctx context.Context) (*auth.UserContext, error) {
	user, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if !user.IsPrivileged() {
		return nil, ErrForbidden
	}
	return user, nil
}

func userField(ctx context.Context) zap.Field {
	if user, ok := auth.FromContext(ctx); ok && user != nil {
		return zap.String("user_id", user.UserID.String())
	}
	return zap.Skip()
}
