package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/salesflow/salesflow-api/internal/backend"
	"github.com/salesflow/salesflow-api/internal/domain"
	"go.uber.org/zap"
)

// ClientService handles client organisations
type ClientService struct {
	resourceService[domain.Client]
}

// NewClientService creates a new ClientService instance
func NewClientService(client *backend.Client, logger *zap.Logger) *ClientService {
	return &ClientService{resourceService: newResourceService(client.Clients(), "client", logger)}
}

func (s *ClientService) List(ctx context.Context, q domain.PageQuery) (*domain.Page[domain.Client], error) {
	return s.list(ctx, q)
}

func (s *ClientService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	return s.get(ctx, id)
}

func (s *ClientService) Create(ctx context.Context, req *domain.CreateClientRequest) (*domain.Client, error) {
	if !req.ClientType.IsValid() {
		return nil, ErrInvalidInput
	}
	return s.create(ctx, req)
}

func (s *ClientService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateClientRequest) (*domain.Client, error) {
	if !req.ClientType.IsValid() {
		return nil, ErrInvalidInput
	}
	return s.update(ctx, id, req)
}

// Delete removes a client. Only privileged roles may delete.
func (s *ClientService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := requirePrivileged(ctx); err != nil {
		return err
	}
	return s.delete(ctx, id)
}
