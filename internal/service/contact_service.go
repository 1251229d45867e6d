package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/salesflow/salesflow-api/internal/backend"
	"github.com/salesflow/salesflow-api/internal/domain"
	"go.uber.org/zap"
)

// ContactService handles people at client organisations
type ContactService struct {
	resourceService[domain.Contact]
}

// NewContactService creates a new ContactService instance
func NewContactService(client *backend.Client, logger *zap.Logger) *ContactService {
	return &ContactService{resourceService: newResourceService(client.Contacts(), "contact", logger)}
}

func (s *ContactService) List(ctx context.Context, q domain.PageQuery) (*domain.Page[domain.Contact], error) {
	return s.list(ctx, q)
}

// ListByClient lists the contacts of one client
func (s *ContactService) ListByClient(ctx context.Context, clientID uuid.UUID, q domain.PageQuery) (*domain.Page[domain.Contact], error) {
	filters := map[string]string{"clientId": clientID.String()}
	for k, v := range q.Filters {
		filters[k] = v
	}
	q.Filters = filters
	return s.list(ctx, q)
}

func (s *ContactService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contact, error) {
	return s.get(ctx, id)
}

func (s *ContactService) Create(ctx context.Context, req *domain.CreateContactRequest) (*domain.Contact, error) {
	return s.create(ctx, req)
}

func (s *ContactService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateContactRequest) (*domain.Contact, error) {
	return s.update(ctx, id, req)
}

// Delete removes a contact. Only privileged roles may delete.
func (s *ContactService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := requirePrivileged(ctx); err != nil {
		return err
	}
	return s.delete(ctx, id)
}
