package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/salesflow/salesflow-api/internal/backend"
	"github.com/salesflow/salesflow-api/internal/domain"
	"go.uber.org/zap"
)

// PricingRequestService handles requests to the pricing team:
// Pending -> InProgress (on assign) -> Completed
type PricingRequestService struct {
	resourceService[domain.PricingRequest]
}

// NewPricingRequestService creates a new PricingRequestService instance
func NewPricingRequestService(client *backend.Client, logger *zap.Logger) *PricingRequestService {
	return &PricingRequestService{resourceService: newResourceService(client.PricingRequests(), "pricing request", logger)}
}

func (s *PricingRequestService) List(ctx context.Context, q domain.PageQuery) (*domain.Page[domain.PricingRequest], error) {
	return s.list(ctx, q)
}

func (s *PricingRequestService) GetByID(ctx context.Context, id uuid.UUID) (*domain.PricingRequest, error) {
	return s.get(ctx, id)
}

func (s *PricingRequestService) Create(ctx context.Context, req *domain.CreatePricingRequestRequest) (*domain.PricingRequest, error) {
	return s.create(ctx, req)
}

// Update edits a request that has not been picked up yet
func (s *PricingRequestService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdatePricingRequestRequest) (*domain.PricingRequest, error) {
	pr, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if pr.Status != domain.PricingRequestPending {
		return nil, fmt.Errorf("%w: pricing request is %s", ErrInvalidState, pr.Status)
	}
	return s.update(ctx, id, req)
}

// Delete removes a pricing request. Only privileged roles may delete.
func (s *PricingRequestService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := requirePrivileged(ctx); err != nil {
		return err
	}
	return s.delete(ctx, id)
}

// Assign hands a pending request to a pricing user; the backend moves it to InProgress
func (s *PricingRequestService) Assign(ctx context.Context, id uuid.UUID, req *domain.AssignRequest) (*domain.PricingRequest, error) {
	if _, err := requirePrivileged(ctx); err != nil {
		return nil, err
	}
	pr, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if pr.Status != domain.PricingRequestPending {
		return nil, fmt.Errorf("%w: pricing request is %s", ErrInvalidState, pr.Status)
	}
	return s.action(ctx, http.MethodPut, id, "assign", req)
}

// Complete closes an in-progress request. The assignee or a privileged user may complete.
func (s *PricingRequestService) Complete(ctx context.Context, id uuid.UUID, req *domain.CompletePricingRequestRequest) (*domain.PricingRequest, error) {
	user, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	pr, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsPrivileged() && (pr.AssignedToID == nil || *pr.AssignedToID != user.UserID) {
		return nil, ErrForbidden
	}
	if pr.Status != domain.PricingRequestInProgress {
		return nil, fmt.Errorf("%w: pricing request is %s", ErrInvalidState, pr.Status)
	}
	return s.action(ctx, http.MethodPut, id, "complete", req)
}
