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

// ProposalService handles proposals and their review lifecycle:
// Draft -> Submitted (or Review) -> Approved | Rejected
type ProposalService struct {
	resourceService[domain.Proposal]
}

// NewProposalService creates a new ProposalService instance
func NewProposalService(client *backend.Client, logger *zap.Logger) *ProposalService {
	return &ProposalService{resourceService: newResourceService(client.Proposals(), "proposal", logger)}
}

func (s *ProposalService) List(ctx context.Context, q domain.PageQuery) (*domain.Page[domain.Proposal], error) {
	return s.list(ctx, q)
}

func (s *ProposalService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Proposal, error) {
	return s.get(ctx, id)
}

func (s *ProposalService) Create(ctx context.Context, req *domain.CreateProposalRequest) (*domain.Proposal, error) {
	return s.create(ctx, req)
}

// Update edits a proposal that is still a draft
func (s *ProposalService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateProposalRequest) (*domain.Proposal, error) {
	if _, err := s.requireStatus(ctx, id, domain.ProposalStatusDraft); err != nil {
		return nil, err
	}
	return s.update(ctx, id, req)
}

// Delete removes a draft proposal. Only privileged roles may delete.
func (s *ProposalService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := requirePrivileged(ctx); err != nil {
		return err
	}
	if _, err := s.requireStatus(ctx, id, domain.ProposalStatusDraft); err != nil {
		return err
	}
	return s.delete(ctx, id)
}

// Submit sends a draft proposal for approval
func (s *ProposalService) Submit(ctx context.Context, id uuid.UUID) (*domain.Proposal, error) {
	if _, err := requireUser(ctx); err != nil {
		return nil, err
	}
	if _, err := s.requireStatus(ctx, id, domain.ProposalStatusDraft); err != nil {
		return nil, err
	}
	return s.action(ctx, http.MethodPut, id, "submit", nil)
}

// Approve accepts a submitted proposal. Only privileged roles may approve.
func (s *ProposalService) Approve(ctx context.Context, id uuid.UUID) (*domain.Proposal, error) {
	if _, err := requirePrivileged(ctx); err != nil {
		return nil, err
	}
	if _, err := s.requireStatus(ctx, id, domain.ProposalStatusSubmitted, domain.ProposalStatusReview); err != nil {
		return nil, err
	}
	return s.action(ctx, http.MethodPut, id, "approve", nil)
}

// Reject declines a submitted proposal with a reason. Only privileged roles may reject.
func (s *ProposalService) Reject(ctx context.Context, id uuid.UUID, req *domain.RejectProposalRequest) (*domain.Proposal, error) {
	if _, err := requirePrivileged(ctx); err != nil {
		return nil, err
	}
	if _, err := s.requireStatus(ctx, id, domain.ProposalStatusSubmitted, domain.ProposalStatusReview); err != nil {
		return nil, err
	}
	return s.action(ctx, http.MethodPut, id, "reject", req)
}

func (s *ProposalService) requireStatus(ctx context.Context, id uuid.UUID, allowed ...domain.ProposalStatus) (*domain.Proposal, error) {
	proposal, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, status := range allowed {
		if proposal.Status == status {
			return proposal, nil
		}
	}
	return nil, fmt.Errorf("%w: proposal is %s", ErrInvalidState, proposal.Status)
}
