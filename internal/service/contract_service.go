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

// ContractService handles contracts. Activation (Draft -> Active) and
// cancellation (Draft|Active -> Cancelled) are one-way and privileged.
type ContractService struct {
	resourceService[domain.Contract]
	client *backend.Client
}

// NewContractService creates a new ContractService instance
func NewContractService(client *backend.Client, logger *zap.Logger) *ContractService {
	return &ContractService{
		resourceService: newResourceService(client.Contracts(), "contract", logger),
		client:          client,
	}
}

func (s *ContractService) List(ctx context.Context, q domain.PageQuery) (*domain.Page[domain.Contract], error) {
	return s.list(ctx, q)
}

func (s *ContractService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contract, error) {
	return s.get(ctx, id)
}

// Expiring lists contracts ending within the given number of days
func (s *ContractService) Expiring(ctx context.Context, days int) ([]domain.Contract, error) {
	if days <= 0 {
		days = 30
	}
	contracts, err := s.client.ExpiringContracts(ctx, days)
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring contracts: %w", err)
	}
	return contracts, nil
}

func (s *ContractService) Create(ctx context.Context, req *domain.CreateContractRequest) (*domain.Contract, error) {
	if err := validateContractDates(req); err != nil {
		return nil, err
	}
	return s.create(ctx, req)
}

// Update edits a contract that is not yet cancelled or expired
func (s *ContractService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateContractRequest) (*domain.Contract, error) {
	if err := validateContractDates(req); err != nil {
		return nil, err
	}
	if _, err := s.requireStatus(ctx, id, domain.ContractStatusDraft, domain.ContractStatusActive, domain.ContractStatusRenewed); err != nil {
		return nil, err
	}
	return s.update(ctx, id, req)
}

// Delete removes a draft contract. Only privileged roles may delete.
func (s *ContractService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := requirePrivileged(ctx); err != nil {
		return err
	}
	if _, err := s.requireStatus(ctx, id, domain.ContractStatusDraft); err != nil {
		return err
	}
	return s.delete(ctx, id)
}

// Activate makes a draft contract active
func (s *ContractService) Activate(ctx context.Context, id uuid.UUID) (*domain.Contract, error) {
	if _, err := requirePrivileged(ctx); err != nil {
		return nil, err
	}
	if _, err := s.requireStatus(ctx, id, domain.ContractStatusDraft); err != nil {
		return nil, err
	}
	return s.action(ctx, http.MethodPut, id, "activate", nil)
}

// Cancel cancels a draft or active contract
func (s *ContractService) Cancel(ctx context.Context, id uuid.UUID, req *domain.CancelContractRequest) (*domain.Contract, error) {
	if _, err := requirePrivileged(ctx); err != nil {
		return nil, err
	}
	if _, err := s.requireStatus(ctx, id, domain.ContractStatusDraft, domain.ContractStatusActive); err != nil {
		return nil, err
	}
	return s.action(ctx, http.MethodPut, id, "cancel", req)
}

func (s *ContractService) requireStatus(ctx context.Context, id uuid.UUID, allowed ...domain.ContractStatus) (*domain.Contract, error) {
	contract, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, status := range allowed {
		if contract.Status == status {
			return contract, nil
		}
	}
	return nil, fmt.Errorf("%w: contract is %s", ErrInvalidState, contract.Status)
}

func validateContractDates(req *domain.CreateContractRequest) error {
	if req.StartDate != nil && req.EndDate != nil && !req.StartDate.IsZero() && !req.EndDate.IsZero() &&
		req.EndDate.Before(req.StartDate.Time) {
		return fmt.Errorf("%w: end date is before start date", ErrInvalidInput)
	}
	return nil
}
