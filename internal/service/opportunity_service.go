package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/salesflow/salesflow-api/internal/backend"
	"github.com/salesflow/salesflow-api/internal/config"
	"github.com/salesflow/salesflow-api/internal/domain"
	"go.uber.org/zap"
)

// MetricsSourceComputed labels metrics computed by this service
const MetricsSourceComputed = "computed"

// OpportunityService handles opportunities and their stage lifecycle
type OpportunityService struct {
	resourceService[domain.Opportunity]
	client   *backend.Client
	pageSize int
	maxPages int
	logger   *zap.Logger
}

// NewOpportunityService creates a new OpportunityService instance. The assistant
// limits also bound how many opportunities local metrics are computed from.
func NewOpportunityService(client *backend.Client, limits *config.AssistantConfig, logger *zap.Logger) *OpportunityService {
	pageSize, maxPages := 200, 3
	if limits != nil {
		if limits.PageSize > 0 {
			pageSize = limits.PageSize
		}
		if limits.MaxPageFetch > 0 {
			maxPages = limits.MaxPageFetch
		}
	}
	return &OpportunityService{
		resourceService: newResourceService(client.Opportunities(), "opportunity", logger),
		client:          client,
		pageSize:        pageSize,
		maxPages:        maxPages,
		logger:          logger,
	}
}

func (s *OpportunityService) List(ctx context.Context, q domain.PageQuery) (*domain.Page[domain.Opportunity], error) {
	return s.list(ctx, q)
}

func (s *OpportunityService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Opportunity, error) {
	return s.get(ctx, id)
}

// Create creates an opportunity; new opportunities start as leads unless a stage is given.
// The starting stage follows the same field rules as a stage change.
func (s *OpportunityService) Create(ctx context.Context, req *domain.CreateOpportunityRequest) (*domain.Opportunity, error) {
	if req.Stage == 0 {
		req.Stage = domain.StageLead
	}
	req.LossReason = strings.TrimSpace(req.LossReason)
	if err := validateStage(req.Stage, req.LossReason); err != nil {
		return nil, err
	}
	if req.Stage != domain.StageClosedLost {
		req.LossReason = ""
	}
	return s.create(ctx, req)
}

func (s *OpportunityService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateOpportunityRequest) (*domain.Opportunity, error) {
	return s.update(ctx, id, req)
}

// Delete removes an opportunity. Only privileged roles may delete.
func (s *OpportunityService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := requirePrivileged(ctx); err != nil {
		return err
	}
	return s.delete(ctx, id)
}

// UpdateStage moves an opportunity to any defined stage. Closing as lost needs a
// loss reason; closing as won accepts optional notes.
func (s *OpportunityService) UpdateStage(ctx context.Context, id uuid.UUID, req *domain.UpdateStageRequest) (*domain.Opportunity, error) {
	req.LossReason = strings.TrimSpace(req.LossReason)
	if err := validateStage(req.Stage, req.LossReason); err != nil {
		return nil, err
	}
	if req.Stage != domain.StageClosedLost {
		req.LossReason = ""
	}
	if req.Stage != domain.StageClosedWon {
		req.Notes = ""
	}

	opp, err := s.action(ctx, http.MethodPut, id, "stage", req)
	if err != nil {
		return nil, err
	}

	s.logger.Info("opportunity stage changed",
		zap.String("opportunity_id", id.String()),
		zap.String("stage", req.Stage.String()))
	return opp, nil
}

// GetStageHistory reads the stage changes the backend recorded for an opportunity
func (s *OpportunityService) GetStageHistory(ctx context.Context, id uuid.UUID) ([]domain.StageHistoryEntry, error) {
	history, err := s.client.StageHistory(ctx, id)
	if err != nil {
		return nil, s.wrap("get stage history for", err)
	}
	return history, nil
}

// Assign changes the owner of an opportunity. Only privileged roles may reassign.
func (s *OpportunityService) Assign(ctx context.Context, id uuid.UUID, req *domain.AssignRequest) (*domain.Opportunity, error) {
	if _, err := requirePrivileged(ctx); err != nil {
		return nil, err
	}
	return s.action(ctx, http.MethodPut, id, "assign", req)
}

// Pipeline returns the backend's precomputed pipeline payload unchanged
func (s *OpportunityService) Pipeline(ctx context.Context) (json.RawMessage, error) {
	data, err := s.client.Pipeline(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get pipeline: %w", err)
	}
	return data, nil
}

// ComputedMetrics computes pipeline metrics from a bounded sample of opportunities
func (s *OpportunityService) ComputedMetrics(ctx context.Context) (*domain.PipelineMetricsResponse, error) {
	opportunities, truncated, err := s.fetchAll(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.PipelineMetricsResponse{
		Source:    MetricsSourceComputed,
		Sampled:   len(opportunities),
		Truncated: truncated,
		Metrics:   ComputePipelineMetrics(opportunities),
	}, nil
}

// AdvanceOptions controls a bulk stage advance
type AdvanceOptions struct {
	// DryRun reports the planned moves without calling the backend
	DryRun bool
	// MaxStage is the furthest stage an opportunity may be moved to; defaults to Negotiation
	MaxStage domain.Stage
}

// AdvanceOpen moves every open opportunity one funnel stage forward. Failures are
// reported per opportunity and do not stop the run.
func (s *OpportunityService) AdvanceOpen(ctx context.Context, opts AdvanceOptions) ([]domain.AdvanceResult, error) {
	if _, err := requirePrivileged(ctx); err != nil {
		return nil, err
	}
	if opts.MaxStage == 0 {
		opts.MaxStage = domain.StageNegotiation
	}

	opportunities, _, err := s.fetchAll(ctx)
	if err != nil {
		return nil, err
	}

	results := []domain.AdvanceResult{}
	for _, opp := range opportunities {
		next, ok := opp.Stage.Next()
		if !ok || next > opts.MaxStage || !domain.IsForwardTransition(opp.Stage, next) {
			continue
		}

		result := domain.AdvanceResult{OpportunityID: opp.ID, Title: opp.Title, From: opp.Stage, To: next}
		if !opts.DryRun {
			if _, err := s.UpdateStage(ctx, opp.ID, &domain.UpdateStageRequest{Stage: next}); err != nil {
				result.Error = err.Error()
				s.logger.Warn("failed to advance opportunity",
					zap.String("opportunity_id", opp.ID.String()),
					zap.Error(err))
			}
		}
		results = append(results, result)
	}

	s.logger.Info("advanced open opportunities",
		zap.Int("candidates", len(opportunities)),
		zap.Int("advanced", len(results)),
		zap.Bool("dry_run", opts.DryRun))
	return results, nil
}

func validateStage(stage domain.Stage, lossReason string) error {
	if err := domain.ValidateStageChange(stage, lossReason); err != nil {
		if errors.Is(err, domain.ErrLossReasonRequired) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}

// fetchAll reads up to maxPages pages of opportunities and reports whether more remained
func (s *OpportunityService) fetchAll(ctx context.Context) ([]domain.Opportunity, bool, error) {
	var all []domain.Opportunity
	for pageNumber := 1; pageNumber <= s.maxPages; pageNumber++ {
		page, err := s.list(ctx, domain.PageQuery{PageNumber: pageNumber, PageSize: s.pageSize})
		if err != nil {
			return nil, false, err
		}
		all = append(all, page.Items...)
		if len(page.Items) < s.pageSize || !page.HasNextPage {
			return all, false, nil
		}
	}
	return all, true, nil
}
