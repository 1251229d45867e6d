package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/salesflow/salesflow-api/internal/auth"
	"github.com/salesflow/salesflow-api/internal/domain"
	"github.com/salesflow/salesflow-api/internal/repository"
	"github.com/salesflow/salesflow-api/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// snapshotCreator is recorded on snapshots captured without a user
const snapshotCreator = "scheduler"

// PipelineReport is the JSON document exported for each snapshot
type PipelineReport struct {
	SnapshotID uuid.UUID              `json:"snapshotId"`
	CapturedAt time.Time              `json:"capturedAt"`
	Trigger    domain.SnapshotTrigger `json:"trigger"`
	Sampled    int                    `json:"sampled"`
	Truncated  bool                   `json:"truncated"`
	Metrics    domain.PipelineMetrics `json:"metrics"`
}

// SnapshotService captures pipeline metrics over time and exports them as reports
type SnapshotService struct {
	repo          *repository.PipelineSnapshotRepository
	opportunities *OpportunityService
	store         storage.Storage
	audit         *AuditLogService
	logger        *zap.Logger
	now           func() time.Time
}

// NewSnapshotService creates a new SnapshotService. store and audit may be nil.
func NewSnapshotService(
	repo *repository.PipelineSnapshotRepository,
	opportunities *OpportunityService,
	store storage.Storage,
	audit *AuditLogService,
	logger *zap.Logger,
) *SnapshotService {
	return &SnapshotService{
		repo:          repo,
		opportunities: opportunities,
		store:         store,
		audit:         audit,
		logger:        logger,
		now:           time.Now,
	}
}

// Capture computes the current pipeline metrics and stores them. Manual captures
// need a privileged user. A failed report export is logged and leaves the snapshot in place.
func (s *SnapshotService) Capture(ctx context.Context, trigger domain.SnapshotTrigger) (*domain.PipelineSnapshotDTO, error) {
	createdBy := snapshotCreator
	if trigger == domain.SnapshotTriggerManual {
		user, err := requirePrivileged(ctx)
		if err != nil {
			return nil, err
		}
		createdBy = user.Email
	}

	computed, err := s.opportunities.ComputedMetrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute pipeline metrics: %w", err)
	}
	m := computed.Metrics

	stages, err := json.Marshal(m.Stages)
	if err != nil {
		return nil, fmt.Errorf("failed to encode stage breakdown: %w", err)
	}

	snapshot := &domain.PipelineSnapshot{
		CapturedAt:            s.now().UTC(),
		Trigger:               trigger,
		CreatedBy:             createdBy,
		TotalOpportunities:    m.TotalOpportunities,
		ActiveOpportunities:   m.ActiveOpportunities,
		TotalPipelineValue:    m.TotalPipelineValue,
		WeightedPipelineValue: m.WeightedPipelineValue,
		WonCount:              m.WonCount,
		LostCount:             m.LostCount,
		WinRate:               m.WinRate,
		AverageDealSize:       m.AverageDealSize,
		StageBreakdown:        string(stages),
	}
	if err := s.repo.Create(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to save pipeline snapshot: %w", err)
	}

	s.logger.Info("pipeline snapshot captured",
		zap.String("snapshot_id", snapshot.ID.String()),
		zap.String("trigger", string(trigger)),
		zap.Int("opportunities", m.TotalOpportunities),
		zap.Bool("truncated", computed.Truncated))

	if err := s.export(ctx, snapshot, computed); err != nil {
		s.logger.Warn("failed to export pipeline report",
			zap.String("snapshot_id", snapshot.ID.String()),
			zap.Error(err))
	}

	dto := toSnapshotDTO(*snapshot)
	return &dto, nil
}

func (s *SnapshotService) export(ctx context.Context, snapshot *domain.PipelineSnapshot, computed *domain.PipelineMetricsResponse) error {
	if s.store == nil {
		return nil
	}

	data, err := json.MarshalIndent(PipelineReport{
		SnapshotID: snapshot.ID,
		CapturedAt: snapshot.CapturedAt,
		Trigger:    snapshot.Trigger,
		Sampled:    computed.Sampled,
		Truncated:  computed.Truncated,
		Metrics:    computed.Metrics,
	}, "", "  ")
	if err != nil {
		return err
	}

	key := ReportKey(snapshot)
	size, err := s.store.Put(ctx, key, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	if err := s.repo.UpdateReport(ctx, snapshot.ID, key, size); err != nil {
		return err
	}
	snapshot.ReportPath = key
	snapshot.ReportSize = size

	if s.audit != nil {
		_ = s.audit.LogExport(ctx, "PipelineSnapshot", snapshot.ID, key)
	}
	return nil
}

// ReportKey is the storage key of a snapshot's report
func ReportKey(snapshot *domain.PipelineSnapshot) string {
	return fmt.Sprintf("pipeline/%s/%s.json", snapshot.CapturedAt.UTC().Format("2006/01/02"), snapshot.ID)
}

// List returns snapshots newest first, optionally limited to a time window
func (s *SnapshotService) List(ctx context.Context, since, until *time.Time, page, pageSize int) (*domain.Page[domain.PipelineSnapshotDTO], error) {
	snapshots, err := s.repo.List(ctx, since, until, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list pipeline snapshots: %w", err)
	}
	return domain.MapPage(snapshots, toSnapshotDTO), nil
}

// GetByID returns one snapshot
func (s *SnapshotService) GetByID(ctx context.Context, id uuid.UUID) (*domain.PipelineSnapshotDTO, error) {
	snapshot, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: pipeline snapshot", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get pipeline snapshot: %w", err)
	}
	dto := toSnapshotDTO(*snapshot)
	return &dto, nil
}

// Latest returns the most recent snapshot or ErrNotFound
func (s *SnapshotService) Latest(ctx context.Context) (*domain.PipelineSnapshotDTO, error) {
	snapshot, err := s.repo.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest pipeline snapshot: %w", err)
	}
	if snapshot == nil {
		return nil, fmt.Errorf("%w: no pipeline snapshot captured yet", ErrNotFound)
	}
	dto := toSnapshotDTO(*snapshot)
	return &dto, nil
}

// Report opens the exported report of a snapshot. The caller closes it.
func (s *SnapshotService) Report(ctx context.Context, id uuid.UUID) (io.ReadCloser, error) {
	snapshot, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if snapshot.ReportPath == "" || s.store == nil {
		return nil, fmt.Errorf("%w: snapshot has no exported report", ErrNotFound)
	}
	rc, err := s.store.Get(ctx, snapshot.ReportPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, fmt.Errorf("failed to read pipeline report: %w", err)
	}
	return rc, nil
}

// Prune deletes snapshots older than the retention period together with their reports
func (s *SnapshotService) Prune(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	before := s.now().AddDate(0, 0, -retentionDays)
	expired, err := s.repo.DeleteOlderThan(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune pipeline snapshots: %w", err)
	}

	for _, snapshot := range expired {
		if snapshot.ReportPath == "" || s.store == nil {
			continue
		}
		if err := s.store.Delete(ctx, snapshot.ReportPath); err != nil {
			s.logger.Warn("failed to delete pipeline report",
				zap.String("snapshot_id", snapshot.ID.String()),
				zap.String("path", snapshot.ReportPath),
				zap.Error(err))
		}
	}

	if len(expired) > 0 {
		s.logger.Info("pruned pipeline snapshots",
			zap.Int("deleted_count", len(expired)),
			zap.Int("retention_days", retentionDays))
	}
	return len(expired), nil
}

func toSnapshotDTO(snapshot domain.PipelineSnapshot) domain.PipelineSnapshotDTO {
	stages := []domain.StageMetrics{}
	if snapshot.StageBreakdown != "" {
		_ = json.Unmarshal([]byte(snapshot.StageBreakdown), &stages)
	}
	return domain.PipelineSnapshotDTO{PipelineSnapshot: snapshot, Stages: stages}
}

// callerName names the caller for emails and logs
func callerName(ctx context.Context) string {
	if user, ok := auth.FromContext(ctx); ok {
		if user.DisplayName != "" {
			return user.DisplayName
		}
		return user.Email
	}
	return ""
}
