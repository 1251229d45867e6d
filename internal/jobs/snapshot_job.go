package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/salesflow/salesflow-api/internal/domain"
	"go.uber.org/zap"
)

// SnapshotJobName is the name of the pipeline snapshot job
const SnapshotJobName = "pipeline_snapshot"

// SnapshotCapturer captures and prunes pipeline snapshots
type SnapshotCapturer interface {
	Capture(ctx context.Context, trigger domain.SnapshotTrigger) (*domain.PipelineSnapshotDTO, error)
	Prune(ctx context.Context, retentionDays int) (int, error)
}

// AuditLogCleaner removes audit logs past their retention period
type AuditLogCleaner interface {
	CleanupOldLogs(ctx context.Context, retentionDays int) (int64, error)
}

// SnapshotJob captures the pipeline metrics and applies retention to snapshots
// and audit logs.
type SnapshotJob struct {
	snapshots     SnapshotCapturer
	audit         AuditLogCleaner
	retentionDays int
	logger        *zap.Logger
}

// NewSnapshotJob creates a new snapshot job; audit may be nil
func NewSnapshotJob(snapshots SnapshotCapturer, audit AuditLogCleaner, retentionDays int, logger *zap.Logger) *SnapshotJob {
	return &SnapshotJob{
		snapshots:     snapshots,
		audit:         audit,
		retentionDays: retentionDays,
		logger:        logger,
	}
}

func (j *SnapshotJob) Name() string {
	return SnapshotJobName
}

// Run captures one scheduled snapshot, then prunes expired data even when the
// capture failed.
func (j *SnapshotJob) Run(ctx context.Context) error {
	var errs []error

	snapshot, err := j.snapshots.Capture(ctx, domain.SnapshotTriggerScheduled)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to capture snapshot: %w", err))
	} else {
		j.logger.Info("pipeline snapshot captured",
			zap.String("snapshot_id", snapshot.ID.String()),
			zap.Int("active_opportunities", snapshot.ActiveOpportunities))
	}

	if j.retentionDays > 0 {
		if removed, err := j.snapshots.Prune(ctx, j.retentionDays); err != nil {
			errs = append(errs, fmt.Errorf("failed to prune pipeline snapshots: %w", err))
		} else if removed > 0 {
			j.logger.Info("pruned pipeline snapshots", zap.Int("removed", removed))
		}
		if j.audit != nil {
			if _, err := j.audit.CleanupOldLogs(ctx, j.retentionDays); err != nil {
				errs = append(errs, fmt.Errorf("failed to clean up audit logs: %w", err))
			}
		}
	}

	return errors.Join(errs...)
}
