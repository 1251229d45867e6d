package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/salesflow/salesflow-api/internal/domain"
	"gorm.io/gorm"
)

// PipelineSnapshotRepository stores point-in-time pipeline metrics
type PipelineSnapshotRepository struct {
	db *gorm.DB
}

// NewPipelineSnapshotRepository creates a new snapshot repository
func NewPipelineSnapshotRepository(db *gorm.DB) *PipelineSnapshotRepository {
	return &PipelineSnapshotRepository{db: db}
}

func (r *PipelineSnapshotRepository) Create(ctx context.Context, snapshot *domain.PipelineSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

// UpdateReport records where the exported report was stored
func (r *PipelineSnapshotRepository) UpdateReport(ctx context.Context, id uuid.UUID, path string, size int64) error {
	return r.db.WithContext(ctx).
		Model(&domain.PipelineSnapshot{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"report_path": path, "report_size": size}).Error
}

func (r *PipelineSnapshotRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PipelineSnapshot, error) {
	var snapshot domain.PipelineSnapshot
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&snapshot).Error; err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Latest returns the most recent snapshot, or nil when none exists
func (r *PipelineSnapshotRepository) Latest(ctx context.Context) (*domain.PipelineSnapshot, error) {
	var snapshot domain.PipelineSnapshot
	err := r.db.WithContext(ctx).Order("captured_at DESC").First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// List returns snapshots newest first, optionally limited to a time window
func (r *PipelineSnapshotRepository) List(ctx context.Context, since, until *time.Time, page, pageSize int) (*domain.Page[domain.PipelineSnapshot], error) {
	query := r.db.WithContext(ctx).Model(&domain.PipelineSnapshot{})
	if since != nil {
		query = query.Where("captured_at >= ?", *since)
	}
	if until != nil {
		query = query.Where("captured_at <= ?", *until)
	}
	return paginate[domain.PipelineSnapshot](query, "captured_at DESC", page, pageSize)
}

// DeleteOlderThan removes snapshots captured before the cutoff and returns them
// so their stored reports can be removed too
func (r *PipelineSnapshotRepository) DeleteOlderThan(ctx context.Context, before time.Time) ([]domain.PipelineSnapshot, error) {
	var expired []domain.PipelineSnapshot
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("captured_at < ?", before).Find(&expired).Error; err != nil {
			return err
		}
		if len(expired) == 0 {
			return nil
		}
		return tx.Where("captured_at < ?", before).Delete(&domain.PipelineSnapshot{}).Error
	})
	return expired, err
}
