package repository

import (
	"context"
	"time"

	"github.com/salesflow/salesflow-api/internal/domain"
	"gorm.io/gorm"
)

// AssistantInteractionFilter narrows interaction listings
type AssistantInteractionFilter struct {
	Route   string
	UserID  string
	Outcome domain.AssistantOutcome
	Since   *time.Time
}

// AssistantUsage aggregates interactions per route and outcome
type AssistantUsage struct {
	Route        string                  `json:"route"`
	Outcome      domain.AssistantOutcome `json:"outcome"`
	Count        int64                   `json:"count"`
	AvgLatencyMs float64                 `json:"avgLatencyMs"`
}

// AssistantInteractionRepository stores assistant call records
type AssistantInteractionRepository struct {
	db *gorm.DB
}

// NewAssistantInteractionRepository creates a new interaction repository
func NewAssistantInteractionRepository(db *gorm.DB) *AssistantInteractionRepository {
	return &AssistantInteractionRepository{db: db}
}

func (r *AssistantInteractionRepository) Create(ctx context.Context, interaction *domain.AssistantInteraction) error {
	return r.db.WithContext(ctx).Create(interaction).Error
}

// List returns interactions newest first
func (r *AssistantInteractionRepository) List(ctx context.Context, filter *AssistantInteractionFilter, page, pageSize int) (*domain.Page[domain.AssistantInteraction], error) {
	query := r.db.WithContext(ctx).Model(&domain.AssistantInteraction{})
	if filter != nil {
		if filter.Route != "" {
			query = query.Where("route = ?", filter.Route)
		}
		if filter.UserID != "" {
			query = query.Where("user_id = ?", filter.UserID)
		}
		if filter.Outcome != "" {
			query = query.Where("outcome = ?", filter.Outcome)
		}
		if filter.Since != nil {
			query = query.Where("created_at >= ?", *filter.Since)
		}
	}
	return paginate[domain.AssistantInteraction](query, "created_at DESC", page, pageSize)
}

// Usage groups interactions since the given time by route and outcome
func (r *AssistantInteractionRepository) Usage(ctx context.Context, since time.Time) ([]AssistantUsage, error) {
	var usage []AssistantUsage
	err := r.db.WithContext(ctx).Model(&domain.AssistantInteraction{}).
		Select("route, outcome, COUNT(*) as count, AVG(latency_ms) as avg_latency_ms").
		Where("created_at >= ?", since).
		Group("route, outcome").
		Order("route, outcome").
		Scan(&usage).Error
	return usage, err
}

// DeleteOlderThan removes interactions created before the cutoff
func (r *AssistantInteractionRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", before).Delete(&domain.AssistantInteraction{})
	return result.RowsAffected, result.Error
}
