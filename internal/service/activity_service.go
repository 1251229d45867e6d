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

// ActivityService handles calls, meetings and tasks. Privileged roles may change
// any open activity; everyone else only the planned activities assigned to them.
type ActivityService struct {
	resourceService[domain.Activity]
}

// NewActivityService creates a new ActivityService instance
func NewActivityService(client *backend.Client, logger *zap.Logger) *ActivityService {
	return &ActivityService{resourceService: newResourceService(client.Activities(), "activity", logger)}
}

func (s *ActivityService) List(ctx context.Context, q domain.PageQuery) (*domain.Page[domain.Activity], error) {
	return s.list(ctx, q)
}

// ListMine lists activities assigned to the current user
func (s *ActivityService) ListMine(ctx context.Context, q domain.PageQuery) (*domain.Page[domain.Activity], error) {
	user, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	filters := map[string]string{"assignedToId": user.UserID.String()}
	for k, v := range q.Filters {
		filters[k] = v
	}
	q.Filters = filters
	return s.list(ctx, q)
}

func (s *ActivityService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Activity, error) {
	return s.get(ctx, id)
}

// Create creates an activity. Without an explicit assignee it goes to the caller.
func (s *ActivityService) Create(ctx context.Context, req *domain.CreateActivityRequest) (*domain.Activity, error) {
	if req.RelatedToID != nil && !req.RelatedToType.IsValid() {
		return nil, fmt.Errorf("%w: relatedToType is required with relatedToId", ErrInvalidInput)
	}
	if req.AssignedToID == nil {
		if user, err := requireUser(ctx); err == nil {
			id := user.UserID
			req.AssignedToID = &id
		}
	}
	return s.create(ctx, req)
}

func (s *ActivityService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateActivityRequest) (*domain.Activity, error) {
	if _, err := s.authorize(ctx, id); err != nil {
		return nil, err
	}
	return s.update(ctx, id, req)
}

func (s *ActivityService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.authorize(ctx, id); err != nil {
		return err
	}
	return s.delete(ctx, id)
}

// Complete closes an activity with an optional outcome
func (s *ActivityService) Complete(ctx context.Context, id uuid.UUID, req *domain.CompleteActivityRequest) (*domain.Activity, error) {
	if _, err := s.authorize(ctx, id); err != nil {
		return nil, err
	}
	return s.action(ctx, http.MethodPut, id, "complete", req)
}

// Cancel closes an activity without an outcome
func (s *ActivityService) Cancel(ctx context.Context, id uuid.UUID) (*domain.Activity, error) {
	if _, err := s.authorize(ctx, id); err != nil {
		return nil, err
	}
	return s.action(ctx, http.MethodPut, id, "cancel", nil)
}

// authorize loads the activity and checks the caller may change it
func (s *ActivityService) authorize(ctx context.Context, id uuid.UUID) (*domain.Activity, error) {
	user, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	activity, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if activity.Status.IsClosed() {
		return nil, fmt.Errorf("%w: activity is %s", ErrInvalidState, activity.Status)
	}
	if user.IsPrivileged() {
		return activity, nil
	}
	if !activity.IsAssignedTo(user.UserID) {
		return nil, ErrForbidden
	}
	if activity.Status != domain.ActivityStatusPlanned {
		return nil, fmt.Errorf("%w: activity is %s", ErrInvalidState, activity.Status)
	}
	return activity, nil
}
