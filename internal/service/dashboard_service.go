package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"

	"github.com/salesflow/salesflow-api/internal/backend"
	"go.uber.org/zap"
)

var reportNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// DashboardService exposes the backend's dashboard and report payloads
type DashboardService struct {
	client *backend.Client
	logger *zap.Logger
}

// NewDashboardService creates a new DashboardService instance
func NewDashboardService(client *backend.Client, logger *zap.Logger) *DashboardService {
	return &DashboardService{client: client, logger: logger}
}

// Overview returns the dashboard overview unchanged
func (s *DashboardService) Overview(ctx context.Context) (json.RawMessage, error) {
	data, err := s.client.Dashboard(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get dashboard: %w", err)
	}
	return data, nil
}

// Report returns a named backend report; query parameters are passed through
func (s *DashboardService) Report(ctx context.Context, name string, query url.Values) (json.RawMessage, error) {
	if !reportNamePattern.MatchString(name) {
		return nil, fmt.Errorf("%w: invalid report name", ErrInvalidInput)
	}
	data, err := s.client.Report(ctx, name, query)
	if err != nil {
		if backend.IsNotFound(err) {
			return nil, fmt.Errorf("%w: report %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to get report %s: %w", name, err)
	}
	return data, nil
}
