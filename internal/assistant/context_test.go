package assistant_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/salesflow/salesflow-api/internal/assistant"
	"github.com/salesflow/salesflow-api/internal/backend"
	"github.com/salesflow/salesflow-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type fakeFetcher struct {
	mu      sync.Mutex
	items   map[string][]map[string]any
	objects map[string]any
	fail    map[string]error
	// endless paths always report a next page
	endless map[string]bool
	calls   map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		items:   map[string][]map[string]any{},
		objects: map[string]any{},
		fail:    map[string]error{},
		endless: map[string]bool{},
		calls:   map[string]int{},
	}
}

func (f *fakeFetcher) FetchRawPage(ctx context.Context, path string, pageNumber, pageSize int) (*domain.Page[map[string]any], error) {
	f.mu.Lock()
	f.calls[path]++
	f.mu.Unlock()

	if err := f.fail[path]; err != nil {
		return nil, err
	}

	all := f.items[path]
	start := (pageNumber - 1) * pageSize
	if start > len(all) {
		start = len(all)
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return &domain.Page[map[string]any]{
		Items:       append([]map[string]any{}, all[start:end]...),
		PageNumber:  pageNumber,
		PageSize:    pageSize,
		TotalCount:  len(all),
		HasNextPage: f.endless[path] || end < len(all),
	}, nil
}

func (f *fakeFetcher) FetchRaw(ctx context.Context, path string) (any, error) {
	if err := f.fail[path]; err != nil {
		return nil, err
	}
	return f.objects[path], nil
}

func (f *fakeFetcher) callCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func syntheticItems(n int) []map[string]any {
	items := make([]map[string]any, n)
	for i := range items {
		items[i] = map[string]any{
			"id":             fmt.Sprintf("opp-%d", i),
			"title":          fmt.Sprintf("Deal %d", i),
			"stage":          float64(1 + i%6),
			"estimatedValue": float64(1000),
			"probability":    float64(10),
		}
	}
	return items
}

func TestBuild_FailedSourceDegradesGracefully(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFakeFetcher()
	f.items[backend.PathClients] = []map[string]any{{"id": "c1", "name": "Acme", "clientType": float64(2)}}
	f.items[backend.PathOpportunities] = syntheticItems(3)
	f.fail[backend.PathContracts] = errors.New("connection reset")
	f.objects[backend.PathAuth+"/me"] = map[string]any{"email": "ana@example.com"}

	ctx := assistant.NewBuilder(f, assistant.DefaultLimits(), zap.NewNop()).Build(context.Background())

	require.NotNil(t, ctx)
	assert.Equal(t, []string{assistant.SourceContracts}, ctx.Unavailable)
	assert.NotNil(t, ctx.Contracts)
	assert.Empty(t, ctx.Contracts)
	assert.NotNil(t, ctx.Users)
	assert.NotNil(t, ctx.Activities)
	require.Len(t, ctx.Clients, 1)
	assert.Equal(t, "Private", ctx.Clients[0].Type)
	assert.Len(t, ctx.Opportunities, 3)
	assert.Equal(t, map[string]any{"email": "ana@example.com"}, ctx.CurrentUser)
	assert.Nil(t, ctx.Dashboard)
}

func TestBuild_AllSourcesFailing(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFakeFetcher()
	for _, path := range []string{
		backend.PathUsers, backend.PathClients, backend.PathContacts, backend.PathOpportunities,
		backend.PathProposals, backend.PathContracts, backend.PathActivities, backend.PathPricingRequests,
		backend.PathAuth + "/me", backend.PathDashboard, backend.PathOpportunities + "/pipeline",
	} {
		f.fail[path] = errors.New("down")
	}

	ctx := assistant.NewBuilder(f, assistant.DefaultLimits(), zap.NewNop()).Build(context.Background())
	assert.Len(t, ctx.Unavailable, 11)
	assert.Equal(t, 0, ctx.Summary.Counts[assistant.SourceOpportunities])
	assert.NotNil(t, ctx.Summary.DueSoonActivities)
}

func TestBuild_PageCapAndTruncation(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFakeFetcher()
	f.items[backend.PathOpportunities] = syntheticItems(500)
	f.endless[backend.PathOpportunities] = true

	limits := assistant.DefaultLimits()
	limits.PageSize = 100

	ctx := assistant.NewBuilder(f, limits, zap.NewNop()).Build(context.Background())

	assert.Equal(t, 3, f.callCount(backend.PathOpportunities))
	assert.LessOrEqual(t, len(ctx.Opportunities), 80)
	assert.Len(t, ctx.Opportunities, 80)
	assert.Equal(t, 300, ctx.Summary.Counts[assistant.SourceOpportunities])
	assert.Contains(t, ctx.Truncated, assistant.SourceOpportunities)
}

func TestBuild_StopsOnShortOrFinalPage(t *testing.T) {
	f := newFakeFetcher()
	f.items[backend.PathUsers] = make([]map[string]any, 200)
	for i := range f.items[backend.PathUsers] {
		f.items[backend.PathUsers][i] = map[string]any{"id": fmt.Sprint(i)}
	}
	f.items[backend.PathClients] = []map[string]any{{"id": "1"}}
	f.endless[backend.PathClients] = true

	limits := assistant.DefaultLimits()
	assistant.NewBuilder(f, limits, zap.NewNop()).Build(context.Background())

	// exactly one full page without a next flag
	assert.Equal(t, 1, f.callCount(backend.PathUsers))
	// short page even though the flag says more
	assert.Equal(t, 1, f.callCount(backend.PathClients))
}

func TestBuild_Summary(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	f := newFakeFetcher()
	f.items[backend.PathUsers] = []map[string]any{
		{"id": "u1", "role": "Admin"},
		{"id": "u2", "role": float64(4)},
		{"id": "u3"},
	}
	f.items[backend.PathOpportunities] = []map[string]any{
		{"id": "o1", "stage": float64(1), "estimatedValue": float64(1000), "probability": float64(50)},
		{"id": "o2", "stage": "Negotiation", "estimatedValue": float64(2000), "probability": float64(25)},
		{"id": "o3", "stage": float64(5), "estimatedValue": float64(5000), "probability": float64(100)},
		{"id": "o4", "stage": float64(6), "estimatedValue": float64(700), "probability": float64(0)},
	}
	f.items[backend.PathContracts] = []map[string]any{
		{"id": "c1", "status": float64(2), "totalValue": float64(100), "daysUntilExpiry": float64(10)},
		{"id": "c2", "status": "Cancelled", "totalValue": float64(50), "daysUntilExpiry": float64(5)},
		{"id": "c3", "status": float64(2), "totalValue": float64(300), "endDate": "2026-03-20T12:00:00Z"},
		{"id": "c4", "status": float64(1), "totalValue": float64(20), "daysUntilExpiry": float64(45)},
		{"id": "c5", "status": "", "daysUntilExpiry": float64(-3)},
	}
	f.items[backend.PathActivities] = []map[string]any{
		{"id": "a1", "dueDate": "2026-03-01", "status": "Planned"},
		{"id": "a2", "dueDate": "2026-03-05", "status": float64(3)},
		{"id": "a3", "dueDate": "2026-03-12T09:00:00", "status": "InProgress"},
		{"id": "a4", "dueDate": "2026-03-11T09:00:00Z", "status": float64(1)},
		{"id": "a5", "status": "Planned"},
		{"id": "a6", "dueDate": "2026-03-15", "status": "Cancelled"},
	}

	builder := assistant.NewBuilder(f, assistant.DefaultLimits(), zap.NewNop()).WithClock(func() time.Time { return now })
	s := builder.Build(context.Background()).Summary

	if diff := cmp.Diff(map[string]int{"Admin": 1, "SalesRep": 1, "Unknown": 1}, s.UsersByRole); diff != "" {
		t.Errorf("UsersByRole mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]int{"Lead": 1, "Negotiation": 1, "ClosedWon": 1, "ClosedLost": 1}, s.OpportunitiesByStage); diff != "" {
		t.Errorf("OpportunitiesByStage mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]int{"Active": 2, "Cancelled": 1, "Draft": 1, "Unknown": 1}, s.ContractsByStatus); diff != "" {
		t.Errorf("ContractsByStatus mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 2, s.OpenOpportunities)
	assert.InDelta(t, 3000, s.OpenPipelineValue, 0.001)
	assert.InDelta(t, 1000, s.WeightedPipelineValue, 0.001)
	assert.InDelta(t, 470, s.TotalContractValue, 0.001)
	assert.Equal(t, 1, s.OverdueActivities)

	var dueSoon, expiring []string
	for _, a := range s.DueSoonActivities {
		dueSoon = append(dueSoon, a.ID)
	}
	for _, c := range s.ExpiringContracts {
		expiring = append(expiring, c.ID)
	}
	if diff := cmp.Diff([]string{"a4", "a3"}, dueSoon); diff != "" {
		t.Errorf("DueSoonActivities mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"c1", "c3"}, expiring); diff != "" {
		t.Errorf("ExpiringContracts mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_DueSoonLimit(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newFakeFetcher()
	for i := 0; i < 15; i++ {
		f.items[backend.PathActivities] = append(f.items[backend.PathActivities], map[string]any{
			"id":      fmt.Sprintf("a%d", i),
			"dueDate": now.Add(time.Duration(15-i) * time.Hour).Format(time.RFC3339),
			"status":  float64(1),
		})
	}

	builder := assistant.NewBuilder(f, assistant.DefaultLimits(), zap.NewNop()).WithClock(func() time.Time { return now })
	s := builder.Build(context.Background()).Summary

	require.Len(t, s.DueSoonActivities, 10)
	assert.Equal(t, "a14", s.DueSoonActivities[0].ID)
}

func TestLimitsFromConfigKeepsDefaults(t *testing.T) {
	l := assistant.LimitsFromConfig(nil)
	assert.Equal(t, assistant.DefaultLimits(), l)
}
