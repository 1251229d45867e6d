package service_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/salesflow/salesflow-api/internal/backend"
	"github.com/salesflow/salesflow-api/internal/config"
	"github.com/salesflow/salesflow-api/internal/domain"
	"github.com/salesflow/salesflow-api/internal/service"
	"github.com/salesflow/salesflow-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func createOpportunityService(t *testing.T, fake *testutil.FakeBackend) *service.OpportunityService {
	t.Helper()
	return service.NewOpportunityService(fake.Client(), &config.AssistantConfig{PageSize: 2, MaxPageFetch: 3}, zap.NewNop())
}

func TestOpportunityService_UpdateStage(t *testing.T) {
	id := uuid.New()
	stagePath := backend.PathOpportunities + "/" + id.String() + "/stage"

	t.Run("closed lost without reason is rejected locally", func(t *testing.T) {
		fake := testutil.NewFakeBackend(t)
		svc := createOpportunityService(t, fake)

		_, err := svc.UpdateStage(testutil.ContextWithRole(domain.RoleSalesRep), id, &domain.UpdateStageRequest{
			Stage:      domain.StageClosedLost,
			LossReason: "   ",
		})
		assert.ErrorIs(t, err, service.ErrLossReasonRequired)
		assert.Empty(t, fake.Requests())
	})

	t.Run("closed lost with reason", func(t *testing.T) {
		fake := testutil.NewFakeBackend(t)
		fake.Handle(http.MethodPut, stagePath, func(w http.ResponseWriter, r *http.Request) {
			testutil.WriteJSON(w, http.StatusOK, map[string]any{
				"id": id, "title": "Fleet renewal", "stage": 6, "lossReason": "Budget cut",
			})
		})
		svc := createOpportunityService(t, fake)

		got, err := svc.UpdateStage(testutil.ContextWithRole(domain.RoleSalesRep), id, &domain.UpdateStageRequest{
			Stage:      domain.StageClosedLost,
			LossReason: " Budget cut ",
			Notes:      "ignored",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.StageClosedLost, got.Stage)
		assert.Equal(t, "Budget cut", got.LossReason)

		reqs := fake.Requests()
		require.Len(t, reqs, 1)
		assert.Equal(t, float64(6), reqs[0].Body["stage"])
		assert.Equal(t, "Budget cut", reqs[0].Body["lossReason"])
		assert.NotContains(t, reqs[0].Body, "notes")
		assert.Equal(t, "Bearer test-token", reqs[0].Auth)
	})

	t.Run("undefined stage", func(t *testing.T) {
		fake := testutil.NewFakeBackend(t)
		svc := createOpportunityService(t, fake)

		_, err := svc.UpdateStage(testutil.ContextWithRole(domain.RoleSalesRep), id, &domain.UpdateStageRequest{Stage: 9})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
		assert.ErrorIs(t, err, domain.ErrInvalidStage)
	})

	t.Run("backend rejection keeps its message", func(t *testing.T) {
		fake := testutil.NewFakeBackend(t)
		fake.JSON(http.MethodPut, stagePath, http.StatusBadRequest, map[string]any{"detail": "Opportunity is archived"})
		svc := createOpportunityService(t, fake)

		_, err := svc.UpdateStage(testutil.ContextWithRole(domain.RoleSalesRep), id, &domain.UpdateStageRequest{Stage: domain.StageQualified})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, backend.StatusOf(err))
		assert.Contains(t, err.Error(), "Opportunity is archived")
	})
}

func TestOpportunityService_CreateRoundTrip(t *testing.T) {
	fake := testutil.NewFakeBackend(t)
	fake.Handle(http.MethodPost, backend.PathOpportunities, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		body["id"] = uuid.New().String()
		testutil.WriteJSON(w, http.StatusCreated, body)
	})
	svc := createOpportunityService(t, fake)

	clientID := uuid.New()
	got, err := svc.Create(testutil.ContextWithRole(domain.RoleSalesRep), &domain.CreateOpportunityRequest{
		Title:          "Data center expansion",
		ClientID:       &clientID,
		EstimatedValue: 100000,
		Probability:    40,
	})
	require.NoError(t, err)
	assert.Equal(t, 40, got.Probability)
	assert.InDelta(t, 100000, got.EstimatedValue, 0.001)
	assert.Equal(t, domain.StageLead, got.Stage)
	assert.InDelta(t, 40000, got.WeightedValue(), 0.001)

	t.Run("closed lost needs a loss reason", func(t *testing.T) {
		before := len(fake.Requests())
		_, err := svc.Create(testutil.ContextWithRole(domain.RoleSalesRep), &domain.CreateOpportunityRequest{
			Title: "x", ClientID: &clientID, Stage: domain.StageClosedLost, LossReason: "  ",
		})
		assert.ErrorIs(t, err, service.ErrLossReasonRequired)
		assert.Len(t, fake.Requests(), before)
	})

	t.Run("closed lost with a loss reason", func(t *testing.T) {
		got, err := svc.Create(testutil.ContextWithRole(domain.RoleSalesRep), &domain.CreateOpportunityRequest{
			Title: "Lost tender", ClientID: &clientID, Stage: domain.StageClosedLost, LossReason: " Price ",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.StageClosedLost, got.Stage)
		assert.Equal(t, "Price", got.LossReason)
	})

	t.Run("loss reason dropped for open stages", func(t *testing.T) {
		_, err := svc.Create(testutil.ContextWithRole(domain.RoleSalesRep), &domain.CreateOpportunityRequest{
			Title: "Open deal", ClientID: &clientID, Stage: domain.StageQualified, LossReason: "stale",
		})
		require.NoError(t, err)
		reqs := fake.Requests()
		assert.NotContains(t, reqs[len(reqs)-1].Body, "lossReason")
	})

	t.Run("undefined starting stage", func(t *testing.T) {
		_, err := svc.Create(testutil.ContextWithRole(domain.RoleSalesRep), &domain.CreateOpportunityRequest{
			Title: "x", ClientID: &clientID, Stage: 9,
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})
}

func TestOpportunityService_DeleteAndNotFound(t *testing.T) {
	fake := testutil.NewFakeBackend(t)
	svc := createOpportunityService(t, fake)
	id := uuid.New()

	err := svc.Delete(testutil.ContextWithRole(domain.RoleSalesRep), id)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = svc.GetByID(testutil.ContextWithRole(domain.RoleSalesRep), id)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func opportunityPages(t *testing.T, fake *testutil.FakeBackend, all []map[string]any, pageSize int) {
	t.Helper()
	fake.Handle(http.MethodGet, backend.PathOpportunities, func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("pageNumber"))
		start := (page - 1) * pageSize
		end := start + pageSize
		if start > len(all) {
			start = len(all)
		}
		if end > len(all) {
			end = len(all)
		}
		testutil.WriteJSON(w, http.StatusOK, map[string]any{
			"items":       all[start:end],
			"pageNumber":  page,
			"pageSize":    pageSize,
			"totalCount":  len(all),
			"hasNextPage": end < len(all),
		})
	})
}

func TestOpportunityService_ComputedMetrics(t *testing.T) {
	fake := testutil.NewFakeBackend(t)
	var all []map[string]any
	for i := 0; i < 7; i++ {
		all = append(all, map[string]any{
			"id": uuid.New().String(), "title": fmt.Sprintf("Deal %d", i),
			"stage": 1 + i%6, "estimatedValue": 1000, "probability": 50,
		})
	}
	opportunityPages(t, fake, all, 2)
	svc := createOpportunityService(t, fake)

	got, err := svc.ComputedMetrics(testutil.ContextWithRole(domain.RoleSalesRep))
	require.NoError(t, err)
	assert.Equal(t, service.MetricsSourceComputed, got.Source)
	assert.Equal(t, 6, got.Sampled)
	assert.True(t, got.Truncated)
	assert.Equal(t, 3, fake.Calls(http.MethodGet, backend.PathOpportunities))
	assert.Equal(t, 6, got.Metrics.TotalOpportunities)
}

func TestOpportunityService_AdvanceOpen(t *testing.T) {
	fake := testutil.NewFakeBackend(t)
	lead, negotiation, won := uuid.New(), uuid.New(), uuid.New()
	opportunityPages(t, fake, []map[string]any{
		{"id": lead.String(), "title": "Lead", "stage": 1},
		{"id": negotiation.String(), "title": "Negotiation", "stage": 4},
		{"id": won.String(), "title": "Won", "stage": 5},
	}, 10)
	fake.JSON(http.MethodPut, backend.PathOpportunities+"/"+lead.String()+"/stage", http.StatusOK,
		map[string]any{"id": lead.String(), "stage": 2})
	svc := createOpportunityService(t, fake)

	_, err := svc.AdvanceOpen(testutil.ContextWithRole(domain.RoleSalesRep), service.AdvanceOptions{})
	assert.ErrorIs(t, err, service.ErrForbidden)

	ctx := testutil.ContextWithRole(domain.RoleSalesManager)

	planned, err := svc.AdvanceOpen(ctx, service.AdvanceOptions{DryRun: true})
	require.NoError(t, err)
	require.Len(t, planned, 1)
	assert.Equal(t, lead, planned[0].OpportunityID)
	assert.Equal(t, domain.StageQualified, planned[0].To)
	assert.Zero(t, fake.Calls(http.MethodPut, backend.PathOpportunities+"/"+lead.String()+"/stage"))

	done, err := svc.AdvanceOpen(ctx, service.AdvanceOptions{})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Empty(t, done[0].Error)
	assert.Equal(t, 1, fake.Calls(http.MethodPut, backend.PathOpportunities+"/"+lead.String()+"/stage"))
}
