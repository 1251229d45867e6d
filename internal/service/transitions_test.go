package service_test

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/salesflow/salesflow-api/internal/backend"
	"github.com/salesflow/salesflow-api/internal/domain"
	"github.com/salesflow/salesflow-api/internal/service"
	"github.com/salesflow/salesflow-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestActivityService_Permissions(t *testing.T) {
	assignee := uuid.New()
	activityID := uuid.New()
	itemPath := backend.PathActivities + "/" + activityID.String()

	setup := func(t *testing.T, status domain.ActivityStatus) (*service.ActivityService, *testutil.FakeBackend) {
		fake := testutil.NewFakeBackend(t)
		fake.JSON(http.MethodGet, itemPath, http.StatusOK, map[string]any{
			"id": activityID, "subject": "Call back", "status": int(status), "assignedToId": assignee,
		})
		fake.JSON(http.MethodPut, itemPath+"/complete", http.StatusOK, map[string]any{
			"id": activityID, "subject": "Call back", "status": 3, "assignedToId": assignee,
		})
		fake.JSON(http.MethodPut, itemPath+"/cancel", http.StatusOK, map[string]any{
			"id": activityID, "status": 4,
		})
		return service.NewActivityService(fake.Client(), zap.NewNop()), fake
	}

	t.Run("assignee completes a planned activity", func(t *testing.T) {
		svc, fake := setup(t, domain.ActivityStatusPlanned)
		got, err := svc.Complete(testutil.ContextWithUser(assignee, domain.RoleSalesRep), activityID, &domain.CompleteActivityRequest{Outcome: "Booked demo"})
		require.NoError(t, err)
		assert.Equal(t, domain.ActivityStatusCompleted, got.Status)
		assert.Equal(t, 1, fake.Calls(http.MethodPut, itemPath+"/complete"))
	})

	t.Run("other rep is forbidden", func(t *testing.T) {
		svc, fake := setup(t, domain.ActivityStatusPlanned)
		_, err := svc.Cancel(testutil.ContextWithRole(domain.RoleSalesRep), activityID)
		assert.ErrorIs(t, err, service.ErrForbidden)
		assert.Zero(t, fake.Calls(http.MethodPut, itemPath+"/cancel"))
	})

	t.Run("assignee cannot change an in-progress activity", func(t *testing.T) {
		svc, _ := setup(t, domain.ActivityStatusInProgress)
		_, err := svc.Cancel(testutil.ContextWithUser(assignee, domain.RoleSalesRep), activityID)
		assert.ErrorIs(t, err, service.ErrInvalidState)
	})

	t.Run("manager may change an in-progress activity", func(t *testing.T) {
		svc, _ := setup(t, domain.ActivityStatusInProgress)
		_, err := svc.Cancel(testutil.ContextWithRole(domain.RoleSalesManager), activityID)
		assert.NoError(t, err)
	})

	t.Run("closed activity cannot change", func(t *testing.T) {
		svc, _ := setup(t, domain.ActivityStatusCompleted)
		_, err := svc.Complete(testutil.ContextWithRole(domain.RoleAdmin), activityID, &domain.CompleteActivityRequest{})
		assert.ErrorIs(t, err, service.ErrInvalidState)
	})

	t.Run("anonymous caller", func(t *testing.T) {
		svc, _ := setup(t, domain.ActivityStatusPlanned)
		_, err := svc.Cancel(t.Context(), activityID)
		assert.ErrorIs(t, err, service.ErrUserContextRequired)
	})
}

func TestActivityService_CreateDefaultsAssignee(t *testing.T) {
	fake := testutil.NewFakeBackend(t)
	fake.JSON(http.MethodPost, backend.PathActivities, http.StatusCreated, map[string]any{"id": uuid.New(), "subject": "Demo"})
	svc := service.NewActivityService(fake.Client(), zap.NewNop())
	me := uuid.New()

	_, err := svc.Create(testutil.ContextWithUser(me, domain.RoleSalesRep), &domain.CreateActivityRequest{Subject: "Demo", Type: 2})
	require.NoError(t, err)
	assert.Equal(t, me.String(), fake.Requests()[0].Body["assignedToId"])

	_, err = svc.Create(testutil.ContextWithUser(me, domain.RoleSalesRep), &domain.CreateActivityRequest{
		Subject: "Demo", Type: 2, RelatedToID: &me,
	})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestProposalService_Lifecycle(t *testing.T) {
	id := uuid.New()
	itemPath := backend.PathProposals + "/" + id.String()

	setup := func(t *testing.T, status domain.ProposalStatus) (*service.ProposalService, *testutil.FakeBackend) {
		fake := testutil.NewFakeBackend(t)
		fake.JSON(http.MethodGet, itemPath, http.StatusOK, map[string]any{"id": id, "title": "Q-1", "status": int(status)})
		for action, next := range map[string]int{"submit": 2, "approve": 4, "reject": 3} {
			fake.JSON(http.MethodPut, itemPath+"/"+action, http.StatusOK, map[string]any{"id": id, "status": next})
		}
		return service.NewProposalService(fake.Client(), zap.NewNop()), fake
	}

	t.Run("submit a draft", func(t *testing.T) {
		svc, _ := setup(t, domain.ProposalStatusDraft)
		got, err := svc.Submit(testutil.ContextWithRole(domain.RoleSalesRep), id)
		require.NoError(t, err)
		assert.Equal(t, domain.ProposalStatusSubmitted, got.Status)
	})

	t.Run("submit twice", func(t *testing.T) {
		svc, _ := setup(t, domain.ProposalStatusSubmitted)
		_, err := svc.Submit(testutil.ContextWithRole(domain.RoleSalesRep), id)
		assert.ErrorIs(t, err, service.ErrInvalidState)
	})

	t.Run("rep cannot approve", func(t *testing.T) {
		svc, fake := setup(t, domain.ProposalStatusSubmitted)
		_, err := svc.Approve(testutil.ContextWithRole(domain.RoleSalesRep), id)
		assert.ErrorIs(t, err, service.ErrForbidden)
		assert.Empty(t, fake.Requests())
	})

	t.Run("manager rejects from review", func(t *testing.T) {
		svc, fake := setup(t, domain.ProposalStatusReview)
		got, err := svc.Reject(testutil.ContextWithRole(domain.RoleSalesManager), id, &domain.RejectProposalRequest{Reason: "Too expensive"})
		require.NoError(t, err)
		assert.Equal(t, domain.ProposalStatusRejected, got.Status)
		reqs := fake.Requests()
		assert.Equal(t, "Too expensive", reqs[len(reqs)-1].Body["reason"])
	})

	t.Run("approved proposal is final", func(t *testing.T) {
		svc, _ := setup(t, domain.ProposalStatusApproved)
		_, err := svc.Reject(testutil.ContextWithRole(domain.RoleAdmin), id, &domain.RejectProposalRequest{Reason: "x"})
		assert.ErrorIs(t, err, service.ErrInvalidState)
	})
}

func TestContractService_Lifecycle(t *testing.T) {
	id := uuid.New()
	itemPath := backend.PathContracts + "/" + id.String()

	setup := func(t *testing.T, status domain.ContractStatus) *service.ContractService {
		fake := testutil.NewFakeBackend(t)
		fake.JSON(http.MethodGet, itemPath, http.StatusOK, map[string]any{"id": id, "status": int(status)})
		fake.JSON(http.MethodPut, itemPath+"/activate", http.StatusOK, map[string]any{"id": id, "status": 2})
		fake.JSON(http.MethodPut, itemPath+"/cancel", http.StatusOK, map[string]any{"id": id, "status": 5})
		return service.NewContractService(fake.Client(), zap.NewNop())
	}
	manager := testutil.ContextWithRole(domain.RoleSalesManager)

	got, err := setup(t, domain.ContractStatusDraft).Activate(manager, id)
	require.NoError(t, err)
	assert.Equal(t, domain.ContractStatusActive, got.Status)

	_, err = setup(t, domain.ContractStatusActive).Activate(manager, id)
	assert.ErrorIs(t, err, service.ErrInvalidState)

	_, err = setup(t, domain.ContractStatusActive).Cancel(manager, id, &domain.CancelContractRequest{})
	assert.NoError(t, err)

	_, err = setup(t, domain.ContractStatusExpired).Cancel(manager, id, &domain.CancelContractRequest{})
	assert.ErrorIs(t, err, service.ErrInvalidState)

	_, err = setup(t, domain.ContractStatusDraft).Activate(testutil.ContextWithRole(domain.RoleBusinessDevelopmentManager), id)
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestPricingRequestService_Lifecycle(t *testing.T) {
	id := uuid.New()
	assignee := uuid.New()
	itemPath := backend.PathPricingRequests + "/" + id.String()

	setup := func(t *testing.T, status domain.PricingRequestStatus) *service.PricingRequestService {
		fake := testutil.NewFakeBackend(t)
		fake.JSON(http.MethodGet, itemPath, http.StatusOK, map[string]any{"id": id, "status": int(status), "assignedToId": assignee})
		fake.JSON(http.MethodPut, itemPath+"/assign", http.StatusOK, map[string]any{"id": id, "status": 2, "assignedToId": assignee})
		fake.JSON(http.MethodPut, itemPath+"/complete", http.StatusOK, map[string]any{"id": id, "status": 3})
		return service.NewPricingRequestService(fake.Client(), zap.NewNop())
	}

	got, err := setup(t, domain.PricingRequestPending).Assign(testutil.ContextWithRole(domain.RoleAdmin), id, &domain.AssignRequest{UserID: assignee})
	require.NoError(t, err)
	assert.Equal(t, domain.PricingRequestInProgress, got.Status)

	_, err = setup(t, domain.PricingRequestInProgress).Assign(testutil.ContextWithRole(domain.RoleAdmin), id, &domain.AssignRequest{UserID: assignee})
	assert.ErrorIs(t, err, service.ErrInvalidState)

	got, err = setup(t, domain.PricingRequestInProgress).Complete(testutil.ContextWithUser(assignee, domain.RoleSalesRep), id, &domain.CompletePricingRequestRequest{})
	require.NoError(t, err)
	assert.Equal(t, domain.PricingRequestCompleted, got.Status)

	_, err = setup(t, domain.PricingRequestInProgress).Complete(testutil.ContextWithRole(domain.RoleSalesRep), id, &domain.CompletePricingRequestRequest{})
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = setup(t, domain.PricingRequestCompleted).Complete(testutil.ContextWithRole(domain.RoleAdmin), id, &domain.CompletePricingRequestRequest{})
	assert.ErrorIs(t, err, service.ErrInvalidState)
}
