package handler_test

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/salesflow/salesflow-api/internal/backend"
	"github.com/salesflow/salesflow-api/internal/domain"
	"github.com/salesflow/salesflow-api/internal/http/handler"
	"github.com/salesflow/salesflow-api/internal/service"
	"github.com/salesflow/salesflow-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func createContractRouter(t *testing.T, fake *testutil.FakeBackend) http.Handler {
	t.Helper()
	h := handler.NewContractHandler(service.NewContractService(fake.Client(), zap.NewNop()), zap.NewNop())

	r := chi.NewRouter()
	r.Get("/contracts/expiring", h.Expiring)
	r.Delete("/contracts/{id}", h.Delete)
	return r
}

func TestContractHandler_Expiring(t *testing.T) {
	ctx := testutil.ContextWithRole(domain.RoleSalesRep)

	for _, days := range []string{"0", "366", "soon"} {
		t.Run("rejects days="+days, func(t *testing.T) {
			fake := testutil.NewFakeBackend(t)
			rr := serve(createContractRouter(t, fake), ctx, http.MethodGet, "/contracts/expiring?days="+days, nil)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Empty(t, fake.Requests())
		})
	}

	t.Run("defaults to thirty days", func(t *testing.T) {
		fake := testutil.NewFakeBackend(t)
		fake.JSON(http.MethodGet, backend.PathContracts+"/expiring", http.StatusOK, []any{})
		rr := serve(createContractRouter(t, fake), ctx, http.MethodGet, "/contracts/expiring", nil)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `[]`, rr.Body.String())
		reqs := fake.Requests()
		require.Len(t, reqs, 1)
		assert.Equal(t, "days=30", reqs[0].Query)
	})

	t.Run("envelope response", func(t *testing.T) {
		fake := testutil.NewFakeBackend(t)
		fake.JSON(http.MethodGet, backend.PathContracts+"/expiring", http.StatusOK, map[string]any{
			"items":      []any{map[string]any{"id": uuid.New(), "title": "Support 2026", "status": 2}},
			"pageNumber": 1, "pageSize": 20, "totalCount": 1,
		})
		rr := serve(createContractRouter(t, fake), ctx, http.MethodGet, "/contracts/expiring?days=90", nil)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "Support 2026")
		assert.Equal(t, "days=90", fake.Requests()[0].Query)
	})
}

func TestContractHandler_Delete(t *testing.T) {
	id := uuid.New()
	itemPath := backend.PathContracts + "/" + id.String()

	t.Run("draft", func(t *testing.T) {
		fake := testutil.NewFakeBackend(t)
		fake.JSON(http.MethodGet, itemPath, http.StatusOK, map[string]any{"id": id, "status": 1})
		fake.Handle(http.MethodDelete, itemPath, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})

		rr := serve(createContractRouter(t, fake), testutil.ContextWithRole(domain.RoleAdmin), http.MethodDelete, "/contracts/"+id.String(), nil)
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, 1, fake.Calls(http.MethodDelete, itemPath))
	})

	t.Run("active contract is kept", func(t *testing.T) {
		fake := testutil.NewFakeBackend(t)
		fake.JSON(http.MethodGet, itemPath, http.StatusOK, map[string]any{"id": id, "status": "Active"})

		rr := serve(createContractRouter(t, fake), testutil.ContextWithRole(domain.RoleAdmin), http.MethodDelete, "/contracts/"+id.String(), nil)
		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "contract is Active", decodeError(t, rr).Detail)
		assert.Equal(t, 0, fake.Calls(http.MethodDelete, itemPath))
	})

	t.Run("sales rep is forbidden", func(t *testing.T) {
		fake := testutil.NewFakeBackend(t)
		rr := serve(createContractRouter(t, fake), testutil.ContextWithRole(domain.RoleSalesRep), http.MethodDelete, "/contracts/"+id.String(), nil)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}
