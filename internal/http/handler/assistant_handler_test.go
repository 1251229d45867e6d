package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/salesflow/salesflow-api/internal/assistant"
	"github.com/salesflow/salesflow-api/internal/domain"
	"github.com/salesflow/salesflow-api/internal/http/handler"
	"github.com/salesflow/salesflow-api/internal/repository"
	"github.com/salesflow/salesflow-api/internal/service"
	"github.com/salesflow/salesflow-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubCompleter struct {
	reply string
	err   error
}

func (s stubCompleter) Complete(ctx context.Context, req assistant.CompletionRequest) (string, error) {
	return s.reply, s.err
}

func (s stubCompleter) Provider() string { return "stub" }
func (s stubCompleter) Model() string    { return "stub-1" }

type emptyContext struct{}

func (emptyContext) Build(ctx context.Context) *assistant.Context {
	return &assistant.Context{Unavailable: []string{}}
}

func createAssistantRouter(t *testing.T, completer assistant.Completer) http.Handler {
	t.Helper()
	repo := repository.NewAssistantInteractionRepository(testutil.SetupTestDB(t))
	svc := service.NewAssistantService(completer, emptyContext{}, repo, nil, zap.NewNop())
	h := handler.NewAssistantHandler(svc, zap.NewNop())

	r := chi.NewRouter()
	r.Post("/assistant/query", h.Query)
	r.Get("/assistant/context", h.Context)
	r.Get("/assistant/usage", h.Usage)
	r.Get("/assistant/interactions", h.Interactions)
	return r
}

func TestAssistantHandler_Query(t *testing.T) {
	ctx := testutil.ContextWithRole(domain.RoleSalesRep)

	t.Run("empty prompt", func(t *testing.T) {
		rr := serve(createAssistantRouter(t, stubCompleter{reply: "unused"}), ctx, http.MethodPost, "/assistant/query", map[string]any{"prompt": "   "})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "prompt is required", decodeError(t, rr).Detail)
	})

	t.Run("not configured", func(t *testing.T) {
		rr := serve(createAssistantRouter(t, nil), ctx, http.MethodPost, "/assistant/query", map[string]any{"prompt": "How big is the pipeline?"})

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "AI assistant is not configured", decodeError(t, rr).Detail)
	})

	t.Run("provider down", func(t *testing.T) {
		rr := serve(createAssistantRouter(t, stubCompleter{err: assistant.ErrUnavailable}), ctx, http.MethodPost, "/assistant/query", map[string]any{"prompt": "How big is the pipeline?"})

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})

	t.Run("navigation is sanitized", func(t *testing.T) {
		completer := stubCompleter{reply: `{"reply":"Two contracts expire soon.","navigateTo":"https://evil.example"}`}
		rr := serve(createAssistantRouter(t, completer), ctx, http.MethodPost, "/assistant/query", map[string]any{"prompt": "Which contracts expire?"})

		require.Equal(t, http.StatusOK, rr.Code)
		var resp domain.AssistantQueryResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "Two contracts expire soon.", resp.Reply)
		require.NotNil(t, resp.NavigateTo)
		assert.Equal(t, "/contracts", *resp.NavigateTo)
	})

	t.Run("plain text reply", func(t *testing.T) {
		rr := serve(createAssistantRouter(t, stubCompleter{reply: "Hello!"}), ctx, http.MethodPost, "/assistant/query", map[string]any{"prompt": "Hello there"})

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"reply":"Hello!","navigateTo":null}`, rr.Body.String())
	})
}

func TestAssistantHandler_AdminRoutes(t *testing.T) {
	h := createAssistantRouter(t, stubCompleter{reply: "ok"})

	rr := serve(h, testutil.ContextWithRole(domain.RoleSalesRep), http.MethodGet, "/assistant/usage", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = serve(h, testutil.ContextWithRole(domain.RoleAdmin), http.MethodGet, "/assistant/usage?since=not-a-date", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(h, testutil.ContextWithRole(domain.RoleAdmin), http.MethodGet, "/assistant/usage", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(h, testutil.ContextWithRole(domain.RoleAdmin), http.MethodGet, "/assistant/interactions?route=query", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var page domain.Page[domain.AssistantInteraction]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	assert.Empty(t, page.Items)
}

func TestAssistantHandler_Context(t *testing.T) {
	rr := serve(createAssistantRouter(t, nil), testutil.ContextWithRole(domain.RoleSalesRep), http.MethodGet, "/assistant/context", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	var crm map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &crm))
	assert.Contains(t, crm, "unavailable")
}
