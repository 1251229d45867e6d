package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/salesflow/salesflow-api/internal/backend"
	"github.com/salesflow/salesflow-api/internal/domain"
	"github.com/salesflow/salesflow-api/internal/email"
	"github.com/salesflow/salesflow-api/internal/service"
	"github.com/salesflow/salesflow-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSender struct {
	err     error
	invites []email.Invite
}

func (f *fakeSender) SendInvite(ctx context.Context, invite email.Invite) error {
	f.invites = append(f.invites, invite)
	return f.err
}

func jsonReader(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func createInvitationService(t *testing.T, sender email.Sender) (*service.InvitationService, *testutil.FakeBackend) {
	t.Helper()
	fake := testutil.NewFakeBackend(t)
	fake.Handle(http.MethodPost, backend.PathUsers, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		body["id"] = uuid.New().String()
		body["isActive"] = true
		testutil.WriteJSON(w, http.StatusCreated, body)
	})
	return service.NewInvitationService(fake.Client(), sender, zap.NewNop()), fake
}

func TestInvitationService_Invite(t *testing.T) {
	manager := testutil.ContextWithRole(domain.RoleSalesManager)
	req := func() *domain.InviteUserRequest {
		return &domain.InviteUserRequest{Email: "  Nina@Example.COM ", FirstName: "Nina", LastName: "Berg", Role: "salesrep"}
	}

	t.Run("creates user and sends email", func(t *testing.T) {
		sender := &fakeSender{}
		svc, fake := createInvitationService(t, sender)

		resp, err := svc.Invite(manager, req())
		require.NoError(t, err)
		assert.True(t, resp.Notified)
		assert.Equal(t, "nina@example.com", resp.User.Email)

		body := fake.Requests()[0].Body
		assert.Equal(t, "nina@example.com", body["email"])
		assert.Equal(t, string(domain.RoleSalesRep), body["role"])

		require.Len(t, sender.invites, 1)
		assert.Equal(t, "nina@example.com", sender.invites[0].Email)
		assert.Equal(t, "Nina Berg", sender.invites[0].Name)
		assert.Equal(t, "Test User", sender.invites[0].InvitedBy)
	})

	t.Run("email failure keeps the user", func(t *testing.T) {
		svc, _ := createInvitationService(t, &fakeSender{err: errors.New("smtp down")})
		resp, err := svc.Invite(manager, req())
		require.NoError(t, err)
		assert.False(t, resp.Notified)
		assert.NotNil(t, resp.User)
	})

	t.Run("sender not configured", func(t *testing.T) {
		svc, _ := createInvitationService(t, &fakeSender{err: email.ErrNotConfigured})
		resp, err := svc.Invite(manager, req())
		require.NoError(t, err)
		assert.False(t, resp.Notified)
	})

	t.Run("rep cannot invite", func(t *testing.T) {
		svc, fake := createInvitationService(t, nil)
		_, err := svc.Invite(testutil.ContextWithRole(domain.RoleSalesRep), req())
		assert.ErrorIs(t, err, service.ErrForbidden)
		assert.Empty(t, fake.Requests())
	})

	t.Run("backend conflict", func(t *testing.T) {
		fake := testutil.NewFakeBackend(t)
		fake.JSON(http.MethodPost, backend.PathUsers, http.StatusConflict, map[string]string{"detail": "Email already registered"})
		svc := service.NewInvitationService(fake.Client(), nil, zap.NewNop())

		_, err := svc.Invite(manager, req())
		require.Error(t, err)
		assert.Equal(t, http.StatusConflict, backend.StatusOf(err))
		assert.Contains(t, err.Error(), "Email already registered")
	})
}
