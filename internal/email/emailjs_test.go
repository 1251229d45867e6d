package email_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/salesflow/salesflow-api/internal/config"
	"github.com/salesflow/salesflow-api/internal/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSendInvite(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1.0/email/send", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte("OK"))
	}))
	defer srv.Close()

	client := email.NewEmailJSClient(&config.EmailConfig{
		BaseURL:    srv.URL + "/",
		ServiceID:  "svc",
		TemplateID: "tpl",
		PublicKey:  "pub",
		InviteURL:  "https://app.example/login",
	}, zap.NewNop())

	err := client.SendInvite(context.Background(), email.Invite{Email: "new@example.com", Name: "New User", Role: "SalesRep"})
	require.NoError(t, err)

	assert.Equal(t, "svc", got["service_id"])
	assert.Equal(t, "tpl", got["template_id"])
	assert.Equal(t, "pub", got["user_id"])
	params := got["template_params"].(map[string]any)
	assert.Equal(t, "new@example.com", params["to_email"])
	assert.Equal(t, "https://app.example/login", params["invite_url"])
}

func TestSendInvite_Errors(t *testing.T) {
	client := email.NewEmailJSClient(&config.EmailConfig{}, zap.NewNop())
	assert.ErrorIs(t, client.SendInvite(context.Background(), email.Invite{Email: "a@b.c"}), email.ErrNotConfigured)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("The template ID is invalid"))
	}))
	defer srv.Close()

	client = email.NewEmailJSClient(&config.EmailConfig{BaseURL: srv.URL, ServiceID: "s", TemplateID: "t", PublicKey: "p"}, zap.NewNop())
	err := client.SendInvite(context.Background(), email.Invite{Email: "a@b.c"})
	var sendErr *email.SendError
	require.True(t, errors.As(err, &sendErr))
	assert.Equal(t, http.StatusBadRequest, sendErr.Status)
	assert.Equal(t, "The template ID is invalid", sendErr.Message)
}
