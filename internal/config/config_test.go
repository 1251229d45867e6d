package config_test

import (
	"context"
	"errors"
	"testing"

	"github.com/salesflow/salesflow-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "SalesFlow API", cfg.App.Name)
	assert.Equal(t, "gpt-4.1-mini", cfg.AI.OpenAIModel)
	assert.Equal(t, 200, cfg.Assistant.PageSize)
	assert.Equal(t, 3, cfg.Assistant.MaxPageFetch)
	assert.Equal(t, 80, cfg.Assistant.MaxContextItems)
	assert.Equal(t, 10, cfg.Assistant.DueSoonLimit)
}

func TestLoad_LegacyEnvNames(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("NEXT_PUBLIC_BACKEND_API_URL", "https://crm.example.com/")
	t.Setenv("OPEN_AI_API_KEY", "sk-legacy")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("NEXT_PUBLIC_EMAILJS_SERVICE_ID", "svc")
	t.Setenv("NEXT_PUBLIC_EMAILJS_TEMPLATE_ID", "tpl")
	t.Setenv("NEXT_PUBLIC_EMAILJS_PUBLIC_KEY", "pub")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "https://crm.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, "https://crm.example.com", cfg.Backend.AuthURL)
	assert.Equal(t, "sk-legacy", cfg.AI.OpenAIAPIKey)
	assert.Equal(t, "gpt-4o", cfg.AI.OpenAIModel)
	assert.True(t, cfg.AI.Configured())
	assert.True(t, cfg.Email.Configured())
}

func TestLoad_PrimaryKeyBeatsLegacy(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("OPENAI_API_KEY", "sk-primary")
	t.Setenv("OPEN_AI_API_KEY", "sk-legacy")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-primary", cfg.AI.OpenAIAPIKey)
}

type mapSource map[string]string

func (m mapSource) GetSecretOrEnv(_ context.Context, secretName, _ string) (string, error) {
	if v, ok := m[secretName]; ok {
		return v, nil
	}
	return "", errors.New("not found")
}

func TestApplySecrets(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Host = "localhost"

	missing := config.ApplySecrets(context.Background(), cfg, mapSource{
		"openai-api-key":         "sk-vault",
		"snapshot-service-token": "svc-token",
	})

	assert.Equal(t, "sk-vault", cfg.AI.OpenAIAPIKey)
	assert.Equal(t, "svc-token", cfg.Jobs.SnapshotToken)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Contains(t, missing, "POSTGRES-MAIN-HOST")
	assert.NotContains(t, missing, "openai-api-key")
}

func TestAIConfig_ConfiguredPerProvider(t *testing.T) {
	ai := config.AIConfig{Provider: "gemini", OpenAIAPIKey: "sk"}
	assert.False(t, ai.Configured())
	ai.GeminiAPIKey = "g"
	assert.True(t, ai.Configured())
}
