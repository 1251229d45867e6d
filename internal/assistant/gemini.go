package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/salesflow/salesflow-api/internal/config"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiCompleter generates completions with the Gemini API
type GeminiCompleter struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGeminiCompleter creates a Gemini completer
func NewGeminiCompleter(ctx context.Context, cfg *config.AIConfig, logger *zap.Logger) (*GeminiCompleter, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, ErrNotConfigured
	}

	model := cfg.GeminiModel
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.GeminiAPIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.TimeoutDuration()},
		HTTPOptions: genai.HTTPOptions{
			BaseURL: cfg.GeminiBaseURL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiCompleter{client: client, model: model, logger: logger}, nil
}

func (c *GeminiCompleter) Provider() string { return ProviderGemini }
func (c *GeminiCompleter) Model() string    { return c.model }

func (c *GeminiCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	temperature := float32(req.Temperature)
	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		Temperature:       &temperature,
	}
	if req.JSON {
		genCfg.ResponseMIMEType = "application/json"
	}

	contents := []*genai.Content{
		genai.NewContentFromText(req.User, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, genCfg)
	if err != nil {
		c.logger.Warn("gemini request failed", zap.String("model", c.model), zap.Error(err))
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", &UpstreamError{Status: apiErr.Code, Message: apiErr.Message}
		}
		if classified := transportError(err); classified != err {
			return "", classified
		}
		return "", &UpstreamError{Status: http.StatusBadGateway, Message: err.Error()}
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", &UpstreamError{Status: http.StatusBadGateway, Message: "completion contained no text"}
	}
	return text, nil
}
