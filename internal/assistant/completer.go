package assistant

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/salesflow/salesflow-api/internal/config"
	"go.uber.org/zap"
)

var (
	// ErrNotConfigured means no API key is set for the selected provider
	ErrNotConfigured = errors.New("AI assistant is not configured")
	// ErrUnavailable means the provider could not be reached or timed out
	ErrUnavailable = errors.New("AI provider is unavailable")
)

// UpstreamError is a non-2xx answer from the provider
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("AI provider returned status %d", e.Status)
	}
	return fmt.Sprintf("AI provider returned status %d: %s", e.Status, e.Message)
}

// CompletionRequest is a single system + user exchange
type CompletionRequest struct {
	System      string
	User        string
	Temperature float64
	// JSON asks the provider for a JSON object response
	JSON bool
}

// Completer sends one chat completion to an LLM provider
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Provider() string
	Model() string
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// NewCompleter builds the completer for the configured provider.
// ErrNotConfigured is returned when the provider has no API key.
func NewCompleter(ctx context.Context, cfg *config.AIConfig, logger *zap.Logger) (Completer, error) {
	if cfg == nil || !cfg.Configured() {
		return nil, ErrNotConfigured
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderGemini:
		return NewGeminiCompleter(ctx, cfg, logger)
	case "", ProviderOpenAI:
		return NewOpenAICompleter(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}

// transportError marks network failures and timeouts as ErrUnavailable
func transportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
