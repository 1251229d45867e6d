package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/salesflow/salesflow-api/internal/config"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned when the EmailJS identifiers are missing
var ErrNotConfigured = errors.New("email sending is not configured")

// Invite carries the template parameters of an invitation email
type Invite struct {
	Email     string
	Name      string
	Role      string
	InvitedBy string
	InviteURL string
}

// Sender sends invitation emails
type Sender interface {
	SendInvite(ctx context.Context, invite Invite) error
}

// SendError is a non-2xx answer from EmailJS
type SendError struct {
	Status  int
	Message string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("emailjs returned %d: %s", e.Status, e.Message)
}

// EmailJSClient sends template emails through the EmailJS REST API
type EmailJSClient struct {
	cfg        config.EmailConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewEmailJSClient creates a client for the configured EmailJS service
func NewEmailJSClient(cfg *config.EmailConfig, logger *zap.Logger) *EmailJSClient {
	c := *cfg
	if c.BaseURL == "" {
		c.BaseURL = "https://api.emailjs.com"
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return &EmailJSClient{
		cfg:        c,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

type sendRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

// SendInvite sends the invitation template to invite.Email
func (c *EmailJSClient) SendInvite(ctx context.Context, invite Invite) error {
	if !c.cfg.Configured() {
		return ErrNotConfigured
	}

	inviteURL := invite.InviteURL
	if inviteURL == "" {
		inviteURL = c.cfg.InviteURL
	}
	body, err := json.Marshal(sendRequest{
		ServiceID:   c.cfg.ServiceID,
		TemplateID:  c.cfg.TemplateID,
		UserID:      c.cfg.PublicKey,
		AccessToken: c.cfg.PrivateKey,
		TemplateParams: map[string]string{
			"to_email":   invite.Email,
			"to_name":    invite.Name,
			"role":       invite.Role,
			"invited_by": invite.InvitedBy,
			"invite_url": inviteURL,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to encode email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/v1.0/email/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &SendError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}

	c.logger.Info("invitation email sent", zap.String("template_id", c.cfg.TemplateID))
	return nil
}
