package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/salesflow/salesflow-api/internal/assistant"
	"github.com/salesflow/salesflow-api/internal/config"
	"github.com/salesflow/salesflow-api/internal/domain"
	"github.com/salesflow/salesflow-api/internal/repository"
	"go.uber.org/zap"
)

// MaxPromptLength caps free-text assistant input, in characters
const MaxPromptLength = 4000

// Assistant route names recorded on interactions
const (
	AssistantRouteQuery         = "query"
	AssistantRouteContractTerms = "contract-terms"
	AssistantRouteClientDraft   = "client-draft"
)

// ContextBuilder assembles the CRM context sent with assistant questions
type ContextBuilder interface {
	Build(ctx context.Context) *assistant.Context
}

// AssistantService answers CRM questions and drafts records through a language model
type AssistantService struct {
	completer    assistant.Completer
	builder      ContextBuilder
	interactions *repository.AssistantInteractionRepository
	temperature  float64
	logger       *zap.Logger
}

// NewAssistantService creates a new AssistantService. A nil completer makes every
// model-backed call fail with assistant.ErrNotConfigured; interactions may be nil.
func NewAssistantService(
	completer assistant.Completer,
	builder ContextBuilder,
	interactions *repository.AssistantInteractionRepository,
	aiCfg *config.AIConfig,
	logger *zap.Logger,
) *AssistantService {
	temperature := 0.2
	if aiCfg != nil && aiCfg.Temperature > 0 {
		temperature = aiCfg.Temperature
	}
	return &AssistantService{
		completer:    completer,
		builder:      builder,
		interactions: interactions,
		temperature:  temperature,
		logger:       logger,
	}
}

// Query answers a question about the caller's CRM data. navigateTo is always
// null or an allow-listed route.
func (s *AssistantService) Query(ctx context.Context, req *domain.AssistantQueryRequest) (*domain.AssistantQueryResponse, error) {
	prompt, err := validatePrompt(req.Prompt)
	if err != nil {
		return nil, err
	}
	if s.completer == nil {
		return nil, assistant.ErrNotConfigured
	}

	start := time.Now()
	crm := s.builder.Build(ctx)
	system, user, err := assistant.QueryPrompt(prompt, crm)
	if err != nil {
		return nil, err
	}

	raw, err := s.complete(ctx, system, user)
	if err != nil {
		s.record(ctx, AssistantRouteQuery, prompt, outcomeOf(err), nil, crm.Unavailable, start)
		return nil, err
	}

	resp, parsed := assistant.ParseQueryResponse(raw)
	if resp.NavigateTo == nil {
		resp.NavigateTo = assistant.InferRoute(prompt)
	}
	s.record(ctx, AssistantRouteQuery, prompt, parsedOutcome(parsed), resp.NavigateTo, crm.Unavailable, start)
	return &resp, nil
}

// ContractTerms drafts new contract terms or improves the given ones
func (s *AssistantService) ContractTerms(ctx context.Context, req *domain.ContractTermsRequest) (*domain.ContractTermsResponse, error) {
	switch req.Mode {
	case domain.ContractTermsDraft, domain.ContractTermsImprove:
	default:
		return nil, fmt.Errorf("%w: mode must be draft or improve", ErrInvalidInput)
	}
	if req.Contract == nil {
		return nil, fmt.Errorf("%w: contract is required", ErrInvalidInput)
	}
	if req.Mode == domain.ContractTermsImprove && strings.TrimSpace(req.CurrentTerms) == "" {
		return nil, fmt.Errorf("%w: currentTerms is required to improve terms", ErrInvalidInput)
	}
	if utf8.RuneCountInString(req.Instruction) > MaxPromptLength {
		return nil, fmt.Errorf("%w: instruction is too long", ErrInvalidInput)
	}
	if s.completer == nil {
		return nil, assistant.ErrNotConfigured
	}

	start := time.Now()
	system, user, err := assistant.ContractTermsPrompt(*req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	raw, err := s.complete(ctx, system, user)
	if err != nil {
		s.record(ctx, AssistantRouteContractTerms, req.Instruction+req.CurrentTerms, outcomeOf(err), nil, nil, start)
		return nil, err
	}

	resp, parsed := assistant.ParseContractTerms(raw)
	s.record(ctx, AssistantRouteContractTerms, req.Instruction+req.CurrentTerms, parsedOutcome(parsed), nil, nil, start)
	return &resp, nil
}

// ClientDraft turns a free-text company description into client form fields
func (s *AssistantService) ClientDraft(ctx context.Context, req *domain.ClientDraftRequest) (*domain.ClientDraftResponse, error) {
	prompt, err := validatePrompt(req.Prompt)
	if err != nil {
		return nil, err
	}
	if s.completer == nil {
		return nil, assistant.ErrNotConfigured
	}

	start := time.Now()
	system, user := assistant.ClientDraftPrompt(prompt)
	raw, err := s.complete(ctx, system, user)
	if err != nil {
		s.record(ctx, AssistantRouteClientDraft, prompt, outcomeOf(err), nil, nil, start)
		return nil, err
	}

	resp, parsed := assistant.ParseClientDraft(raw)
	s.record(ctx, AssistantRouteClientDraft, prompt, parsedOutcome(parsed), nil, nil, start)
	return &resp, nil
}

// Context returns the aggregated CRM context the assistant would see
func (s *AssistantService) Context(ctx context.Context) *assistant.Context {
	return s.builder.Build(ctx)
}

// Usage aggregates recorded assistant calls since the given time. Admin only.
func (s *AssistantService) Usage(ctx context.Context, since time.Time) ([]repository.AssistantUsage, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if s.interactions == nil {
		return []repository.AssistantUsage{}, nil
	}
	usage, err := s.interactions.Usage(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate assistant usage: %w", err)
	}
	return usage, nil
}

// Interactions lists recorded assistant calls. Admin only.
func (s *AssistantService) Interactions(ctx context.Context, filter *repository.AssistantInteractionFilter, page, pageSize int) (*domain.Page[domain.AssistantInteraction], error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if s.interactions == nil {
		return &domain.Page[domain.AssistantInteraction]{Items: []domain.AssistantInteraction{}}, nil
	}
	result, err := s.interactions.List(ctx, filter, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list assistant interactions: %w", err)
	}
	return result, nil
}

func (s *AssistantService) complete(ctx context.Context, system, user string) (string, error) {
	raw, err := s.completer.Complete(ctx, assistant.CompletionRequest{
		System:      system,
		User:        user,
		Temperature: s.temperature,
		JSON:        true,
	})
	if err != nil {
		s.logger.Warn("assistant completion failed",
			zap.String("provider", s.completer.Provider()),
			zap.String("model", s.completer.Model()),
			zap.Error(err))
		return "", err
	}
	return raw, nil
}

// record stores an interaction row. Prompts themselves are not stored.
func (s *AssistantService) record(ctx context.Context, route, prompt string, outcome domain.AssistantOutcome, navigateTo *string, unavailable []string, start time.Time) {
	if s.interactions == nil {
		return
	}
	interaction := &domain.AssistantInteraction{
		Route:       route,
		Provider:    s.completer.Provider(),
		Model:       s.completer.Model(),
		PromptChars: utf8.RuneCountInString(prompt),
		Outcome:     outcome,
		Unavailable: strings.Join(unavailable, ","),
		LatencyMs:   time.Since(start).Milliseconds(),
	}
	if user, err := requireUser(ctx); err == nil {
		interaction.UserID = user.UserID.String()
	}
	if navigateTo != nil {
		interaction.NavigateTo = *navigateTo
	}
	if err := s.interactions.Create(context.WithoutCancel(ctx), interaction); err != nil {
		s.logger.Warn("failed to record assistant interaction", zap.String("route", route), zap.Error(err))
	}
}

func validatePrompt(prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("%w: prompt is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(prompt) > MaxPromptLength {
		return "", fmt.Errorf("%w: prompt must be at most %d characters", ErrInvalidInput, MaxPromptLength)
	}
	return prompt, nil
}

func outcomeOf(err error) domain.AssistantOutcome {
	if errors.Is(err, assistant.ErrUnavailable) {
		return domain.AssistantOutcomeUnavailable
	}
	return domain.AssistantOutcomeUpstream
}

func parsedOutcome(parsed bool) domain.AssistantOutcome {
	if parsed {
		return domain.AssistantOutcomeOK
	}
	return domain.AssistantOutcomeFallback
}
