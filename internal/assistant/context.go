package assistant

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/salesflow/salesflow-api/internal/backend"
	"github.com/salesflow/salesflow-api/internal/config"
	"github.com/salesflow/salesflow-api/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Fetcher reads raw backend payloads. *backend.Client satisfies it.
type Fetcher interface {
	FetchRawPage(ctx context.Context, path string, pageNumber, pageSize int) (*domain.Page[map[string]any], error)
	FetchRaw(ctx context.Context, path string) (any, error)
}

// Limits bound how much data a single context build pulls and keeps
type Limits struct {
	PageSize     int
	MaxPages     int
	MaxItems     int
	DueSoonLimit int
	ExpiringDays int
	FetchTimeout time.Duration
}

// DefaultLimits matches the configuration defaults
func DefaultLimits() Limits {
	return Limits{
		PageSize:     200,
		MaxPages:     3,
		MaxItems:     80,
		DueSoonLimit: 10,
		ExpiringDays: 30,
		FetchTimeout: 20 * time.Second,
	}
}

// LimitsFromConfig converts assistant configuration, keeping defaults for unset values
func LimitsFromConfig(cfg *config.AssistantConfig) Limits {
	l := DefaultLimits()
	if cfg == nil {
		return l
	}
	if cfg.PageSize > 0 {
		l.PageSize = cfg.PageSize
	}
	if cfg.MaxPageFetch > 0 {
		l.MaxPages = cfg.MaxPageFetch
	}
	if cfg.MaxContextItems > 0 {
		l.MaxItems = cfg.MaxContextItems
	}
	if cfg.DueSoonLimit > 0 {
		l.DueSoonLimit = cfg.DueSoonLimit
	}
	if cfg.ExpiringDays > 0 {
		l.ExpiringDays = cfg.ExpiringDays
	}
	if d := cfg.FetchTimeoutDuration(); d > 0 {
		l.FetchTimeout = d
	}
	return l
}

// Collections holds the normalized entity lists
type Collections struct {
	Users           []UserRecord           `json:"users"`
	Clients         []ClientRecord         `json:"clients"`
	Contacts        []ContactRecord        `json:"contacts"`
	Opportunities   []OpportunityRecord    `json:"opportunities"`
	Proposals       []ProposalRecord       `json:"proposals"`
	Contracts       []ContractRecord       `json:"contracts"`
	Activities      []ActivityRecord       `json:"activities"`
	PricingRequests []PricingRequestRecord `json:"pricingRequests"`
}

// Context is the snapshot of CRM data handed to the model
type Context struct {
	GeneratedAt time.Time `json:"generatedAt"`
	CurrentUser any       `json:"currentUser"`
	Dashboard   any       `json:"dashboard"`
	Pipeline    any       `json:"pipeline"`
	Collections
	Summary Summary `json:"summary"`
	// Unavailable lists the sources that could not be read
	Unavailable []string `json:"unavailable"`
	// Truncated lists the collections cut down to the item cap
	Truncated []string `json:"truncated,omitempty"`
}

// Source names as they appear in Context.Unavailable
const (
	SourceUsers           = "users"
	SourceClients         = "clients"
	SourceContacts        = "contacts"
	SourceOpportunities   = "opportunities"
	SourceProposals       = "proposals"
	SourceContracts       = "contracts"
	SourceActivities      = "activities"
	SourcePricingRequests = "pricingRequests"
	SourceCurrentUser     = "currentUser"
	SourceDashboard       = "dashboard"
	SourcePipeline        = "pipeline"
)

var collectionSources = []struct {
	name string
	path string
}{
	{SourceUsers, backend.PathUsers},
	{SourceClients, backend.PathClients},
	{SourceContacts, backend.PathContacts},
	{SourceOpportunities, backend.PathOpportunities},
	{SourceProposals, backend.PathProposals},
	{SourceContracts, backend.PathContracts},
	{SourceActivities, backend.PathActivities},
	{SourcePricingRequests, backend.PathPricingRequests},
}

var objectSources = []struct {
	name string
	path string
}{
	{SourceCurrentUser, backend.PathAuth + "/me"},
	{SourceDashboard, backend.PathDashboard},
	{SourcePipeline, backend.PathOpportunities + "/pipeline"},
}

// Builder assembles a Context from the backend
type Builder struct {
	fetcher Fetcher
	limits  Limits
	logger  *zap.Logger
	now     func() time.Time
}

// NewBuilder creates a context builder
func NewBuilder(fetcher Fetcher, limits Limits, logger *zap.Logger) *Builder {
	return &Builder{
		fetcher: fetcher,
		limits:  limits,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock returns a copy of the builder that uses now as the current time
func (b *Builder) WithClock(now func() time.Time) *Builder {
	cp := *b
	cp.now = now
	return &cp
}

// Build fetches every source concurrently. A failing source never fails the
// build: it is reported in Unavailable and contributes an empty collection or null.
func (b *Builder) Build(ctx context.Context) *Context {
	start := time.Now()

	rawCollections := make([][]map[string]any, len(collectionSources))
	rawObjects := make([]any, len(objectSources))

	var mu sync.Mutex
	var unavailable []string
	markUnavailable := func(name string, err error) {
		b.logger.Warn("assistant context source unavailable",
			zap.String("source", name),
			zap.Error(err))
		mu.Lock()
		unavailable = append(unavailable, name)
		mu.Unlock()
	}

	eg, egCtx := errgroup.WithContext(ctx)

	for i, src := range collectionSources {
		eg.Go(func() error {
			items, err := b.fetchCollection(egCtx, src.path)
			if err != nil {
				markUnavailable(src.name, err)
				return nil
			}
			rawCollections[i] = items
			return nil
		})
	}

	for i, src := range objectSources {
		eg.Go(func() error {
			fetchCtx, cancel := b.sourceContext(egCtx)
			defer cancel()
			obj, err := b.fetcher.FetchRaw(fetchCtx, src.path)
			if err != nil {
				markUnavailable(src.name, err)
				return nil
			}
			rawObjects[i] = obj
			return nil
		})
	}

	_ = eg.Wait()

	full := Collections{
		Users:           normalizeAll(rawCollections[0], normalizeUser),
		Clients:         normalizeAll(rawCollections[1], normalizeClient),
		Contacts:        normalizeAll(rawCollections[2], normalizeContact),
		Opportunities:   normalizeAll(rawCollections[3], normalizeOpportunity),
		Proposals:       normalizeAll(rawCollections[4], normalizeProposal),
		Contracts:       normalizeAll(rawCollections[5], normalizeContract),
		Activities:      normalizeAll(rawCollections[6], normalizeActivity),
		PricingRequests: normalizeAll(rawCollections[7], normalizePricingRequest),
	}

	now := b.now()
	result := &Context{
		GeneratedAt: now.UTC(),
		CurrentUser: rawObjects[0],
		Dashboard:   rawObjects[1],
		Pipeline:    rawObjects[2],
		Summary:     Summarize(full, now, b.limits),
		Unavailable: []string{},
	}

	var truncated []string
	result.Collections = Collections{
		Users:           truncate(full.Users, b.limits.MaxItems, SourceUsers, &truncated),
		Clients:         truncate(full.Clients, b.limits.MaxItems, SourceClients, &truncated),
		Contacts:        truncate(full.Contacts, b.limits.MaxItems, SourceContacts, &truncated),
		Opportunities:   truncate(full.Opportunities, b.limits.MaxItems, SourceOpportunities, &truncated),
		Proposals:       truncate(full.Proposals, b.limits.MaxItems, SourceProposals, &truncated),
		Contracts:       truncate(full.Contracts, b.limits.MaxItems, SourceContracts, &truncated),
		Activities:      truncate(full.Activities, b.limits.MaxItems, SourceActivities, &truncated),
		PricingRequests: truncate(full.PricingRequests, b.limits.MaxItems, SourcePricingRequests, &truncated),
	}
	result.Truncated = truncated

	if len(unavailable) > 0 {
		sort.Strings(unavailable)
		result.Unavailable = unavailable
	}

	b.logger.Debug("assistant context built",
		zap.Duration("duration", time.Since(start)),
		zap.Strings("unavailable", result.Unavailable),
		zap.Int("opportunities", len(full.Opportunities)),
		zap.Int("activities", len(full.Activities)))

	return result
}

func (b *Builder) sourceContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.limits.FetchTimeout > 0 {
		return context.WithTimeout(ctx, b.limits.FetchTimeout)
	}
	return context.WithCancel(ctx)
}

// fetchCollection reads pages in order until a short page, a page without a next
// flag, or the page cap. Any page error discards the whole collection.
func (b *Builder) fetchCollection(ctx context.Context, path string) ([]map[string]any, error) {
	ctx, cancel := b.sourceContext(ctx)
	defer cancel()

	pageSize := b.limits.PageSize
	if pageSize <= 0 {
		pageSize = DefaultLimits().PageSize
	}
	maxPages := b.limits.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	var items []map[string]any
	for pageNumber := 1; pageNumber <= maxPages; pageNumber++ {
		page, err := b.fetcher.FetchRawPage(ctx, path, pageNumber, pageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s page %d: %w", path, pageNumber, err)
		}
		items = append(items, page.Items...)
		if len(page.Items) < pageSize || !page.HasNextPage {
			break
		}
	}
	return items, nil
}

func normalizeAll[T any](items []map[string]any, fn func(map[string]any) T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, fn(item))
	}
	return out
}

func truncate[T any](items []T, limit int, name string, truncated *[]string) []T {
	if limit <= 0 || len(items) <= limit {
		return items
	}
	*truncated = append(*truncated, name)
	return items[:limit]
}
