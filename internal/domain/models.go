package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CRM entities are owned by the backend; these structs mirror its JSON contract.

// Opportunity represents a sales opportunity in the pipeline
type Opportunity struct {
	ID                uuid.UUID         `json:"id"`
	Title             string            `json:"title"`
	ClientID          *uuid.UUID        `json:"clientId,omitempty"`
	ClientName        string            `json:"clientName,omitempty"`
	ContactID         *uuid.UUID        `json:"contactId,omitempty"`
	ContactName       string            `json:"contactName,omitempty"`
	OwnerID           *uuid.UUID        `json:"ownerId,omitempty"`
	OwnerName         string            `json:"ownerName,omitempty"`
	EstimatedValue    float64           `json:"estimatedValue"`
	Currency          string            `json:"currency,omitempty"`
	Probability       int               `json:"probability"`
	Stage             Stage             `json:"stage"`
	Source            OpportunitySource `json:"source,omitempty"`
	ExpectedCloseDate *Timestamp        `json:"expectedCloseDate,omitempty"`
	ActualCloseDate   *Timestamp        `json:"actualCloseDate,omitempty"`
	Description       string            `json:"description,omitempty"`
	LossReason        string            `json:"lossReason,omitempty"`
	IsActive          bool              `json:"isActive"`
	CreatedAt         *Timestamp        `json:"createdAt,omitempty"`
	UpdatedAt         *Timestamp        `json:"updatedAt,omitempty"`
}

// WeightedValue is the estimated value scaled by the win probability
func (o *Opportunity) WeightedValue() float64 {
	return o.EstimatedValue * float64(o.Probability) / 100
}

// StageHistoryEntry is a stage change recorded by the backend
type StageHistoryEntry struct {
	ID            uuid.UUID  `json:"id"`
	OpportunityID uuid.UUID  `json:"opportunityId"`
	FromStage     *Stage     `json:"fromStage,omitempty"`
	ToStage       Stage      `json:"toStage"`
	ChangedByID   *uuid.UUID `json:"changedById,omitempty"`
	ChangedByName string     `json:"changedByName,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	LossReason    string     `json:"lossReason,omitempty"`
	ChangedAt     *Timestamp `json:"changedAt,omitempty"`
}

// Client is a customer organisation
type Client struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	ClientType     ClientType `json:"clientType"`
	Industry       string     `json:"industry,omitempty"`
	CompanySize    string     `json:"companySize,omitempty"`
	Website        string     `json:"website,omitempty"`
	BillingAddress string     `json:"billingAddress,omitempty"`
	TaxNumber      string     `json:"taxNumber,omitempty"`
	Email          string     `json:"email,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	IsActive       bool       `json:"isActive"`
	CreatedAt      *Timestamp `json:"createdAt,omitempty"`
	UpdatedAt      *Timestamp `json:"updatedAt,omitempty"`
}

// Contact is a person at a client
type Contact struct {
	ID         uuid.UUID  `json:"id"`
	ClientID   *uuid.UUID `json:"clientId,omitempty"`
	ClientName string     `json:"clientName,omitempty"`
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	Email      string     `json:"email,omitempty"`
	Phone      string     `json:"phone,omitempty"`
	JobTitle   string     `json:"jobTitle,omitempty"`
	IsPrimary  bool       `json:"isPrimary"`
	IsActive   bool       `json:"isActive"`
	CreatedAt  *Timestamp `json:"createdAt,omitempty"`
	UpdatedAt  *Timestamp `json:"updatedAt,omitempty"`
}

// FullName returns the contact's full name
func (c *Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// User is a CRM user account
type User struct {
	ID        uuid.UUID  `json:"id"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Email     string     `json:"email"`
	Role      UserRole   `json:"role"`
	IsActive  bool       `json:"isActive"`
	CreatedAt *Timestamp `json:"createdAt,omitempty"`
	UpdatedAt *Timestamp `json:"updatedAt,omitempty"`
}

// FullName returns the user's full name
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Proposal is a priced offer made against an opportunity
type Proposal struct {
	ID               uuid.UUID      `json:"id"`
	Title            string         `json:"title"`
	OpportunityID    *uuid.UUID     `json:"opportunityId,omitempty"`
	OpportunityTitle string         `json:"opportunityTitle,omitempty"`
	ClientID         *uuid.UUID     `json:"clientId,omitempty"`
	ClientName       string         `json:"clientName,omitempty"`
	TotalAmount      float64        `json:"totalAmount"`
	Currency         string         `json:"currency,omitempty"`
	Status           ProposalStatus `json:"status"`
	ValidUntil       *Timestamp     `json:"validUntil,omitempty"`
	SubmittedAt      *Timestamp     `json:"submittedAt,omitempty"`
	ApprovedAt       *Timestamp     `json:"approvedAt,omitempty"`
	RejectionReason  string         `json:"rejectionReason,omitempty"`
	Notes            string         `json:"notes,omitempty"`
	CreatedByID      *uuid.UUID     `json:"createdById,omitempty"`
	CreatedAt        *Timestamp     `json:"createdAt,omitempty"`
	UpdatedAt        *Timestamp     `json:"updatedAt,omitempty"`
}

// Contract is a signed agreement with a client
type Contract struct {
	ID              uuid.UUID      `json:"id"`
	Title           string         `json:"title"`
	ContractNumber  string         `json:"contractNumber,omitempty"`
	ClientID        *uuid.UUID     `json:"clientId,omitempty"`
	ClientName      string         `json:"clientName,omitempty"`
	OpportunityID   *uuid.UUID     `json:"opportunityId,omitempty"`
	ProposalID      *uuid.UUID     `json:"proposalId,omitempty"`
	TotalValue      float64        `json:"totalValue"`
	Currency        string         `json:"currency,omitempty"`
	StartDate       *Timestamp     `json:"startDate,omitempty"`
	EndDate         *Timestamp     `json:"endDate,omitempty"`
	Status          ContractStatus `json:"status"`
	Terms           string         `json:"terms,omitempty"`
	DaysUntilExpiry *int           `json:"daysUntilExpiry,omitempty"`
	CreatedAt       *Timestamp     `json:"createdAt,omitempty"`
	UpdatedAt       *Timestamp     `json:"updatedAt,omitempty"`
}

// Activity is a call, meeting or task attached to another entity
type Activity struct {
	ID             uuid.UUID      `json:"id"`
	Subject        string         `json:"subject"`
	Description    string         `json:"description,omitempty"`
	Type           ActivityType   `json:"type"`
	Status         ActivityStatus `json:"status"`
	Priority       Priority       `json:"priority"`
	DueDate        *Timestamp     `json:"dueDate,omitempty"`
	CompletedAt    *Timestamp     `json:"completedAt,omitempty"`
	Outcome        string         `json:"outcome,omitempty"`
	AssignedToID   *uuid.UUID     `json:"assignedToId,omitempty"`
	AssignedToName string         `json:"assignedToName,omitempty"`
	RelatedToType  RelatedToType  `json:"relatedToType,omitempty"`
	RelatedToID    *uuid.UUID     `json:"relatedToId,omitempty"`
	CreatedAt      *Timestamp     `json:"createdAt,omitempty"`
	UpdatedAt      *Timestamp     `json:"updatedAt,omitempty"`
}

// IsAssignedTo reports whether the activity belongs to the given user
func (a *Activity) IsAssignedTo(userID uuid.UUID) bool {
	return a.AssignedToID != nil && *a.AssignedToID == userID
}

// PricingRequest asks the pricing team to cost an opportunity
type PricingRequest struct {
	ID              uuid.UUID            `json:"id"`
	Title           string               `json:"title"`
	Description     string               `json:"description,omitempty"`
	OpportunityID   *uuid.UUID           `json:"opportunityId,omitempty"`
	ClientID        *uuid.UUID           `json:"clientId,omitempty"`
	RequestedByID   *uuid.UUID           `json:"requestedById,omitempty"`
	RequestedByName string               `json:"requestedByName,omitempty"`
	AssignedToID    *uuid.UUID           `json:"assignedToId,omitempty"`
	AssignedToName  string               `json:"assignedToName,omitempty"`
	Status          PricingRequestStatus `json:"status"`
	Priority        Priority             `json:"priority"`
	RequiredBy      *Timestamp           `json:"requiredBy,omitempty"`
	CompletedAt     *Timestamp           `json:"completedAt,omitempty"`
	CreatedAt       *Timestamp           `json:"createdAt,omitempty"`
	UpdatedAt       *Timestamp           `json:"updatedAt,omitempty"`
}

// StageMetrics aggregates the opportunities in one stage
type StageMetrics struct {
	Stage         Stage   `json:"stage"`
	Name          string  `json:"name"`
	Count         int     `json:"count"`
	TotalValue    float64 `json:"totalValue"`
	WeightedValue float64 `json:"weightedValue"`
}

// PipelineMetrics is derived from a set of opportunities and never persisted by the backend
type PipelineMetrics struct {
	Stages                []StageMetrics `json:"stages"`
	TotalPipelineValue    float64        `json:"totalPipelineValue"`
	WeightedPipelineValue float64        `json:"weightedPipelineValue"`
	TotalOpportunities    int            `json:"totalOpportunities"`
	ActiveOpportunities   int            `json:"activeOpportunities"`
	WonCount              int            `json:"wonCount"`
	LostCount             int            `json:"lostCount"`
	WinRate               int            `json:"winRate"`
	AverageDealSize       float64        `json:"averageDealSize"`
}

// ByStage returns the bucket for a stage
func (m *PipelineMetrics) ByStage(stage Stage) StageMetrics {
	for _, s := range m.Stages {
		if s.Stage == stage {
			return s
		}
	}
	return StageMetrics{Stage: stage, Name: stage.String()}
}

// Local persistence. These tables live in this service's own database.

// AuditAction represents the type of audit action
type AuditAction string

const (
	AuditActionCreate  AuditAction = "create"
	AuditActionUpdate  AuditAction = "update"
	AuditActionDelete  AuditAction = "delete"
	AuditActionLogin   AuditAction = "login"
	AuditActionLogout  AuditAction = "logout"
	AuditActionInvite  AuditAction = "invite"
	AuditActionExport  AuditAction = "export"
	AuditActionAPICall AuditAction = "api_call"
)

// AuditLog is an append-only record of a mutating call made through this service
type AuditLog struct {
	ID          uuid.UUID   `gorm:"type:uuid;primary_key" json:"id"`
	UserID      string      `gorm:"type:varchar(100);index;column:user_id" json:"userId"`
	UserEmail   string      `gorm:"type:varchar(255);column:user_email" json:"userEmail,omitempty"`
	UserName    string      `gorm:"type:varchar(200);column:user_name" json:"userName,omitempty"`
	Action      AuditAction `gorm:"type:varchar(30);not null;index" json:"action"`
	EntityType  string      `gorm:"type:varchar(50);not null;index;column:entity_type" json:"entityType"`
	EntityID    *uuid.UUID  `gorm:"type:uuid;index;column:entity_id" json:"entityId,omitempty"`
	NewValues   string      `gorm:"type:text;column:new_values" json:"newValues,omitempty"`
	StatusCode  int         `gorm:"column:status_code" json:"statusCode"`
	IPAddress   string      `gorm:"type:varchar(64);column:ip_address" json:"ipAddress,omitempty"`
	UserAgent   string      `gorm:"type:text;column:user_agent" json:"userAgent,omitempty"`
	RequestID   string      `gorm:"type:varchar(100);column:request_id" json:"requestId,omitempty"`
	PerformedAt time.Time   `gorm:"not null;index;column:performed_at" json:"performedAt"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.PerformedAt.IsZero() {
		a.PerformedAt = time.Now().UTC()
	}
	return nil
}

// SnapshotTrigger records what caused a pipeline snapshot
type SnapshotTrigger string

const (
	SnapshotTriggerScheduled SnapshotTrigger = "scheduled"
	SnapshotTriggerManual    SnapshotTrigger = "manual"
)

// PipelineSnapshot is a point-in-time copy of the pipeline metrics
type PipelineSnapshot struct {
	ID                    uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	CapturedAt            time.Time       `gorm:"not null;index;column:captured_at" json:"capturedAt"`
	Trigger               SnapshotTrigger `gorm:"type:varchar(20);not null" json:"trigger"`
	CreatedBy             string          `gorm:"type:varchar(255);column:created_by" json:"createdBy,omitempty"`
	TotalOpportunities    int             `gorm:"not null;column:total_opportunities" json:"totalOpportunities"`
	ActiveOpportunities   int             `gorm:"not null;column:active_opportunities" json:"activeOpportunities"`
	TotalPipelineValue    float64         `gorm:"type:decimal(18,2);column:total_pipeline_value" json:"totalPipelineValue"`
	WeightedPipelineValue float64         `gorm:"type:decimal(18,2);column:weighted_pipeline_value" json:"weightedPipelineValue"`
	WonCount              int             `gorm:"column:won_count" json:"wonCount"`
	LostCount             int             `gorm:"column:lost_count" json:"lostCount"`
	WinRate               int             `gorm:"column:win_rate" json:"winRate"`
	AverageDealSize       float64         `gorm:"type:decimal(18,2);column:average_deal_size" json:"averageDealSize"`
	StageBreakdown        string          `gorm:"type:text;column:stage_breakdown" json:"-"`
	ReportPath            string          `gorm:"type:varchar(500);column:report_path" json:"reportPath,omitempty"`
	ReportSize            int64           `gorm:"column:report_size" json:"reportSize,omitempty"`
}

func (s *PipelineSnapshot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CapturedAt.IsZero() {
		s.CapturedAt = time.Now().UTC()
	}
	return nil
}

// AssistantOutcome classifies how an assistant call ended
type AssistantOutcome string

const (
	AssistantOutcomeOK          AssistantOutcome = "ok"
	AssistantOutcomeFallback    AssistantOutcome = "fallback"
	AssistantOutcomeUpstream    AssistantOutcome = "upstream_error"
	AssistantOutcomeUnavailable AssistantOutcome = "unavailable"
)

// AssistantInteraction records one assistant call. Prompts are not stored.
type AssistantInteraction struct {
	ID          uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	Route       string           `gorm:"type:varchar(40);not null;index" json:"route"`
	UserID      string           `gorm:"type:varchar(100);index;column:user_id" json:"userId"`
	Provider    string           `gorm:"type:varchar(20)" json:"provider"`
	Model       string           `gorm:"type:varchar(100)" json:"model"`
	PromptChars int              `gorm:"column:prompt_chars" json:"promptChars"`
	Outcome     AssistantOutcome `gorm:"type:varchar(20);not null" json:"outcome"`
	NavigateTo  string           `gorm:"type:varchar(50);column:navigate_to" json:"navigateTo,omitempty"`
	Unavailable string           `gorm:"type:text" json:"unavailable,omitempty"`
	LatencyMs   int64            `gorm:"column:latency_ms" json:"latencyMs"`
	CreatedAt   time.Time        `gorm:"not null;index" json:"createdAt"`
}

func (a *AssistantInteraction) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return nil
}
