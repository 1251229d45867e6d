package domain

import (
	"github.com/google/uuid"
)

// Request bodies accepted by the /api/v1 routes. They are forwarded to the
// backend unchanged after validation, so JSON names follow the backend contract.

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResult struct {
	Token     string     `json:"token"`
	ExpiresAt *Timestamp `json:"expiresAt,omitempty"`
	User      *User      `json:"user,omitempty"`
}

type CreateOpportunityRequest struct {
	Title             string            `json:"title" validate:"required,max=200"`
	ClientID          *uuid.UUID        `json:"clientId" validate:"required"`
	ContactID         *uuid.UUID        `json:"contactId,omitempty"`
	OwnerID           *uuid.UUID        `json:"ownerId,omitempty"`
	EstimatedValue    float64           `json:"estimatedValue" validate:"gte=0"`
	Currency          string            `json:"currency,omitempty" validate:"omitempty,len=3"`
	Probability       int               `json:"probability" validate:"gte=0,lte=100"`
	Stage             Stage             `json:"stage,omitempty" validate:"omitempty,min=1,max=6"`
	LossReason        string            `json:"lossReason,omitempty" validate:"max=1000"`
	Source            OpportunitySource `json:"source,omitempty"`
	ExpectedCloseDate *Timestamp        `json:"expectedCloseDate,omitempty"`
	Description       string            `json:"description,omitempty" validate:"max=4000"`
}

type UpdateOpportunityRequest struct {
	Title             string            `json:"title" validate:"required,max=200"`
	ClientID          *uuid.UUID        `json:"clientId,omitempty"`
	ContactID         *uuid.UUID        `json:"contactId,omitempty"`
	OwnerID           *uuid.UUID        `json:"ownerId,omitempty"`
	EstimatedValue    float64           `json:"estimatedValue" validate:"gte=0"`
	Currency          string            `json:"currency,omitempty" validate:"omitempty,len=3"`
	Probability       int               `json:"probability" validate:"gte=0,lte=100"`
	Source            OpportunitySource `json:"source,omitempty"`
	ExpectedCloseDate *Timestamp        `json:"expectedCloseDate,omitempty"`
	Description       string            `json:"description,omitempty" validate:"max=4000"`
	IsActive          *bool             `json:"isActive,omitempty"`
}

// UpdateStageRequest moves an opportunity. LossReason is required for ClosedLost;
// Notes is optional and accepted for ClosedWon.
type UpdateStageRequest struct {
	Stage      Stage  `json:"stage" validate:"required"`
	LossReason string `json:"lossReason,omitempty" validate:"max=1000"`
	Notes      string `json:"notes,omitempty" validate:"max=2000"`
}

type AssignRequest struct {
	UserID uuid.UUID `json:"userId" validate:"required"`
}

type CreateClientRequest struct {
	Name           string     `json:"name" validate:"required,max=200"`
	ClientType     ClientType `json:"clientType" validate:"required,min=1,max=3"`
	Industry       string     `json:"industry,omitempty" validate:"max=100"`
	CompanySize    string     `json:"companySize,omitempty" validate:"max=50"`
	Website        string     `json:"website,omitempty" validate:"omitempty,url"`
	BillingAddress string     `json:"billingAddress,omitempty" validate:"max=500"`
	TaxNumber      string     `json:"taxNumber,omitempty" validate:"max=50"`
	Email          string     `json:"email,omitempty" validate:"omitempty,email"`
	Phone          string     `json:"phone,omitempty" validate:"max=50"`
}

type UpdateClientRequest struct {
	CreateClientRequest
	IsActive *bool `json:"isActive,omitempty"`
}

type CreateContactRequest struct {
	ClientID  *uuid.UUID `json:"clientId" validate:"required"`
	FirstName string     `json:"firstName" validate:"required,max=100"`
	LastName  string     `json:"lastName" validate:"required,max=100"`
	Email     string     `json:"email,omitempty" validate:"omitempty,email"`
	Phone     string     `json:"phone,omitempty" validate:"max=50"`
	JobTitle  string     `json:"jobTitle,omitempty" validate:"max=100"`
	IsPrimary bool       `json:"isPrimary"`
}

type UpdateContactRequest struct {
	CreateContactRequest
	IsActive *bool `json:"isActive,omitempty"`
}

type CreateProposalRequest struct {
	Title         string     `json:"title" validate:"required,max=200"`
	OpportunityID *uuid.UUID `json:"opportunityId" validate:"required"`
	ClientID      *uuid.UUID `json:"clientId,omitempty"`
	TotalAmount   float64    `json:"totalAmount" validate:"gte=0"`
	Currency      string     `json:"currency,omitempty" validate:"omitempty,len=3"`
	ValidUntil    *Timestamp `json:"validUntil,omitempty"`
	Notes         string     `json:"notes,omitempty" validate:"max=4000"`
}

type UpdateProposalRequest = CreateProposalRequest

type RejectProposalRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

type CreateContractRequest struct {
	Title          string     `json:"title" validate:"required,max=200"`
	ContractNumber string     `json:"contractNumber,omitempty" validate:"max=50"`
	ClientID       *uuid.UUID `json:"clientId" validate:"required"`
	OpportunityID  *uuid.UUID `json:"opportunityId,omitempty"`
	ProposalID     *uuid.UUID `json:"proposalId,omitempty"`
	TotalValue     float64    `json:"totalValue" validate:"gte=0"`
	Currency       string     `json:"currency,omitempty" validate:"omitempty,len=3"`
	StartDate      *Timestamp `json:"startDate,omitempty"`
	EndDate        *Timestamp `json:"endDate,omitempty"`
	Terms          string     `json:"terms,omitempty"`
}

type UpdateContractRequest = CreateContractRequest

type CancelContractRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=1000"`
}

type CreateActivityRequest struct {
	Subject       string        `json:"subject" validate:"required,max=200"`
	Description   string        `json:"description,omitempty" validate:"max=4000"`
	Type          ActivityType  `json:"type" validate:"required,min=1,max=6"`
	Priority      Priority      `json:"priority,omitempty" validate:"omitempty,min=1,max=4"`
	DueDate       *Timestamp    `json:"dueDate,omitempty"`
	AssignedToID  *uuid.UUID    `json:"assignedToId,omitempty"`
	RelatedToType RelatedToType `json:"relatedToType,omitempty" validate:"omitempty,min=1,max=5"`
	RelatedToID   *uuid.UUID    `json:"relatedToId,omitempty"`
}

type UpdateActivityRequest = CreateActivityRequest

type CompleteActivityRequest struct {
	Outcome string `json:"outcome,omitempty" validate:"max=2000"`
}

type CreatePricingRequestRequest struct {
	Title         string     `json:"title" validate:"required,max=200"`
	Description   string     `json:"description,omitempty" validate:"max=4000"`
	OpportunityID *uuid.UUID `json:"opportunityId,omitempty"`
	ClientID      *uuid.UUID `json:"clientId,omitempty"`
	Priority      Priority   `json:"priority,omitempty" validate:"omitempty,min=1,max=4"`
	RequiredBy    *Timestamp `json:"requiredBy,omitempty"`
}

type UpdatePricingRequestRequest = CreatePricingRequestRequest

type CompletePricingRequestRequest struct {
	Notes string `json:"notes,omitempty" validate:"max=4000"`
}

type InviteUserRequest struct {
	Email     string   `json:"email" validate:"required,email"`
	FirstName string   `json:"firstName" validate:"required,max=100"`
	LastName  string   `json:"lastName,omitempty" validate:"max=100"`
	Role      UserRole `json:"role" validate:"required"`
}

type UpdateUserRequest struct {
	FirstName string   `json:"firstName" validate:"required,max=100"`
	LastName  string   `json:"lastName,omitempty" validate:"max=100"`
	Role      UserRole `json:"role" validate:"required"`
	IsActive  *bool    `json:"isActive,omitempty"`
}

type InviteUserResponse struct {
	User     *User `json:"user"`
	Notified bool  `json:"notified"`
}

// Assistant routes

type AssistantQueryRequest struct {
	Prompt string `json:"prompt"`
}

type AssistantQueryResponse struct {
	Reply      string  `json:"reply"`
	NavigateTo *string `json:"navigateTo"`
}

type ContractTermsMode string

const (
	ContractTermsDraft   ContractTermsMode = "draft"
	ContractTermsImprove ContractTermsMode = "improve"
)

type ContractTermsRequest struct {
	Mode         ContractTermsMode `json:"mode"`
	Instruction  string            `json:"instruction,omitempty"`
	CurrentTerms string            `json:"currentTerms,omitempty"`
	Contract     map[string]any    `json:"contract"`
}

type ContractTermsResponse struct {
	Terms string   `json:"terms"`
	Notes []string `json:"notes"`
}

type ClientDraftRequest struct {
	Prompt string `json:"prompt"`
}

type ClientDraftFields struct {
	Name           string     `json:"name"`
	ClientType     ClientType `json:"clientType"`
	Industry       string     `json:"industry"`
	CompanySize    string     `json:"companySize"`
	Website        string     `json:"website"`
	BillingAddress string     `json:"billingAddress"`
	TaxNumber      string     `json:"taxNumber"`
}

type ClientDraftResponse struct {
	Fields ClientDraftFields `json:"fields"`
	Notes  []string          `json:"notes"`
}

// PipelineMetricsResponse labels where the numbers came from
type PipelineMetricsResponse struct {
	Source    string          `json:"source"`
	Sampled   int             `json:"sampled"`
	Truncated bool            `json:"truncated"`
	Metrics   PipelineMetrics `json:"metrics"`
}

type PipelineSnapshotDTO struct {
	PipelineSnapshot
	Stages []StageMetrics `json:"stages"`
}

type AdvanceResult struct {
	OpportunityID uuid.UUID `json:"opportunityId"`
	Title         string    `json:"title"`
	From          Stage     `json:"from"`
	To            Stage     `json:"to"`
	Error         string    `json:"error,omitempty"`
}
