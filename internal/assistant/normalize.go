package assistant

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/salesflow/salesflow-api/internal/domain"
)

// Flat records sent to the model. Every field is filled from whatever the backend
// returned; missing keys become zero values.

type UserRecord struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"isActive"`
}

type ClientRecord struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Industry string `json:"industry"`
	IsActive bool   `json:"isActive"`
}

type ContactRecord struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Client   string `json:"client"`
	JobTitle string `json:"jobTitle"`
}

type OpportunityRecord struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	Client            string  `json:"client"`
	Owner             string  `json:"owner"`
	Stage             string  `json:"stage"`
	EstimatedValue    float64 `json:"estimatedValue"`
	Probability       float64 `json:"probability"`
	ExpectedCloseDate string  `json:"expectedCloseDate"`

	stage domain.Stage
}

// Open reports whether the opportunity is still in the funnel
func (o OpportunityRecord) Open() bool {
	return o.stage == 0 || !o.stage.IsClosed()
}

type ProposalRecord struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Client      string  `json:"client"`
	Opportunity string  `json:"opportunity"`
	Status      string  `json:"status"`
	TotalAmount float64 `json:"totalAmount"`
	ValidUntil  string  `json:"validUntil"`
}

type ContractRecord struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Client          string  `json:"client"`
	Status          string  `json:"status"`
	TotalValue      float64 `json:"totalValue"`
	StartDate       string  `json:"startDate"`
	EndDate         string  `json:"endDate"`
	DaysUntilExpiry *int    `json:"daysUntilExpiry"`
}

type ActivityRecord struct {
	ID         string `json:"id"`
	Subject    string `json:"subject"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	Priority   string `json:"priority"`
	DueDate    string `json:"dueDate"`
	AssignedTo string `json:"assignedTo"`
	RelatedTo  string `json:"relatedTo"`

	due time.Time
}

type PricingRequestRecord struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	Priority   string `json:"priority"`
	AssignedTo string `json:"assignedTo"`
	RequiredBy string `json:"requiredBy"`
}

func normalizeUser(m map[string]any) UserRecord {
	name := str(m, "fullName", "name", "displayName")
	if name == "" {
		name = strings.TrimSpace(str(m, "firstName") + " " + str(m, "lastName"))
	}
	var role string
	if raw := str(m, "role"); raw != "" {
		role = string(domain.ParseUserRole(raw))
	}
	return UserRecord{
		ID:       str(m, "id"),
		Name:     name,
		Email:    str(m, "email"),
		Role:     role,
		IsActive: boolean(m, "isActive"),
	}
}

func normalizeClient(m map[string]any) ClientRecord {
	return ClientRecord{
		ID:       str(m, "id"),
		Name:     str(m, "name"),
		Type:     enumLabel(m, "clientType", func(n int) string { return domain.ClientType(n).String() }),
		Industry: str(m, "industry"),
		IsActive: boolean(m, "isActive"),
	}
}

func normalizeContact(m map[string]any) ContactRecord {
	name := str(m, "fullName", "name")
	if name == "" {
		name = strings.TrimSpace(str(m, "firstName") + " " + str(m, "lastName"))
	}
	return ContactRecord{
		ID:       str(m, "id"),
		Name:     name,
		Email:    str(m, "email"),
		Client:   ref(m, "clientName", "client"),
		JobTitle: str(m, "jobTitle", "position"),
	}
}

func normalizeOpportunity(m map[string]any) OpportunityRecord {
	value, _ := num(m, "estimatedValue", "value")
	probability, _ := num(m, "probability")
	rec := OpportunityRecord{
		ID:                str(m, "id"),
		Title:             str(m, "title", "name"),
		Client:            ref(m, "clientName", "client"),
		Owner:             ref(m, "ownerName", "owner"),
		Stage:             enumLabel(m, "stage", func(n int) string { return domain.Stage(n).String() }),
		EstimatedValue:    value,
		Probability:       probability,
		ExpectedCloseDate: str(m, "expectedCloseDate"),
	}
	if n, ok := num(m, "stage"); ok {
		rec.stage = domain.Stage(int(n))
	} else if s, err := domain.ParseStage(rec.Stage); err == nil {
		rec.stage = s
	}
	return rec
}

func normalizeProposal(m map[string]any) ProposalRecord {
	amount, _ := num(m, "totalAmount", "amount", "value")
	return ProposalRecord{
		ID:          str(m, "id"),
		Title:       str(m, "title", "name"),
		Client:      ref(m, "clientName", "client"),
		Opportunity: ref(m, "opportunityTitle", "opportunity"),
		Status:      enumLabel(m, "status", func(n int) string { return domain.ProposalStatus(n).String() }),
		TotalAmount: amount,
		ValidUntil:  str(m, "validUntil"),
	}
}

func normalizeContract(m map[string]any) ContractRecord {
	value, _ := num(m, "totalValue", "contractValue", "value")
	rec := ContractRecord{
		ID:         str(m, "id"),
		Title:      str(m, "title", "contractNumber"),
		Client:     ref(m, "clientName", "client"),
		Status:     enumLabel(m, "status", func(n int) string { return domain.ContractStatus(n).String() }),
		TotalValue: value,
		StartDate:  str(m, "startDate"),
		EndDate:    str(m, "endDate"),
	}
	if days, ok := num(m, "daysUntilExpiry"); ok {
		d := int(math.Round(days))
		rec.DaysUntilExpiry = &d
	}
	return rec
}

func normalizeActivity(m map[string]any) ActivityRecord {
	rec := ActivityRecord{
		ID:         str(m, "id"),
		Subject:    str(m, "subject", "title"),
		Type:       enumLabel(m, "type", func(n int) string { return domain.ActivityType(n).String() }),
		Status:     enumLabel(m, "status", func(n int) string { return domain.ActivityStatus(n).String() }),
		Priority:   enumLabel(m, "priority", func(n int) string { return domain.Priority(n).String() }),
		DueDate:    str(m, "dueDate"),
		AssignedTo: ref(m, "assignedToName", "assignedTo"),
		RelatedTo:  enumLabel(m, "relatedToType", func(n int) string { return domain.RelatedToType(n).String() }),
	}
	if t, ok := domain.ParseTimestamp(rec.DueDate); ok {
		rec.due = t
	}
	return rec
}

func normalizePricingRequest(m map[string]any) PricingRequestRecord {
	return PricingRequestRecord{
		ID:         str(m, "id"),
		Title:      str(m, "title", "name"),
		Status:     enumLabel(m, "status", func(n int) string { return domain.PricingRequestStatus(n).String() }),
		Priority:   enumLabel(m, "priority", func(n int) string { return domain.Priority(n).String() }),
		AssignedTo: ref(m, "assignedToName", "assignedTo"),
		RequiredBy: str(m, "requiredBy"),
	}
}

// str returns the first non-empty string value among keys. Numbers and booleans
// are formatted; objects and arrays are ignored.
func str(m map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := m[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(v)
		}
	}
	return ""
}

func num(m map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		switch v := m[key].(type) {
		case float64:
			return v, true
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func boolean(m map[string]any, key string) bool {
	switch v := m[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

// ref reads a display name either from a flat field or from a nested object's name
func ref(m map[string]any, flatKey, objectKey string) string {
	if s := str(m, flatKey); s != "" {
		return s
	}
	switch v := m[objectKey].(type) {
	case map[string]any:
		if s := str(v, "name", "title", "fullName"); s != "" {
			return s
		}
		return strings.TrimSpace(str(v, "firstName") + " " + str(v, "lastName"))
	case string:
		return strings.TrimSpace(v)
	}
	return ""
}

// enumLabel renders an enum sent as a number through label, or passes a string through
func enumLabel(m map[string]any, key string, label func(int) string) string {
	switch v := m[key].(type) {
	case float64:
		return label(int(v))
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.Atoi(s); err == nil {
			return label(n)
		}
		return s
	}
	return ""
}
