package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// The backend serializes enums as integers; some endpoints and older clients send
// labels instead. Both forms decode into the integer value.

func labelOf[T ~int](labels map[T]string, v T) string {
	if label, ok := labels[v]; ok {
		return label
	}
	return "Unknown"
}

func normalizeLabel(s string) string {
	s = strings.ToLower(s)
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}

func parseEnum[T ~int](value string, labels map[T]string, aliases map[string]T) (T, bool) {
	if n, err := strconv.Atoi(value); err == nil {
		v := T(n)
		_, ok := labels[v]
		return v, ok
	}
	key := normalizeLabel(value)
	for v, label := range labels {
		if normalizeLabel(label) == key {
			return v, true
		}
	}
	if v, ok := aliases[key]; ok {
		return v, true
	}
	return 0, false
}

func decodeEnum[T ~int](data []byte, labels map[T]string, aliases map[string]T, dst *T) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*dst = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*dst = 0
			return nil
		}
		v, ok := parseEnum(strings.TrimSpace(s), labels, aliases)
		if !ok {
			return fmt.Errorf("unknown enum value %q", s)
		}
		*dst = v
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*dst = T(n)
	return nil
}

// ActivityType classifies an activity
type ActivityType int

const (
	ActivityTypeCall     ActivityType = 1
	ActivityTypeMeeting  ActivityType = 2
	ActivityTypeEmail    ActivityType = 3
	ActivityTypeTask     ActivityType = 4
	ActivityTypeFollowUp ActivityType = 5
	ActivityTypeOther    ActivityType = 6
)

var activityTypeLabels = map[ActivityType]string{
	ActivityTypeCall:     "Call",
	ActivityTypeMeeting:  "Meeting",
	ActivityTypeEmail:    "Email",
	ActivityTypeTask:     "Task",
	ActivityTypeFollowUp: "FollowUp",
	ActivityTypeOther:    "Other",
}

func (t ActivityType) String() string { return labelOf(activityTypeLabels, t) }
func (t *ActivityType) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, activityTypeLabels, nil, t)
}

// ActivityStatus is the progress state of an activity
type ActivityStatus int

const (
	ActivityStatusPlanned    ActivityStatus = 1
	ActivityStatusInProgress ActivityStatus = 2
	ActivityStatusCompleted  ActivityStatus = 3
	ActivityStatusCancelled  ActivityStatus = 4
)

var activityStatusLabels = map[ActivityStatus]string{
	ActivityStatusPlanned:    "Planned",
	ActivityStatusInProgress: "InProgress",
	ActivityStatusCompleted:  "Completed",
	ActivityStatusCancelled:  "Cancelled",
}

var activityStatusAliases = map[string]ActivityStatus{
	"notstarted": ActivityStatusPlanned,
	"canceled":   ActivityStatusCancelled,
}

func (s ActivityStatus) String() string { return labelOf(activityStatusLabels, s) }
func (s *ActivityStatus) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, activityStatusLabels, activityStatusAliases, s)
}

// IsClosed reports whether the activity can no longer change
func (s ActivityStatus) IsClosed() bool {
	return s == ActivityStatusCompleted || s == ActivityStatusCancelled
}

// Priority is shared by activities and pricing requests
type Priority int

const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
	PriorityUrgent Priority = 4
)

var priorityLabels = map[Priority]string{
	PriorityLow:    "Low",
	PriorityMedium: "Medium",
	PriorityHigh:   "High",
	PriorityUrgent: "Urgent",
}

func (p Priority) String() string { return labelOf(priorityLabels, p) }
func (p *Priority) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, priorityLabels, nil, p)
}

// RelatedToType names the entity an activity is attached to
type RelatedToType int

const (
	RelatedToClient      RelatedToType = 1
	RelatedToOpportunity RelatedToType = 2
	RelatedToProposal    RelatedToType = 3
	RelatedToContract    RelatedToType = 4
	RelatedToContact     RelatedToType = 5
)

var relatedToLabels = map[RelatedToType]string{
	RelatedToClient:      "Client",
	RelatedToOpportunity: "Opportunity",
	RelatedToProposal:    "Proposal",
	RelatedToContract:    "Contract",
	RelatedToContact:     "Contact",
}

func (r RelatedToType) String() string { return labelOf(relatedToLabels, r) }
func (r RelatedToType) IsValid() bool {
	_, ok := relatedToLabels[r]
	return ok
}
func (r *RelatedToType) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, relatedToLabels, nil, r)
}

// OpportunitySource records where a lead came from
type OpportunitySource int

const (
	SourceWebsite  OpportunitySource = 1
	SourceReferral OpportunitySource = 2
	SourceColdCall OpportunitySource = 3
	SourceEvent    OpportunitySource = 4
	SourcePartner  OpportunitySource = 5
	SourceOther    OpportunitySource = 6
)

var sourceLabels = map[OpportunitySource]string{
	SourceWebsite:  "Website",
	SourceReferral: "Referral",
	SourceColdCall: "ColdCall",
	SourceEvent:    "Event",
	SourcePartner:  "Partner",
	SourceOther:    "Other",
}

func (s OpportunitySource) String() string { return labelOf(sourceLabels, s) }
func (s *OpportunitySource) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, sourceLabels, nil, s)
}

// ContractStatus is the lifecycle state of a contract
type ContractStatus int

const (
	ContractStatusDraft     ContractStatus = 1
	ContractStatusActive    ContractStatus = 2
	ContractStatusExpired   ContractStatus = 3
	ContractStatusRenewed   ContractStatus = 4
	ContractStatusCancelled ContractStatus = 5
)

var contractStatusLabels = map[ContractStatus]string{
	ContractStatusDraft:     "Draft",
	ContractStatusActive:    "Active",
	ContractStatusExpired:   "Expired",
	ContractStatusRenewed:   "Renewed",
	ContractStatusCancelled: "Cancelled",
}

func (s ContractStatus) String() string { return labelOf(contractStatusLabels, s) }
func (s *ContractStatus) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, contractStatusLabels, map[string]ContractStatus{"canceled": ContractStatusCancelled}, s)
}

// ProposalStatus is the lifecycle state of a proposal
type ProposalStatus int

const (
	ProposalStatusDraft     ProposalStatus = 1
	ProposalStatusSubmitted ProposalStatus = 2
	ProposalStatusRejected  ProposalStatus = 3
	ProposalStatusApproved  ProposalStatus = 4
	ProposalStatusExpired   ProposalStatus = 5
	ProposalStatusReview    ProposalStatus = 6
)

var proposalStatusLabels = map[ProposalStatus]string{
	ProposalStatusDraft:     "Draft",
	ProposalStatusSubmitted: "Submitted",
	ProposalStatusRejected:  "Rejected",
	ProposalStatusApproved:  "Approved",
	ProposalStatusExpired:   "Expired",
	ProposalStatusReview:    "Review",
}

func (s ProposalStatus) String() string { return labelOf(proposalStatusLabels, s) }
func (s *ProposalStatus) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, proposalStatusLabels, map[string]ProposalStatus{"underreview": ProposalStatusReview}, s)
}

// PricingRequestStatus is the lifecycle state of a pricing request
type PricingRequestStatus int

const (
	PricingRequestPending    PricingRequestStatus = 1
	PricingRequestInProgress PricingRequestStatus = 2
	PricingRequestCompleted  PricingRequestStatus = 3
)

var pricingRequestStatusLabels = map[PricingRequestStatus]string{
	PricingRequestPending:    "Pending",
	PricingRequestInProgress: "InProgress",
	PricingRequestCompleted:  "Completed",
}

func (s PricingRequestStatus) String() string { return labelOf(pricingRequestStatusLabels, s) }
func (s *PricingRequestStatus) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, pricingRequestStatusLabels, nil, s)
}

// ClientType classifies a client organisation
type ClientType int

const (
	ClientTypeGovernment ClientType = 1
	ClientTypePrivate    ClientType = 2
	ClientTypeNonProfit  ClientType = 3
)

var clientTypeLabels = map[ClientType]string{
	ClientTypeGovernment: "Government",
	ClientTypePrivate:    "Private",
	ClientTypeNonProfit:  "NonProfit",
}

func (c ClientType) String() string { return labelOf(clientTypeLabels, c) }
func (c ClientType) IsValid() bool {
	_, ok := clientTypeLabels[c]
	return ok
}
func (c *ClientType) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, clientTypeLabels, nil, c)
}

// ParseClientType accepts a number or label and reports whether it is a known type
func ParseClientType(value string) (ClientType, bool) {
	return parseEnum(strings.TrimSpace(value), clientTypeLabels, nil)
}

// UserRole is the role assigned to a CRM user
type UserRole string

const (
	RoleAdmin                      UserRole = "Admin"
	RoleSalesManager               UserRole = "SalesManager"
	RoleBusinessDevelopmentManager UserRole = "BusinessDevelopmentManager"
	RoleSalesRep                   UserRole = "SalesRep"
)

var roleByNumber = map[int]UserRole{
	1: RoleAdmin,
	2: RoleSalesManager,
	3: RoleBusinessDevelopmentManager,
	4: RoleSalesRep,
}

// ParseUserRole normalizes a role label or number. Unknown labels are kept verbatim.
func ParseUserRole(value string) UserRole {
	value = strings.TrimSpace(value)
	if n, err := strconv.Atoi(value); err == nil {
		if role, ok := roleByNumber[n]; ok {
			return role
		}
	}
	key := normalizeLabel(value)
	for _, role := range roleByNumber {
		if normalizeLabel(string(role)) == key {
			return role
		}
	}
	return UserRole(value)
}

func (r *UserRole) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = ParseUserRole(s)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*r = ParseUserRole(strconv.Itoa(n))
	return nil
}

// IsPrivileged reports whether the role may act on records owned by others
func (r UserRole) IsPrivileged() bool {
	return r == RoleAdmin || r == RoleSalesManager
}
