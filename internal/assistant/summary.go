package assistant

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/salesflow/salesflow-api/internal/domain"
)

// UnknownLabel buckets records with a blank label
const UnknownLabel = "Unknown"

// Summary holds counters derived from the full fetched collections, before truncation
type Summary struct {
	Counts                  map[string]int   `json:"counts"`
	UsersByRole             map[string]int   `json:"usersByRole"`
	ClientsByType           map[string]int   `json:"clientsByType"`
	OpportunitiesByStage    map[string]int   `json:"opportunitiesByStage"`
	ProposalsByStatus       map[string]int   `json:"proposalsByStatus"`
	ContractsByStatus       map[string]int   `json:"contractsByStatus"`
	ActivitiesByStatus      map[string]int   `json:"activitiesByStatus"`
	PricingRequestsByStatus map[string]int   `json:"pricingRequestsByStatus"`
	TotalContractValue      float64          `json:"totalContractValue"`
	OpenOpportunities       int              `json:"openOpportunities"`
	OpenPipelineValue       float64          `json:"openPipelineValue"`
	WeightedPipelineValue   float64          `json:"weightedPipelineValue"`
	OverdueActivities       int              `json:"overdueActivities"`
	ExpiringContracts       []ContractRecord `json:"expiringContracts"`
	DueSoonActivities       []ActivityRecord `json:"dueSoonActivities"`
}

// Summarize derives counters and short lists from normalized collections
func Summarize(c Collections, now time.Time, limits Limits) Summary {
	s := Summary{
		Counts: map[string]int{
			SourceUsers:           len(c.Users),
			SourceClients:         len(c.Clients),
			SourceContacts:        len(c.Contacts),
			SourceOpportunities:   len(c.Opportunities),
			SourceProposals:       len(c.Proposals),
			SourceContracts:       len(c.Contracts),
			SourceActivities:      len(c.Activities),
			SourcePricingRequests: len(c.PricingRequests),
		},
		UsersByRole:             frequency(c.Users, func(u UserRecord) string { return u.Role }),
		ClientsByType:           frequency(c.Clients, func(r ClientRecord) string { return r.Type }),
		OpportunitiesByStage:    frequency(c.Opportunities, func(o OpportunityRecord) string { return o.Stage }),
		ProposalsByStatus:       frequency(c.Proposals, func(p ProposalRecord) string { return p.Status }),
		ContractsByStatus:       frequency(c.Contracts, func(r ContractRecord) string { return r.Status }),
		ActivitiesByStatus:      frequency(c.Activities, func(a ActivityRecord) string { return a.Status }),
		PricingRequestsByStatus: frequency(c.PricingRequests, func(p PricingRequestRecord) string { return p.Status }),
		ExpiringContracts:       []ContractRecord{},
		DueSoonActivities:       []ActivityRecord{},
	}

	for _, contract := range c.Contracts {
		s.TotalContractValue += contract.TotalValue
	}

	for _, opp := range c.Opportunities {
		if !opp.Open() {
			continue
		}
		s.OpenOpportunities++
		s.OpenPipelineValue += opp.EstimatedValue
		s.WeightedPipelineValue += opp.EstimatedValue * opp.Probability / 100
	}

	var dueSoon []ActivityRecord
	for _, activity := range c.Activities {
		if activity.due.IsZero() || isClosedStatus(activity.Status) {
			continue
		}
		if activity.due.Before(now) {
			s.OverdueActivities++
		} else {
			dueSoon = append(dueSoon, activity)
		}
	}
	sort.SliceStable(dueSoon, func(i, j int) bool { return dueSoon[i].due.Before(dueSoon[j].due) })
	if limits.DueSoonLimit > 0 && len(dueSoon) > limits.DueSoonLimit {
		dueSoon = dueSoon[:limits.DueSoonLimit]
	}
	s.DueSoonActivities = append(s.DueSoonActivities, dueSoon...)

	type expiring struct {
		contract ContractRecord
		days     int
	}
	var soon []expiring
	for _, contract := range c.Contracts {
		status := strings.ToLower(contract.Status)
		if strings.Contains(status, "cancel") || strings.Contains(status, "expired") {
			continue
		}
		days, ok := daysUntilExpiry(contract, now)
		if !ok || days < 0 || days > limits.ExpiringDays {
			continue
		}
		soon = append(soon, expiring{contract, days})
	}
	sort.SliceStable(soon, func(i, j int) bool { return soon[i].days < soon[j].days })
	for _, e := range soon {
		s.ExpiringContracts = append(s.ExpiringContracts, e.contract)
	}

	return s
}

// isClosedStatus matches completed and cancelled in any spelling or case
func isClosedStatus(status string) bool {
	s := strings.ToLower(status)
	return strings.Contains(s, "completed") || strings.Contains(s, "cancelled") || strings.Contains(s, "canceled")
}

func daysUntilExpiry(c ContractRecord, now time.Time) (int, bool) {
	if c.DaysUntilExpiry != nil {
		return *c.DaysUntilExpiry, true
	}
	end, ok := domain.ParseTimestamp(c.EndDate)
	if !ok {
		return 0, false
	}
	return int(math.Ceil(end.Sub(now).Hours() / 24)), true
}

func frequency[T any](items []T, label func(T) string) map[string]int {
	out := make(map[string]int)
	for _, item := range items {
		key := strings.TrimSpace(label(item))
		if key == "" {
			key = UnknownLabel
		}
		out[key]++
	}
	return out
}
