package domain

import (
	"errors"
	"strings"
)

// Stage is the lifecycle position of an opportunity in the sales funnel
type Stage int

const (
	StageLead        Stage = 1
	StageQualified   Stage = 2
	StageProposal    Stage = 3
	StageNegotiation Stage = 4
	StageClosedWon   Stage = 5
	StageClosedLost  Stage = 6
)

var stageLabels = map[Stage]string{
	StageLead:        "Lead",
	StageQualified:   "Qualified",
	StageProposal:    "Proposal",
	StageNegotiation: "Negotiation",
	StageClosedWon:   "ClosedWon",
	StageClosedLost:  "ClosedLost",
}

var (
	ErrInvalidStage       = errors.New("invalid stage")
	ErrLossReasonRequired = errors.New("loss reason is required when closing an opportunity as lost")
)

// AllStages returns the stages in funnel order
func AllStages() []Stage {
	return []Stage{StageLead, StageQualified, StageProposal, StageNegotiation, StageClosedWon, StageClosedLost}
}

func (s Stage) String() string {
	return labelOf(stageLabels, s)
}

// IsValid checks if the Stage is one of the six defined values
func (s Stage) IsValid() bool {
	_, ok := stageLabels[s]
	return ok
}

// IsClosed reports whether the stage ends the funnel
func (s Stage) IsClosed() bool {
	return s == StageClosedWon || s == StageClosedLost
}

// Next returns the following funnel stage. Negotiation advances to ClosedWon.
// Closed stages have no successor.
func (s Stage) Next() (Stage, bool) {
	if !s.IsValid() || s.IsClosed() {
		return s, false
	}
	return s + 1, true
}

func (s *Stage) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, stageLabels, nil, s)
}

// ParseStage accepts a stage number or label ("ClosedLost", "closed lost", "6")
func ParseStage(value string) (Stage, error) {
	stage, ok := parseEnum(strings.TrimSpace(value), stageLabels, nil)
	if !ok {
		return 0, ErrInvalidStage
	}
	return stage, nil
}

// IsValidTransition reports whether an opportunity may move between two stages.
// Every pair of defined stages is allowed, including moves backwards and out of
// a closed stage; funnel order is a presentation concern.
func IsValidTransition(from, to Stage) bool {
	return from.IsValid() && to.IsValid()
}

// IsForwardTransition reports whether the move follows funnel order
func IsForwardTransition(from, to Stage) bool {
	if !IsValidTransition(from, to) || from.IsClosed() {
		return false
	}
	return to > from
}

// RequiredFields lists the request fields that must be non-empty to enter the stage
func RequiredFields(to Stage) []string {
	if to == StageClosedLost {
		return []string{"lossReason"}
	}
	return nil
}

// OptionalFields lists the extra fields accepted when entering the stage
func OptionalFields(to Stage) []string {
	if to == StageClosedWon {
		return []string{"notes"}
	}
	return nil
}

// ValidateStageChange checks the target stage and its required fields
func ValidateStageChange(to Stage, lossReason string) error {
	if !to.IsValid() {
		return ErrInvalidStage
	}
	for _, field := range RequiredFields(to) {
		if field == "lossReason" && strings.TrimSpace(lossReason) == "" {
			return ErrLossReasonRequired
		}
	}
	return nil
}
