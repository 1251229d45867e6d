package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/salesflow/salesflow-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidTransition_AnyDefinedPair(t *testing.T) {
	for _, from := range domain.AllStages() {
		for _, to := range domain.AllStages() {
			assert.True(t, domain.IsValidTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestIsValidTransition_RejectsUnknownStages(t *testing.T) {
	assert.False(t, domain.IsValidTransition(0, domain.StageLead))
	assert.False(t, domain.IsValidTransition(domain.StageLead, 7))
	assert.False(t, domain.IsValidTransition(-1, 0))
}

func TestIsForwardTransition(t *testing.T) {
	assert.True(t, domain.IsForwardTransition(domain.StageLead, domain.StageQualified))
	assert.True(t, domain.IsForwardTransition(domain.StageNegotiation, domain.StageClosedLost))
	assert.False(t, domain.IsForwardTransition(domain.StageProposal, domain.StageLead))
	assert.False(t, domain.IsForwardTransition(domain.StageClosedWon, domain.StageClosedLost))
}

func TestRequiredFields(t *testing.T) {
	assert.Equal(t, []string{"lossReason"}, domain.RequiredFields(domain.StageClosedLost))
	assert.Empty(t, domain.RequiredFields(domain.StageClosedWon))
	assert.Empty(t, domain.RequiredFields(domain.StageLead))
	assert.Equal(t, []string{"notes"}, domain.OptionalFields(domain.StageClosedWon))
}

func TestValidateStageChange(t *testing.T) {
	assert.ErrorIs(t, domain.ValidateStageChange(domain.StageClosedLost, ""), domain.ErrLossReasonRequired)
	assert.ErrorIs(t, domain.ValidateStageChange(domain.StageClosedLost, "   "), domain.ErrLossReasonRequired)
	assert.NoError(t, domain.ValidateStageChange(domain.StageClosedLost, "Budget cut"))
	assert.NoError(t, domain.ValidateStageChange(domain.StageClosedWon, ""))
	assert.ErrorIs(t, domain.ValidateStageChange(9, "x"), domain.ErrInvalidStage)
}

func TestStageNext(t *testing.T) {
	next, ok := domain.StageLead.Next()
	require.True(t, ok)
	assert.Equal(t, domain.StageQualified, next)

	next, ok = domain.StageNegotiation.Next()
	require.True(t, ok)
	assert.Equal(t, domain.StageClosedWon, next)

	_, ok = domain.StageClosedWon.Next()
	assert.False(t, ok)
	_, ok = domain.StageClosedLost.Next()
	assert.False(t, ok)
}

func TestParseStage(t *testing.T) {
	cases := map[string]domain.Stage{
		"6":           domain.StageClosedLost,
		"ClosedLost":  domain.StageClosedLost,
		"closed lost": domain.StageClosedLost,
		"closed_won":  domain.StageClosedWon,
		"lead":        domain.StageLead,
	}
	for in, want := range cases {
		got, err := domain.ParseStage(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := domain.ParseStage("won-ish")
	assert.ErrorIs(t, err, domain.ErrInvalidStage)
}

func TestStage_JSONAcceptsNumberOrLabel(t *testing.T) {
	var body struct {
		A domain.Stage `json:"a"`
		B domain.Stage `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":3,"b":"Negotiation"}`), &body))
	assert.Equal(t, domain.StageProposal, body.A)
	assert.Equal(t, domain.StageNegotiation, body.B)

	out, err := json.Marshal(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":3,"b":4}`, string(out))
}
