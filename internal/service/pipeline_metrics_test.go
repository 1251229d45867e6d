package service_test

import (
	"testing"

	"github.com/salesflow/salesflow-api/internal/domain"
	"github.com/salesflow/salesflow-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func opp(stage domain.Stage, value float64, probability int) domain.Opportunity {
	return domain.Opportunity{Stage: stage, EstimatedValue: value, Probability: probability}
}

func TestComputePipelineMetrics(t *testing.T) {
	t.Run("empty set", func(t *testing.T) {
		m := service.ComputePipelineMetrics(nil)
		require.Len(t, m.Stages, 6)
		for _, s := range m.Stages {
			assert.Zero(t, s.Count)
		}
		assert.Zero(t, m.WinRate)
		assert.Zero(t, m.AverageDealSize)
		assert.Zero(t, m.TotalOpportunities)
	})

	t.Run("all lost", func(t *testing.T) {
		m := service.ComputePipelineMetrics([]domain.Opportunity{
			opp(domain.StageClosedLost, 1000, 0),
			opp(domain.StageClosedLost, 3000, 0),
		})
		assert.Equal(t, 0, m.WinRate)
		assert.Equal(t, 2, m.LostCount)
		assert.Equal(t, 0, m.ActiveOpportunities)
		assert.InDelta(t, 2000, m.AverageDealSize, 0.001)
	})

	t.Run("all active", func(t *testing.T) {
		m := service.ComputePipelineMetrics([]domain.Opportunity{
			opp(domain.StageLead, 1000, 10),
			opp(domain.StageProposal, 2000, 50),
		})
		assert.Equal(t, 0, m.WinRate)
		assert.Equal(t, 2, m.ActiveOpportunities)
		assert.InDelta(t, 3000, m.TotalPipelineValue, 0.001)
		assert.InDelta(t, 1100, m.WeightedPipelineValue, 0.001)
	})

	t.Run("mixed", func(t *testing.T) {
		m := service.ComputePipelineMetrics([]domain.Opportunity{
			opp(domain.StageLead, 100, 10),
			opp(domain.StageNegotiation, 400, 75),
			opp(domain.StageClosedWon, 500, 100),
			opp(domain.StageClosedWon, 200, 100),
			opp(domain.StageClosedLost, 300, 0),
			opp(domain.Stage(9), 999, 100),
		})

		assert.Equal(t, 5, m.TotalOpportunities)
		assert.Equal(t, 2, m.ActiveOpportunities)
		assert.Equal(t, 2, m.WonCount)
		assert.Equal(t, 1, m.LostCount)
		assert.Equal(t, 67, m.WinRate)
		assert.InDelta(t, 1500, m.TotalPipelineValue, 0.001)
		assert.InDelta(t, 1010, m.WeightedPipelineValue, 0.001)
		assert.InDelta(t, 300, m.AverageDealSize, 0.001)

		won := m.ByStage(domain.StageClosedWon)
		assert.Equal(t, 2, won.Count)
		assert.InDelta(t, 700, won.TotalValue, 0.001)
		assert.Equal(t, "ClosedWon", won.Name)
	})
}
