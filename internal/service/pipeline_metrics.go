package service

import (
	"math"

	"github.com/salesflow/salesflow-api/internal/domain"
)

// ComputePipelineMetrics buckets opportunities by stage and derives the pipeline
// totals. Opportunities with an undefined stage are ignored.
func ComputePipelineMetrics(opportunities []domain.Opportunity) domain.PipelineMetrics {
	stages := domain.AllStages()
	buckets := make(map[domain.Stage]*domain.StageMetrics, len(stages))
	metrics := domain.PipelineMetrics{Stages: make([]domain.StageMetrics, len(stages))}
	for i, stage := range stages {
		metrics.Stages[i] = domain.StageMetrics{Stage: stage, Name: stage.String()}
		buckets[stage] = &metrics.Stages[i]
	}

	for i := range opportunities {
		opp := &opportunities[i]
		bucket, ok := buckets[opp.Stage]
		if !ok {
			continue
		}
		bucket.Count++
		bucket.TotalValue += opp.EstimatedValue
		bucket.WeightedValue += opp.WeightedValue()
	}

	for _, bucket := range metrics.Stages {
		metrics.TotalPipelineValue += bucket.TotalValue
		metrics.WeightedPipelineValue += bucket.WeightedValue
		metrics.TotalOpportunities += bucket.Count
		if !bucket.Stage.IsClosed() {
			metrics.ActiveOpportunities += bucket.Count
		}
	}

	metrics.WonCount = buckets[domain.StageClosedWon].Count
	metrics.LostCount = buckets[domain.StageClosedLost].Count

	if closed := metrics.WonCount + metrics.LostCount; closed > 0 {
		metrics.WinRate = int(math.Round(100 * float64(metrics.WonCount) / float64(closed)))
	}
	if metrics.TotalOpportunities > 0 {
		metrics.AverageDealSize = metrics.TotalPipelineValue / float64(metrics.TotalOpportunities)
	}

	return metrics
}
