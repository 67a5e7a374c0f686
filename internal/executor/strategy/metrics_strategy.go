package strategy

import (
	"context"

	"golang-news-slate/internal/entity"
	"golang-news-slate/internal/service"
)

// MetricsStrategy collects post metrics for one phase.
type MetricsStrategy struct {
	performance service.PerformanceService
}

// NewMetricsStrategy creates a new MetricsStrategy.
func NewMetricsStrategy(performance service.PerformanceService) StageExecutionStrategy {
	return &MetricsStrategy{performance: performance}
}

// GetType returns the stage this strategy handles.
func (s *MetricsStrategy) GetType() entity.Stage {
	return entity.StageMetrics
}

// Execute runs the phase named in params.
func (s *MetricsStrategy) Execute(ctx context.Context, params Params) (any, error) {
	phase, err := service.ParsePhase(params.Phase)
	if err != nil {
		return nil, err
	}
	return s.performance.Collect(ctx, phase)
}
