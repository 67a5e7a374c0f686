package strategy

import (
	"context"

	"golang-news-slate/internal/entity"
	"golang-news-slate/internal/service"
	"golang-news-slate/pkg/logger"
)

// CollectStrategy runs the daily collection and slot assignment.
type CollectStrategy struct {
	pipeline service.PipelineService
	logger   *logger.Logger
}

// NewCollectStrategy creates a new CollectStrategy.
func NewCollectStrategy(pipeline service.PipelineService, log *logger.Logger) StageExecutionStrategy {
	return &CollectStrategy{pipeline: pipeline, logger: log}
}

// GetType returns the stage this strategy handles.
func (s *CollectStrategy) GetType() entity.Stage {
	return entity.StageCollect
}

// Execute collects, scores, ranks and assigns today's slate.
func (s *CollectStrategy) Execute(ctx context.Context, _ Params) (any, error) {
	report, err := s.pipeline.Collect(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Collection failed", logger.ErrorField(err))
		return report, err
	}
	return report, nil
}
