package strategy

import (
	"context"
	"time"

	"golang-news-slate/internal/entity"
	"golang-news-slate/internal/service"
)

// PublishStrategy publishes the post due now, or a given post when PostNumber is set.
type PublishStrategy struct {
	driver service.PublishDriver
	now    func() time.Time
}

// NewPublishStrategy creates a new PublishStrategy.
func NewPublishStrategy(driver service.PublishDriver) StageExecutionStrategy {
	return &PublishStrategy{driver: driver, now: time.Now}
}

// GetType returns the stage this strategy handles.
func (s *PublishStrategy) GetType() entity.Stage {
	return entity.StagePublish
}

// Execute runs one publish attempt. A skipped or failed post is reported in the outcome;
// only a board that cannot be resolved is an error.
func (s *PublishStrategy) Execute(ctx context.Context, params Params) (any, error) {
	switch {
	case params.Retry:
		return s.driver.RetryFailed(ctx, params.PostNumber)
	case params.PostNumber > 0:
		return s.driver.PublishPost(ctx, params.PostNumber)
	default:
		return s.driver.PublishCurrent(ctx, s.now())
	}
}
