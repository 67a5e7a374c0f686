package strategy

import (
	"context"

	"golang-news-slate/internal/entity"
)

// Params are the inputs of one stage run. Zero values mean "the scheduled default".
type Params struct {
	Phase      string `json:"phase,omitempty"`
	PostNumber int    `json:"post_number,omitempty"`
	Retry      bool   `json:"retry,omitempty"`
}

// StageExecutionStrategy defines the interface for the pipeline stages.
type StageExecutionStrategy interface {
	Execute(ctx context.Context, params Params) (any, error)
	GetType() entity.Stage
}
