package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang-news-slate/internal/entity"
	"golang-news-slate/internal/executor/strategy"
	"golang-news-slate/internal/metrics"
	"golang-news-slate/internal/repository"
	"golang-news-slate/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ErrUnknownStage is returned when no strategy handles the requested stage.
var ErrUnknownStage = errors.New("unknown stage")

// ExecutorService runs pipeline stages and records each run.
type ExecutorService interface {
	Run(ctx context.Context, stage entity.Stage, source entity.TriggerSource, params strategy.Params) (*entity.TriggerExecution, error)
}

// NewExecutorService creates a new ExecutorService. A zero timeout leaves the caller's
// deadline in charge.
func NewExecutorService(
	historyRepo repository.TriggerExecutionRepository,
	recorder metrics.Recorder,
	log *logger.Logger,
	timeout time.Duration,
	strategies []strategy.StageExecutionStrategy,
) ExecutorService {
	strategyMap := make(map[entity.Stage]strategy.StageExecutionStrategy)
	for _, s := range strategies {
		strategyMap[s.GetType()] = s
	}

	return &executorService{
		historyRepo:        historyRepo,
		recorder:           recorder,
		logger:             log,
		timeout:            timeout,
		executorStrategies: strategyMap,
		now:                time.Now,
	}
}

type executorService struct {
	historyRepo        repository.TriggerExecutionRepository
	recorder           metrics.Recorder
	logger             *logger.Logger
	timeout            time.Duration
	executorStrategies map[entity.Stage]strategy.StageExecutionStrategy
	now                func() time.Time
}

// Run executes one stage. The returned execution carries the JSON output even when the
// stage failed; history write failures are logged and never fail the stage.
func (s *executorService) Run(ctx context.Context, stage entity.Stage, source entity.TriggerSource, params strategy.Params) (*entity.TriggerExecution, error) {
	strategy, ok := s.executorStrategies[stage]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStage, stage)
	}

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stage params: %w", err)
	}
	execution := &entity.TriggerExecution{
		RunID:     uuid.NewString(),
		Stage:     stage,
		Source:    source,
		Params:    datatypes.JSON(paramsJSON),
		Status:    entity.StatusRunning,
		StartedAt: s.now(),
	}
	ctx = logger.WithContext(ctx, logger.StringField("run_id", execution.RunID), logger.StringField("stage", string(stage)))
	if err := s.historyRepo.Create(ctx, execution); err != nil {
		s.logger.ErrorContext(ctx, "Failed to create trigger history", logger.ErrorField(err))
	}
	s.logger.InfoContext(ctx, "Stage started", logger.StringField("source", string(source)))

	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	output, runErr := strategy.Execute(runCtx, params)
	if runErr != nil {
		s.logger.ErrorContext(ctx, "Stage failed", logger.ErrorField(runErr))
		execution.Status = entity.StatusFailed
		execution.ErrorMessage = sql.NullString{String: runErr.Error(), Valid: true}
	} else {
		execution.Status = entity.StatusCompleted
	}
	if output != nil {
		if raw, err := json.Marshal(output); err == nil {
			execution.Output = datatypes.JSON(raw)
		} else {
			s.logger.WarnContext(ctx, "Failed to marshal stage output", logger.ErrorField(err))
		}
	}

	completed := s.now()
	execution.CompletedAt = sql.NullTime{Time: completed, Valid: true}
	duration := completed.Sub(execution.StartedAt)
	s.recorder.RecordStage(string(stage), string(execution.Status), duration)

	if execution.ID != 0 {
		if err := s.historyRepo.Update(context.WithoutCancel(ctx), execution); err != nil {
			s.logger.ErrorContext(ctx, "Failed to update trigger history", logger.ErrorField(err))
		}
	}
	s.logger.InfoContext(ctx, "Stage finished",
		logger.StringField("status", string(execution.Status)),
		logger.Field("duration", duration),
	)
	return execution, runErr
}
