package service

import (
	"context"
	"encoding/json"

	"golang-news-slate/internal/dto"
	"golang-news-slate/internal/entity"
	"golang-news-slate/internal/repository"
	"golang-news-slate/pkg/logger"
)

// ExecutionHistoryService defines the interface for reading stage run history.
type ExecutionHistoryService interface {
	GetExecutionByID(ctx context.Context, id uint) (*dto.ExecutionResponse, error)
	GetRecentExecutions(ctx context.Context, stage entity.Stage, limit int) ([]*dto.ExecutionResponse, error)
}

// NewExecutionHistoryService creates a new execution history service.
func NewExecutionHistoryService(historyRepo repository.TriggerExecutionRepository, logger *logger.Logger) ExecutionHistoryService {
	return &executionHistoryService{
		historyRepo: historyRepo,
		logger:      logger,
	}
}

type executionHistoryService struct {
	historyRepo repository.TriggerExecutionRepository
	logger      *logger.Logger
}

// GetExecutionByID retrieves one stage run.
func (s *executionHistoryService) GetExecutionByID(ctx context.Context, id uint) (*dto.ExecutionResponse, error) {
	execution, err := s.historyRepo.FindByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to find trigger execution", logger.ErrorField(err), logger.Field("execution_id", id))
		return nil, err
	}
	return ToExecutionResponse(execution), nil
}

// GetRecentExecutions lists the latest runs, newest first. An empty stage matches all stages.
func (s *executionHistoryService) GetRecentExecutions(ctx context.Context, stage entity.Stage, limit int) ([]*dto.ExecutionResponse, error) {
	executions, err := s.historyRepo.FindRecent(ctx, stage, limit)
	if err != nil {
		s.logger.Error("Failed to list trigger executions", logger.ErrorField(err))
		return nil, err
	}

	responses := make([]*dto.ExecutionResponse, 0, len(executions))
	for i := range executions {
		responses = append(responses, ToExecutionResponse(&executions[i]))
	}
	return responses, nil
}

// ToExecutionResponse maps an entity.TriggerExecution to its API view.
func ToExecutionResponse(execution *entity.TriggerExecution) *dto.ExecutionResponse {
	var duration int64
	if execution.CompletedAt.Valid {
		duration = execution.CompletedAt.Time.Sub(execution.StartedAt).Milliseconds()
	}

	return &dto.ExecutionResponse{
		ID:        execution.ID,
		RunID:     execution.RunID,
		Stage:     string(execution.Stage),
		Source:    string(execution.Source),
		Status:    string(execution.Status),
		StartedAt: execution.StartedAt,
		Duration:  duration,
		Params:    json.RawMessage(execution.Params),
		Output:    json.RawMessage(execution.Output),
		Error:     execution.ErrorMessage.String,
	}
}
