package repository

import (
	"context"

	"golang-news-slate/internal/entity"

	"gorm.io/gorm"
)

// NewTriggerExecutionRepository creates a new GORM-based trigger execution repository.
func NewTriggerExecutionRepository(db *gorm.DB) TriggerExecutionRepository {
	return &triggerExecutionRepository{db: db}
}

type triggerExecutionRepository struct {
	db *gorm.DB
}

func (r *triggerExecutionRepository) Create(ctx context.Context, execution *entity.TriggerExecution) error {
	return r.db.WithContext(ctx).Create(execution).Error
}

// Update updates an existing trigger execution record.
func (r *triggerExecutionRepository) Update(ctx context.Context, execution *entity.TriggerExecution) error {
	return r.db.WithContext(ctx).Save(execution).Error
}

// FindByID retrieves a trigger execution by its ID.
func (r *triggerExecutionRepository) FindByID(ctx context.Context, id uint) (*entity.TriggerExecution, error) {
	var execution entity.TriggerExecution
	if err := r.db.WithContext(ctx).First(&execution, id).Error; err != nil {
		return nil, err
	}
	return &execution, nil
}

// FindRecent lists the newest executions, optionally filtered by stage.
func (r *triggerExecutionRepository) FindRecent(ctx context.Context, stage entity.Stage, limit int) ([]entity.TriggerExecution, error) {
	var executions []entity.TriggerExecution
	q := r.db.WithContext(ctx).Order("started_at DESC")
	if stage != "" {
		q = q.Where("stage = ?", stage)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&executions).Error; err != nil {
		return nil, err
	}
	return executions, nil
}
