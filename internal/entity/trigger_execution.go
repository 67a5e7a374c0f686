package entity

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
)

// Stage names a pipeline trigger.
type Stage string

const (
	StageCollect Stage = "collect"
	StagePublish Stage = "publish"
	StageMetrics Stage = "metrics"
)

// TriggerSource tells who started a stage run.
type TriggerSource string

const (
	TriggerCron TriggerSource = "cron"
	TriggerHTTP TriggerSource = "http"
	TriggerCLI  TriggerSource = "cli"
)

// ExecutionStatus is the state of a stage run.
type ExecutionStatus string

const (
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
)

// TriggerExecution records one run of a pipeline stage.
type TriggerExecution struct {
	ID           uint            `gorm:"primaryKey"`
	RunID        string          `gorm:"type:uuid;not null;uniqueIndex"`
	Stage        Stage           `gorm:"not null;index"`
	Source       TriggerSource   `gorm:"not null"`
	Params       datatypes.JSON  `gorm:"type:jsonb"`
	Status       ExecutionStatus `gorm:"not null"`
	StartedAt    time.Time       `gorm:"not null"`
	CompletedAt  sql.NullTime
	Output       datatypes.JSON `gorm:"type:jsonb"`
	ErrorMessage sql.NullString
}

func (TriggerExecution) TableName() string {
	return "trigger_executions"
}
