package dto

import (
	"encoding/json"
	"time"
)

// ExecutionResponse is the API view of a stage run.
type ExecutionResponse struct {
	ID        uint            `json:"id"`
	RunID     string          `json:"run_id"`
	Stage     string          `json:"stage"`
	Source    string          `json:"source"`
	Status    string          `json:"status"`
	StartedAt time.Time       `json:"started_at"`
	Duration  int64           `json:"duration_ms"`
	Params    json.RawMessage `json:"params,omitempty" swaggertype:"object"`
	Output    json.RawMessage `json:"output,omitempty" swaggertype:"object"`
	Error     string          `json:"error,omitempty"`
}

// ErrorResponse represents a generic error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}
