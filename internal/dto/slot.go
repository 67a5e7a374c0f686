package dto

import (
	"time"

	"golang-news-slate/internal/entity"
)

// SlotView is a scheduled post with the instant it is due.
type SlotView struct {
	entity.ScheduledPost
	DueAt time.Time `json:"due_at"`
}

// SlotsResponse is today's board. Board is the date the board holds, which lags Date until
// the day's collection has run.
type SlotsResponse struct {
	Date   string         `json:"date"`
	Board  string         `json:"board"`
	Counts map[string]int `json:"counts"`
	Posts  []SlotView     `json:"posts"`
}

// HealthResponse reports configuration and dependency checks.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
