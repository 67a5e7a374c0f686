package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang-news-slate/internal/dto"
	"golang-news-slate/internal/entity"
	"golang-news-slate/internal/executor/strategy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSlots() *dto.SlotsResponse {
	slot1, _ := entity.SlotByPostNumber(1)
	slot2, _ := entity.SlotByPostNumber(2)
	return &dto.SlotsResponse{
		Date:   "2026-03-02",
		Board:  "2026-03-02",
		Counts: map[string]int{"posted": 1, "no-article": 1},
		Posts: []dto.SlotView{
			{
				ScheduledPost: entity.ScheduledPost{
					ID:         "2026-03-02-P1",
					Slot:       slot1,
					Status:     entity.PostStatusPosted,
					ExternalID: "x-1",
					Article: &entity.SelectedArticle{ScoredArticle: entity.ScoredArticle{
						CandidateArticle: entity.CandidateArticle{Headline: "Chipmaker doubles AI revenue"},
						Total:            81,
					}},
				},
				DueAt: time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC),
			},
			{
				ScheduledPost: entity.ScheduledPost{
					ID:     "2026-03-02-P2",
					Slot:   slot2,
					Status: entity.PostStatusNoArticle,
					Error:  "no article passed the quality gate",
				},
				DueAt: time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC),
			},
		},
	}
}

func TestRenderSlots(t *testing.T) {
	var buf bytes.Buffer
	renderSlots(&buf, sampleSlots(), false)
	out := buf.String()

	assert.Contains(t, out, "Date 2026-03-02")
	assert.Contains(t, out, "Chipmaker doubles AI revenue")
	assert.Contains(t, out, "x-1")
	assert.Contains(t, out, "13:00")
	assert.Contains(t, out, "no article passed the quality gate")
	assert.Contains(t, out, "no-article=1 posted=1")
}

func TestFetchSlots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/slots", r.URL.Path)
		_ = json.NewEncoder(w).Encode(sampleSlots())
	}))
	defer srv.Close()

	resp, err := fetchSlots(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", resp.Board)
	require.Len(t, resp.Posts, 2)
	assert.Equal(t, entity.PostStatusPosted, resp.Posts[0].Status)
}

func TestFetchSlotsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: "board unavailable"})
	}))
	defer srv.Close()

	_, err := fetchSlots(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "board unavailable")
}

func TestValidateRunParams(t *testing.T) {
	assert.Error(t, validateRunParams(entity.StageMetrics, strategy.Params{}))
	assert.NoError(t, validateRunParams(entity.StageMetrics, strategy.Params{Phase: "day1"}))
	assert.NoError(t, validateRunParams(entity.StagePublish, strategy.Params{}))
	assert.Error(t, validateRunParams(entity.StagePublish, strategy.Params{PostNumber: 10}))
	assert.Error(t, validateRunParams(entity.StagePublish, strategy.Params{Retry: true}))
	assert.NoError(t, validateRunParams(entity.StagePublish, strategy.Params{PostNumber: 3, Retry: true}))
	assert.NoError(t, validateRunParams(entity.StageCollect, strategy.Params{}))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
