package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"golang-news-slate/internal/entity"
	"golang-news-slate/internal/metrics"
	"golang-news-slate/internal/repository"
	"golang-news-slate/pkg/common"
	"golang-news-slate/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPerformanceHarness(t *testing.T, now time.Time) (*performanceService, repository.SheetRepository, *fakePlatform) {
	t.Helper()
	sheets := repository.NewMemorySheetRepository()
	platform := &fakePlatform{}
	audit := NewAuditLog(sheets, logger.NewNop())
	audit.now = func() time.Time { return now }
	svc := NewPerformanceService(platform, sheets, audit, metrics.Nop{}, logger.NewNop()).(*performanceService)
	svc.now = func() time.Time { return now }
	return svc, sheets, platform
}

func seedPosted(t *testing.T, sheets repository.SheetRepository, recs ...PostedRecord) {
	t.Helper()
	rows := make([][]string, len(recs))
	for i, rec := range recs {
		posted := rec.PostedAt
		rows[i] = postedRow(entity.ScheduledPost{
			ID:         rec.PostID,
			Date:       rec.Date,
			Slot:       entity.TimeSlot{PostNumber: rec.PostNumber, CategoryID: rec.Category},
			ExternalID: rec.ExternalID,
			PostedAt:   &posted,
			Text:       rec.Text,
		}, rec.DryRun)
	}
	require.NoError(t, sheets.AppendRows(context.Background(), common.TabPosted, rows))
}

func TestParsePhase(t *testing.T) {
	p, err := ParsePhase("day3")
	require.NoError(t, err)
	assert.Equal(t, PhaseDay3, p)

	_, err = ParsePhase("day2")
	assert.ErrorIs(t, err, ErrUnknownPhase)
}

func TestCollectPhaseRespectsAgeAndDryRun(t *testing.T) {
	now := time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)
	svc, sheets, platform := newPerformanceHarness(t, now)
	ctx := context.Background()

	seedPosted(t, sheets,
		PostedRecord{PostID: "2026-03-02-P1", Date: "2026-03-02", PostNumber: 1, Category: entity.CategoryBusinessAI, ExternalID: "x-1", PostedAt: now.Add(-26 * time.Hour)},
		PostedRecord{PostID: "2026-03-03-P1", Date: "2026-03-03", PostNumber: 1, Category: entity.CategoryBusinessAI, ExternalID: "x-2", PostedAt: now.Add(-90 * time.Minute)},
		PostedRecord{PostID: "2026-03-03-P2", Date: "2026-03-03", PostNumber: 2, Category: entity.CategoryAIResearch, ExternalID: "x-3", PostedAt: now.Add(-30 * time.Minute)},
		PostedRecord{PostID: "2026-03-02-P2", Date: "2026-03-02", PostNumber: 2, Category: entity.CategoryAIResearch, ExternalID: DryRunPrefix + "abc", PostedAt: now.Add(-26 * time.Hour), DryRun: true},
	)

	report, err := svc.Collect(ctx, PhaseInitial)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Eligible, "the 30 minute old post is too young")
	assert.Equal(t, 2, report.Updated)
	assert.Equal(t, 2, report.Appended)
	assert.Equal(t, 1, report.DryRun)
	assert.Equal(t, []int{2}, platform.batchSizes)

	perf, err := sheets.ReadRows(ctx, common.TabPerformance)
	require.NoError(t, err)
	require.Len(t, perf, 2)
	start := phaseStart(PhaseInitial)
	for _, row := range perf {
		assert.Equal(t, "10", row[start+phaseColLikes])
		assert.Equal(t, "2", row[start+phaseColReposts])
		assert.Equal(t, "500", row[start+phaseColImpressions])
		assert.NotEmpty(t, row[start+phaseColCollectedAt])
		assert.Empty(t, cell(row, phaseStart(PhaseDay1)+phaseColLikes))
	}

	// a second initial pass finds nothing new
	report, err = svc.Collect(ctx, PhaseInitial)
	require.NoError(t, err)
	assert.Zero(t, report.Eligible)

	report, err = svc.Collect(ctx, PhaseDay1)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Eligible)
	assert.Equal(t, 1, report.Updated)
	assert.Zero(t, report.Appended, "identity row already exists")

	idx, row, found, err := sheets.FindRow(ctx, common.TabPerformance, perfColPostID, "2026-03-02-P1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 0, idx)
	assert.Equal(t, "10", row[phaseStart(PhaseDay1)+phaseColLikes])

	insights, err := sheets.ReadRows(ctx, common.TabInsights)
	require.NoError(t, err)
	assert.NotEmpty(t, insights)
}

func TestCollectPhaseBatchesLookups(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	svc, sheets, platform := newPerformanceHarness(t, now)

	recs := make([]PostedRecord, 150)
	for i := range recs {
		recs[i] = PostedRecord{
			PostID:     fmt.Sprintf("p-%03d", i),
			Date:       "2026-03-01",
			PostNumber: i%9 + 1,
			Category:   entity.CategoryAISafety,
			ExternalID: fmt.Sprintf("x-%03d", i),
			PostedAt:   now.Add(-11 * 24 * time.Hour),
		}
	}
	seedPosted(t, sheets, recs...)

	report, err := svc.Collect(context.Background(), PhaseDay10)
	require.NoError(t, err)
	assert.Equal(t, 150, report.Updated)
	assert.Equal(t, 2, report.Batches)
	assert.Equal(t, []int{100, 50}, platform.batchSizes)
}

func TestCollectUnknownPhase(t *testing.T) {
	svc, _, _ := newPerformanceHarness(t, time.Now())
	_, err := svc.Collect(context.Background(), Phase("hourly"))
	assert.ErrorIs(t, err, ErrUnknownPhase)
}

func TestImportCSV(t *testing.T) {
	now := time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)
	svc, sheets, _ := newPerformanceHarness(t, now)
	ctx := context.Background()
	seedPosted(t, sheets,
		PostedRecord{PostID: "2026-03-03-P1", Date: "2026-03-03", PostNumber: 1, Category: entity.CategoryBusinessAI, ExternalID: "x-1", PostedAt: now.Add(-2 * time.Hour)},
		PostedRecord{PostID: "2026-03-03-P2", Date: "2026-03-03", PostNumber: 2, Category: entity.CategoryAIResearch, ExternalID: "x-2", PostedAt: now.Add(-2 * time.Hour)},
	)
	_, err := svc.Collect(ctx, PhaseInitial)
	require.NoError(t, err)

	csvData := strings.Join([]string{
		"Tweet ID,Tweet text,Impressions,Engagement rate",
		"x-2,hello,1200,0.031",
		"2026-03-03-P1,world,800,0.02",
		"x-999,missing,5,0.1",
	}, "\n")
	report, err := svc.ImportCSV(ctx, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, &ImportReport{Rows: 3, Updated: 2, Skipped: 1}, report)

	_, row, found, err := sheets.FindRow(ctx, common.TabPerformance, perfColExternalID, "x-2")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "1200", row[perfColCSVImpressions])
	assert.Equal(t, "0.031", row[perfColCSVCTR])
	assert.Equal(t, "10", row[phaseStart(PhaseInitial)+phaseColLikes], "phase metrics untouched")
}

func TestImportCSVRejectsUnknownHeader(t *testing.T) {
	svc, _, _ := newPerformanceHarness(t, time.Now())
	_, err := svc.ImportCSV(context.Background(), strings.NewReader("foo,bar\n1,2\n"))
	assert.Error(t, err)
}
