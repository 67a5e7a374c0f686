package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang-news-slate/internal/dto"
	"golang-news-slate/internal/entity"
	"golang-news-slate/internal/metrics"
	"golang-news-slate/internal/repository"
	"golang-news-slate/pkg/common"
	"golang-news-slate/pkg/logger"
	"golang-news-slate/pkg/utils"
)

// Phase is a metrics collection pass, named by the minimum age of the posts it covers.
type Phase string

const (
	PhaseInitial Phase = "initial"
	PhaseDay1    Phase = "day1"
	PhaseDay3    Phase = "day3"
	PhaseDay10   Phase = "day10"
)

var phases = []struct {
	name   Phase
	minAge time.Duration
}{
	{PhaseInitial, time.Hour},
	{PhaseDay1, 24 * time.Hour},
	{PhaseDay3, 72 * time.Hour},
	{PhaseDay10, 240 * time.Hour},
}

// ErrUnknownPhase is returned for a phase name outside initial, day1, day3 and day10.
var ErrUnknownPhase = errors.New("unknown metrics phase")

// ParsePhase validates a phase name.
func ParsePhase(s string) (Phase, error) {
	for _, p := range phases {
		if string(p.name) == s {
			return p.name, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPhase, s)
}

func phaseIndex(p Phase) int {
	for i, ph := range phases {
		if ph.name == p {
			return i
		}
	}
	return -1
}

func phaseStart(p Phase) int {
	return perfColFirstPhase + phaseIndex(p)*phaseColumns
}

// PhaseReport is the output of a metrics collection run.
type PhaseReport struct {
	Phase    Phase `json:"phase"`
	Eligible int   `json:"eligible"`
	Updated  int   `json:"updated"`
	Appended int   `json:"appended"`
	Missing  int   `json:"missing"`
	DryRun   int   `json:"skipped_dry_run"`
	Batches  int   `json:"batches"`
}

// ImportReport is the output of a performance CSV upload.
type ImportReport struct {
	Rows    int `json:"rows"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// PerformanceService collects post metrics in delayed phases and imports analytics exports.
type PerformanceService interface {
	Collect(ctx context.Context, phase Phase) (*PhaseReport, error)
	ImportCSV(ctx context.Context, r io.Reader) (*ImportReport, error)
}

// NewPerformanceService creates a PerformanceService.
func NewPerformanceService(
	platform repository.PlatformRepository,
	sheets repository.SheetRepository,
	audit *AuditLog,
	recorder metrics.Recorder,
	log *logger.Logger,
) PerformanceService {
	return &performanceService{
		platform: platform,
		sheets:   sheets,
		audit:    audit,
		recorder: recorder,
		logger:   log,
		now:      time.Now,
	}
}

type performanceService struct {
	platform repository.PlatformRepository
	sheets   repository.SheetRepository
	audit    *AuditLog
	recorder metrics.Recorder
	logger   *logger.Logger
	now      func() time.Time
}

func (s *performanceService) Collect(ctx context.Context, phase Phase) (*PhaseReport, error) {
	idx := phaseIndex(phase)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPhase, phase)
	}
	ctx = logger.WithContext(ctx, logger.StringField("stage", string(entity.StageMetrics)), logger.StringField("phase", string(phase)))
	now := s.now()
	start := phaseStart(phase)
	report := &PhaseReport{Phase: phase}

	posted, err := s.audit.Posted(ctx)
	if err != nil {
		return nil, err
	}
	perf, err := s.performanceIndex(ctx)
	if err != nil {
		return nil, err
	}

	var (
		eligible []PostedRecord
		missing  [][]string
	)
	for _, rec := range posted {
		if now.Sub(rec.PostedAt) < phases[idx].minAge {
			continue
		}
		if rec.DryRun || strings.HasPrefix(rec.ExternalID, DryRunPrefix) {
			report.DryRun++
			continue
		}
		row, seen := perf[rec.PostID]
		if seen && cell(row.cells, start) != "" {
			continue
		}
		if !seen {
			missing = append(missing, performanceIdentity(rec))
		}
		eligible = append(eligible, rec)
	}
	report.Eligible = len(eligible)
	if len(eligible) == 0 {
		return report, nil
	}

	if len(missing) > 0 {
		if err := s.sheets.AppendRows(ctx, common.TabPerformance, missing); err != nil {
			return report, fmt.Errorf("failed to append performance rows: %w", err)
		}
		report.Appended = len(missing)
		if perf, err = s.performanceIndex(ctx); err != nil {
			return report, err
		}
	}

	byExternal := make(map[string]PostedRecord, len(eligible))
	ids := make([]string, 0, len(eligible))
	for _, rec := range eligible {
		byExternal[rec.ExternalID] = rec
		ids = append(ids, rec.ExternalID)
	}

	collectedAt := formatTime(now)
	for batch := range chunk(ids, repository.MaxMetricsBatch) {
		if !utils.ShouldContinue(ctx, s.logger) {
			return report, ctx.Err()
		}
		report.Batches++
		got, err := s.platform.GetMetrics(ctx, batch)
		if err != nil {
			s.audit.LogError(ctx, entity.StageMetrics, string(phase), err)
			return report, fmt.Errorf("failed to fetch metrics batch %d: %w", report.Batches, err)
		}
		for _, m := range got {
			rec, ok := byExternal[m.PostID]
			if !ok {
				continue
			}
			row, ok := perf[rec.PostID]
			if !ok {
				continue
			}
			if err := s.sheets.UpdateRange(ctx, common.TabPerformance, row.index, start, phaseValues(m, collectedAt)); err != nil {
				s.logger.ErrorContext(ctx, "Failed to write phase metrics", logger.StringField("post_id", rec.PostID), logger.ErrorField(err))
				continue
			}
			row.cells = writePhase(row.cells, start, phaseValues(m, collectedAt))
			perf[rec.PostID] = row
			report.Updated++
		}
	}
	report.Missing = report.Eligible - report.Updated
	s.recorder.RecordMetricsFetched(string(phase), report.Updated)

	s.audit.LogInsights(ctx, insights(now, phase, start, perf))
	s.logger.InfoContext(ctx, "Phase metrics collected",
		logger.IntField("eligible", report.Eligible),
		logger.IntField("updated", report.Updated),
		logger.IntField("batches", report.Batches),
	)
	return report, nil
}

type perfRow struct {
	index int
	cells []string
}

func (s *performanceService) performanceIndex(ctx context.Context) (map[string]perfRow, error) {
	rows, err := s.sheets.ReadRows(ctx, common.TabPerformance)
	if err != nil {
		return nil, fmt.Errorf("failed to read performance log: %w", err)
	}
	out := make(map[string]perfRow, len(rows))
	for i, row := range rows {
		id := cell(row, perfColPostID)
		if id == "" {
			continue
		}
		if _, dup := out[id]; !dup {
			out[id] = perfRow{index: i, cells: row}
		}
	}
	return out, nil
}

func phaseValues(m dto.PostMetrics, collectedAt string) []string {
	v := make([]string, phaseColumns)
	v[phaseColLikes] = strconv.Itoa(m.Likes)
	v[phaseColReposts] = strconv.Itoa(m.Reposts)
	v[phaseColReplies] = strconv.Itoa(m.Replies)
	v[phaseColImpressions] = strconv.Itoa(m.Impressions)
	v[phaseColCollectedAt] = collectedAt
	return v
}

func writePhase(cells []string, start int, values []string) []string {
	out := make([]string, max(len(cells), start+len(values)))
	copy(out, cells)
	copy(out[start:], values)
	return out
}

// chunk yields consecutive slices of at most size elements.
func chunk(ids []string, size int) func(yield func([]string) bool) {
	return func(yield func([]string) bool) {
		for start := 0; start < len(ids); start += size {
			if !yield(ids[start:min(start+size, len(ids))]) {
				return
			}
		}
	}
}

// insights summarizes every category's posts that have metrics for the phase.
func insights(now time.Time, phase Phase, start int, perf map[string]perfRow) [][]string {
	type agg struct {
		posts, likes, reposts int
		best                  string
		bestScore             int
	}
	byCategory := map[string]*agg{}
	for id, row := range perf {
		if cell(row.cells, start+phaseColCollectedAt) == "" {
			continue
		}
		category := cell(row.cells, perfColCategory)
		a := byCategory[category]
		if a == nil {
			a = &agg{bestScore: -1}
			byCategory[category] = a
		}
		likes := atoi(cell(row.cells, start+phaseColLikes))
		reposts := atoi(cell(row.cells, start+phaseColReposts))
		a.posts++
		a.likes += likes
		a.reposts += reposts
		if score := likes + reposts; score > a.bestScore || (score == a.bestScore && id < a.best) {
			a.best, a.bestScore = id, score
		}
	}

	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	rows := make([][]string, 0, len(categories))
	for _, c := range categories {
		a := byCategory[c]
		rows = append(rows, []string{
			formatTime(now),
			string(phase),
			c,
			strconv.Itoa(a.posts),
			strconv.FormatFloat(float64(a.likes)/float64(a.posts), 'f', 2, 64),
			strconv.FormatFloat(float64(a.reposts)/float64(a.posts), 'f', 2, 64),
			a.best,
		})
	}
	return rows
}

var (
	csvPostIDAliases      = []string{"post_id", "post id", "tweet id", "tweet_id", "id"}
	csvImpressionsAliases = []string{"impressions", "impression_count"}
	csvCTRAliases         = []string{"ctr", "engagement rate", "engagement_rate", "url clicks rate"}
)

func headerIndex(header []string, aliases []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for _, a := range aliases {
			if h == a {
				return i
			}
		}
	}
	return -1
}

// ImportCSV point-updates the impressions and CTR columns from an analytics export. Rows are
// matched on the post id first and on the platform id second.
func (s *performanceService) ImportCSV(ctx context.Context, r io.Reader) (*ImportReport, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	idCol := headerIndex(header, csvPostIDAliases)
	impCol := headerIndex(header, csvImpressionsAliases)
	ctrCol := headerIndex(header, csvCTRAliases)
	if idCol < 0 || (impCol < 0 && ctrCol < 0) {
		return nil, fmt.Errorf("csv needs a post id column and an impressions or ctr column, got %v", header)
	}

	perf, err := s.performanceIndex(ctx)
	if err != nil {
		return nil, err
	}
	byExternal := make(map[string]perfRow, len(perf))
	for _, row := range perf {
		if ext := cell(row.cells, perfColExternalID); ext != "" {
			byExternal[ext] = row
		}
	}

	report := &ImportReport{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return report, fmt.Errorf("failed to read csv row %d: %w", report.Rows+2, err)
		}
		report.Rows++

		id := strings.TrimSpace(cell(record, idCol))
		row, ok := perf[id]
		if !ok {
			row, ok = byExternal[id]
		}
		if !ok {
			report.Skipped++
			continue
		}

		values := []string{cell(row.cells, perfColCSVImpressions), cell(row.cells, perfColCSVCTR)}
		if impCol >= 0 {
			values[0] = strings.TrimSpace(cell(record, impCol))
		}
		if ctrCol >= 0 {
			values[1] = strings.TrimSpace(cell(record, ctrCol))
		}
		if err := s.sheets.UpdateRange(ctx, common.TabPerformance, row.index, perfColCSVImpressions, values); err != nil {
			s.logger.ErrorContext(ctx, "Failed to import performance row", logger.StringField("post_id", id), logger.ErrorField(err))
			report.Skipped++
			continue
		}
		report.Updated++
	}
	s.logger.InfoContext(ctx, "Performance CSV imported",
		logger.IntField("rows", report.Rows),
		logger.IntField("updated", report.Updated),
		logger.IntField("skipped", report.Skipped),
	)
	return report, nil
}
