package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang-news-slate/internal/collector"
	"golang-news-slate/internal/entity"
	"golang-news-slate/internal/metrics"
	"golang-news-slate/internal/ranking"
	"golang-news-slate/internal/scoring"
	"golang-news-slate/internal/slot"
	"golang-news-slate/pkg/logger"
	"golang-news-slate/pkg/telegram"
	"golang-news-slate/pkg/utils"
)

// CategoryReport summarizes one category's collection.
type CategoryReport struct {
	Category    entity.CategoryID     `json:"category"`
	Source      collector.SourceLabel `json:"source"`
	Candidates  int                   `json:"candidates"`
	Selected    int                   `json:"selected"`
	Attempts    int                   `json:"primary_attempts"`
	Dropped     int                   `json:"dropped"`
	Error       string                `json:"error,omitempty"`
	StageErrors []string              `json:"stage_errors,omitempty"`
}

// CollectReport is the output of a collection run.
type CollectReport struct {
	Date        string            `json:"date"`
	Categories  []CategoryReport  `json:"categories"`
	Assignment  slot.AssignResult `json:"assignment"`
	Initialized bool              `json:"initialized"`
	Selected    []SelectedSummary `json:"selected"`
}

// SelectedSummary is a compact view of a ranked article.
type SelectedSummary struct {
	Category entity.CategoryID `json:"category"`
	Rank     int               `json:"rank"`
	Total    int               `json:"total"`
	Headline string            `json:"headline"`
	URL      string            `json:"url"`
}

// PipelineService runs the daily collect -> score -> rank -> assign chain and owns the board.
type PipelineService interface {
	Collect(ctx context.Context) (*CollectReport, error)
	// EnsureBoard makes sure the board holds the civic day of now, rebuilding it from the
	// ranked and posted logs after a restart. It reports whether the board is usable.
	EnsureBoard(ctx context.Context, now time.Time) (bool, error)
	Board() *slot.Board
	Clock() slot.Clock
}

// NewPipelineService creates a PipelineService.
func NewPipelineService(
	collect *collector.Collector,
	engine *scoring.Engine,
	selector ranking.Selector,
	board *slot.Board,
	clock slot.Clock,
	audit *AuditLog,
	alerter Alerter,
	recorder metrics.Recorder,
	log *logger.Logger,
) PipelineService {
	return &pipelineService{
		collector: collect,
		engine:    engine,
		selector:  selector,
		board:     board,
		clock:     clock,
		audit:     audit,
		alerter:   alerter,
		recorder:  recorder,
		logger:    log,
		now:       time.Now,
	}
}

type pipelineService struct {
	collector *collector.Collector
	engine    *scoring.Engine
	selector  ranking.Selector
	board     *slot.Board
	clock     slot.Clock
	audit     *AuditLog
	alerter   Alerter
	recorder  metrics.Recorder
	logger    *logger.Logger
	now       func() time.Time

	rebuildMu sync.Mutex
}

func (s *pipelineService) Board() *slot.Board { return s.board }
func (s *pipelineService) Clock() slot.Clock  { return s.clock }

func (s *pipelineService) Collect(ctx context.Context) (*CollectReport, error) {
	now := s.now()
	date := s.clock.Date(now)
	ctx = logger.WithContext(ctx, logger.StringField("stage", string(entity.StageCollect)), logger.StringField("date", date))
	report := &CollectReport{Date: date}

	categories := entity.Categories()
	results := s.collector.CollectAll(ctx, categories)

	var pool []entity.CandidateArticle
	for _, res := range results {
		cr := CategoryReport{
			Category:   res.CategoryID,
			Source:     res.SourceUsed,
			Candidates: len(res.Articles),
			Attempts:   res.Attempts,
			Dropped:    res.Dropped,
		}
		for _, err := range res.StageErrors {
			cr.StageErrors = append(cr.StageErrors, err.Error())
			s.audit.LogError(ctx, entity.StageCollect, string(res.CategoryID), err)
		}
		if res.Err != nil {
			cr.Error = res.Err.Error()
			s.recorder.RecordCategoryExhausted(string(res.CategoryID))
			s.audit.LogError(ctx, entity.StageCollect, string(res.CategoryID), res.Err)
			s.alerter.Alert(telegram.SeverityCritical,
				fmt.Sprintf("No candidates for %s on %s", res.CategoryID, date),
				"Primary, backup and previous-day sources all came back empty. Its three slots will be skipped today.")
		} else {
			s.recorder.RecordCollection(string(res.CategoryID), string(res.SourceUsed), len(res.Articles))
		}
		report.Categories = append(report.Categories, cr)
		pool = append(pool, res.Articles...)
	}

	s.audit.LogCandidates(ctx, date, pool)

	scored := s.engine.ScoreAll(ctx, pool, now)
	selected := s.selector.Select(scored)
	s.audit.LogRanked(ctx, date, selected)

	perCategory := map[entity.CategoryID]int{}
	for _, a := range selected {
		perCategory[a.CategoryID]++
		report.Selected = append(report.Selected, SelectedSummary{
			Category: a.CategoryID, Rank: a.Rank, Total: a.Total, Headline: a.Headline, URL: a.URL,
		})
	}
	for i := range report.Categories {
		report.Categories[i].Selected = perCategory[report.Categories[i].Category]
	}

	assignment, initialized, err := s.initializeAndAssign(date, selected)
	if err != nil {
		return report, fmt.Errorf("failed to assign slate: %w", err)
	}
	report.Assignment = assignment
	report.Initialized = initialized
	s.recordSlots()

	s.logger.InfoContext(ctx, "Slate assigned",
		logger.IntField("ready", assignment.Ready),
		logger.IntField("no_article", assignment.NoArticle),
		logger.IntField("skipped", assignment.Skipped),
	)
	s.alerter.Send(telegram.FormatSlateDigest(date, s.digestLines()))
	return report, nil
}

func (s *pipelineService) initializeAndAssign(date string, selected []entity.SelectedArticle) (slot.AssignResult, bool, error) {
	civic, err := utils.ParseDate(date)
	if err != nil {
		return slot.AssignResult{}, false, err
	}
	initialized := s.board.Initialize(date, entity.QuoteForDate(civic))
	res, err := s.board.Assign(selected)
	return res, initialized, err
}

func (s *pipelineService) EnsureBoard(ctx context.Context, now time.Time) (bool, error) {
	date := s.clock.Date(now)
	if s.board.Date() == date {
		return true, nil
	}

	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()
	if s.board.Date() == date {
		return true, nil
	}

	selected, err := s.audit.Ranked(ctx, date)
	if err != nil {
		return false, err
	}
	if len(selected) == 0 {
		s.logger.WarnContext(ctx, "No ranked log for today, board stays empty", logger.StringField("date", date))
		return false, nil
	}
	if _, _, err := s.initializeAndAssign(date, selected); err != nil {
		return false, err
	}

	posted, err := s.audit.Posted(ctx)
	if err != nil {
		return true, err
	}
	restored := 0
	for _, rec := range posted {
		if rec.Date != date {
			continue
		}
		if err := s.board.RestorePosted(rec.PostID, rec.ExternalID, rec.Text, rec.PostedAt); err != nil {
			if !errors.Is(err, slot.ErrInvalidTransition) {
				s.logger.WarnContext(ctx, "Failed to restore posted post", logger.StringField("post_id", rec.PostID), logger.ErrorField(err))
			}
			continue
		}
		restored++
	}
	s.recordSlots()
	s.logger.InfoContext(ctx, "Board rebuilt from logs",
		logger.StringField("date", date),
		logger.IntField("selected", len(selected)),
		logger.IntField("restored_posted", restored),
	)
	return true, nil
}

func (s *pipelineService) recordSlots() {
	counts := map[string]int{}
	for status, n := range s.board.Counts() {
		counts[string(status)] = n
	}
	s.recorder.RecordSlotStatuses(counts)
}

func (s *pipelineService) digestLines() []telegram.SlateLine {
	var lines []telegram.SlateLine
	for _, p := range s.board.Posts() {
		line := telegram.SlateLine{
			PostNumber: p.Slot.PostNumber,
			LocalTime:  fmt.Sprintf("%02d:00", p.Slot.LocalHour),
			Category:   string(p.Slot.CategoryID),
			Status:     string(p.Status),
		}
		if p.Article != nil {
			line.Headline = p.Article.Headline
		}
		lines = append(lines, line)
	}
	return lines
}
