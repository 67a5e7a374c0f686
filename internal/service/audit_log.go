package service

import (
	"context"
	"fmt"
	"time"

	"golang-news-slate/internal/entity"
	"golang-news-slate/internal/repository"
	"golang-news-slate/pkg/common"
	"golang-news-slate/pkg/logger"
)

// AuditLog writes the pipeline's durable record. Write failures are logged and swallowed so
// that logging never fails the action it describes; reads return their errors.
type AuditLog struct {
	sheets repository.SheetRepository
	logger *logger.Logger
	now    func() time.Time
}

// NewAuditLog creates an AuditLog over sheets.
func NewAuditLog(sheets repository.SheetRepository, log *logger.Logger) *AuditLog {
	return &AuditLog{sheets: sheets, logger: log, now: time.Now}
}

func candidatesTab(date string) string { return common.TabCandidatesPrefix + date }
func rankedTab(date string) string     { return common.TabRankedPrefix + date }

func (l *AuditLog) append(ctx context.Context, tab string, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	if err := l.sheets.AppendRows(ctx, tab, rows); err != nil {
		l.logger.ErrorContext(ctx, "Failed to write log rows",
			logger.StringField("tab", tab),
			logger.IntField("rows", len(rows)),
			logger.ErrorField(err),
		)
	}
}

// LogCandidates records the day's collected pool.
func (l *AuditLog) LogCandidates(ctx context.Context, date string, articles []entity.CandidateArticle) {
	fetchedAt := l.now()
	rows := make([][]string, 0, len(articles))
	for _, a := range articles {
		rows = append(rows, candidateRow(a, fetchedAt))
	}
	l.append(ctx, candidatesTab(date), rows)
}

// LogRanked records the selected articles with their scores.
func (l *AuditLog) LogRanked(ctx context.Context, date string, selected []entity.SelectedArticle) {
	rows := make([][]string, 0, len(selected))
	for _, a := range selected {
		rows = append(rows, rankedRow(date, a))
	}
	l.append(ctx, rankedTab(date), rows)
}

// LogPosted records a published post.
func (l *AuditLog) LogPosted(ctx context.Context, post entity.ScheduledPost, dryRun bool) {
	l.append(ctx, common.TabPosted, [][]string{postedRow(post, dryRun)})
}

// LogError records a stage failure.
func (l *AuditLog) LogError(ctx context.Context, stage entity.Stage, scope string, err error) {
	l.append(ctx, common.TabErrors, [][]string{errorRow(l.now(), string(stage), scope, err)})
}

// LogInsights records per-category performance summaries.
func (l *AuditLog) LogInsights(ctx context.Context, rows [][]string) {
	l.append(ctx, common.TabInsights, rows)
}

// PreviousDayCandidates returns the candidates logged for category on date.
func (l *AuditLog) PreviousDayCandidates(ctx context.Context, date string, category entity.CategoryID) ([]entity.CandidateArticle, error) {
	rows, err := l.sheets.ReadRows(ctx, candidatesTab(date))
	if err != nil {
		return nil, fmt.Errorf("failed to read candidates of %s: %w", date, err)
	}
	var out []entity.CandidateArticle
	for _, row := range rows {
		if a, ok := candidateFromRow(row); ok && a.CategoryID == category {
			out = append(out, a)
		}
	}
	return out, nil
}

// Ranked returns the selection logged for date. When the day was ranked more than once the
// last run wins.
func (l *AuditLog) Ranked(ctx context.Context, date string) ([]entity.SelectedArticle, error) {
	rows, err := l.sheets.ReadRows(ctx, rankedTab(date))
	if err != nil {
		return nil, fmt.Errorf("failed to read ranked log of %s: %w", date, err)
	}
	type key struct {
		category entity.CategoryID
		rank     int
	}
	latest := map[key]int{}
	var out []entity.SelectedArticle
	for _, row := range rows {
		a, ok := selectedFromRow(row)
		if !ok {
			continue
		}
		k := key{a.CategoryID, a.Rank}
		if i, seen := latest[k]; seen {
			out[i] = a
			continue
		}
		latest[k] = len(out)
		out = append(out, a)
	}
	return out, nil
}

// Posted returns every row of the posted log.
func (l *AuditLog) Posted(ctx context.Context) ([]PostedRecord, error) {
	rows, err := l.sheets.ReadRows(ctx, common.TabPosted)
	if err != nil {
		return nil, fmt.Errorf("failed to read posted log: %w", err)
	}
	out := make([]PostedRecord, 0, len(rows))
	for _, row := range rows {
		if rec, ok := postedFromRow(row); ok {
			out = append(out, rec)
		}
	}
	return out, nil
}
