package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang-news-slate/internal/entity"
)

// Column layouts of the persisted tabs.

const (
	candidateColFetchedAt = iota
	candidateColCategory
	candidateColOrigin
	candidateColHeadline
	candidateColURL
	candidateColSource
	candidateColPublishedAt
	candidateColSummary
	candidateColumns
)

const (
	rankedColDate = iota
	rankedColCategory
	rankedColRank
	rankedColHeadline
	rankedColURL
	rankedColSource
	rankedColPublishedAt
	rankedColSummary
	rankedColOrigin
	rankedColRecency
	rankedColAuthority
	rankedColEngagement
	rankedColVirality
	rankedColSEO
	rankedColTotal
	rankedColEngagementSource
	rankedColumns
)

const (
	postedColPostID = iota
	postedColDate
	postedColPostNumber
	postedColCategory
	postedColExternalID
	postedColPostedAt
	postedColText
	postedColURL
	postedColDryRun
	postedColumns
)

// Performance rows carry the post identity followed by one block per collection phase and
// the two columns filled from an uploaded analytics export.
const (
	perfColPostID = iota
	perfColExternalID
	perfColCategory
	perfColPostedAt
	perfColFirstPhase
)

const (
	phaseColLikes = iota
	phaseColReposts
	phaseColReplies
	phaseColImpressions
	phaseColCollectedAt
	phaseColumns
)

const (
	perfColCSVImpressions = perfColFirstPhase + phaseColumns*4 + iota
	perfColCSVCTR
	perfColumns
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

func candidateRow(a entity.CandidateArticle, fetchedAt time.Time) []string {
	row := make([]string, candidateColumns)
	row[candidateColFetchedAt] = formatTime(fetchedAt)
	row[candidateColCategory] = string(a.CategoryID)
	row[candidateColOrigin] = string(a.Origin)
	row[candidateColHeadline] = a.Headline
	row[candidateColURL] = a.URL
	row[candidateColSource] = a.Source
	row[candidateColPublishedAt] = formatTime(a.PublishedAt)
	row[candidateColSummary] = a.Summary
	return row
}

func candidateFromRow(row []string) (entity.CandidateArticle, bool) {
	if cell(row, candidateColURL) == "" {
		return entity.CandidateArticle{}, false
	}
	return entity.CandidateArticle{
		Headline:    cell(row, candidateColHeadline),
		URL:         cell(row, candidateColURL),
		Source:      cell(row, candidateColSource),
		PublishedAt: parseTime(cell(row, candidateColPublishedAt)),
		Summary:     cell(row, candidateColSummary),
		CategoryID:  entity.CategoryID(cell(row, candidateColCategory)),
		Origin:      entity.Origin(cell(row, candidateColOrigin)),
	}, true
}

func rankedRow(date string, a entity.SelectedArticle) []string {
	row := make([]string, rankedColumns)
	row[rankedColDate] = date
	row[rankedColCategory] = string(a.CategoryID)
	row[rankedColRank] = strconv.Itoa(a.Rank)
	row[rankedColHeadline] = a.Headline
	row[rankedColURL] = a.URL
	row[rankedColSource] = a.Source
	row[rankedColPublishedAt] = formatTime(a.PublishedAt)
	row[rankedColSummary] = a.Summary
	row[rankedColOrigin] = string(a.Origin)
	row[rankedColRecency] = strconv.Itoa(a.Scores.Recency)
	row[rankedColAuthority] = strconv.Itoa(a.Scores.Authority)
	row[rankedColEngagement] = strconv.Itoa(a.Scores.Engagement)
	row[rankedColVirality] = strconv.Itoa(a.Scores.Virality)
	row[rankedColSEO] = strconv.Itoa(a.Scores.SEO)
	row[rankedColTotal] = strconv.Itoa(a.Total)
	row[rankedColEngagementSource] = string(a.EngagementSource)
	return row
}

func selectedFromRow(row []string) (entity.SelectedArticle, bool) {
	rank := atoi(cell(row, rankedColRank))
	if rank < 1 || cell(row, rankedColURL) == "" {
		return entity.SelectedArticle{}, false
	}
	scores := entity.SubScores{
		Recency:    atoi(cell(row, rankedColRecency)),
		Authority:  atoi(cell(row, rankedColAuthority)),
		Engagement: atoi(cell(row, rankedColEngagement)),
		Virality:   atoi(cell(row, rankedColVirality)),
		SEO:        atoi(cell(row, rankedColSEO)),
	}
	return entity.SelectedArticle{
		ScoredArticle: entity.ScoredArticle{
			CandidateArticle: entity.CandidateArticle{
				Headline:    cell(row, rankedColHeadline),
				URL:         cell(row, rankedColURL),
				Source:      cell(row, rankedColSource),
				PublishedAt: parseTime(cell(row, rankedColPublishedAt)),
				Summary:     cell(row, rankedColSummary),
				CategoryID:  entity.CategoryID(cell(row, rankedColCategory)),
				Origin:      entity.Origin(cell(row, rankedColOrigin)),
			},
			Scores:           scores,
			Total:            atoi(cell(row, rankedColTotal)),
			EngagementSource: entity.EngagementSource(cell(row, rankedColEngagementSource)),
		},
		Rank: rank,
	}, true
}

// PostedRecord is one row of the posted log.
type PostedRecord struct {
	PostID     string
	Date       string
	PostNumber int
	Category   entity.CategoryID
	ExternalID string
	PostedAt   time.Time
	Text       string
	URL        string
	DryRun     bool
}

func postedRow(p entity.ScheduledPost, dryRun bool) []string {
	row := make([]string, postedColumns)
	row[postedColPostID] = p.ID
	row[postedColDate] = p.Date
	row[postedColPostNumber] = strconv.Itoa(p.Slot.PostNumber)
	row[postedColCategory] = string(p.Slot.CategoryID)
	row[postedColExternalID] = p.ExternalID
	if p.PostedAt != nil {
		row[postedColPostedAt] = formatTime(*p.PostedAt)
	}
	row[postedColText] = p.Text
	if p.Article != nil {
		row[postedColURL] = p.Article.URL
	}
	row[postedColDryRun] = strconv.FormatBool(dryRun)
	return row
}

func postedFromRow(row []string) (PostedRecord, bool) {
	rec := PostedRecord{
		PostID:     cell(row, postedColPostID),
		Date:       cell(row, postedColDate),
		PostNumber: atoi(cell(row, postedColPostNumber)),
		Category:   entity.CategoryID(cell(row, postedColCategory)),
		ExternalID: cell(row, postedColExternalID),
		PostedAt:   parseTime(cell(row, postedColPostedAt)),
		Text:       cell(row, postedColText),
		URL:        cell(row, postedColURL),
		DryRun:     cell(row, postedColDryRun) == "true",
	}
	if rec.PostID == "" || rec.PostNumber < 1 || rec.PostedAt.IsZero() {
		return PostedRecord{}, false
	}
	return rec, true
}

func performanceIdentity(rec PostedRecord) []string {
	row := make([]string, perfColumns)
	row[perfColPostID] = rec.PostID
	row[perfColExternalID] = rec.ExternalID
	row[perfColCategory] = string(rec.Category)
	row[perfColPostedAt] = formatTime(rec.PostedAt)
	return row
}

func errorRow(at time.Time, stage, scope string, err error) []string {
	return []string{formatTime(at), stage, scope, fmt.Sprint(err)}
}
