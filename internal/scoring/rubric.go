package scoring

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"golang-news-slate/internal/entity"
)

// Caps of each rubric component.
const (
	MaxRecency    = 20
	MaxAuthority  = 25
	MaxEngagement = 25
	MaxVirality   = 20
	MaxSEO        = 10
)

var keywordMatchers sync.Map // entity.CategoryID -> *regexp.Regexp

// categoryKeywords returns the whole-word matcher for a category's keywords,
// or nil when it has none.
func categoryKeywords(category entity.Category) *regexp.Regexp {
	if len(category.Keywords) == 0 {
		return nil
	}
	if re, ok := keywordMatchers.Load(category.ID); ok {
		return re.(*regexp.Regexp)
	}
	re, _ := keywordMatchers.LoadOrStore(category.ID, wordSet(category.Keywords...))
	return re.(*regexp.Regexp)
}

// Recency scores freshness relative to now. Future timestamps score 0.
func Recency(publishedAt, now time.Time) int {
	elapsed := now.Sub(publishedAt)
	switch {
	case elapsed < 0:
		return 0
	case elapsed <= 6*time.Hour:
		return 20
	case elapsed <= 12*time.Hour:
		return 15
	case elapsed <= 18*time.Hour:
		return 10
	case elapsed <= 24*time.Hour:
		return 5
	default:
		return 0
	}
}

func articleText(a entity.CandidateArticle) string {
	return a.Headline + " " + a.Summary
}

func isQuestion(a entity.CandidateArticle) bool {
	return strings.Contains(a.Headline, "?") || strings.Contains(a.Summary, "?") ||
		interrogativeStartRe.MatchString(a.Headline)
}

// HeuristicEngagement estimates discussion potential from wording alone.
func HeuristicEngagement(a entity.CandidateArticle) int {
	text := articleText(a)
	score := 0
	if provocativeRe.MatchString(text) {
		score += 5
	}
	if isQuestion(a) {
		score += 3
	}
	if opinionRe.MatchString(text) {
		score += 2
	}
	business := 0
	for _, re := range businessKeywords {
		if re.MatchString(text) {
			business += 2
		}
	}
	score += min(business, 10)
	if announcementRe.MatchString(text) {
		score += 5
	}
	return min(score, MaxEngagement)
}

// Virality scores shareability signals.
func Virality(a entity.CandidateArticle) int {
	text := articleText(a)
	score := 0
	if statisticRe.MatchString(text) {
		score += 5
	}
	if strings.Contains(a.Headline, "?") || interrogativeStartRe.MatchString(a.Headline) || provocativeRe.MatchString(a.Headline) {
		score += 5
	}
	if entityRe.MatchString(text) {
		score += 5
	}
	if breakingRe.MatchString(text) {
		score += 5
	}
	return min(score, MaxVirality)
}

// SEO scores keyword fit for the category and a B2B audience.
func SEO(a entity.CandidateArticle, category entity.Category) int {
	text := articleText(a)
	score := 0
	if re := categoryKeywords(category); re != nil && re.MatchString(text) {
		score += 5
	}
	if b2bRe.MatchString(text) {
		score += 5
	}
	return min(score, MaxSEO)
}

// ScoreWith computes the full rubric with a given engagement component. It is pure.
func ScoreWith(a entity.CandidateArticle, now time.Time, engagement int, source entity.EngagementSource) entity.ScoredArticle {
	category, _ := entity.CategoryByID(a.CategoryID)
	scores := entity.SubScores{
		Recency:    Recency(a.PublishedAt, now),
		Authority:  Authority(a.Source),
		Engagement: clamp(engagement, 0, MaxEngagement),
		Virality:   Virality(a),
		SEO:        SEO(a, category),
	}
	return entity.ScoredArticle{
		CandidateArticle: a,
		Scores:           scores,
		Total:            scores.Sum(),
		EngagementSource: source,
	}
}

// ScoreHeuristic scores an article without any network access.
func ScoreHeuristic(a entity.CandidateArticle, now time.Time) entity.ScoredArticle {
	return ScoreWith(a, now, HeuristicEngagement(a), entity.EngagementHeuristic)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
