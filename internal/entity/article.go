package entity

import "time"

// Origin tells which collection stage produced an article.
type Origin string

const (
	OriginPrimary     Origin = "primary"
	OriginBackup      Origin = "backup"
	OriginPreviousDay Origin = "previous-day"
)

// CandidateArticle is a validated news item waiting to be scored.
type CandidateArticle struct {
	Headline    string     `json:"headline"`
	URL         string     `json:"url"`
	Source      string     `json:"source"`
	PublishedAt time.Time  `json:"published_at"`
	Summary     string     `json:"summary"`
	CategoryID  CategoryID `json:"category_id"`
	Origin      Origin     `json:"origin"`
}

// SubScores holds the five rubric components.
type SubScores struct {
	Recency    int `json:"recency"`    // 0-20
	Authority  int `json:"authority"`  // 0-25
	Engagement int `json:"engagement"` // 0-25
	Virality   int `json:"virality"`   // 0-20
	SEO        int `json:"seo"`        // 0-10
}

// Sum adds the components.
func (s SubScores) Sum() int {
	return s.Recency + s.Authority + s.Engagement + s.Virality + s.SEO
}

// EngagementSource records which scorer produced the engagement component.
type EngagementSource string

const (
	EngagementHeuristic EngagementSource = "heuristic"
	EngagementAI        EngagementSource = "ai"
)

// ScoredArticle is a candidate with its rubric scores.
type ScoredArticle struct {
	CandidateArticle
	Scores           SubScores        `json:"scores"`
	Total            int              `json:"total"`
	EngagementSource EngagementSource `json:"engagement_source"`
}

// SelectedArticle is a scored article picked for the slate. Rank 1 is the best in its category.
type SelectedArticle struct {
	ScoredArticle
	Rank int `json:"rank"`
}
