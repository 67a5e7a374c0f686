package dto

import "time"

// RawArticle is an unvalidated item as returned by a search provider.
type RawArticle struct {
	Headline    string     `json:"headline"`
	URL         string     `json:"url"`
	Source      string     `json:"source"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Summary     string     `json:"summary"`
}

// PrimaryArticle is the loose shape language models return; alternate keys are accepted.
type PrimaryArticle struct {
	Headline    string `json:"headline"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Link        string `json:"link"`
	Source      string `json:"source"`
	Publisher   string `json:"publisher"`
	PublishedAt string `json:"published_at"`
	Date        string `json:"date"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
}

// PrimaryEnvelope covers replies that wrap the list in an object.
type PrimaryEnvelope struct {
	Articles []PrimaryArticle `json:"articles"`
	Results  []PrimaryArticle `json:"results"`
}

// NewsAPIResponse is the body of the NewsAPI everything endpoint.
type NewsAPIResponse struct {
	Status       string           `json:"status"`
	Code         string           `json:"code"`
	Message      string           `json:"message"`
	TotalResults int              `json:"totalResults"`
	Articles     []NewsAPIArticle `json:"articles"`
}

type NewsAPIArticle struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
	Content     string    `json:"content"`
}
