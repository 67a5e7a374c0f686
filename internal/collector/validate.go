package collector

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang-news-slate/internal/dto"
	"golang-news-slate/internal/entity"
	"golang-news-slate/pkg/utils"

	"github.com/microcosm-cc/bluemonday"
)

const (
	MinHeadlineLength = 10
	MinSummaryLength  = 20
)

var (
	ErrShortHeadline = errors.New("headline too short")
	ErrShortSummary  = errors.New("summary too short")
	ErrInvalidURL    = errors.New("invalid article url")
	ErrMissingSource = errors.New("missing article source")
)

var stripPolicy = bluemonday.StrictPolicy()

// Sanitize strips markup and collapses whitespace.
func Sanitize(s string) string {
	// bluemonday escapes the text it keeps; SafeText unescapes it again
	return utils.SafeText(stripPolicy.Sanitize(s))
}

// Validate turns a provider item into a candidate, or explains why it must be dropped.
// A missing publish time defaults to fetchedAt.
func Validate(raw dto.RawArticle, category entity.CategoryID, origin entity.Origin, fetchedAt time.Time) (entity.CandidateArticle, error) {
	headline := Sanitize(raw.Headline)
	if utils.RuneLen(headline) < MinHeadlineLength {
		return entity.CandidateArticle{}, fmt.Errorf("%w: %q", ErrShortHeadline, headline)
	}
	summary := Sanitize(raw.Summary)
	if utils.RuneLen(summary) < MinSummaryLength {
		return entity.CandidateArticle{}, fmt.Errorf("%w: %q", ErrShortSummary, headline)
	}

	link := strings.TrimSpace(raw.URL)
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return entity.CandidateArticle{}, fmt.Errorf("%w: %q", ErrInvalidURL, link)
	}

	source := Sanitize(raw.Source)
	if source == "" {
		return entity.CandidateArticle{}, fmt.Errorf("%w: %q", ErrMissingSource, headline)
	}

	published := fetchedAt.UTC()
	if raw.PublishedAt != nil && !raw.PublishedAt.IsZero() {
		published = raw.PublishedAt.UTC()
	}

	return entity.CandidateArticle{
		Headline:    headline,
		URL:         link,
		Source:      source,
		PublishedAt: published,
		Summary:     summary,
		CategoryID:  category,
		Origin:      origin,
	}, nil
}

// NormalizeURL is the dedup key: lower-cased, without query, fragment or trailing slash.
func NormalizeURL(link string) string {
	s := strings.ToLower(strings.TrimSpace(link))
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimRight(s, "/")
}
