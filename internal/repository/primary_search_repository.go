package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang-news-slate/internal/config"
	"golang-news-slate/internal/dto"
	"golang-news-slate/internal/entity"
	"golang-news-slate/pkg/logger"

	"golang.org/x/time/rate"
)

type primarySearchRepository struct {
	client         *http.Client
	cfg            config.PrimarySearch
	logger         *logger.Logger
	requestLimiter *rate.Limiter
	now            func() time.Time
}

// NewPrimarySearchRepository creates a PrimarySearchRepository over an OpenAI-compatible search model.
func NewPrimarySearchRepository(cfg config.PrimarySearch, log *logger.Logger) PrimarySearchRepository {
	secondsPerRequest := time.Minute / time.Duration(max(cfg.MaxRequestPerMinute, 1))
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &primarySearchRepository{
		client:         &http.Client{Timeout: timeout},
		cfg:            cfg,
		logger:         log,
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
		now:            time.Now,
	}
}

func (r *primarySearchRepository) Search(ctx context.Context, category entity.Category) ([]dto.RawArticle, error) {
	prompt := BuildPrimarySearchPrompt(category, r.cfg.MaxResults, r.now().UTC())
	resp, err := sendChatCompletion(ctx, r.client, r.requestLimiter, r.logger, r.cfg.BaseURL, r.cfg.APIKey, dto.OpenAIRequest{
		Model:    r.cfg.Model,
		Messages: []dto.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in primary search reply: %w", ErrParse)
	}

	items, err := ParsePrimaryReply(resp.Choices[0].Message.Content)
	if err != nil {
		r.logger.Warn("Primary search reply could not be parsed",
			logger.StringField("category", string(category.ID)),
			logger.ErrorField(err),
		)
		return nil, err
	}

	articles := make([]dto.RawArticle, 0, len(items))
	for _, item := range items {
		articles = append(articles, item.ToRaw())
	}
	return articles, nil
}

// BuildPrimarySearchPrompt asks the search model for a JSON array of recent articles.
func BuildPrimarySearchPrompt(category entity.Category, maxResults int, now time.Time) string {
	if maxResults <= 0 {
		maxResults = 10
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Find up to %d news articles published in the last 24 hours (it is now %s UTC) about: %s\n\n",
		maxResults, now.Format("2006-01-02 15:04"), category.Description)
	b.WriteString("Return ONLY a JSON array. Each element must have the keys ")
	b.WriteString(`"headline", "url", "source", "published_at" (ISO-8601) and "summary" (one or two sentences). `)
	b.WriteString("Use the canonical article URL, not a search or aggregator link. Do not add commentary.")
	return b.String()
}

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// primaryParser is one attempt at extracting articles from a reply.
type primaryParser func(reply string) ([]dto.PrimaryArticle, bool)

// ParsePrimaryReply tries each reply shape in order and returns the first that decodes:
// a bare array, an object wrapping the array, a markdown-fenced block, an array embedded in prose.
func ParsePrimaryReply(reply string) ([]dto.PrimaryArticle, error) {
	reply = strings.TrimSpace(reply)
	for _, parse := range []primaryParser{parseArray, parseEnvelope, parseFenced, parseEmbedded} {
		if items, ok := parse(reply); ok {
			return items, nil
		}
	}
	return nil, fmt.Errorf("no article list found in reply: %w", ErrParse)
}

func parseArray(reply string) ([]dto.PrimaryArticle, bool) {
	var items []dto.PrimaryArticle
	if err := json.Unmarshal([]byte(reply), &items); err != nil {
		return nil, false
	}
	return items, true
}

func parseEnvelope(reply string) ([]dto.PrimaryArticle, bool) {
	var env dto.PrimaryEnvelope
	if err := json.Unmarshal([]byte(reply), &env); err != nil {
		return nil, false
	}
	switch {
	case env.Articles != nil:
		return env.Articles, true
	case env.Results != nil:
		return env.Results, true
	}
	return nil, false
}

func parseFenced(reply string) ([]dto.PrimaryArticle, bool) {
	m := fencedBlockRe.FindStringSubmatch(reply)
	if m == nil {
		return nil, false
	}
	inner := strings.TrimSpace(m[1])
	if items, ok := parseArray(inner); ok {
		return items, true
	}
	return parseEnvelope(inner)
}

func parseEmbedded(reply string) ([]dto.PrimaryArticle, bool) {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start < 0 || end <= start {
		return nil, false
	}
	return parseArray(reply[start : end+1])
}
