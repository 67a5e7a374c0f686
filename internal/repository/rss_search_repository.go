package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang-news-slate/internal/config"
	"golang-news-slate/internal/dto"
	"golang-news-slate/pkg/logger"
	"golang-news-slate/pkg/utils"

	"github.com/PuerkitoBio/goquery"
	"github.com/mauidude/go-readability"
	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"
)

// ProviderRSS is the quota bucket name of the Google News RSS backup provider.
const ProviderRSS = "rss"

// minEnrichedSummary is the summary length below which an article page is fetched for text.
const minEnrichedSummary = 80

type rssSearchRepository struct {
	client         *http.Client
	cfg            config.BackupSearch
	maxPerQuery    int
	logger         *logger.Logger
	quota          QuotaRepository
	today          func() string
	requestLimiter *rate.Limiter
	now            func() time.Time
}

// NewRSSSearchRepository creates a BackupSearchRepository over the Google News RSS search feed.
func NewRSSSearchRepository(cfg config.BackupSearch, maxPerQuery int, quota QuotaRepository, today func() string, log *logger.Logger) BackupSearchRepository {
	secondsPerRequest := time.Minute / time.Duration(max(cfg.MaxRequestPerMinute, 1))
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if cfg.BaseURL == "" || strings.Contains(cfg.BaseURL, "newsapi.org") {
		cfg.BaseURL = "https://news.google.com"
	}
	return &rssSearchRepository{
		client:         &http.Client{Timeout: timeout},
		cfg:            cfg,
		maxPerQuery:    maxPerQuery,
		logger:         log,
		quota:          quota,
		today:          today,
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
		now:            time.Now,
	}
}

func (r *rssSearchRepository) Name() string {
	return ProviderRSS
}

func (r *rssSearchRepository) Remaining(ctx context.Context) (int, error) {
	used, err := r.quota.Used(ctx, ProviderRSS, r.today())
	if err != nil {
		return 0, err
	}
	return max(r.cfg.DailyQuota-used, 0), nil
}

func (r *rssSearchRepository) Search(ctx context.Context, query string) ([]dto.RawArticle, error) {
	remaining, err := r.Remaining(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check quota: %w", err)
	}
	if remaining <= 0 {
		return nil, fmt.Errorf("%s daily quota of %d spent: %w", ProviderRSS, r.cfg.DailyQuota, ErrQuotaExhausted)
	}
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}
	if _, err := r.quota.Increment(ctx, ProviderRSS, r.today()); err != nil {
		return nil, fmt.Errorf("failed to count quota: %w", err)
	}

	q := query
	if r.cfg.LookbackHours > 0 {
		q = fmt.Sprintf("%s when:%dh", query, r.cfg.LookbackHours)
	}
	feedURL := fmt.Sprintf("%s/rss/search?%s", r.cfg.BaseURL, url.Values{
		"q":    {q},
		"hl":   {"en-US"},
		"gl":   {"US"},
		"ceid": {"US:en"},
	}.Encode())

	r.logger.Info("Processing RSS feed", logger.StringField("url", feedURL))
	fp := gofeed.NewParser()
	fp.Client = r.client
	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		r.logger.Error("Failed to parse RSS feed", logger.ErrorField(err), logger.StringField("query", query))
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) && !isTransientStatus(httpErr.StatusCode) {
			return nil, fmt.Errorf("failed to parse RSS feed: %w", err)
		}
		return nil, fmt.Errorf("failed to parse RSS feed: %w: %w", ErrTransient, err)
	}

	// newest first
	sort.SliceStable(feed.Items, func(i, j int) bool {
		if feed.Items[i].PublishedParsed == nil || feed.Items[j].PublishedParsed == nil {
			return false
		}
		return feed.Items[i].PublishedParsed.After(*feed.Items[j].PublishedParsed)
	})

	items := feed.Items
	if r.maxPerQuery > 0 && len(items) > r.maxPerQuery {
		items = items[:r.maxPerQuery]
	}

	articles := make([]dto.RawArticle, 0, len(items))
	for _, item := range items {
		article := dto.RawArticle{
			URL:     item.Link,
			Summary: flattenHTML(item.Description),
		}
		article.Headline, article.Source = splitPublisher(item.Title)
		if item.PublishedParsed != nil {
			published := item.PublishedParsed.UTC()
			article.PublishedAt = &published
		}
		// Google News descriptions repeat the headline; a summary that adds nothing is fetched.
		if r.cfg.EnrichSummaries && (utils.RuneLen(article.Summary) < minEnrichedSummary || strings.HasPrefix(article.Summary, article.Headline)) {
			if text, err := r.pageText(ctx, item.Link); err == nil && text != "" {
				article.Summary = text
			}
		}
		articles = append(articles, article)
	}
	return articles, nil
}

// pageText fetches an article page and returns its readable text.
func (r *rssSearchRepository) pageText(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request for news item: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug("Failed to fetch news content", logger.ErrorField(err), logger.StringField("url", link))
		return "", fmt.Errorf("failed to fetch news content: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch news content, status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	doc, err := readability.NewDocument(string(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse news content: %w", err)
	}
	text := flattenHTML(doc.Content())
	return utils.TruncateAtWord(text, 400, "…"), nil
}

// flattenHTML returns the visible text of an HTML fragment with whitespace collapsed.
func flattenHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(fragment)))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return utils.SafeText(strings.Join(strings.Fields(doc.Text()), " "))
}

// splitPublisher splits Google News titles of the form "Headline - Publisher".
func splitPublisher(title string) (string, string) {
	i := strings.LastIndex(title, " - ")
	if i <= 0 {
		return title, ""
	}
	return strings.TrimSpace(title[:i]), strings.TrimSpace(title[i+3:])
}
