package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang-news-slate/internal/config"
	"golang-news-slate/internal/dto"
	"golang-news-slate/pkg/logger"

	"golang.org/x/time/rate"
)

// ProviderNewsAPI is the quota bucket name of the NewsAPI backup provider.
const ProviderNewsAPI = "newsapi"

type newsAPIRepository struct {
	client         *http.Client
	cfg            config.BackupSearch
	maxPerQuery    int
	logger         *logger.Logger
	quota          QuotaRepository
	today          func() string
	requestLimiter *rate.Limiter
	now            func() time.Time
}

// NewNewsAPIRepository creates a BackupSearchRepository over the NewsAPI everything endpoint.
// today returns the civic date the daily quota is counted against.
func NewNewsAPIRepository(cfg config.BackupSearch, maxPerQuery int, quota QuotaRepository, today func() string, log *logger.Logger) BackupSearchRepository {
	secondsPerRequest := time.Minute / time.Duration(max(cfg.MaxRequestPerMinute, 1))
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &newsAPIRepository{
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

func (r *newsAPIRepository) Name() string {
	return ProviderNewsAPI
}

func (r *newsAPIRepository) Remaining(ctx context.Context) (int, error) {
	used, err := r.quota.Used(ctx, ProviderNewsAPI, r.today())
	if err != nil {
		return 0, err
	}
	return max(r.cfg.DailyQuota-used, 0), nil
}

func (r *newsAPIRepository) Search(ctx context.Context, query string) ([]dto.RawArticle, error) {
	remaining, err := r.Remaining(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check quota: %w", err)
	}
	if remaining <= 0 {
		return nil, fmt.Errorf("%s daily quota of %d spent: %w", ProviderNewsAPI, r.cfg.DailyQuota, ErrQuotaExhausted)
	}

	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}
	if _, err := r.quota.Increment(ctx, ProviderNewsAPI, r.today()); err != nil {
		return nil, fmt.Errorf("failed to count quota: %w", err)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("searchIn", "title,description")
	if r.cfg.LookbackHours > 0 {
		params.Set("from", r.now().UTC().Add(-time.Duration(r.cfg.LookbackHours)*time.Hour).Format(time.RFC3339))
	}
	if r.maxPerQuery > 0 {
		params.Set("pageSize", strconv.Itoa(r.maxPerQuery))
	}
	endpoint := fmt.Sprintf("%s/v2/everything?%s", r.cfg.BaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create new http request: %w", err)
	}
	req.Header.Set("X-Api-Key", r.cfg.APIKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to NewsAPI: %w: %w", ErrTransient, err)
	}
	defer resp.Body.Close()

	var body dto.NewsAPIResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err := json.Unmarshal(raw, &body); err != nil && resp.StatusCode == http.StatusOK {
		return nil, fmt.Errorf("failed to decode NewsAPI response: %w: %w", ErrParse, err)
	}

	if resp.StatusCode != http.StatusOK || body.Status == "error" {
		r.logger.Error("Received non-OK response from NewsAPI",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("code", body.Code),
			logger.StringField("query", query),
		)
		err := fmt.Errorf("received non-OK response from NewsAPI: %d %s - %s", resp.StatusCode, body.Code, body.Message)
		switch {
		case body.Code == "rateLimited" || body.Code == "maximumResultsReached":
			return nil, fmt.Errorf("%w: %w", ErrQuotaExhausted, err)
		case isTransientStatus(resp.StatusCode):
			return nil, fmt.Errorf("%w: %w", ErrTransient, err)
		}
		return nil, err
	}

	articles := make([]dto.RawArticle, 0, len(body.Articles))
	for _, a := range body.Articles {
		item := dto.RawArticle{
			Headline: a.Title,
			URL:      a.URL,
			Source:   a.Source.Name,
			Summary:  firstNonEmptyString(a.Description, a.Content),
		}
		if !a.PublishedAt.IsZero() {
			published := a.PublishedAt.UTC()
			item.PublishedAt = &published
		}
		articles = append(articles, item)
	}
	return articles, nil
}

func firstNonEmptyString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
