package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang-news-slate/internal/config"
	"golang-news-slate/internal/dto"
	"golang-news-slate/pkg/logger"

	"golang.org/x/time/rate"
)

type platformRepository struct {
	client         *http.Client
	cfg            config.Platform
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

// NewPlatformRepository creates a PlatformRepository over the X API v2.
func NewPlatformRepository(cfg config.Platform, log *logger.Logger) PlatformRepository {
	secondsPerRequest := time.Minute / time.Duration(max(cfg.MaxRequestPerMinute, 1))
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &platformRepository{
		client:         &http.Client{Timeout: timeout},
		cfg:            cfg,
		logger:         log,
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
	}
}

func (r *platformRepository) Post(ctx context.Context, text string) (*dto.PublishedPost, error) {
	payload, err := json.Marshal(dto.XCreateTweetRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	var out dto.XCreateTweetResponse
	if err := r.do(ctx, http.MethodPost, "/2/tweets", nil, payload, &out); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	if out.Data.ID == "" {
		return nil, fmt.Errorf("failed to create post: reply carried no id")
	}
	return &dto.PublishedPost{ID: out.Data.ID, CreatedAt: time.Now().UTC()}, nil
}

func (r *platformRepository) GetMetrics(ctx context.Context, ids []string) ([]dto.PostMetrics, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxMetricsBatch {
		return nil, fmt.Errorf("metrics lookup accepts at most %d ids, got %d", MaxMetricsBatch, len(ids))
	}

	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("tweet.fields", "public_metrics,created_at")

	var out dto.XTweetsResponse
	if err := r.do(ctx, http.MethodGet, "/2/tweets", query, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch metrics: %w", err)
	}
	for _, e := range out.Errors {
		r.logger.Warn("Metrics lookup partial error", logger.StringField("title", e.Title), logger.StringField("detail", e.Detail))
	}

	metrics := make([]dto.PostMetrics, 0, len(out.Data))
	for _, t := range out.Data {
		metrics = append(metrics, dto.PostMetrics{
			PostID:      t.ID,
			Likes:       t.PublicMetrics.LikeCount,
			Reposts:     t.PublicMetrics.RetweetCount,
			Replies:     t.PublicMetrics.ReplyCount,
			Quotes:      t.PublicMetrics.QuoteCount,
			Impressions: t.PublicMetrics.ImpressionCount,
		})
	}
	return metrics, nil
}

func (r *platformRepository) RecentTexts(ctx context.Context, limit int) ([]string, error) {
	if r.cfg.UserID == "" {
		return nil, nil
	}
	// the timeline endpoint accepts 5..100
	limit = min(max(limit, 5), 100)

	query := url.Values{}
	query.Set("max_results", strconv.Itoa(limit))
	query.Set("exclude", "retweets,replies")

	var out dto.XTweetsResponse
	if err := r.do(ctx, http.MethodGet, fmt.Sprintf("/2/users/%s/tweets", url.PathEscape(r.cfg.UserID)), query, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch recent posts: %w", err)
	}
	texts := make([]string, 0, len(out.Data))
	for _, t := range out.Data {
		texts = append(texts, t.Text)
	}
	return texts, nil
}

func (r *platformRepository) do(ctx context.Context, method, path string, query url.Values, body []byte, out any) error {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for request limit: %w", err)
	}

	endpoint := strings.TrimRight(r.cfg.BaseURL, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create new http request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.cfg.BearerToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.Error("Received non-OK response from platform API",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("path", path),
		)
		err := fmt.Errorf("platform API %d: %s", resp.StatusCode, platformErrorDetail(raw))
		if isTransientStatus(resp.StatusCode) {
			return fmt.Errorf("%w: %w", ErrTransient, err)
		}
		return err
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// platformErrorDetail extracts the problem document's detail or title from an error body.
func platformErrorDetail(raw []byte) string {
	var problem struct {
		dto.XError
		Errors []dto.XError `json:"errors"`
	}
	if err := json.Unmarshal(raw, &problem); err == nil {
		switch {
		case problem.Detail != "":
			return problem.Detail
		case problem.Title != "":
			return problem.Title
		case len(problem.Errors) > 0 && problem.Errors[0].Detail != "":
			return problem.Errors[0].Detail
		case len(problem.Errors) > 0:
			return problem.Errors[0].Title
		}
	}
	return strings.TrimSpace(string(raw))
}
