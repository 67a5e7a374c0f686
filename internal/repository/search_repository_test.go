package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang-news-slate/internal/config"
	"golang-news-slate/internal/dto"
	"golang-news-slate/internal/entity"
	"golang-news-slate/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuota struct {
	mu   sync.Mutex
	used map[string]int
}

func newFakeQuota() *fakeQuota { return &fakeQuota{used: map[string]int{}} }

func (q *fakeQuota) Used(_ context.Context, provider, date string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.used[provider+date], nil
}

func (q *fakeQuota) Increment(_ context.Context, provider, date string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.used[provider+date]++
	return q.used[provider+date], nil
}

func today() string { return "2026-03-02" }

func TestParsePrimaryReply(t *testing.T) {
	const item = `{"title":"Lab publishes new alignment results","link":"https://example.com/a","publisher":"Reuters","date":"2026-03-02","description":"A long enough summary of the findings."}`

	cases := map[string]string{
		"bare array":     "[" + item + "]",
		"envelope":       `{"articles":[` + item + `]}`,
		"results key":    `{"results":[` + item + `]}`,
		"fenced":         "Here you go:\n```json\n[" + item + "]\n```\nEnjoy.",
		"fenced object":  "```\n{\"articles\":[" + item + "]}\n```",
		"embedded array": "Sure! The articles are [" + item + "] as requested.",
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			items, err := ParsePrimaryReply(reply)
			require.NoError(t, err)
			require.Len(t, items, 1)
			raw := items[0].ToRaw()
			assert.Equal(t, "Lab publishes new alignment results", raw.Headline)
			assert.Equal(t, "https://example.com/a", raw.URL)
			assert.Equal(t, "Reuters", raw.Source)
			require.NotNil(t, raw.PublishedAt)
			assert.Equal(t, 2026, raw.PublishedAt.Year())
		})
	}

	_, err := ParsePrimaryReply("I could not find any news today.")
	assert.ErrorIs(t, err, ErrParse)
}

func TestPrimarySearchRepository(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "Bearer pk", r.Header.Get("Authorization"))
		var req dto.OpenAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Messages[0].Content, "AI safety")
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"[{\"headline\":\"Safety board issues guidance\",\"url\":\"https://ex.com/s\",\"source\":\"AP\",\"published_at\":\"2026-03-02T08:00:00Z\",\"summary\":\"The board issued new guidance today.\"}]"}}]}`)
	}))
	defer srv.Close()

	repo := NewPrimarySearchRepository(config.PrimarySearch{
		BaseURL: srv.URL, APIKey: "pk", Model: "sonar", MaxRequestPerMinute: 6000,
	}, logger.NewNop())
	category, _ := entity.CategoryByID(entity.CategoryAISafety)

	_, err := repo.Search(context.Background(), category)
	assert.ErrorIs(t, err, ErrTransient)

	articles, err := repo.Search(context.Background(), category)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "AP", articles[0].Source)
	assert.Equal(t, time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC), *articles[0].PublishedAt)
}

func TestNewsAPIRepositoryQuota(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/everything", r.URL.Path)
		assert.Equal(t, "nk", r.Header.Get("X-Api-Key"))
		assert.Equal(t, `"AI" AND enterprise`, r.URL.Query().Get("q"))
		_, _ = fmt.Fprint(w, `{"status":"ok","totalResults":1,"articles":[{"source":{"name":"Bloomberg"},"title":"Enterprise AI spend climbs","description":"Companies doubled spending.","url":"https://b.com/x","publishedAt":"2026-03-02T09:00:00Z"}]}`)
	}))
	defer srv.Close()

	quota := newFakeQuota()
	repo := NewNewsAPIRepository(config.BackupSearch{
		BaseURL: srv.URL, APIKey: "nk", DailyQuota: 2, MaxRequestPerMinute: 6000,
	}, 20, quota, today, logger.NewNop())

	ctx := context.Background()
	remaining, err := repo.Remaining(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)

	for i := 0; i < 2; i++ {
		articles, err := repo.Search(ctx, `"AI" AND enterprise`)
		require.NoError(t, err)
		require.Len(t, articles, 1)
		assert.Equal(t, "Bloomberg", articles[0].Source)
	}

	_, err = repo.Search(ctx, `"AI" AND enterprise`)
	assert.ErrorIs(t, err, ErrQuotaExhausted)
	remaining, _ = repo.Remaining(ctx)
	assert.Zero(t, remaining)
}

func TestNewsAPIRepositoryErrors(t *testing.T) {
	status, body := http.StatusTooManyRequests, `{"status":"error","code":"rateLimited","message":"slow down"}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = fmt.Fprint(w, body)
	}))
	defer srv.Close()

	repo := NewNewsAPIRepository(config.BackupSearch{
		BaseURL: srv.URL, APIKey: "nk", DailyQuota: 10, MaxRequestPerMinute: 6000,
	}, 20, newFakeQuota(), today, logger.NewNop())

	_, err := repo.Search(context.Background(), "x")
	assert.ErrorIs(t, err, ErrQuotaExhausted)

	status, body = http.StatusBadGateway, `{"status":"error","code":"unexpectedError","message":"boom"}`
	_, err = repo.Search(context.Background(), "x")
	assert.ErrorIs(t, err, ErrTransient)

	status, body = http.StatusUnauthorized, `{"status":"error","code":"apiKeyInvalid","message":"bad key"}`
	_, err = repo.Search(context.Background(), "x")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrTransient))
	assert.Contains(t, err.Error(), "apiKeyInvalid")
}

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>search</title>
<item>
  <title>Older story about AI chips - The Verge</title>
  <link>https://example.com/older</link>
  <pubDate>Mon, 02 Mar 2026 06:00:00 GMT</pubDate>
  <description>&lt;a href="https://example.com/older"&gt;Older story about AI chips&lt;/a&gt;&amp;nbsp;&amp;nbsp;&lt;font&gt;The Verge&lt;/font&gt;</description>
</item>
<item>
  <title>New AI governance bill advances - Reuters</title>
  <link>https://example.com/newer</link>
  <pubDate>Mon, 02 Mar 2026 09:00:00 GMT</pubDate>
  <description>Lawmakers moved a governance bill forward on Monday.</description>
</item>
</channel></rss>`

func TestRSSSearchRepository(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rss/search", r.URL.Path)
		assert.Equal(t, "AI governance when:48h", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = fmt.Fprint(w, rssBody)
	}))
	defer srv.Close()

	repo := NewRSSSearchRepository(config.BackupSearch{
		BaseURL: srv.URL, DailyQuota: 5, MaxRequestPerMinute: 6000, LookbackHours: 48,
	}, 20, newFakeQuota(), today, logger.NewNop())
	assert.Equal(t, ProviderRSS, repo.Name())

	articles, err := repo.Search(context.Background(), "AI governance")
	require.NoError(t, err)
	require.Len(t, articles, 2)

	assert.Equal(t, "New AI governance bill advances", articles[0].Headline)
	assert.Equal(t, "Reuters", articles[0].Source)
	assert.Equal(t, "Lawmakers moved a governance bill forward on Monday.", articles[0].Summary)
	assert.Equal(t, "Older story about AI chips", articles[1].Headline)
	assert.Contains(t, articles[1].Summary, "Older story about AI chips")
	assert.NotContains(t, articles[1].Summary, "<a")
}

func TestSplitPublisher(t *testing.T) {
	h, s := splitPublisher("A - B - Publisher")
	assert.Equal(t, "A - B", h)
	assert.Equal(t, "Publisher", s)
	h, s = splitPublisher("No publisher here")
	assert.Equal(t, "No publisher here", h)
	assert.Empty(t, s)
}
