package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"golang-news-slate/internal/dto"
	"golang-news-slate/internal/entity"
	"golang-news-slate/internal/repository"
	"golang-news-slate/internal/slot"
	"golang-news-slate/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

func rawArticles(prefix string, n int) []dto.RawArticle {
	out := make([]dto.RawArticle, n)
	for i := range out {
		published := fixedNow.Add(-time.Duration(i+1) * time.Hour)
		out[i] = dto.RawArticle{
			Headline:    fmt.Sprintf("%s headline number %d", prefix, i),
			URL:         fmt.Sprintf("https://news.example.com/%s/%d", prefix, i),
			Source:      "Reuters",
			PublishedAt: &published,
			Summary:     "A summary that is comfortably longer than twenty characters.",
		}
	}
	return out
}

type fakePrimary struct {
	mu      sync.Mutex
	calls   int
	results [][]dto.RawArticle
	errs    []error
}

func (f *fakePrimary) Search(_ context.Context, _ entity.Category) ([]dto.RawArticle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return nil, nil
}

type fakeBackup struct {
	queries []string
	byQuery map[string][]dto.RawArticle
	errs    map[string]error
}

func (f *fakeBackup) Name() string { return "fake" }

func (f *fakeBackup) Search(_ context.Context, query string) ([]dto.RawArticle, error) {
	f.queries = append(f.queries, query)
	if err := f.errs[query]; err != nil {
		return nil, err
	}
	return f.byQuery[query], nil
}

func (f *fakeBackup) Remaining(context.Context) (int, error) { return 100, nil }

type fakePrevious struct {
	date     string
	articles []entity.CandidateArticle
}

func (f *fakePrevious) PreviousDayCandidates(_ context.Context, date string, _ entity.CategoryID) ([]entity.CandidateArticle, error) {
	f.date = date
	return f.articles, nil
}

func newTestCollector(primary repository.PrimarySearchRepository, backup repository.BackupSearchRepository, previous PreviousDaySource) *Collector {
	c := New(Config{
		MinArticles:       5,
		PrimaryAttempts:   3,
		PrimaryRetryDelay: 5 * time.Minute,
		PrimaryTimeout:    15 * time.Minute,
		CategoryTimeout:   25 * time.Minute,
	}, primary, backup, previous, slot.NewClock(-5, -4), logger.NewNop())
	c.now = func() time.Time { return fixedNow }
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func category(t *testing.T, id entity.CategoryID) entity.Category {
	t.Helper()
	c, ok := entity.CategoryByID(id)
	require.True(t, ok)
	return c
}

func TestCollectPrimaryOnly(t *testing.T) {
	primary := &fakePrimary{results: [][]dto.RawArticle{rawArticles("safety", 6)}}
	backup := &fakeBackup{}
	c := newTestCollector(primary, backup, nil)

	res := c.Collect(context.Background(), category(t, entity.CategoryAISafety))
	require.NoError(t, res.Err)
	assert.Equal(t, SourcePrimary, res.SourceUsed)
	assert.Len(t, res.Articles, 6)
	assert.Equal(t, 1, res.Attempts)
	assert.Empty(t, backup.queries, "backup must not be queried")
	for _, a := range res.Articles {
		assert.Equal(t, entity.OriginPrimary, a.Origin)
		assert.Equal(t, entity.CategoryAISafety, a.CategoryID)
	}
}

func TestCollectRetriesThenSupplementsFromPreviousDay(t *testing.T) {
	timeout := fmt.Errorf("deadline: %w", repository.ErrTransient)
	primary := &fakePrimary{errs: []error{timeout, timeout, timeout}}
	cat := category(t, entity.CategoryBusinessAI)
	backup := &fakeBackup{byQuery: map[string][]dto.RawArticle{
		cat.BackupQueries[0]: rawArticles("backup", 4),
	}}
	previous := &fakePrevious{articles: []entity.CandidateArticle{
		{Headline: "Yesterday story one", URL: "https://old.example.com/1", Source: "FT", Summary: "long enough summary text here", PublishedAt: fixedNow.Add(-20 * time.Hour)},
		{Headline: "Yesterday story two", URL: "https://old.example.com/2", Source: "FT", Summary: "long enough summary text here", PublishedAt: fixedNow.Add(-21 * time.Hour)},
	}}
	c := newTestCollector(primary, backup, previous)

	res := c.Collect(context.Background(), cat)
	require.NoError(t, res.Err)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, primary.calls)
	assert.Len(t, res.Articles, 6)
	assert.Equal(t, SourceSupplemented, res.SourceUsed, "backup contributed, so the label is not previous-day")
	assert.Equal(t, "2026-03-01", previous.date)
	assert.Equal(t, entity.OriginPreviousDay, res.Articles[5].Origin)
	assert.Len(t, backup.queries, len(cat.BackupQueries))
	require.NotEmpty(t, res.StageErrors)
	assert.ErrorIs(t, res.StageErrors[0], repository.ErrTransient)
}

func TestCollectPreviousDayOnly(t *testing.T) {
	primary := &fakePrimary{errs: []error{repository.ErrParse, repository.ErrParse, repository.ErrParse}}
	previous := &fakePrevious{articles: []entity.CandidateArticle{
		{Headline: "Yesterday story one", URL: "https://old.example.com/1", Source: "FT", Summary: "long enough summary text here"},
	}}
	c := newTestCollector(primary, &fakeBackup{}, previous)

	res := c.Collect(context.Background(), category(t, entity.CategoryAIResearch))
	require.NoError(t, res.Err)
	assert.Equal(t, SourcePreviousDay, res.SourceUsed)
	assert.Len(t, res.Articles, 1)
}

func TestCollectCombinedAndBackupOnly(t *testing.T) {
	cat := category(t, entity.CategoryAIResearch)

	primary := &fakePrimary{results: [][]dto.RawArticle{rawArticles("primary", 2)}}
	backup := &fakeBackup{byQuery: map[string][]dto.RawArticle{cat.BackupQueries[0]: rawArticles("backup", 3)}}
	res := newTestCollector(primary, backup, nil).Collect(context.Background(), cat)
	assert.Equal(t, SourceCombined, res.SourceUsed)
	assert.Len(t, res.Articles, 5)

	primary = &fakePrimary{results: [][]dto.RawArticle{nil}}
	backup = &fakeBackup{byQuery: map[string][]dto.RawArticle{cat.BackupQueries[0]: rawArticles("backup", 5)}}
	res = newTestCollector(primary, backup, nil).Collect(context.Background(), cat)
	assert.Equal(t, SourceBackupOnly, res.SourceUsed)
	assert.Equal(t, 1, primary.calls, "an empty reply is not a failure")
}

func TestCollectBelowFloorKeepsLastLabel(t *testing.T) {
	cat := category(t, entity.CategoryAIResearch)
	primary := &fakePrimary{results: [][]dto.RawArticle{rawArticles("primary", 1)}}
	backup := &fakeBackup{byQuery: map[string][]dto.RawArticle{cat.BackupQueries[1]: rawArticles("backup", 2)}}
	res := newTestCollector(primary, backup, &fakePrevious{}).Collect(context.Background(), cat)
	require.NoError(t, res.Err)
	assert.Equal(t, SourceCombined, res.SourceUsed)
	assert.Len(t, res.Articles, 3)
}

func TestCollectQuotaStopsBackupStage(t *testing.T) {
	cat := category(t, entity.CategoryBusinessAI)
	primary := &fakePrimary{errs: []error{repository.ErrTransient, repository.ErrTransient, repository.ErrTransient}}
	backup := &fakeBackup{errs: map[string]error{cat.BackupQueries[0]: repository.ErrQuotaExhausted}}
	res := newTestCollector(primary, backup, &fakePrevious{}).Collect(context.Background(), cat)

	assert.Len(t, backup.queries, 1, "no further queries once the quota is spent")
	assert.Equal(t, SourceNone, res.SourceUsed)
	assert.ErrorIs(t, res.Err, ErrCategoryExhausted)
	assert.Empty(t, res.Articles)

	var quotaSeen bool
	for _, err := range res.StageErrors {
		quotaSeen = quotaSeen || errors.Is(err, repository.ErrQuotaExhausted)
	}
	assert.True(t, quotaSeen)
}

func TestCollectPrimaryBudgetDegradesToBackup(t *testing.T) {
	cat := category(t, entity.CategoryBusinessAI)
	primary := &fakePrimary{errs: []error{repository.ErrTransient, repository.ErrTransient, repository.ErrTransient}}
	backup := &fakeBackup{byQuery: map[string][]dto.RawArticle{cat.BackupQueries[0]: rawArticles("backup", 5)}}
	c := newTestCollector(primary, backup, nil)
	c.sleep = func(context.Context, time.Duration) error { return context.DeadlineExceeded }

	res := c.Collect(context.Background(), cat)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, SourceBackupOnly, res.SourceUsed)
}

func TestCollectDedupAndValidation(t *testing.T) {
	batch := rawArticles("dup", 5)
	batch = append(batch,
		dto.RawArticle{Headline: "Same story via tracking link", URL: "HTTPS://news.example.com/dup/0/?utm_source=x#top", Source: "Reuters", Summary: "A summary that is long enough to pass."},
		dto.RawArticle{Headline: "short", URL: "https://news.example.com/short", Summary: "A summary that is long enough to pass."},
		dto.RawArticle{Headline: "Bad scheme headline", URL: "ftp://news.example.com/x", Summary: "A summary that is long enough to pass."},
		dto.RawArticle{Headline: "Tiny summary headline", URL: "https://news.example.com/tiny", Summary: "too short"},
		dto.RawArticle{Headline: "Anonymous wire headline", URL: "https://news.example.com/anon", Summary: "A summary that is long enough to pass."},
	)
	primary := &fakePrimary{results: [][]dto.RawArticle{batch}}
	res := newTestCollector(primary, &fakeBackup{}, nil).Collect(context.Background(), category(t, entity.CategoryAISafety))

	assert.Len(t, res.Articles, 5)
	assert.Equal(t, 4, res.Dropped)
	assert.Equal(t, SourcePrimary, res.SourceUsed)
}

func TestCollectAllKeepsOrder(t *testing.T) {
	primary := &fakePrimary{results: [][]dto.RawArticle{rawArticles("a", 5), rawArticles("b", 5), rawArticles("c", 5)}}
	c := newTestCollector(primary, &fakeBackup{}, nil)

	results := c.CollectAll(context.Background(), entity.Categories())
	require.Len(t, results, 3)
	for i, cat := range entity.Categories() {
		assert.Equal(t, cat.ID, results[i].CategoryID)
		assert.Equal(t, SourcePrimary, results[i].SourceUsed)
	}
}
