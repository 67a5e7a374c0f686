package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"golang-news-slate/internal/collector"
	"golang-news-slate/internal/composer"
	"golang-news-slate/internal/dto"
	"golang-news-slate/internal/entity"
	"golang-news-slate/internal/metrics"
	"golang-news-slate/internal/ranking"
	"golang-news-slate/internal/repository"
	"golang-news-slate/internal/scoring"
	"golang-news-slate/internal/slot"
	"golang-news-slate/pkg/common"
	"golang-news-slate/pkg/logger"
	"golang-news-slate/pkg/telegram"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 07:00 civic time on 2026-03-02, before daylight time starts.
var fixedNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

const fixedDate = "2026-03-02"

type fakePrimary struct {
	failing map[entity.CategoryID]bool
	counts  map[entity.CategoryID]int
}

func (f *fakePrimary) Search(_ context.Context, category entity.Category) ([]dto.RawArticle, error) {
	if f.failing[category.ID] {
		return nil, fmt.Errorf("%w: upstream 503", repository.ErrTransient)
	}
	n := 4
	if c, ok := f.counts[category.ID]; ok {
		n = c
	}
	out := make([]dto.RawArticle, n)
	for i := range out {
		published := fixedNow.Add(-time.Duration(i+1) * time.Hour)
		out[i] = dto.RawArticle{
			Headline:    fmt.Sprintf("%s story number %d about new models", category.DisplayName, i),
			URL:         fmt.Sprintf("https://www.reuters.com/%s/%d", category.ID, i),
			Source:      "Reuters",
			PublishedAt: &published,
			Summary:     "Companies announced new deployments of language models across their products this week.",
		}
	}
	return out, nil
}

type fakePlatform struct {
	mu         sync.Mutex
	posts      []string
	postErrs   []error
	batchSizes []int
}

func (f *fakePlatform) Post(_ context.Context, text string) (*dto.PublishedPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := len(f.posts)
	f.posts = append(f.posts, text)
	if call < len(f.postErrs) && f.postErrs[call] != nil {
		return nil, f.postErrs[call]
	}
	return &dto.PublishedPost{ID: fmt.Sprintf("x-%d", call+1), CreatedAt: fixedNow}, nil
}

func (f *fakePlatform) GetMetrics(_ context.Context, ids []string) ([]dto.PostMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchSizes = append(f.batchSizes, len(ids))
	out := make([]dto.PostMetrics, len(ids))
	for i, id := range ids {
		out[i] = dto.PostMetrics{PostID: id, Likes: 10, Reposts: 2, Replies: 1, Impressions: 500}
	}
	return out, nil
}

func (f *fakePlatform) RecentTexts(context.Context, int) ([]string, error) { return nil, nil }

type sentAlert struct {
	severity telegram.Severity
	title    string
}

type fakeAlerter struct {
	mu     sync.Mutex
	alerts []sentAlert
	texts  []string
}

func (f *fakeAlerter) Alert(severity telegram.Severity, title, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, sentAlert{severity, title})
}

func (f *fakeAlerter) Send(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
}

type harness struct {
	sheets   repository.SheetRepository
	audit    *AuditLog
	pipeline PipelineService
	driver   PublishDriver
	platform *fakePlatform
	alerter  *fakeAlerter
	redis    *miniredis.Miniredis
	client   *redis.Client
	clock    slot.Clock
}

func newHarness(t *testing.T, primary *fakePrimary, cfg PublishConfig) *harness {
	t.Helper()
	log := logger.NewNop()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	h := &harness{
		sheets:   repository.NewMemorySheetRepository(),
		platform: &fakePlatform{},
		alerter:  &fakeAlerter{},
		redis:    mr,
		client:   client,
		clock:    slot.NewClock(-5, -4),
	}
	h.audit = NewAuditLog(h.sheets, log)
	h.audit.now = func() time.Time { return fixedNow }
	h.pipeline = h.newPipeline(primary, slot.NewBoard())

	if cfg.DuplicateThreshold == 0 {
		cfg.DuplicateThreshold = 0.6
	}
	if cfg.RecentHistory == 0 {
		cfg.RecentHistory = 20
	}
	if cfg.GuardTTL == 0 {
		cfg.GuardTTL = 48 * time.Hour
	}
	h.driver = h.newDriver(cfg)
	return h
}

func (h *harness) newPipeline(primary *fakePrimary, board *slot.Board) PipelineService {
	log := logger.NewNop()
	coll := collector.New(collector.Config{MinArticles: 3, PrimaryAttempts: 1}, primary, nil, h.audit, h.clock, log)
	svc := NewPipelineService(coll, scoring.NewEngine(log), ranking.NewSelector(60, 3), board, h.clock, h.audit, h.alerter, metrics.Nop{}, log)
	svc.(*pipelineService).now = func() time.Time { return fixedNow }
	return svc
}

func (h *harness) newDriver(cfg PublishConfig) PublishDriver {
	d := NewPublishDriver(cfg, h.pipeline,
		composer.New("#TechNews", rand.New(rand.NewPCG(1, 2))),
		h.platform,
		repository.NewPostedGuardRepository(h.client, "test:"),
		repository.NewRecentTextRepository(h.client, "test:"),
		h.audit, h.alerter, metrics.Nop{}, logger.NewNop())
	d.(*publishDriver).now = func() time.Time { return fixedNow }
	return d
}

func (h *harness) rows(t *testing.T, tab string) [][]string {
	t.Helper()
	rows, err := h.sheets.ReadRows(context.Background(), tab)
	require.NoError(t, err)
	return rows
}

func TestCollectSkipsExhaustedCategory(t *testing.T) {
	primary := &fakePrimary{failing: map[entity.CategoryID]bool{entity.CategoryAISafety: true}}
	h := newHarness(t, primary, PublishConfig{})

	report, err := h.pipeline.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, fixedDate, report.Date)
	assert.True(t, report.Initialized)
	assert.Equal(t, slot.AssignResult{Ready: 6, NoArticle: 3}, report.Assignment)
	require.Len(t, report.Categories, 3)
	for _, c := range report.Categories {
		if c.Category == entity.CategoryAISafety {
			assert.Equal(t, collector.SourceNone, c.Source)
			assert.NotEmpty(t, c.Error)
			assert.Zero(t, c.Selected)
			continue
		}
		assert.Equal(t, collector.SourcePrimary, c.Source)
		assert.Equal(t, 4, c.Candidates)
		assert.Equal(t, 3, c.Selected)
	}

	board := h.pipeline.Board()
	for _, p := range board.Posts() {
		if p.Slot.CategoryID == entity.CategoryAISafety {
			assert.Equal(t, entity.PostStatusNoArticle, p.Status, p.ID)
			assert.NotNil(t, p.Quote, "quote slots keep the brand quote")
		} else {
			assert.Equal(t, entity.PostStatusReady, p.Status, p.ID)
		}
	}

	require.Len(t, h.alerter.alerts, 1)
	assert.Equal(t, telegram.SeverityCritical, h.alerter.alerts[0].severity)
	assert.Contains(t, h.alerter.alerts[0].title, "ai-safety")
	assert.Len(t, h.alerter.texts, 1, "slate digest")

	assert.Len(t, h.rows(t, common.TabCandidatesPrefix+fixedDate), 8)
	assert.Len(t, h.rows(t, common.TabRankedPrefix+fixedDate), 6)
	assert.NotEmpty(t, h.rows(t, common.TabErrors))
}

func TestCollectTwiceKeepsPublishedPosts(t *testing.T) {
	h := newHarness(t, &fakePrimary{}, PublishConfig{})
	ctx := context.Background()

	_, err := h.pipeline.Collect(ctx)
	require.NoError(t, err)
	out, err := h.driver.PublishPost(ctx, 1)
	require.NoError(t, err)
	require.True(t, out.Published)

	report, err := h.pipeline.Collect(ctx)
	require.NoError(t, err)
	assert.False(t, report.Initialized)
	assert.Equal(t, 9, report.Assignment.Skipped)

	post, err := h.pipeline.Board().Post(1)
	require.NoError(t, err)
	assert.Equal(t, entity.PostStatusPosted, post.Status)
}

func TestPublishPostOnlyOnce(t *testing.T) {
	h := newHarness(t, &fakePrimary{}, PublishConfig{})
	ctx := context.Background()
	_, err := h.pipeline.Collect(ctx)
	require.NoError(t, err)

	out, err := h.driver.PublishPost(ctx, 1)
	require.NoError(t, err)
	assert.True(t, out.Published)
	assert.Equal(t, "x-1", out.ExternalID)
	assert.Equal(t, entity.PostStatusPosted, out.Status)
	assert.LessOrEqual(t, composer.TweetLength(out.Text), 280)
	assert.Equal(t, composer.TweetLength(out.Text), out.Length)

	again, err := h.driver.PublishPost(ctx, 1)
	require.NoError(t, err)
	assert.False(t, again.Published)
	assert.Equal(t, "post is posted", again.Reason)
	assert.Len(t, h.platform.posts, 1)

	posted := h.rows(t, common.TabPosted)
	require.Len(t, posted, 1)
	assert.Equal(t, entity.PostID(fixedDate, 1), posted[0][postedColPostID])
	assert.Equal(t, "x-1", posted[0][postedColExternalID])
	assert.Equal(t, "false", posted[0][postedColDryRun])

	recent, err := h.client.LRange(ctx, "test:"+common.RedisKeyRecentTexts, 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{out.Text}, recent)
}

func TestPublishNoArticleIsSkipped(t *testing.T) {
	primary := &fakePrimary{failing: map[entity.CategoryID]bool{entity.CategoryAISafety: true}}
	h := newHarness(t, primary, PublishConfig{})
	ctx := context.Background()
	_, err := h.pipeline.Collect(ctx)
	require.NoError(t, err)

	out, err := h.driver.PublishPost(ctx, 3)
	require.NoError(t, err)
	assert.False(t, out.Published)
	assert.Equal(t, entity.PostStatusNoArticle, out.Status)
	assert.Empty(t, h.platform.posts)
}

func TestPublishDryRun(t *testing.T) {
	h := newHarness(t, &fakePrimary{}, PublishConfig{DryRun: true})
	ctx := context.Background()
	_, err := h.pipeline.Collect(ctx)
	require.NoError(t, err)

	out, err := h.driver.PublishPost(ctx, 2)
	require.NoError(t, err)
	assert.True(t, out.Published)
	assert.True(t, out.DryRun)
	assert.Contains(t, out.ExternalID, DryRunPrefix)
	assert.Empty(t, h.platform.posts, "dry run never calls the platform")

	posted := h.rows(t, common.TabPosted)
	require.Len(t, posted, 1)
	assert.Equal(t, "true", posted[0][postedColDryRun])
}

func TestPublishQuotePost(t *testing.T) {
	h := newHarness(t, &fakePrimary{}, PublishConfig{})
	ctx := context.Background()
	_, err := h.pipeline.Collect(ctx)
	require.NoError(t, err)

	out, err := h.driver.PublishPost(ctx, 3)
	require.NoError(t, err)
	require.True(t, out.Published)

	post, err := h.pipeline.Board().Post(3)
	require.NoError(t, err)
	require.NotNil(t, post.Quote)
	assert.Contains(t, out.Text, composer.QuoteSnippet(post.Quote.Text))
	assert.LessOrEqual(t, out.Length, 280)
}

func TestPublishFailureThenRetry(t *testing.T) {
	h := newHarness(t, &fakePrimary{}, PublishConfig{})
	h.platform.postErrs = []error{fmt.Errorf("%w: 503", repository.ErrTransient)}
	ctx := context.Background()
	_, err := h.pipeline.Collect(ctx)
	require.NoError(t, err)

	out, err := h.driver.PublishPost(ctx, 4)
	require.NoError(t, err)
	assert.False(t, out.Published)
	assert.Equal(t, entity.PostStatusFailed, out.Status)
	assert.NotEmpty(t, out.Error)
	require.Len(t, h.alerter.alerts, 1)
	assert.Equal(t, telegram.SeverityCritical, h.alerter.alerts[0].severity)
	assert.False(t, h.redis.Exists("test:slate:posted:"+entity.PostID(fixedDate, 4)), "guard released on failure")

	// failed posts are not republished automatically
	again, err := h.driver.PublishPost(ctx, 4)
	require.NoError(t, err)
	assert.False(t, again.Published)
	assert.Len(t, h.platform.posts, 1)

	retried, err := h.driver.RetryFailed(ctx, 4)
	require.NoError(t, err)
	assert.True(t, retried.Published)
	assert.Equal(t, "x-2", retried.ExternalID)

	_, err = h.driver.RetryFailed(ctx, 4)
	assert.ErrorIs(t, err, slot.ErrInvalidTransition)
}

func TestPublishGuardUnavailableMarksFailed(t *testing.T) {
	h := newHarness(t, &fakePrimary{}, PublishConfig{})
	ctx := context.Background()
	_, err := h.pipeline.Collect(ctx)
	require.NoError(t, err)
	errorsBefore := len(h.rows(t, common.TabErrors))

	h.redis.Close()
	out, err := h.driver.PublishPost(ctx, 4)
	require.NoError(t, err)
	assert.False(t, out.Published)
	assert.Equal(t, "posted guard unavailable", out.Reason)
	assert.Equal(t, entity.PostStatusFailed, out.Status)
	assert.NotEmpty(t, out.Error)
	assert.Empty(t, h.platform.posts)

	require.Len(t, h.alerter.alerts, 1)
	assert.Equal(t, telegram.SeverityCritical, h.alerter.alerts[0].severity)
	assert.Contains(t, h.alerter.alerts[0].title, entity.PostID(fixedDate, 4))
	assert.Len(t, h.rows(t, common.TabErrors), errorsBefore+1)

	post, err := h.pipeline.Board().Post(4)
	require.NoError(t, err)
	assert.Equal(t, entity.PostStatusFailed, post.Status)

	// the operator retry applies once the guard is back
	require.NoError(t, h.redis.Restart())
	retried, err := h.driver.RetryFailed(ctx, 4)
	require.NoError(t, err)
	assert.True(t, retried.Published)
	assert.Equal(t, entity.PostStatusPosted, retried.Status)
}

func TestPublishComposeFailureMarksFailed(t *testing.T) {
	h := newHarness(t, &fakePrimary{}, PublishConfig{})
	ctx := context.Background()
	_, err := h.pipeline.Collect(ctx)
	require.NoError(t, err)

	post, err := h.pipeline.Board().Post(2)
	require.NoError(t, err)
	post.Article = nil

	out := h.driver.(*publishDriver).publish(ctx, post)
	assert.False(t, out.Published)
	assert.Equal(t, "compose failed", out.Reason)
	assert.Equal(t, entity.PostStatusFailed, out.Status)
	assert.Contains(t, out.Error, composer.ErrNoArticle.Error())
	assert.Empty(t, h.platform.posts)
	require.Len(t, h.alerter.alerts, 1)
	assert.Equal(t, telegram.SeverityCritical, h.alerter.alerts[0].severity)

	stored, err := h.pipeline.Board().Post(2)
	require.NoError(t, err)
	assert.Equal(t, entity.PostStatusFailed, stored.Status)
}

func TestAISafetySlateFromPrimaryOnly(t *testing.T) {
	primary := &fakePrimary{counts: map[entity.CategoryID]int{entity.CategoryAISafety: 6}}
	h := newHarness(t, primary, PublishConfig{})
	ctx := context.Background()

	report, err := h.pipeline.Collect(ctx)
	require.NoError(t, err)
	var safety *CategoryReport
	for i := range report.Categories {
		if report.Categories[i].Category == entity.CategoryAISafety {
			safety = &report.Categories[i]
		}
	}
	require.NotNil(t, safety)
	assert.Equal(t, collector.SourcePrimary, safety.Source)
	assert.Equal(t, 6, safety.Candidates)
	assert.Equal(t, 3, safety.Selected)

	texts := map[int]string{}
	for rank, number := range []int{3, 6, 9} {
		post, err := h.pipeline.Board().Post(number)
		require.NoError(t, err)
		assert.True(t, post.Slot.IncludeQuote, number)
		assert.Equal(t, entity.CategoryAISafety, post.Slot.CategoryID)
		require.NotNil(t, post.Article)
		assert.Equal(t, rank+1, post.Article.Rank)
		require.NotNil(t, post.Quote)

		out, err := h.driver.PublishPost(ctx, number)
		require.NoError(t, err)
		require.True(t, out.Published, number)
		assert.LessOrEqual(t, composer.TweetLength(out.Text), 280, out.Text)
		assert.Contains(t, out.Text, composer.QuoteSnippet(post.Quote.Text))
		texts[number] = out.Text
	}
	assert.NotEqual(t, texts[3], texts[6])
	assert.NotEqual(t, texts[3], texts[9])
	assert.NotEqual(t, texts[6], texts[9])
}

func TestPublishGuardHeldByAnotherProcess(t *testing.T) {
	h := newHarness(t, &fakePrimary{}, PublishConfig{})
	ctx := context.Background()
	_, err := h.pipeline.Collect(ctx)
	require.NoError(t, err)
	require.NoError(t, h.redis.Set("test:slate:posted:"+entity.PostID(fixedDate, 5), "other"))

	out, err := h.driver.PublishPost(ctx, 5)
	require.NoError(t, err)
	assert.False(t, out.Published)
	assert.Equal(t, "already claimed by another process", out.Reason)
	assert.Empty(t, h.platform.posts)

	post, err := h.pipeline.Board().Post(5)
	require.NoError(t, err)
	assert.Equal(t, entity.PostStatusReady, post.Status, "claim is released")
}

func TestPublishCurrentResolvesSlot(t *testing.T) {
	h := newHarness(t, &fakePrimary{}, PublishConfig{})
	ctx := context.Background()
	_, err := h.pipeline.Collect(ctx)
	require.NoError(t, err)

	out, err := h.driver.PublishCurrent(ctx, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "no slot scheduled this hour", out.Reason)

	// 08:00 civic standard time is 13:00 UTC
	out, err = h.driver.PublishCurrent(ctx, time.Date(2026, 3, 2, 13, 5, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, out.Published)
	assert.Equal(t, 1, out.PostNumber)
}

func TestPublishCurrentWithoutCollection(t *testing.T) {
	h := newHarness(t, &fakePrimary{}, PublishConfig{})

	out, err := h.driver.PublishCurrent(context.Background(), time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, slot.ErrNotInitialized)
	assert.Equal(t, "board not initialized", out.Reason)
	assert.Empty(t, h.platform.posts)
}

func TestEnsureBoardRebuildsFromLogs(t *testing.T) {
	h := newHarness(t, &fakePrimary{}, PublishConfig{})
	ctx := context.Background()
	_, err := h.pipeline.Collect(ctx)
	require.NoError(t, err)
	first, err := h.driver.PublishPost(ctx, 1)
	require.NoError(t, err)
	require.True(t, first.Published)

	// a restarted process only has the logs
	restarted := h.newPipeline(&fakePrimary{}, slot.NewBoard())
	ok, err := restarted.EnsureBoard(ctx, fixedNow)
	require.NoError(t, err)
	assert.True(t, ok)

	p1, err := restarted.Board().Post(1)
	require.NoError(t, err)
	assert.Equal(t, entity.PostStatusPosted, p1.Status)
	assert.Equal(t, "x-1", p1.ExternalID)

	p2, err := restarted.Board().Post(2)
	require.NoError(t, err)
	assert.Equal(t, entity.PostStatusReady, p2.Status)
	require.NotNil(t, p2.Article)

	other := h.newPipeline(&fakePrimary{}, slot.NewBoard())
	ok, err = other.EnsureBoard(ctx, fixedNow.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, ok, "no ranked log for the next day")
}

func TestAlerterSendsInBackground(t *testing.T) {
	notifier := &recordingNotifier{}
	a := NewAlerter(notifier, logger.NewNop()).(*alerter)
	a.dispatch = func(f func()) { f() }
	a.now = func() time.Time { return fixedNow }

	a.Alert(telegram.SeverityWarning, "Backup quota low", "12 requests left")
	notifier.err = errors.New("telegram down")
	a.Send("digest")

	require.Len(t, notifier.sent, 2)
	assert.Contains(t, notifier.sent[0], "Backup quota low")
	assert.Equal(t, "digest", notifier.sent[1])
}

type recordingNotifier struct {
	sent []string
	err  error
}

func (n *recordingNotifier) SendMessage(text string) error {
	n.sent = append(n.sent, text)
	return n.err
}
