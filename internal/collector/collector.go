package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang-news-slate/internal/dto"
	"golang-news-slate/internal/entity"
	"golang-news-slate/internal/repository"
	"golang-news-slate/internal/slot"
	"golang-news-slate/pkg/logger"
	"golang-news-slate/pkg/utils"

	"golang.org/x/sync/errgroup"
)

// ErrCategoryExhausted means every stage of the fallback chain came back empty.
var ErrCategoryExhausted = errors.New("no candidates from any source")

// SourceLabel records which stages filled a category's pool.
type SourceLabel string

const (
	SourcePrimary      SourceLabel = "primary"
	SourceCombined     SourceLabel = "combined"
	SourceBackupOnly   SourceLabel = "backup-only"
	SourcePreviousDay  SourceLabel = "previous-day"
	SourceSupplemented SourceLabel = "supplemented"
	SourceNone         SourceLabel = "none"
)

// CollectionResult is the outcome of one category's fallback chain.
type CollectionResult struct {
	CategoryID entity.CategoryID
	Articles   []entity.CandidateArticle
	SourceUsed SourceLabel
	// Err is ErrCategoryExhausted when the pool is empty; stage failures are in StageErrors.
	Err         error
	Attempts    int
	StageErrors []error
	Dropped     int
}

// PreviousDaySource reads the candidates persisted for a category on an earlier civic date.
type PreviousDaySource interface {
	PreviousDayCandidates(ctx context.Context, date string, category entity.CategoryID) ([]entity.CandidateArticle, error)
}

// Config holds the fallback-chain limits.
type Config struct {
	MinArticles       int
	PrimaryAttempts   int
	PrimaryRetryDelay time.Duration
	PrimaryTimeout    time.Duration
	BackupTimeout     time.Duration
	CategoryTimeout   time.Duration
}

// Collector runs the primary -> backup -> previous-day chain for each category.
type Collector struct {
	cfg      Config
	primary  repository.PrimarySearchRepository
	backup   repository.BackupSearchRepository
	previous PreviousDaySource
	clock    slot.Clock
	logger   *logger.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// New creates a Collector. backup and previous may be nil to skip those stages.
func New(cfg Config, primary repository.PrimarySearchRepository, backup repository.BackupSearchRepository, previous PreviousDaySource, clock slot.Clock, log *logger.Logger) *Collector {
	if cfg.MinArticles <= 0 {
		cfg.MinArticles = 5
	}
	if cfg.PrimaryAttempts <= 0 {
		cfg.PrimaryAttempts = 1
	}
	return &Collector{
		cfg:      cfg,
		primary:  primary,
		backup:   backup,
		previous: previous,
		clock:    clock,
		logger:   log,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// CollectAll runs every category concurrently. Results keep the order of categories.
func (c *Collector) CollectAll(ctx context.Context, categories []entity.Category) []CollectionResult {
	results := make([]CollectionResult, len(categories))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(categories) + 1)
	for i, category := range categories {
		g.Go(func() (err error) {
			defer utils.Recover(&err)
			results[i] = c.Collect(gctx, category)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.logger.Error("Collection goroutine failed", logger.ErrorField(err))
	}
	for i := range results {
		if results[i].CategoryID == "" {
			results[i] = CollectionResult{CategoryID: categories[i].ID, SourceUsed: SourceNone, Err: ErrCategoryExhausted}
		}
	}
	return results
}

// Collect runs the fallback chain for one category. It never returns provider errors directly;
// they are recorded in StageErrors and the chain moves on.
func (c *Collector) Collect(ctx context.Context, category entity.Category) CollectionResult {
	if c.cfg.CategoryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.CategoryTimeout)
		defer cancel()
	}
	ctx = logger.WithContext(ctx, logger.StringField("category", string(category.ID)))

	now := c.now()
	res := CollectionResult{CategoryID: category.ID}
	pool := newPool()

	raw, attempts, err := c.searchPrimary(ctx, category)
	res.Attempts = attempts
	if err != nil {
		res.StageErrors = append(res.StageErrors, fmt.Errorf("primary: %w", err))
	}
	res.Dropped += pool.add(raw, category.ID, entity.OriginPrimary, now)
	primaryCount := pool.len()
	if primaryCount >= c.cfg.MinArticles {
		return c.finish(ctx, res, pool, SourcePrimary)
	}

	backupCount := 0
	if c.backup != nil {
		raw, errs := c.searchBackup(ctx, category)
		res.StageErrors = append(res.StageErrors, errs...)
		res.Dropped += pool.add(raw, category.ID, entity.OriginBackup, now)
		backupCount = pool.len() - primaryCount
	}
	live := SourcePrimary
	if backupCount > 0 {
		live = SourceBackupOnly
		if primaryCount > 0 {
			live = SourceCombined
		}
	}
	if pool.len() >= c.cfg.MinArticles {
		return c.finish(ctx, res, pool, live)
	}

	previousCount := 0
	if c.previous != nil {
		prev, err := c.previousDay(ctx, category.ID, now)
		if err != nil {
			res.StageErrors = append(res.StageErrors, fmt.Errorf("previous-day: %w", err))
		}
		previousCount = pool.addCandidates(prev)
	}

	switch {
	case pool.len() == 0:
		res.SourceUsed = SourceNone
		res.Err = fmt.Errorf("%s: %w", category.ID, ErrCategoryExhausted)
		c.logger.ErrorContext(ctx, "Category exhausted every source", logger.IntField("primary_attempts", res.Attempts))
		return res
	case previousCount > 0 && primaryCount+backupCount == 0:
		return c.finish(ctx, res, pool, SourcePreviousDay)
	case previousCount > 0:
		return c.finish(ctx, res, pool, SourceSupplemented)
	}
	c.logger.WarnContext(ctx, "Category below the article floor", logger.IntField("count", pool.len()), logger.IntField("min", c.cfg.MinArticles))
	return c.finish(ctx, res, pool, live)
}

func (c *Collector) finish(ctx context.Context, res CollectionResult, pool *pool, label SourceLabel) CollectionResult {
	res.Articles = pool.items
	res.SourceUsed = label
	c.logger.InfoContext(ctx, "Category collected",
		logger.StringField("source", string(label)),
		logger.IntField("count", len(res.Articles)),
		logger.IntField("dropped", res.Dropped),
	)
	return res
}

// searchPrimary retries on error only, with a fixed delay, inside its own time budget.
func (c *Collector) searchPrimary(ctx context.Context, category entity.Category) ([]dto.RawArticle, int, error) {
	if c.cfg.PrimaryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.PrimaryTimeout)
		defer cancel()
	}

	var lastErr error
	attempts := 0
	for attempts < c.cfg.PrimaryAttempts {
		attempts++
		raw, err := c.primary.Search(ctx, category)
		if err == nil {
			return raw, attempts, nil
		}
		lastErr = err
		c.logger.WarnContext(ctx, "Primary search failed",
			logger.IntField("attempt", attempts),
			logger.Field("transient", errors.Is(err, repository.ErrTransient)),
			logger.ErrorField(err),
		)
		if attempts == c.cfg.PrimaryAttempts {
			break
		}
		if err := c.sleep(ctx, c.cfg.PrimaryRetryDelay); err != nil {
			c.logger.WarnContext(ctx, "Primary budget spent, moving to backup", logger.IntField("attempts", attempts))
			break
		}
	}
	return nil, attempts, lastErr
}

// searchBackup issues one request per boolean query. Quota exhaustion ends the stage.
func (c *Collector) searchBackup(ctx context.Context, category entity.Category) ([]dto.RawArticle, []error) {
	if c.cfg.BackupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.BackupTimeout)
		defer cancel()
	}

	var (
		out  []dto.RawArticle
		errs []error
	)
	for _, query := range category.BackupQueries {
		if ctx.Err() != nil {
			errs = append(errs, fmt.Errorf("backup: %w", ctx.Err()))
			break
		}
		raw, err := c.backup.Search(ctx, query)
		if err != nil {
			errs = append(errs, fmt.Errorf("backup %s: %w", c.backup.Name(), err))
			c.logger.WarnContext(ctx, "Backup search failed", logger.StringField("query", query), logger.ErrorField(err))
			if errors.Is(err, repository.ErrQuotaExhausted) {
				break
			}
			continue
		}
		out = append(out, raw...)
	}
	return out, errs
}

func (c *Collector) previousDay(ctx context.Context, category entity.CategoryID, now time.Time) ([]entity.CandidateArticle, error) {
	// the category budget may already be spent; the log read gets its own short window
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	today, err := utils.ParseDate(c.clock.Date(now))
	if err != nil {
		return nil, err
	}
	yesterday := utils.FormatDate(today.AddDate(0, 0, -1))
	prev, err := c.previous.PreviousDayCandidates(ctx, yesterday, category)
	if err != nil {
		return nil, err
	}
	for i := range prev {
		prev[i].Origin = entity.OriginPreviousDay
		prev[i].CategoryID = category
	}
	return prev, nil
}

// pool is an insertion-ordered, URL-deduplicated candidate list.
type pool struct {
	items []entity.CandidateArticle
	seen  map[string]struct{}
}

func newPool() *pool {
	return &pool{seen: map[string]struct{}{}}
}

func (p *pool) len() int { return len(p.items) }

// add validates raw items and returns how many were dropped as invalid.
func (p *pool) add(raw []dto.RawArticle, category entity.CategoryID, origin entity.Origin, fetchedAt time.Time) int {
	dropped := 0
	for _, r := range raw {
		a, err := Validate(r, category, origin, fetchedAt)
		if err != nil {
			dropped++
			continue
		}
		p.insert(a)
	}
	return dropped
}

// addCandidates merges already-validated candidates and returns how many were new.
func (p *pool) addCandidates(candidates []entity.CandidateArticle) int {
	added := 0
	for _, a := range candidates {
		if p.insert(a) {
			added++
		}
	}
	return added
}

func (p *pool) insert(a entity.CandidateArticle) bool {
	key := NormalizeURL(a.URL)
	if _, dup := p.seen[key]; dup {
		return false
	}
	p.seen[key] = struct{}{}
	p.items = append(p.items, a)
	return true
}
