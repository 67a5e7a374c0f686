package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"golang-news-slate/internal/entity"
	"golang-news-slate/pkg/logger"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
)

// ErrOutOfRange is returned for AI engagement values outside 0..25.
var ErrOutOfRange = errors.New("engagement score out of range")

// EngagementScorer is the pluggable AI path of the engagement component.
type EngagementScorer interface {
	Name() string
	ScoreEngagement(ctx context.Context, article entity.CandidateArticle) (float64, error)
}

// FallbackRecorder is notified whenever the AI path falls back to the heuristic.
type FallbackRecorder interface {
	RecordAIFallback(provider string)
}

// Engine scores candidates. Without an EngagementScorer it is fully deterministic.
type Engine struct {
	ai          EngagementScorer
	cache       *cache.Cache
	recorder    FallbackRecorder
	concurrency int
	logger      *logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithEngagementScorer enables the AI engagement path.
func WithEngagementScorer(s EngagementScorer) Option {
	return func(e *Engine) { e.ai = s }
}

// WithCacheTTL sets how long AI engagement results are reused per URL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(e *Engine) { e.cache = cache.New(ttl, 2*ttl) }
}

// WithFallbackRecorder sets the fallback observer.
func WithFallbackRecorder(r FallbackRecorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithConcurrency bounds parallel AI calls in ScoreAll.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// NewEngine builds a scoring engine.
func NewEngine(log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		cache:       cache.New(24*time.Hour, 48*time.Hour),
		concurrency: 2,
		logger:      log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Score rates one article. AI failures of any kind fall back to the heuristic here, so the
// caller always gets a complete score.
func (e *Engine) Score(ctx context.Context, a entity.CandidateArticle, now time.Time) entity.ScoredArticle {
	if e.ai == nil {
		return ScoreHeuristic(a, now)
	}

	key := strings.ToLower(a.URL)
	if v, ok := e.cache.Get(key); ok {
		return ScoreWith(a, now, v.(int), entity.EngagementAI)
	}

	value, err := e.ai.ScoreEngagement(ctx, a)
	if err == nil && (math.IsNaN(value) || value < 0 || value > MaxEngagement) {
		err = fmt.Errorf("%w: %v", ErrOutOfRange, value)
	}
	if err != nil {
		e.logger.Warn("AI engagement scoring failed, using heuristic",
			logger.ErrorField(err),
			logger.StringField("provider", e.ai.Name()),
			logger.StringField("url", a.URL),
		)
		if e.recorder != nil {
			e.recorder.RecordAIFallback(e.ai.Name())
		}
		return ScoreHeuristic(a, now)
	}

	engagement := int(math.Round(value))
	e.cache.SetDefault(key, engagement)
	return ScoreWith(a, now, engagement, entity.EngagementAI)
}

// ScoreAll rates articles, preserving input order.
func (e *Engine) ScoreAll(ctx context.Context, articles []entity.CandidateArticle, now time.Time) []entity.ScoredArticle {
	out := make([]entity.ScoredArticle, len(articles))
	if e.ai == nil {
		for i, a := range articles {
			out[i] = ScoreHeuristic(a, now)
		}
		return out
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, a := range articles {
		g.Go(func() error {
			out[i] = e.Score(gctx, a, now)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
