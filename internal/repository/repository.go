package repository

import (
	"context"
	"errors"
	"time"

	"golang-news-slate/internal/dto"
	"golang-news-slate/internal/entity"
)

var (
	// ErrTransient marks failures worth retrying: rate limits, 5xx and timeouts.
	ErrTransient = errors.New("transient provider error")
	// ErrParse marks replies that could not be decoded into articles.
	ErrParse = errors.New("unparseable provider reply")
	// ErrQuotaExhausted is returned once the backup provider's daily quota is spent.
	ErrQuotaExhausted = errors.New("provider quota exhausted")
)

// PrimarySearchRepository queries the AI search provider with a natural-language description.
type PrimarySearchRepository interface {
	Search(ctx context.Context, category entity.Category) ([]dto.RawArticle, error)
}

// BackupSearchRepository runs boolean keyword queries against a news index.
type BackupSearchRepository interface {
	Name() string
	Search(ctx context.Context, query string) ([]dto.RawArticle, error)
	Remaining(ctx context.Context) (int, error)
}

// PlatformRepository talks to the social platform.
type PlatformRepository interface {
	Post(ctx context.Context, text string) (*dto.PublishedPost, error)
	// GetMetrics accepts at most MaxMetricsBatch ids per call.
	GetMetrics(ctx context.Context, ids []string) ([]dto.PostMetrics, error)
	RecentTexts(ctx context.Context, limit int) ([]string, error)
}

// MaxMetricsBatch is the platform's id limit for one metrics lookup.
const MaxMetricsBatch = 100

// SheetRepository is the tabbed row log the pipeline persists to.
type SheetRepository interface {
	AppendRows(ctx context.Context, tab string, rows [][]string) error
	ReadRows(ctx context.Context, tab string) ([][]string, error)
	// FindRow returns the index and cells of the first row whose column equals value.
	FindRow(ctx context.Context, tab string, column int, value string) (int, []string, bool, error)
	// UpdateRange overwrites cells of one row starting at startColumn, growing the row if needed.
	UpdateRange(ctx context.Context, tab string, rowIndex, startColumn int, values []string) error
}

// TriggerExecutionRepository stores stage run history.
type TriggerExecutionRepository interface {
	Create(ctx context.Context, execution *entity.TriggerExecution) error
	Update(ctx context.Context, execution *entity.TriggerExecution) error
	FindByID(ctx context.Context, id uint) (*entity.TriggerExecution, error)
	FindRecent(ctx context.Context, stage entity.Stage, limit int) ([]entity.TriggerExecution, error)
}

// PostedGuardRepository is a cross-process claim on a post id.
type PostedGuardRepository interface {
	Acquire(ctx context.Context, postID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, postID string) error
}

// RecentTextRepository keeps the most recent published texts for duplicate checks.
type RecentTextRepository interface {
	Push(ctx context.Context, text string, keep int) error
	List(ctx context.Context, limit int) ([]string, error)
}

// QuotaRepository counts provider requests per civic day.
type QuotaRepository interface {
	Used(ctx context.Context, provider, date string) (int, error)
	Increment(ctx context.Context, provider, date string) (int, error)
}

// AIRepository sends a single prompt to a language model and returns the raw reply text.
type AIRepository interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}
