package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang-news-slate/internal/composer"
	"golang-news-slate/internal/entity"
	"golang-news-slate/internal/metrics"
	"golang-news-slate/internal/repository"
	"golang-news-slate/internal/slot"
	"golang-news-slate/pkg/logger"
	"golang-news-slate/pkg/telegram"

	"github.com/google/uuid"
)

// DryRunPrefix marks synthetic external ids of dry-run publishes.
const DryRunPrefix = "dryrun-"

// PublishOutcome is the result of one publish attempt.
type PublishOutcome struct {
	PostID     string            `json:"post_id,omitempty"`
	PostNumber int               `json:"post_number,omitempty"`
	Status     entity.PostStatus `json:"status,omitempty"`
	// Published is set only when this call moved the post to posted.
	Published   bool      `json:"published"`
	DryRun      bool      `json:"dry_run"`
	ExternalID  string    `json:"external_id,omitempty"`
	Text        string    `json:"text,omitempty"`
	Length      int       `json:"length,omitempty"`
	Similarity  float64   `json:"similarity,omitempty"`
	Regenerated bool      `json:"regenerated,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Error       string    `json:"error,omitempty"`
	At          time.Time `json:"at"`
}

// PublishConfig holds publish-time behaviour.
type PublishConfig struct {
	DryRun             bool
	DuplicateThreshold float64
	RecentHistory      int
	GuardTTL           time.Duration
}

// PublishDriver publishes the post due now, or a given post on request.
type PublishDriver interface {
	PublishCurrent(ctx context.Context, now time.Time) (PublishOutcome, error)
	PublishPost(ctx context.Context, postNumber int) (PublishOutcome, error)
	// RetryFailed resets a failed post to ready and publishes it.
	RetryFailed(ctx context.Context, postNumber int) (PublishOutcome, error)
}

// NewPublishDriver creates a PublishDriver.
func NewPublishDriver(
	cfg PublishConfig,
	pipeline PipelineService,
	comp *composer.Composer,
	platform repository.PlatformRepository,
	guard repository.PostedGuardRepository,
	recent repository.RecentTextRepository,
	audit *AuditLog,
	alerter Alerter,
	recorder metrics.Recorder,
	log *logger.Logger,
) PublishDriver {
	return &publishDriver{
		cfg:      cfg,
		pipeline: pipeline,
		composer: comp,
		platform: platform,
		guard:    guard,
		recent:   recent,
		audit:    audit,
		alerter:  alerter,
		recorder: recorder,
		logger:   log,
		now:      time.Now,
	}
}

type publishDriver struct {
	cfg      PublishConfig
	pipeline PipelineService
	composer *composer.Composer
	platform repository.PlatformRepository
	guard    repository.PostedGuardRepository
	recent   repository.RecentTextRepository
	audit    *AuditLog
	alerter  Alerter
	recorder metrics.Recorder
	logger   *logger.Logger
	now      func() time.Time
}

func (d *publishDriver) PublishCurrent(ctx context.Context, now time.Time) (PublishOutcome, error) {
	clock := d.pipeline.Clock()
	if _, ok := clock.SlotAt(now); !ok {
		return PublishOutcome{Reason: "no slot scheduled this hour", At: now}, nil
	}
	if ok, err := d.pipeline.EnsureBoard(ctx, now); err != nil || !ok {
		if err == nil {
			err = fmt.Errorf("%w: nothing was collected for %s", slot.ErrNotInitialized, clock.Date(now))
		}
		d.audit.LogError(ctx, entity.StagePublish, clock.Date(now), err)
		return PublishOutcome{Reason: "board not initialized", Error: err.Error(), At: now}, err
	}

	post, _, err := d.pipeline.Board().Resolve(clock, now)
	if err != nil {
		return PublishOutcome{Reason: "board not initialized", Error: err.Error(), At: now}, err
	}
	return d.publish(ctx, post), nil
}

func (d *publishDriver) PublishPost(ctx context.Context, postNumber int) (PublishOutcome, error) {
	if _, err := d.pipeline.EnsureBoard(ctx, d.now()); err != nil {
		return PublishOutcome{}, err
	}
	post, err := d.pipeline.Board().Post(postNumber)
	if err != nil {
		return PublishOutcome{PostNumber: postNumber, Error: err.Error(), At: d.now()}, err
	}
	return d.publish(ctx, post), nil
}

func (d *publishDriver) RetryFailed(ctx context.Context, postNumber int) (PublishOutcome, error) {
	if _, err := d.pipeline.EnsureBoard(ctx, d.now()); err != nil {
		return PublishOutcome{}, err
	}
	post, err := d.pipeline.Board().ResetFailed(postNumber)
	if err != nil {
		return PublishOutcome{PostNumber: postNumber, Status: post.Status, Error: err.Error(), At: d.now()}, err
	}
	d.logger.InfoContext(ctx, "Failed post reset by operator", logger.StringField("post_id", post.ID))
	return d.publish(ctx, post), nil
}

// publish runs compose, duplicate guard, claim and the external call for one post.
// Every outcome, including skips, is reported in the returned value rather than as an error.
func (d *publishDriver) publish(ctx context.Context, post entity.ScheduledPost) PublishOutcome {
	ctx = logger.WithContext(ctx, logger.StringField("post_id", post.ID))
	out := PublishOutcome{
		PostID:     post.ID,
		PostNumber: post.Slot.PostNumber,
		Status:     post.Status,
		DryRun:     d.cfg.DryRun,
		At:         d.now(),
	}

	if post.Status != entity.PostStatusReady {
		out.Reason = fmt.Sprintf("post is %s", post.Status)
		d.logger.InfoContext(ctx, "Nothing to publish", logger.StringField("status", string(post.Status)))
		d.recorder.RecordPublish("skipped")
		return out
	}

	board := d.pipeline.Board()
	recent := d.recentTexts(ctx)
	comp, dup, err := d.composer.ComposeUnique(post, recent, d.cfg.DuplicateThreshold)
	if err != nil {
		if _, claimErr := board.Claim(post.ID); claimErr != nil {
			out.Reason = "claim refused"
			out.Error = claimErr.Error()
			d.recorder.RecordPublish("skipped")
			return out
		}
		out.Reason = "compose failed"
		return d.fail(ctx, post.ID, "", err, out)
	}
	out.Text = comp.Text
	out.Length = comp.Length
	out.Similarity = dup.Similarity
	out.Regenerated = dup.Regenerated
	if dup.StillDuplicate {
		d.logger.WarnContext(ctx, "Regenerated post is still similar to a recent one, publishing anyway",
			logger.Field("similarity", dup.Similarity))
	}

	if _, err := board.Claim(post.ID); err != nil {
		out.Reason = "claim refused"
		out.Error = err.Error()
		d.recorder.RecordPublish("skipped")
		return out
	}
	acquired, err := d.guard.Acquire(ctx, post.ID, d.cfg.GuardTTL)
	if err != nil {
		out.Reason = "posted guard unavailable"
		return d.fail(ctx, post.ID, comp.Text, fmt.Errorf("posted guard unavailable: %w", err), out)
	}
	if !acquired {
		board.Release(post.ID)
		out.Reason = "already claimed by another process"
		d.recorder.RecordPublish("skipped")
		return out
	}

	externalID, err := d.send(ctx, comp.Text)
	if err != nil {
		if relErr := d.guard.Release(context.WithoutCancel(ctx), post.ID); relErr != nil {
			d.logger.ErrorContext(ctx, "Failed to release posted guard", logger.ErrorField(relErr))
		}
		return d.fail(ctx, post.ID, comp.Text, err, out)
	}

	posted, err := board.MarkPosted(post.ID, externalID, comp.Text, comp.Hashtags, d.now())
	if err != nil {
		// the platform accepted the post; the guard keeps it from going out twice
		d.logger.ErrorContext(ctx, "Failed to mark post posted", logger.ErrorField(err))
	}
	out.Status = entity.PostStatusPosted
	out.Published = true
	out.ExternalID = externalID
	d.recorder.RecordPublish("posted")

	d.audit.LogPosted(ctx, posted, d.cfg.DryRun)
	if err := d.recent.Push(ctx, comp.Text, d.cfg.RecentHistory); err != nil {
		d.logger.WarnContext(ctx, "Failed to remember published text", logger.ErrorField(err))
	}
	d.logger.InfoContext(ctx, "Post published",
		logger.StringField("external_id", externalID),
		logger.Field("dry_run", d.cfg.DryRun),
		logger.IntField("length", comp.Length),
	)
	return out
}

// fail moves a claimed post to failed, records the cause and alerts the operator.
func (d *publishDriver) fail(ctx context.Context, postID, text string, cause error, out PublishOutcome) PublishOutcome {
	failed, markErr := d.pipeline.Board().MarkFailed(postID, text, cause)
	if markErr != nil {
		d.logger.ErrorContext(ctx, "Failed to mark post failed", logger.ErrorField(markErr))
	}
	out.Status = failed.Status
	out.Error = cause.Error()
	d.recorder.RecordPublish("failed")
	d.audit.LogError(ctx, entity.StagePublish, postID, cause)
	d.alerter.Alert(telegram.SeverityCritical, fmt.Sprintf("Publish failed for %s", postID), cause.Error())
	d.logger.ErrorContext(ctx, "Publish failed", logger.ErrorField(cause))
	return out
}

func (d *publishDriver) send(ctx context.Context, text string) (string, error) {
	if d.cfg.DryRun {
		d.logger.InfoContext(ctx, "Dry run, not calling the platform", logger.StringField("text", text))
		return DryRunPrefix + uuid.NewString(), nil
	}
	published, err := d.platform.Post(ctx, text)
	if err != nil {
		return "", err
	}
	return published.ID, nil
}

// recentTexts feeds the duplicate guard. The local history is preferred; the platform timeline
// is the fallback when the history is empty.
func (d *publishDriver) recentTexts(ctx context.Context) []string {
	texts, err := d.recent.List(ctx, d.cfg.RecentHistory)
	if err != nil {
		d.logger.WarnContext(ctx, "Failed to read recent texts", logger.ErrorField(err))
	}
	if len(texts) > 0 || d.cfg.DryRun {
		return texts
	}
	texts, err = d.platform.RecentTexts(ctx, d.cfg.RecentHistory)
	if err != nil && !errors.Is(err, context.Canceled) {
		d.logger.WarnContext(ctx, "Failed to read recent posts from the platform", logger.ErrorField(err))
	}
	return texts
}
