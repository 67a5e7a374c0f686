package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang-news-slate/internal/config"
	"golang-news-slate/internal/entity"
	executor "golang-news-slate/internal/executor/service"
	"golang-news-slate/internal/executor/strategy"
	"golang-news-slate/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Trigger binds a cron spec to a stage run.
type Trigger struct {
	Name   string          `json:"name"`
	Spec   string          `json:"spec"`
	Stage  entity.Stage    `json:"stage"`
	Params strategy.Params `json:"params"`
	Next   time.Time       `json:"next,omitempty"`
}

// Triggers expands the schedule into stage triggers. Empty specs are left out.
func Triggers(schedule config.Schedule) []Trigger {
	all := []Trigger{
		{Name: "collect", Spec: schedule.Collect, Stage: entity.StageCollect},
		{Name: "publish", Spec: schedule.Publish, Stage: entity.StagePublish},
		{Name: "metrics_initial", Spec: schedule.MetricsInitial, Stage: entity.StageMetrics, Params: strategy.Params{Phase: "initial"}},
		{Name: "metrics_day1", Spec: schedule.MetricsDay1, Stage: entity.StageMetrics, Params: strategy.Params{Phase: "day1"}},
		{Name: "metrics_day3", Spec: schedule.MetricsDay3, Stage: entity.StageMetrics, Params: strategy.Params{Phase: "day3"}},
		{Name: "metrics_day10", Spec: schedule.MetricsDay10, Stage: entity.StageMetrics, Params: strategy.Params{Phase: "day10"}},
	}
	out := all[:0]
	for _, t := range all {
		if t.Spec != "" {
			out = append(out, t)
		}
	}
	return out
}

// SchedulerService defines the interface for the stage trigger loop.
type SchedulerService interface {
	// Start registers every trigger and blocks until ctx is done and running stages return.
	Start(ctx context.Context) error
	Entries() []Trigger
}

// NewSchedulerService creates a new scheduler service. All specs are evaluated in UTC.
func NewSchedulerService(executorSvc executor.ExecutorService, schedule config.Schedule, log *logger.Logger) SchedulerService {
	return &schedulerService{
		executor: executorSvc,
		triggers: Triggers(schedule),
		logger:   log,
	}
}

type schedulerService struct {
	executor executor.ExecutorService
	triggers []Trigger
	logger   *logger.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[cron.EntryID]Trigger
}

func (s *schedulerService) Start(ctx context.Context) error {
	cronLogger := &cronLogger{logger: s.logger}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithParser(config.CronParser),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	entries := make(map[cron.EntryID]Trigger, len(s.triggers))
	for _, t := range s.triggers {
		id, err := c.AddFunc(t.Spec, s.run(ctx, t))
		if err != nil {
			return fmt.Errorf("failed to schedule %s: %w", t.Name, err)
		}
		entries[id] = t
		s.logger.Info("Trigger scheduled", logger.StringField("trigger", t.Name), logger.StringField("spec", t.Spec))
	}

	s.mu.Lock()
	s.cron = c
	s.entries = entries
	s.mu.Unlock()

	c.Start()
	<-ctx.Done()
	s.logger.Info("Scheduler service stopping")
	<-c.Stop().Done()
	return nil
}

func (s *schedulerService) run(ctx context.Context, t Trigger) func() {
	return func() {
		if _, err := s.executor.Run(ctx, t.Stage, entity.TriggerCron, t.Params); err != nil {
			s.logger.Error("Scheduled stage failed", logger.StringField("trigger", t.Name), logger.ErrorField(err))
		}
	}
}

func (s *schedulerService) Entries() []Trigger {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return append([]Trigger(nil), s.triggers...)
	}
	out := make([]Trigger, 0, len(s.entries))
	for _, e := range s.cron.Entries() {
		t, ok := s.entries[e.ID]
		if !ok {
			continue
		}
		t.Next = e.Next
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Next.Before(out[j].Next) })
	return out
}

// cronLogger routes cron's key-value logging through zap.
type cronLogger struct {
	logger *logger.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
