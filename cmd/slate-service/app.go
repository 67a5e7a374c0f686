package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang-news-slate/internal/collector"
	"golang-news-slate/internal/composer"
	"golang-news-slate/internal/config"
	delivery "golang-news-slate/internal/delivery/http"
	executor "golang-news-slate/internal/executor/service"
	"golang-news-slate/internal/executor/strategy"
	"golang-news-slate/internal/metrics"
	"golang-news-slate/internal/ranking"
	"golang-news-slate/internal/repository"
	scheduler "golang-news-slate/internal/scheduler/service"
	"golang-news-slate/internal/scoring"
	"golang-news-slate/internal/service"
	"golang-news-slate/internal/slot"
	"golang-news-slate/pkg/logger"
	"golang-news-slate/pkg/postgres"
	"golang-news-slate/pkg/redis"
	"golang-news-slate/pkg/telegram"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/genai"
)

// app holds the fully wired service graph shared by serve and run.
type app struct {
	cfg         *config.Config
	logger      *logger.Logger
	registry    *prometheus.Registry
	pipeline    service.PipelineService
	performance service.PerformanceService
	executor    executor.ExecutorService
	history     executor.ExecutionHistoryService
	health      map[string]delivery.HealthCheck
	closers     []func()
}

func newApp(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   appLogger,
		registry: prometheus.NewRegistry(),
		health: map[string]delivery.HealthCheck{
			"config": func(context.Context) error { return cfg.Validate() },
		},
	}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewCollector(a.registry)

	sheets, historyRepo, err := a.openStorage()
	if err != nil {
		a.Close()
		return nil, err
	}

	// Initialize Redis
	redisClient, err := redis.NewClient(redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}
	a.closers = append(a.closers, func() { _ = redisClient.Close() })
	a.health["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }

	prefix := cfg.Redis.KeyPrefix
	clock := slot.NewClock(cfg.Civic.StandardOffsetHours, cfg.Civic.DaylightOffsetHours)
	today := func() string { return clock.Date(time.Now()) }
	quota := repository.NewQuotaRepository(redisClient.Client, prefix)

	var backup repository.BackupSearchRepository
	switch cfg.BackupSearch.Provider {
	case "rss":
		backup = repository.NewRSSSearchRepository(cfg.BackupSearch, cfg.Collector.MaxPerQuery, quota, today, appLogger)
	default:
		backup = repository.NewNewsAPIRepository(cfg.BackupSearch, cfg.Collector.MaxPerQuery, quota, today, appLogger)
	}

	engineOpts := []scoring.Option{
		scoring.WithCacheTTL(time.Duration(cfg.Scoring.AICacheHours) * time.Hour),
		scoring.WithConcurrency(cfg.Scoring.AIConcurrency),
		scoring.WithFallbackRecorder(recorder),
	}
	aiRepo, err := newAIRepository(ctx, cfg, appLogger)
	if err != nil {
		a.Close()
		return nil, err
	}
	if aiRepo != nil {
		engineOpts = append(engineOpts, scoring.WithEngagementScorer(scoring.NewAIEngagement(aiRepo.Name(), aiRepo)))
	}

	notifier := telegram.NewNopNotifier()
	if cfg.Telegram.BotToken != "" {
		notifier, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize telegram notifier: %w", err)
		}
	}

	platform := repository.NewPlatformRepository(cfg.Platform, appLogger)
	audit := service.NewAuditLog(sheets, appLogger)
	alerter := service.NewAlerter(notifier, appLogger)

	collect := collector.New(collector.Config{
		MinArticles:       cfg.Collector.MinArticles,
		PrimaryAttempts:   cfg.Collector.PrimaryAttempts,
		PrimaryRetryDelay: cfg.Collector.PrimaryRetryDelay,
		PrimaryTimeout:    cfg.Collector.PrimaryTimeout,
		BackupTimeout:     cfg.Collector.BackupTimeout,
		CategoryTimeout:   cfg.Collector.CategoryTimeout,
	}, repository.NewPrimarySearchRepository(cfg.PrimarySearch, appLogger), backup, audit, clock, appLogger)

	a.pipeline = service.NewPipelineService(
		collect,
		scoring.NewEngine(appLogger, engineOpts...),
		ranking.NewSelector(cfg.Scoring.QualityGate, cfg.Scoring.PerCategory),
		slot.NewBoard(),
		clock,
		audit,
		alerter,
		recorder,
		appLogger,
	)
	driver := service.NewPublishDriver(
		service.PublishConfig{
			DryRun:             cfg.Publisher.DryRun,
			DuplicateThreshold: cfg.Publisher.DuplicateThreshold,
			RecentHistory:      cfg.Publisher.RecentHistory,
			GuardTTL:           cfg.Publisher.GuardTTL,
		},
		a.pipeline,
		composer.New(cfg.Publisher.StrategicHashtag, nil),
		platform,
		repository.NewPostedGuardRepository(redisClient.Client, prefix),
		repository.NewRecentTextRepository(redisClient.Client, prefix),
		audit,
		alerter,
		recorder,
		appLogger,
	)
	a.performance = service.NewPerformanceService(platform, sheets, audit, recorder, appLogger)

	strategies := []strategy.StageExecutionStrategy{
		strategy.NewCollectStrategy(a.pipeline, appLogger),
		strategy.NewPublishStrategy(driver),
		strategy.NewMetricsStrategy(a.performance),
	}
	a.executor = executor.NewExecutorService(historyRepo, recorder, appLogger, cfg.Schedule.StageTimeout, strategies)
	a.history = executor.NewExecutionHistoryService(historyRepo, appLogger)
	return a, nil
}

// openStorage returns the sheet log and run history for the configured driver.
func (a *app) openStorage() (repository.SheetRepository, repository.TriggerExecutionRepository, error) {
	if a.cfg.Database.Driver == "memory" {
		a.logger.Warn("Using in-memory storage; the slate does not survive a restart")
		return repository.NewMemorySheetRepository(), repository.NewMemoryTriggerExecutionRepository(), nil
	}

	db, err := postgres.NewDB(postgres.Config{
		Host:            a.cfg.Database.Host,
		Port:            a.cfg.Database.Port,
		User:            a.cfg.Database.User,
		Password:        a.cfg.Database.Password,
		DBName:          a.cfg.Database.DBName,
		SSLMode:         a.cfg.Database.SSLMode,
		TimeZone:        a.cfg.Database.TimeZone,
		MaxIdleConns:    a.cfg.Database.MaxIdleConns,
		MaxOpenConns:    a.cfg.Database.MaxOpenConns,
		ConnMaxLifetime: a.cfg.Database.ConnMaxLifetime,
		LogLevel:        a.cfg.Database.LogLevel,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	a.closers = append(a.closers, func() { _ = sqlDB.Close() })
	a.health["database"] = sqlDB.PingContext
	return repository.NewSheetRepository(db.DB), repository.NewTriggerExecutionRepository(db.DB), nil
}

// newAIRepository returns nil when AI engagement scoring is disabled.
func newAIRepository(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) (repository.AIRepository, error) {
	switch cfg.AI.Provider {
	case "", "none":
		return nil, nil
	case "gemini":
		genAiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.Gemini.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize gemini client: %w", err)
		}
		return repository.NewGeminiAIRepository(cfg.Gemini, appLogger, genAiClient), nil
	case "openai":
		return repository.NewOpenAIRepository(cfg.OpenAI, appLogger), nil
	default:
		return nil, errors.New("invalid ai provider: " + cfg.AI.Provider)
	}
}

func (a *app) scheduler() scheduler.SchedulerService {
	return scheduler.NewSchedulerService(a.executor, a.cfg.Schedule, a.logger)
}

func (a *app) handlers() delivery.Handlers {
	return delivery.Handlers{
		Pipeline:    delivery.NewPipelineHandler(a.executor, a.logger),
		Slots:       delivery.NewSlotHandler(a.pipeline, a.executor, a.logger),
		Performance: delivery.NewPerformanceHandler(a.performance, a.logger),
		Executions:  delivery.NewExecutionHandler(a.history, a.logger),
		Health:      delivery.NewHealthHandler(a.health),
	}
}

// Close releases connections in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
