package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vportnov/briefly/internal/config"
	"github.com/vportnov/briefly/internal/core/ports"
	"github.com/vportnov/briefly/internal/core/usecase"
	"github.com/vportnov/briefly/internal/infrastructure/extractor"
	"github.com/vportnov/briefly/internal/infrastructure/llm/gemini"
	"github.com/vportnov/briefly/internal/infrastructure/queue/nats"
	"github.com/vportnov/briefly/internal/infrastructure/repository/postgres"
	"github.com/vportnov/briefly/internal/infrastructure/resilience"
	"github.com/vportnov/briefly/internal/infrastructure/sectioning"
	"github.com/vportnov/briefly/internal/infrastructure/storage/localfs"
	"github.com/vportnov/briefly/internal/observability/logging"
	"github.com/vportnov/briefly/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue    *nats.Queue
	Repo     ports.SummaryRepository
	Registry *usecase.JobRegistry
	Events   *usecase.EventBroadcaster

	SubmitUC  ports.SummarySubmitter
	ProcessUC ports.SummaryProcessor

	WorkerMetrics *metrics.WorkerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	logger := logging.NewJSONLogger(service, cfg.LogLevel)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewSummaryRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSJobsSubject, cfg.NATSControlSubject)
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	resilienceCfg := resilience.DefaultConfig()
	if cfg.RetryMaxAttempts > 0 {
		resilienceCfg.RetryMaxAttempts = cfg.RetryMaxAttempts
	}

	workerMetrics := metrics.NewWorkerMetrics(service)

	summarizer := gemini.New(cfg.GeminiBaseURL, cfg.GeminiModel, cfg.GeminiAPIKey, gemini.Options{
		RequestsPerMinute:  cfg.GeminiRequestsPerMinute,
		ResilienceExecutor: resilience.NewExecutor(resilienceCfg),
		UsageTracker:       workerMetrics,
	})

	sectioner := sectioning.NewSectioner(cfg.SectionThreshold, cfg.SectionTargetSize)
	registry := usecase.NewJobRegistry()
	events := usecase.NewEventBroadcaster()
	notifier := metrics.NewProgressNotifier(service, workerMetrics, logger)

	submitUC := usecase.NewSubmitSummaryUseCase(repo, storage, extractor.NewRouter(), queue, cfg.DefaultMaxLengthChars)
	processUC := usecase.NewProcessSummaryUseCase(
		repo, summarizer, sectioner, registry, events, notifier, logger, cfg.SectionWorkers,
	)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:    queue,
		Repo:     repo,
		Registry: registry,
		Events:   events,

		SubmitUC:  submitUC,
		ProcessUC: processUC,

		WorkerMetrics: workerMetrics,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
