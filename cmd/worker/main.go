package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/vportnov/briefly/internal/adapters/http"
	"github.com/vportnov/briefly/internal/bootstrap"
	"github.com/vportnov/briefly/internal/config"
	"github.com/vportnov/briefly/internal/core/domain"
)

// processTimeout bounds one whole job, sections and merge included.
const processTimeout = 30 * time.Minute

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, "worker")
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	// the worker's HTTP port serves metrics and the per-job event stream
	workerMux := http.NewServeMux()
	workerMux.Handle("/metrics", app.WorkerMetrics.Handler())
	workerMux.Handle("/v1/jobs/", httpadapter.EventsHandler(app.Events))
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMux,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("worker metrics server error: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	// control signals flip the shared per-job flags; the section loop picks
	// them up at the next boundary
	err = app.Queue.SubscribeJobSignals(ctx, func(jobID string, signal domain.JobSignal) {
		app.Logger.Info("job_signal", "job_id", jobID, "signal", signal)
		switch signal {
		case domain.SignalPause:
			app.Registry.Pause(jobID)
		case domain.SignalResume:
			app.Registry.Resume(jobID)
		case domain.SignalCancel:
			app.Registry.Cancel(jobID)
		}
	})
	if err != nil {
		log.Fatalf("worker control subscribe error: %v", err)
	}

	app.Logger.Info("worker_subscribed",
		"jobs_subject", cfg.NATSJobsSubject,
		"control_subject", cfg.NATSControlSubject,
	)
	err = app.Queue.SubscribeSummarizeRequested(ctx, func(handlerCtx context.Context, summaryID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, processTimeout)
		defer cancel()

		app.WorkerMetrics.StartJob()
		started := time.Now()
		processErr := app.ProcessUC.ProcessByID(processCtx, summaryID)

		status := "success"
		if processErr != nil {
			status = "error"
		}
		app.WorkerMetrics.FinishJob("worker", status, time.Since(started))
		return processErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
