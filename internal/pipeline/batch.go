package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/dependents/internal/config"
	"github.com/nao1215/dependents/internal/model"
)

// DefaultConcurrency is the number of repositories scanned at once.
// The dependents pages of one host are fetched one repository at a time.
const DefaultConcurrency = 1

// BatchProcessor scans several repositories, each with its own pipeline.
type BatchProcessor struct {
	// pipelineFactory creates a fresh pipeline for each run.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of walks running at once.
	concurrency int

	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent walks.
// Non-positive values are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch scans every target and returns the reports in target order.
//
// A failing run does not stop the others; its error is logged and its
// report keeps whatever was collected. Reports of targets that never
// started because ctx was cancelled are marked Cancelled. The returned
// error is ctx's error, if any.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []config.Target) ([]*model.Report, error) {
	reports := make([]*model.Report, len(targets))

	err := bp.ProcessBatchWithCallback(ctx, targets, func(report *model.Report, index int) {
		// Each index is written by exactly one goroutine.
		reports[index] = report
	})

	for i, report := range reports {
		if report == nil {
			reports[i] = cancelledReport(targets[i], ctx.Err())
		}
	}

	return reports, err
}

// ProcessBatchWithCallback scans every target and calls callback as each
// run finishes. The callback is called from the worker goroutine, so it
// must be safe for concurrent use when concurrency is above one.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	targets []config.Target,
	callback func(report *model.Report, index int),
) error {
	bp.logger.Info("starting batch",
		"repositories", len(targets),
		"concurrency", bp.concurrency,
	)
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			bp.logger.Info("scanning repository",
				"repository", target.Repository,
				"index", i+1,
				"total", len(targets),
			)

			run := NewRun(target)
			if err := bp.pipelineFactory().Execute(ctx, run); err != nil {
				bp.logger.Warn("scan finished with error",
					"repository", target.Repository,
					"error", err,
				)
			}

			callback(run.Report, i)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // workers never return errors

	bp.logger.Info("batch complete",
		"repositories", len(targets),
		"elapsed", time.Since(start),
	)

	return ctx.Err()
}

func cancelledReport(target config.Target, err error) *model.Report {
	report := model.NewReport(target.Repository, target.URL)
	report.StopReason = model.StopReasonCancelled
	report.MinStars = target.MinStars
	report.FinishedAt = report.StartedAt
	if err != nil {
		report.ErrorMessage = err.Error()
	}
	return report
}
