package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/dependents/internal/config"
	"github.com/nao1215/dependents/internal/crawler"
	"github.com/nao1215/dependents/internal/model"
)

// Run carries one repository through the pipeline.
type Run struct {
	// Target is the resolved per-repository configuration.
	Target config.Target

	// Report is filled in by the steps.
	Report *model.Report

	// Outcome is the raw walk result, set by WalkStep.
	Outcome *crawler.Outcome
}

// NewRun creates a Run with a fresh report for the target.
func NewRun(target config.Target) *Run {
	return &Run{
		Target: target,
		Report: model.NewReport(target.Repository, target.URL),
	}
}

// Step defines the interface that all pipeline steps must implement.
type Step interface {
	// Do executes the step. Errors that still leave a usable result should
	// be recorded in the run's report and return nil.
	Do(ctx context.Context, run *Run) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// cancelSafe is implemented by steps that must run after the context is
// cancelled so that partial results still reach the caller.
type cancelSafe interface {
	RunsAfterCancel() bool
}

// Pipeline executes steps in order.
type Pipeline struct {
	steps           []Step
	logger          *slog.Logger
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps executing steps after one fails.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in sequence.
//
// After cancellation only steps that implement RunsAfterCancel still run;
// the others are skipped and the context error is returned at the end.
// Otherwise the first step error is returned, unless continueOnError is set.
func (p *Pipeline) Execute(ctx context.Context, run *Run) error {
	var firstErr error

	for _, step := range p.steps {
		if ctx.Err() != nil && !runsAfterCancel(step) {
			p.logger.Warn("step skipped after cancellation",
				"step", step.Name(),
				"repository", run.Target.Repository,
			)
			if run.Report.StopReason == model.StopReasonUnknown {
				run.Report.StopReason = model.StopReasonCancelled
				run.Report.ErrorMessage = ctx.Err().Error()
			}
			if firstErr == nil {
				firstErr = ctx.Err()
			}
			continue
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"repository", run.Target.Repository,
		)

		if err := step.Do(ctx, run); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"repository", run.Target.Repository,
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
			}
			if !p.continueOnError {
				return err
			}
			continue
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"repository", run.Target.Repository,
		)
	}

	return firstErr
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}

func runsAfterCancel(step Step) bool {
	cs, ok := step.(cancelSafe)
	return ok && cs.RunsAfterCancel()
}
