package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/dependents/internal/config"
	"github.com/nao1215/dependents/internal/crawler"
	"github.com/nao1215/dependents/internal/model"
	"github.com/nao1215/dependents/internal/result"
)

// FetcherFactory builds the fetcher used for one target's walk.
type FetcherFactory func(target config.Target) (crawler.Fetcher, error)

// ProgressFunc is called while a walk is running.
type ProgressFunc func(repository string, page, found int)

// HTTPFetcherFactory returns a FetcherFactory that builds a dedicated HTTP
// client per target, so per-repository cookie, headers, timeout and proxy apply.
func HTTPFetcherFactory(maxBodySize int64) FetcherFactory {
	return func(target config.Target) (crawler.Fetcher, error) {
		client, err := crawler.NewHTTPClient(crawler.ClientOptions{
			Timeout:      target.Timeout,
			ProxyAddress: target.ProxyAddress,
			Cookie:       target.Cookie,
			Headers:      target.Headers,
		})
		if err != nil {
			return nil, err
		}
		return crawler.NewHTTPFetcher(client,
			crawler.WithUserAgent(target.UserAgent),
			crawler.WithMaxBodySize(maxBodySize),
		), nil
	}
}

// WalkStep follows the dependents listing of the run's target.
type WalkStep struct {
	schema           crawler.Schema
	newFetcher       FetcherFactory
	respectRobots    bool
	progress         ProgressFunc
	progressInterval int
	logger           *slog.Logger
}

// WalkStepOption configures a WalkStep.
type WalkStepOption func(*WalkStep)

// WithFetcherFactory replaces the default HTTP fetcher construction.
func WithFetcherFactory(factory FetcherFactory) WalkStepOption {
	return func(s *WalkStep) {
		s.newFetcher = factory
	}
}

// WithRespectRobots makes the walk honor robots.txt.
func WithRespectRobots(respect bool) WalkStepOption {
	return func(s *WalkStep) {
		s.respectRobots = respect
	}
}

// WithWalkProgress sets a callback for progress reports.
func WithWalkProgress(fn ProgressFunc) WalkStepOption {
	return func(s *WalkStep) {
		s.progress = fn
	}
}

// WithWalkProgressInterval sets how many pages pass between progress reports.
func WithWalkProgressInterval(n int) WalkStepOption {
	return func(s *WalkStep) {
		s.progressInterval = n
	}
}

// WithWalkLogger sets a custom logger for the walk step.
func WithWalkLogger(logger *slog.Logger) WalkStepOption {
	return func(s *WalkStep) {
		s.logger = logger
	}
}

// NewWalkStep creates a walk step that reads pages with schema.
func NewWalkStep(schema crawler.Schema, opts ...WalkStepOption) *WalkStep {
	s := &WalkStep{
		schema:           schema,
		newFetcher:       HTTPFetcherFactory(crawler.DefaultMaxBodySize),
		progressInterval: crawler.DefaultProgressInterval,
		logger:           slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *WalkStep) Name() string {
	return "walk"
}

// Do walks the listing and records the outcome in the run.
// Walk failures are not returned: they end up in the report with the
// pages merged before them.
func (s *WalkStep) Do(ctx context.Context, run *Run) error {
	target := run.Target

	fetcher, err := s.newFetcher(target)
	if err != nil {
		return fmt.Errorf("failed to prepare fetcher for %s: %w", target.Repository, err)
	}

	logger := s.logger.With("repository", target.Repository)
	opts := []crawler.PaginatorOption{
		crawler.WithMaxPages(target.MaxPages),
		crawler.WithDelay(target.Delay),
		crawler.WithLogger(logger),
		crawler.WithProgressInterval(s.progressInterval),
	}
	if s.progress != nil {
		opts = append(opts, crawler.WithProgress(func(page, found int) {
			s.progress(target.Repository, page, found)
		}))
	}
	if s.respectRobots {
		opts = append(opts, crawler.WithRobots(crawler.NewRobotsChecker(fetcher, target.UserAgent, logger)))
	}

	paginator := crawler.NewPaginator(fetcher, s.schema, opts...)
	outcome := paginator.Walk(ctx, target.URL)

	run.Outcome = outcome
	run.Report.PagesFetched = outcome.Pages
	run.Report.StopReason = outcome.Reason
	if outcome.Err != nil {
		run.Report.ErrorMessage = outcome.Err.Error()
	}

	logger.Info("walk finished",
		"pages", outcome.Pages,
		"found", outcome.Dependents.Len(),
		"reason", outcome.Reason.String(),
	)

	return nil
}

// RankStep applies the star threshold and orders the result.
type RankStep struct{}

// NewRankStep creates a ranking step.
func NewRankStep() *RankStep {
	return &RankStep{}
}

// Name returns the step name.
func (s *RankStep) Name() string {
	return "rank"
}

// RunsAfterCancel reports that ranking still runs on a cancelled walk.
func (s *RankStep) RunsAfterCancel() bool {
	return true
}

// Do fills the report with the filtered, sorted dependents.
func (s *RankStep) Do(_ context.Context, run *Run) error {
	if run.Outcome == nil {
		return ErrNoOutcome
	}

	run.Report.MinStars = run.Target.MinStars
	run.Report.TotalFound = run.Outcome.Dependents.Len()
	run.Report.Dependents = result.Process(run.Outcome.Dependents, run.Target.MinStars)
	run.Report.FinishedAt = time.Now()

	return nil
}

// RunStore persists finished runs. *database.HistoryDB satisfies it.
type RunStore interface {
	SaveRun(ctx context.Context, report *model.Report) (int64, error)
}

// SaveStep stores the finished run in the history database.
type SaveStep struct {
	store  RunStore
	logger *slog.Logger
}

// SaveStepOption configures a SaveStep.
type SaveStepOption func(*SaveStep)

// WithSaveLogger sets a custom logger for the save step.
func WithSaveLogger(logger *slog.Logger) SaveStepOption {
	return func(s *SaveStep) {
		s.logger = logger
	}
}

// NewSaveStep creates a step that saves runs to store.
func NewSaveStep(store RunStore, opts ...SaveStepOption) *SaveStep {
	s := &SaveStep{
		store:  store,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *SaveStep) Name() string {
	return "save"
}

// RunsAfterCancel reports that partial runs are saved after an interrupt.
func (s *SaveStep) RunsAfterCancel() bool {
	return true
}

// Do saves the run. The write is detached from cancellation so that an
// interrupted walk is still recorded.
func (s *SaveStep) Do(ctx context.Context, run *Run) error {
	id, err := s.store.SaveRun(context.WithoutCancel(ctx), run.Report)
	if err != nil {
		return fmt.Errorf("failed to save run for %s: %w", run.Report.Repository, err)
	}

	s.logger.Debug("run saved",
		"repository", run.Report.Repository,
		"id", id,
		"run_id", run.Report.RunID,
	)

	return nil
}
