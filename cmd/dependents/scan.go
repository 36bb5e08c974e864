package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/dependents/internal/config"
	"github.com/nao1215/dependents/internal/database"
	"github.com/nao1215/dependents/internal/github"
	"github.com/nao1215/dependents/internal/log"
	"github.com/nao1215/dependents/internal/model"
	"github.com/nao1215/dependents/internal/pipeline"
	"github.com/nao1215/dependents/internal/report"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <repository-url>...",
		Short: "List the dependents of one or more repositories",
		Long: `Scan walks the dependents listing of each repository page by page,
collects every dependent with its star count, and prints those with at
least --stars stars, most starred first.

Both the repository address and the listing address are accepted:
  https://github.com/owner/repo
  https://github.com/owner/repo/network/dependents

If a page fails, the dependents collected so far are still printed.

Examples:
  # Dependents with at least 5 stars from the first 20 pages
  dependents scan https://github.com/nao1215/gup

  # Read the whole listing and keep dependents with 100 stars or more
  dependents scan -p 0 -s 100 https://github.com/spf13/cobra

  # Wait 3 seconds between requests
  dependents scan -d 3 https://github.com/nao1215/sqly

  # Write a Markdown report
  dependents scan --markdown -o report.md https://github.com/nao1215/gup

Configuration file (.dependents) example:
  defaults:
    stars: 10
  repositories:
    owner/private-repo:
      cookie: "user_session=..."
      pages: 0`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Walk behavior flags
	cmd.Flags().Float64P(string(config.SettingDelay), "d", config.DefaultDelay.Seconds(),
		"Seconds between the starts of two consecutive requests")
	cmd.Flags().IntP(string(config.SettingMaxPages), "p", config.DefaultMaxPages,
		"Maximum number of listing pages to read (0 = practically unlimited)")
	cmd.Flags().IntP(string(config.SettingMinStars), "s", config.DefaultMinStars,
		"Minimum number of stars for a dependent to be reported")
	cmd.Flags().DurationP(string(config.SettingTimeout), "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().StringP(string(config.SettingUserAgent), "u", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().StringP(string(config.SettingProxy), "x", "",
		"SOCKS5 proxy address (e.g., 127.0.0.1:1080)")
	cmd.Flags().Bool("respect-robots", false,
		"Stop if robots.txt disallows the listing")

	// Batch flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of repositories walked concurrently")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .dependents in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("plain", false,
		"Print only the \"stars | url\" lines")
	cmd.Flags().Bool("no-save", false,
		"Do not store the run in the history database")
	cmd.Flags().Bool("log-json", false,
		"Write logs to stderr as JSON lines")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logJSON, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		return err
	}
	logger := log.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	if logJSON {
		logger = log.NewSecureJSONLogger(cmd.ErrOrStderr(), cfg.Verbose)
	}
	slog.SetDefault(logger)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, finishing with partial results")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runScan(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from defaults, the config file, the
// environment and the command flags, in increasing order of precedence.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	delay, err := flags.GetFloat64(string(config.SettingDelay))
	if err != nil {
		return nil, err
	}
	cfg.Delay = config.SecondsToDuration(delay)

	if cfg.MaxPages, err = flags.GetInt(string(config.SettingMaxPages)); err != nil {
		return nil, err
	}
	if cfg.MinStars, err = flags.GetInt(string(config.SettingMinStars)); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration(string(config.SettingTimeout)); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString(string(config.SettingUserAgent)); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString(string(config.SettingProxy)); err != nil {
		return nil, err
	}
	if cfg.RespectRobots, err = flags.GetBool("respect-robots"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.PlainOutput, err = flags.GetBool("plain"); err != nil {
		return nil, err
	}
	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	cfg.Verbose = getVerboseFlag(cmd)

	// Flags given on the command line beat every other source.
	for _, s := range []config.Setting{
		config.SettingDelay,
		config.SettingMaxPages,
		config.SettingMinStars,
		config.SettingTimeout,
		config.SettingUserAgent,
		config.SettingProxy,
	} {
		if flags.Changed(string(s)) {
			cfg.Pin(s)
		}
	}

	env, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}
	cfg.Pin(cfg.Merge(env)...)

	// An explicitly named config file must exist; otherwise a missing file is fine.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.File, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.Merge(cfg.File.Defaults.Overrides)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.File = &config.File{Repositories: make(map[string]config.RepositoryConfig)}
	}

	cfg.Targets = args

	return cfg, nil
}

// runScan walks every target and writes the reports.
// Walk failures are reported with partial results and do not fail the command.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	// Resolve targets before touching the database or the network.
	targets, err := cfg.ResolveTargets()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger.Info("starting scan",
		"targets", len(targets),
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	var store pipeline.RunStore
	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
		store = db
	}

	var schemaOpts []github.SchemaOption
	if cfg.File != nil {
		schemaOpts = cfg.File.Schema.Options()
	}

	walk := pipeline.NewWalkStep(github.NewDependentsSchema(schemaOpts...),
		pipeline.WithFetcherFactory(pipeline.HTTPFetcherFactory(cfg.MaxBodySize)),
		pipeline.WithRespectRobots(cfg.RespectRobots),
		pipeline.WithWalkProgress(progressPrinter(stderr, len(targets) > 1)),
		pipeline.WithWalkLogger(logger),
	)

	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			return createPipeline(walk, store, logger)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	reports, err := bp.ProcessBatch(ctx, targets)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			return err
		}
		logger.Warn("scan interrupted, reporting partial results")
	}

	return outputReport(cfg, reports, stdout)
}

// createPipeline builds the walk, rank and optional save steps for one run.
func createPipeline(walk *pipeline.WalkStep, store pipeline.RunStore, logger *slog.Logger) *pipeline.Pipeline {
	p := pipeline.New(
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	)
	p.AddSteps(walk, pipeline.NewRankStep())
	if store != nil {
		p.AddStep(pipeline.NewSaveStep(store, pipeline.WithSaveLogger(logger)))
	}
	return p
}

// progressPrinter prints "Page N done" lines, prefixed with the repository
// when several repositories are scanned.
func progressPrinter(w io.Writer, withRepository bool) pipeline.ProgressFunc {
	var mu sync.Mutex
	return func(repository string, page, _ int) {
		mu.Lock()
		defer mu.Unlock()
		if withRepository {
			fmt.Fprintf(w, "[%s] Page %d done\n", repository, page)
			return
		}
		fmt.Fprintf(w, "Page %d done\n", page)
	}
}

// outputReport writes the reports in the requested format to stdout.
// With a report file, the formatted report goes to the file and the text
// listing is still shown on stdout.
func outputReport(cfg *config.Config, reports []*model.Report, stdout io.Writer) error {
	var writer report.Writer
	if cfg.ReportFile == "" {
		writer = newReportWriter(cfg, stdout)
	} else {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()

		writer = report.NewMultiWriter(
			newReportWriter(cfg, f),
			report.NewSimpleWriter(stdout, report.WithPlain(cfg.PlainOutput)),
		)
	}

	// A single JSON report stays an object rather than a one-element array.
	if len(reports) == 1 {
		_, err := writer.Write(reports[0])
		return err
	}
	_, err := writer.WriteAll(reports)
	return err
}

// newReportWriter returns the writer for the configured report format.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithPlain(cfg.PlainOutput))
	}
}
