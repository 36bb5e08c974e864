package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/dependents/internal/config"
	"github.com/nao1215/dependents/internal/database"
	"github.com/nao1215/dependents/internal/github"
	"github.com/nao1215/dependents/internal/model"
	"github.com/nao1215/dependents/internal/report"
)

const sinceLayout = "2006-01-02"

// compareOptions selects the baseline run and the output format.
type compareOptions struct {
	withRunID int64
	since     string
	json      bool
	markdown  bool
}

// NewCompareCmd creates the compare command.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [repository]",
		Short: "Compare runs stored in the history database",
		Long: `Compare shows how the dependents of a repository changed between two runs:
- New dependents that appeared
- Dependents that disappeared or fell below the star threshold
- Dependents whose star count changed

By default the latest run is compared with the one before it. The
repository can be given as "owner/repo" or as a GitHub address.

Examples:
  # Compare the latest two runs
  dependents compare nao1215/gup

  # List stored runs for a repository
  dependents compare --list nao1215/gup

  # Compare the latest run with a specific run
  dependents compare --with-run-id 5 nao1215/gup

  # Compare with the first run on or after a date
  dependents compare --since 2026-01-01 nao1215/gup

  # List every repository in the database
  dependents compare --list-repositories

  # Delete runs that started before a date
  dependents compare --prune-before 2025-01-01`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List stored runs for the repository")
	cmd.Flags().BoolP("list-repositories", "L", false,
		"List every repository in the database")
	cmd.Flags().String("prune-before", "",
		"Delete runs that started before this date (format: YYYY-MM-DD)")

	// Baseline selection flags
	cmd.Flags().Int64P("with-run-id", "i", 0,
		"Compare with a specific run by ID (use --list to see available IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first run on or after this date (format: YYYY-MM-DD)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	return cmd
}

func runCompareCmd(cmd *cobra.Command, args []string) error {
	listRepos, err := cmd.Flags().GetBool("list-repositories")
	if err != nil {
		return err
	}
	pruneBefore, err := cmd.Flags().GetString("prune-before")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	var cutoff time.Time
	if pruneBefore != "" {
		if cutoff, err = time.ParseInLocation(sinceLayout, pruneBefore, time.Local); err != nil {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}
	}

	var repository string
	if !listRepos && pruneBefore == "" {
		if len(args) == 0 {
			return errors.New("repository is required (use --list-repositories to see stored repositories)")
		}
		repository, err = repositoryArg(args[0])
		if err != nil {
			return fmt.Errorf("invalid repository: %w", err)
		}
	}

	var opts compareOptions
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if opts.markdown, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if opts.json && opts.markdown {
		return config.ErrConflictingReportFormats
	}
	if opts.withRunID, err = cmd.Flags().GetInt64("with-run-id"); err != nil {
		return err
	}
	if opts.since, err = cmd.Flags().GetString("since"); err != nil {
		return err
	}

	db, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	out := cmd.OutOrStdout()

	if pruneBefore != "" {
		return pruneRuns(ctx, out, db, cutoff)
	}
	if listRepos {
		return listRepositories(ctx, out, db)
	}

	listHistory, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if listHistory {
		return listRunHistory(ctx, out, db, repository)
	}

	return runComparison(ctx, out, db, repository, opts)
}

// repositoryArg turns "owner/repo" or a GitHub address into "owner/repo".
func repositoryArg(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = github.BaseURL + strings.TrimPrefix(raw, "/")
	}
	owner, repo, err := github.ParseRepository(raw)
	if err != nil {
		return "", err
	}
	return owner + "/" + repo, nil
}

// pruneRuns deletes the runs that started before cutoff.
func pruneRuns(ctx context.Context, w io.Writer, db *database.HistoryDB, cutoff time.Time) error {
	n, err := db.DeleteRunsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete runs: %w", err)
	}
	fmt.Fprintf(w, "Deleted %d runs started before %s\n", n, cutoff.Format(sinceLayout))
	return nil
}

// listRepositories lists every repository with stored runs.
func listRepositories(ctx context.Context, w io.Writer, db *database.HistoryDB) error {
	repositories, err := db.ListRepositories(ctx)
	if err != nil {
		return fmt.Errorf("failed to list repositories: %w", err)
	}

	if len(repositories) == 0 {
		fmt.Fprintln(w, "No runs found in the database.")
		fmt.Fprintln(w, "\nUse 'dependents scan <repository-url>' to scan a repository.")
		return nil
	}

	fmt.Fprintf(w, "Scanned repositories (%d):\n\n", len(repositories))
	for _, repository := range repositories {
		fmt.Fprintf(w, "  • %s\n", repository)
	}
	fmt.Fprintln(w, "\nUse 'dependents compare --list <repository>' to see the runs of a repository.")

	return nil
}

// listRunHistory lists the stored runs of a repository, newest first.
func listRunHistory(ctx context.Context, w io.Writer, db *database.HistoryDB, repository string) error {
	runs, err := db.GetRunHistoryWithMetadata(ctx, repository)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintf(w, "No runs found for %s\n", repository)
		fmt.Fprintln(w, "\nUse 'dependents scan' to scan this repository.")
		return nil
	}

	fmt.Fprintf(w, "Run history for %s (%d runs):\n\n", repository, len(runs))
	fmt.Fprintf(w, "  %-6s  %-20s  %-6s  %-8s  %-8s  %s\n", "ID", "Date", "Pages", "Found", "Stored", "Stop Reason")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 72))

	for _, meta := range runs {
		fmt.Fprintf(w, "  %-6d  %-20s  %-6d  %-8d  %-8d  %s\n",
			meta.ID,
			meta.StartedAt.Local().Format("2006-01-02 15:04:05"),
			meta.PagesFetched,
			meta.TotalFound,
			meta.Stored,
			meta.StopReason,
		)
	}

	fmt.Fprintln(w, "\nUse 'dependents compare <repository>' to compare the latest two runs.")
	fmt.Fprintln(w, "Use 'dependents compare --with-run-id <id> <repository>' to compare with a specific run.")

	return nil
}

// runComparison selects the baseline and current runs and writes their difference.
func runComparison(ctx context.Context, w io.Writer, db *database.HistoryDB, repository string, opts compareOptions) error {
	history, err := db.GetRunHistory(ctx, repository)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}

	if len(history) == 0 {
		return fmt.Errorf("no run history found for %s", repository)
	}
	if len(history) < 2 && opts.withRunID == 0 && opts.since == "" {
		return fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(history))
	}

	current := history[0]
	baseline, err := selectBaseline(ctx, db, history, repository, opts)
	if err != nil {
		return err
	}

	comparison := model.Compare(baseline, current)

	switch {
	case opts.json:
		_, err = report.NewJSONWriter(w, report.WithPrettyPrint()).WriteValue(comparison)
		return err
	case opts.markdown:
		return outputComparisonMarkdown(w, comparison)
	default:
		return outputComparisonText(w, comparison)
	}
}

// selectBaseline picks the run the latest run is compared with.
func selectBaseline(ctx context.Context, db *database.HistoryDB, history []*model.Report, repository string, opts compareOptions) (*model.Report, error) {
	current := history[0]

	switch {
	case opts.withRunID > 0:
		baseline, err := db.GetRunByID(ctx, opts.withRunID)
		if err != nil {
			return nil, fmt.Errorf("failed to get run with ID %d: %w", opts.withRunID, err)
		}
		if baseline == nil {
			return nil, fmt.Errorf("run with ID %d not found", opts.withRunID)
		}
		if baseline.Repository != repository {
			return nil, fmt.Errorf("run ID %d belongs to %s, not %s", opts.withRunID, baseline.Repository, repository)
		}
		if baseline.RunID == current.RunID {
			return nil, fmt.Errorf("run ID %d is the latest run; choose an earlier one", opts.withRunID)
		}
		return baseline, nil

	case opts.since != "":
		since, err := time.ParseInLocation(sinceLayout, opts.since, time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}

		// History is newest first, so walk it backwards to find the oldest match.
		for i := len(history) - 1; i >= 0; i-- {
			r := history[i]
			if r.StartedAt.Before(since) {
				continue
			}
			if r == current {
				return nil, fmt.Errorf("only one run found since %s; at least 2 runs are required for comparison", opts.since)
			}
			return r, nil
		}
		return nil, fmt.Errorf("no runs found since %s", opts.since)

	default:
		return history[1], nil
	}
}

// outputComparisonText writes the comparison in human-readable text format.
func outputComparisonText(w io.Writer, c *model.Comparison) error {
	fmt.Fprintf(w, "Run Comparison: %s\n", c.Repository)
	fmt.Fprintln(w, strings.Repeat("=", 60))

	fmt.Fprintf(w, "\nPrevious run: %s (%s)\n", c.Baseline.StartedAt, c.Baseline.StopReason)
	fmt.Fprintf(w, "Current run:  %s (%s)\n", c.Current.StartedAt, c.Current.StopReason)

	fmt.Fprintln(w, "\nSummary:")
	fmt.Fprintf(w, "  %-12s  %-10s  %-10s  %-10s\n", "", "Previous", "Current", "Change")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 48))
	fmt.Fprintf(w, "  %-12s  %-10d  %-10d  %-10s\n", "Dependents",
		c.Baseline.Shown, c.Current.Shown, formatDelta(c.Current.Shown-c.Baseline.Shown))
	fmt.Fprintf(w, "  %-12s  %-10d  %-10d  %-10s\n", "Min stars",
		c.Baseline.MinStars, c.Current.MinStars, formatDelta(c.Current.MinStars-c.Baseline.MinStars))

	if c.ThresholdChanged() {
		fmt.Fprintln(w, "\nNote: the star threshold changed, so some additions and removals only reflect the filter.")
	}

	if !c.HasChanges() {
		fmt.Fprintln(w, "\nNo changes.")
	}

	if len(c.Added) > 0 {
		fmt.Fprintf(w, "\nNew Dependents (%d):\n", len(c.Added))
		for _, d := range c.Added {
			fmt.Fprintf(w, "  [+] %7d | %s\n", d.Stars, d.URL)
		}
	}

	if len(c.Removed) > 0 {
		fmt.Fprintf(w, "\nRemoved Dependents (%d):\n", len(c.Removed))
		for _, d := range c.Removed {
			fmt.Fprintf(w, "  [-] %7d | %s\n", d.Stars, d.URL)
		}
	}

	if len(c.Changed) > 0 {
		fmt.Fprintf(w, "\nStar Changes (%d):\n", len(c.Changed))
		for _, sc := range c.Changed {
			fmt.Fprintf(w, "  [~] %7d -> %-7d (%s) %s\n", sc.Before, sc.After, formatDelta(sc.Delta()), sc.URL)
		}
	}

	if c.Unchanged > 0 {
		fmt.Fprintf(w, "\nUnchanged: %d dependents\n", c.Unchanged)
	}

	return nil
}

// outputComparisonMarkdown writes the comparison in Markdown format.
func outputComparisonMarkdown(w io.Writer, c *model.Comparison) error {
	md := markdown.NewMarkdown(w)

	md.H1("Run Comparison: " + c.Repository)
	md.PlainText("")

	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Date", c.Baseline.StartedAt, c.Current.StartedAt, "-"},
			{"Stop Reason", c.Baseline.StopReason.String(), c.Current.StopReason.String(), "-"},
			{"Dependents", strconv.Itoa(c.Baseline.Shown), strconv.Itoa(c.Current.Shown),
				formatDelta(c.Current.Shown - c.Baseline.Shown)},
			{"Min Stars", strconv.Itoa(c.Baseline.MinStars), strconv.Itoa(c.Current.MinStars),
				formatDelta(c.Current.MinStars - c.Baseline.MinStars)},
		},
	})
	md.PlainText("")

	if c.ThresholdChanged() {
		md.Note("The star threshold changed, so some additions and removals only reflect the filter.")
		md.PlainText("")
	}

	if len(c.Added) > 0 {
		md.H2(fmt.Sprintf("New Dependents (%d)", len(c.Added)))
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"Repository", "Stars"},
			Rows:   dependentRows(c.Added),
		})
		md.PlainText("")
	}

	if len(c.Removed) > 0 {
		md.H2(fmt.Sprintf("Removed Dependents (%d)", len(c.Removed)))
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"Repository", "Stars"},
			Rows:   dependentRows(c.Removed),
		})
		md.PlainText("")
	}

	if len(c.Changed) > 0 {
		rows := make([][]string, 0, len(c.Changed))
		for _, sc := range c.Changed {
			rows = append(rows, []string{sc.URL, strconv.Itoa(sc.Before), strconv.Itoa(sc.After), formatDelta(sc.Delta())})
		}
		md.H2(fmt.Sprintf("Star Changes (%d)", len(c.Changed)))
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"Repository", "Previous", "Current", "Change"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if !c.HasChanges() {
		md.Tip("No changes between the two runs.")
		md.PlainText("")
	}

	if c.Unchanged > 0 {
		md.HorizontalRule()
		md.PlainText("")
		md.PlainTextf("*%d dependents unchanged*", c.Unchanged)
	}

	return md.Build()
}

func dependentRows(deps []model.Dependent) [][]string {
	rows := make([][]string, 0, len(deps))
	for _, d := range deps {
		rows = append(rows, []string{d.URL, strconv.Itoa(d.Stars)})
	}
	return rows
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
