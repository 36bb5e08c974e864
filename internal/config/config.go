package config

import (
	"fmt"
	"maps"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/dependents/internal/crawler"
	"github.com/nao1215/dependents/internal/github"
	"github.com/nao1215/dependents/internal/result"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "dependents"

	// DefaultDelay is the minimum time between the starts of two requests.
	// GitHub answers fast walks with 429, so the default stays well above a second.
	DefaultDelay = 1500 * time.Millisecond

	// DefaultMaxPages is the page ceiling of the command line tool.
	// Zero means practically unlimited (crawler.DefaultMaxPages).
	DefaultMaxPages = 20

	// DefaultMinStars is the star threshold for reported dependents.
	DefaultMinStars = result.DefaultMinStars

	// DefaultTimeout bounds a single request.
	DefaultTimeout = crawler.DefaultTimeout

	// DefaultUserAgent identifies dependents in HTTP requests.
	DefaultUserAgent = crawler.DefaultUserAgent

	// DefaultMaxBodySize limits the response body read per page.
	DefaultMaxBodySize = crawler.DefaultMaxBodySize

	// DefaultBatchSize walks one repository at a time.
	DefaultBatchSize = 1
)

// Config holds all configuration options for dependents.
// It is populated from defaults, the config file, the environment and
// CLI flags, and passed down explicitly rather than kept in global state.
type Config struct {
	// Delay is the minimum time between the starts of two consecutive requests.
	Delay time.Duration

	// MaxPages is the page ceiling per repository. Zero means practically unlimited.
	MaxPages int

	// MinStars is the star threshold; dependents with fewer stars are dropped.
	MinStars int

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// ProxyAddress routes requests through a SOCKS5 proxy in "host:port" form.
	ProxyAddress string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// RespectRobots makes every walk consult robots.txt first.
	RespectRobots bool

	// BatchSize is the number of repositories walked concurrently.
	// A single walk is always sequential.
	BatchSize int

	// Verbose enables debug level logging.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, FindConfigFile searches the default locations.
	ConfigFilePath string

	// File holds the loaded configuration file, if any.
	File *File

	// JSONReport enables JSON report output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report; stdout when empty.
	ReportFile string

	// PlainOutput drops the header of the text report, leaving only "stars | url" lines.
	PlainOutput bool

	// Targets are the repository or listing addresses to walk.
	Targets []string

	// DBDir is the directory of the run history database.
	DBDir string

	// SaveToDB stores every finished run in the history database.
	SaveToDB bool

	// pinned records settings that weaker sources must not override.
	pinned map[Setting]bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Delay:       DefaultDelay,
		MaxPages:    DefaultMaxPages,
		MinStars:    DefaultMinStars,
		Timeout:     DefaultTimeout,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		BatchSize:   DefaultBatchSize,
		DBDir:       XDGDataDir(),
		SaveToDB:    true,
	}
}

// SecondsToDuration converts a delay in (fractional) seconds to a Duration.
func SecondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// XDGDataDir returns the XDG data directory for dependents.
// On Linux: ~/.local/share/dependents
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for dependents.
// On Linux: ~/.config/dependents
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found. Every target is normalized here, so
// an unsupported address fails before any network activity.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	for _, target := range c.Targets {
		if _, err := github.NormalizeDependentsURL(target); err != nil {
			return err
		}
	}

	if c.Delay < 0 {
		return ErrInvalidDelay
	}
	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	if c.MinStars < 0 {
		return ErrInvalidMinStars
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.ProxyAddress != "" && !crawler.IsValidProxyAddress(c.ProxyAddress) {
		return fmt.Errorf("%w: %q", ErrInvalidProxyAddress, c.ProxyAddress)
	}
	return nil
}

// Target holds the settings of one repository walk.
type Target struct {
	// URL is the normalized dependents listing address.
	URL string

	// Repository is the "owner/repo" name.
	Repository string

	// Delay is the minimum spacing between requests.
	Delay time.Duration

	// MaxPages is the page ceiling. Zero means practically unlimited.
	MaxPages int

	// MinStars is the star threshold.
	MinStars int

	// Timeout bounds each request.
	Timeout time.Duration

	// UserAgent is the User-Agent header.
	UserAgent string

	// ProxyAddress is the SOCKS5 proxy, if any.
	ProxyAddress string

	// Cookie is sent with every request of the walk.
	Cookie string

	// Headers are sent with every request of the walk.
	Headers map[string]string
}

// Target resolves the settings for one target address.
// Repository entries of the config file refine the global settings unless
// a flag or environment variable pinned them.
func (c *Config) Target(raw string) (Target, error) {
	u, err := github.NormalizeDependentsURL(raw)
	if err != nil {
		return Target{}, err
	}
	name := github.RepositoryName(u)

	resolved := *c
	var repo RepositoryConfig
	if c.File != nil {
		repo = c.File.ForRepository(name)
		resolved.Merge(repo.Overrides)
	}

	target := Target{
		URL:          u,
		Repository:   name,
		Delay:        resolved.Delay,
		MaxPages:     resolved.MaxPages,
		MinStars:     resolved.MinStars,
		Timeout:      resolved.Timeout,
		UserAgent:    resolved.UserAgent,
		ProxyAddress: resolved.ProxyAddress,
		Cookie:       repo.Cookie,
		Headers:      maps.Clone(repo.Headers),
	}
	if err := target.Validate(); err != nil {
		return Target{}, fmt.Errorf("%s: %w", name, err)
	}
	return target, nil
}

// Validate checks the resolved settings of one target.
// Repository entries of the config file are only checked here.
func (t Target) Validate() error {
	if t.Delay < 0 {
		return ErrInvalidDelay
	}
	if t.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	if t.MinStars < 0 {
		return ErrInvalidMinStars
	}
	if t.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if t.ProxyAddress != "" && !crawler.IsValidProxyAddress(t.ProxyAddress) {
		return fmt.Errorf("%w: %q", ErrInvalidProxyAddress, t.ProxyAddress)
	}
	return nil
}

// ResolveTargets resolves every configured target in order.
func (c *Config) ResolveTargets() ([]Target, error) {
	targets := make([]Target, 0, len(c.Targets))
	for _, raw := range c.Targets {
		t, err := c.Target(raw)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}
