package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and can be checked with errors.Is.
var (
	// ErrNoTarget is returned when no repository address is specified.
	ErrNoTarget = errors.New("no target specified: provide a GitHub repository URL")

	// ErrInvalidDelay is returned when the delay between requests is negative.
	ErrInvalidDelay = errors.New("invalid repeat delay: must be non-negative")

	// ErrInvalidMaxPages is returned when the page ceiling is negative.
	// Zero is valid and means practically unlimited.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrInvalidMinStars is returned when the star threshold is negative.
	ErrInvalidMinStars = errors.New("invalid min stars: must be non-negative")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidProxyAddress is returned when the proxy is not in "host:port" form.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")
)
