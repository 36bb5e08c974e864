package model

import (
	"time"

	"github.com/google/uuid"
)

// Report is the result of one run against one repository.
// It is what report writers render and what the history database stores.
type Report struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`

	// Repository is the scanned repository in "owner/repo" form.
	Repository string `json:"repository"`

	// URL is the normalized dependents listing address the walk started from.
	URL string `json:"url"`

	// StartedAt is when the walk began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the result was processed.
	FinishedAt time.Time `json:"finished_at"`

	// PagesFetched is the number of pages merged into the result.
	PagesFetched int `json:"pages_fetched"`

	// StopReason tells why the walk ended.
	StopReason StopReason `json:"stop_reason"`

	// ErrorMessage holds the error text when the walk was cut short.
	ErrorMessage string `json:"error_message,omitempty"`

	// MinStars is the threshold applied to the result.
	MinStars int `json:"min_stars"`

	// TotalFound is the number of distinct dependents before filtering.
	TotalFound int `json:"total_found"`

	// Dependents is the filtered, sorted result.
	Dependents ResultSet `json:"dependents"`
}

// NewReport creates a Report with a fresh run ID for the given repository.
func NewReport(repository, url string) *Report {
	return &Report{
		RunID:      uuid.NewString(),
		Repository: repository,
		URL:        url,
		StartedAt:  time.Now(),
		Dependents: ResultSet{},
	}
}

// Complete reports whether the walk covered the whole listing.
func (r *Report) Complete() bool {
	return r.StopReason.Exhausted()
}

// Duration returns how long the run took.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
