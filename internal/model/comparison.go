package model

import (
	"cmp"
	"slices"
)

// StarChange records a dependent whose star count differs between two runs.
type StarChange struct {
	URL    string `json:"url"`
	Before int    `json:"before"`
	After  int    `json:"after"`
}

// Delta returns the change in stars, negative when the dependent lost stars.
func (c StarChange) Delta() int {
	return c.After - c.Before
}

// RunRef identifies one side of a comparison.
type RunRef struct {
	RunID      string     `json:"run_id"`
	StartedAt  string     `json:"started_at"`
	StopReason StopReason `json:"stop_reason"`
	MinStars   int        `json:"min_stars"`
	Shown      int        `json:"shown"`
}

// Comparison is the difference between a baseline run and a later run.
type Comparison struct {
	Repository string `json:"repository"`
	Baseline   RunRef `json:"baseline"`
	Current    RunRef `json:"current"`

	// Added are dependents present only in the current run, by stars descending.
	Added []Dependent `json:"added"`

	// Removed are dependents present only in the baseline run, by stars descending.
	Removed []Dependent `json:"removed"`

	// Changed are dependents present in both runs with different stars,
	// largest absolute change first.
	Changed []StarChange `json:"changed"`

	// Unchanged counts dependents present in both runs with the same stars.
	Unchanged int `json:"unchanged"`
}

// HasChanges reports whether the two runs differ at all.
func (c *Comparison) HasChanges() bool {
	return len(c.Added) > 0 || len(c.Removed) > 0 || len(c.Changed) > 0
}

// ThresholdChanged reports whether the runs used different star thresholds,
// in which case added and removed entries may only reflect the filter.
func (c *Comparison) ThresholdChanged() bool {
	return c.Baseline.MinStars != c.Current.MinStars
}

// Compare computes the difference between baseline and current.
func Compare(baseline, current *Report) *Comparison {
	c := &Comparison{
		Repository: current.Repository,
		Baseline:   refOf(baseline),
		Current:    refOf(current),
		Added:      []Dependent{},
		Removed:    []Dependent{},
		Changed:    []StarChange{},
	}

	before := make(map[string]int, len(baseline.Dependents))
	for _, d := range baseline.Dependents {
		before[d.URL] = d.Stars
	}

	seen := make(map[string]bool, len(current.Dependents))
	for _, d := range current.Dependents {
		seen[d.URL] = true
		stars, ok := before[d.URL]
		switch {
		case !ok:
			c.Added = append(c.Added, d)
		case stars != d.Stars:
			c.Changed = append(c.Changed, StarChange{URL: d.URL, Before: stars, After: d.Stars})
		default:
			c.Unchanged++
		}
	}

	for _, d := range baseline.Dependents {
		if !seen[d.URL] {
			c.Removed = append(c.Removed, d)
		}
	}

	byStars := func(a, b Dependent) int {
		return cmp.Or(cmp.Compare(b.Stars, a.Stars), cmp.Compare(a.URL, b.URL))
	}
	slices.SortFunc(c.Added, byStars)
	slices.SortFunc(c.Removed, byStars)
	slices.SortFunc(c.Changed, func(a, b StarChange) int {
		return cmp.Or(cmp.Compare(abs(b.Delta()), abs(a.Delta())), cmp.Compare(a.URL, b.URL))
	})

	return c
}

func refOf(r *Report) RunRef {
	return RunRef{
		RunID:      r.RunID,
		StartedAt:  r.StartedAt.Format("2006-01-02 15:04:05"),
		StopReason: r.StopReason,
		MinStars:   r.MinStars,
		Shown:      len(r.Dependents),
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
