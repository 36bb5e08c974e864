package model

import (
	"github.com/elliotchance/orderedmap/v2"
)

// Dependent is a repository that declares a dependency on the scanned repository.
type Dependent struct {
	// URL is the absolute address of the dependent repository
	// (e.g., "https://github.com/owner/repo").
	URL string `json:"url"`

	// Stars is the star count shown on the dependents page.
	Stars int `json:"stars"`
}

// ResultSet is an ordered sequence of dependents.
// Produced by the result processor, it is sorted by descending star count
// and keeps encounter order for equal counts.
type ResultSet []Dependent

// URLs returns the dependent addresses in order.
func (rs ResultSet) URLs() []string {
	urls := make([]string, len(rs))
	for i, d := range rs {
		urls[i] = d.URL
	}
	return urls
}

// TotalStars returns the sum of star counts in the set.
func (rs ResultSet) TotalStars() int {
	total := 0
	for _, d := range rs {
		total += d.Stars
	}
	return total
}

// Accumulator maps dependent addresses to star counts across pages.
// It remembers the order in which addresses were first seen so that the
// result processor can break ties by encounter order.
//
// Re-inserting an address overwrites its star count but keeps its original
// position. An Accumulator is not safe for concurrent use; a walk owns
// exactly one and hands it over once the walk is finished.
type Accumulator struct {
	entries *orderedmap.OrderedMap[string, int]
}

// NewAccumulator creates an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{entries: orderedmap.NewOrderedMap[string, int]()}
}

// Put records the star count for url, overwriting any previous value.
func (a *Accumulator) Put(url string, stars int) {
	a.entries.Set(url, stars)
}

// PutAll records every dependent in order.
func (a *Accumulator) PutAll(deps []Dependent) {
	for _, d := range deps {
		a.Put(d.URL, d.Stars)
	}
}

// Get returns the star count recorded for url.
func (a *Accumulator) Get(url string) (int, bool) {
	return a.entries.Get(url)
}

// Len returns the number of distinct addresses recorded.
func (a *Accumulator) Len() int {
	return a.entries.Len()
}

// Dependents returns all recorded dependents in first-encounter order.
func (a *Accumulator) Dependents() []Dependent {
	deps := make([]Dependent, 0, a.entries.Len())
	for el := a.entries.Front(); el != nil; el = el.Next() {
		deps = append(deps, Dependent{URL: el.Key, Stars: el.Value})
	}
	return deps
}
