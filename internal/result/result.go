// Package result turns the raw dependents of a walk into a ranked result.
package result

import (
	"slices"

	"github.com/nao1215/dependents/internal/model"
)

// DefaultMinStars is the star threshold applied when none is configured.
const DefaultMinStars = 5

// Process keeps the dependents with at least minStars stars and orders them
// by descending star count. Equal counts keep the order in which the
// dependents were first seen. The result is never nil.
func Process(acc *model.Accumulator, minStars int) model.ResultSet {
	rs := model.ResultSet{}
	if acc == nil {
		return rs
	}
	for _, d := range acc.Dependents() {
		if d.Stars >= minStars {
			rs = append(rs, d)
		}
	}
	slices.SortStableFunc(rs, func(a, b model.Dependent) int {
		return b.Stars - a.Stars
	})
	return rs
}
