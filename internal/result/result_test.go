package result

import (
	"reflect"
	"testing"

	"github.com/nao1215/dependents/internal/model"
)

func accumulate(deps ...model.Dependent) *model.Accumulator {
	acc := model.NewAccumulator()
	acc.PutAll(deps)
	return acc
}

func TestProcess(t *testing.T) {
	t.Parallel()

	t.Run("filters and sorts with stable ties", func(t *testing.T) {
		t.Parallel()

		acc := accumulate(
			model.Dependent{URL: "a", Stars: 10},
			model.Dependent{URL: "b", Stars: 3},
			model.Dependent{URL: "c", Stars: 10},
			model.Dependent{URL: "d", Stars: 7},
		)
		expected := model.ResultSet{
			{URL: "a", Stars: 10},
			{URL: "c", Stars: 10},
			{URL: "d", Stars: 7},
		}
		if got := Process(acc, 5); !reflect.DeepEqual(got, expected) {
			t.Errorf("got %v, expected %v", got, expected)
		}
	})

	t.Run("threshold is inclusive", func(t *testing.T) {
		t.Parallel()

		got := Process(accumulate(model.Dependent{URL: "a", Stars: 5}, model.Dependent{URL: "b", Stars: 4}), DefaultMinStars)
		if len(got) != 1 || got[0].URL != "a" {
			t.Errorf("got %v, expected only a", got)
		}
	})

	t.Run("empty result is not nil", func(t *testing.T) {
		t.Parallel()

		got := Process(accumulate(model.Dependent{URL: "a", Stars: 1}), 100)
		if got == nil || len(got) != 0 {
			t.Errorf("got %#v, expected empty non-nil set", got)
		}
		if got := Process(nil, 0); got == nil {
			t.Error("nil accumulator should give an empty set")
		}
	})

	t.Run("zero threshold keeps everything", func(t *testing.T) {
		t.Parallel()

		got := Process(accumulate(model.Dependent{URL: "a", Stars: 0}, model.Dependent{URL: "b", Stars: 2}), 0)
		expected := model.ResultSet{{URL: "b", Stars: 2}, {URL: "a", Stars: 0}}
		if !reflect.DeepEqual(got, expected) {
			t.Errorf("got %v, expected %v", got, expected)
		}
	})

	t.Run("does not modify the accumulator", func(t *testing.T) {
		t.Parallel()

		acc := accumulate(model.Dependent{URL: "a", Stars: 1}, model.Dependent{URL: "b", Stars: 9})
		Process(acc, 0)
		if deps := acc.Dependents(); deps[0].URL != "a" {
			t.Errorf("accumulator order changed: %v", deps)
		}
	})
}
