package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/nao1215/dependents/internal/config"
	"github.com/nao1215/dependents/internal/model"
)

func testRun() *Run {
	return NewRun(config.Target{
		URL:        "https://github.com/a/b/network/dependents",
		Repository: "a/b",
	})
}

func TestNewRun(t *testing.T) {
	t.Parallel()

	run := testRun()
	if run.Report == nil {
		t.Fatal("expected report")
	}
	if run.Report.Repository != "a/b" || run.Report.URL != "https://github.com/a/b/network/dependents" {
		t.Errorf("report = %+v", run.Report)
	}
	if run.Outcome != nil {
		t.Error("outcome should be nil before the walk")
	}
}

func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
		if p.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("applies WithContinueOnError option", func(t *testing.T) {
		t.Parallel()

		if !New(WithContinueOnError(true)).continueOnError {
			t.Error("expected continueOnError to be true")
		}
	})
}

func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	p := New()
	p.AddStep(&mockStep{name: "one"})
	p.AddSteps(&mockStep{name: "two"}, &mockStep{name: "three"})

	names := p.StepNames()
	want := []string{"one", "two", "three"}
	if len(names) != len(want) {
		t.Fatalf("StepNames() = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("StepNames()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("runs steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		record := func(name string) *mockStep {
			return &mockStep{name: name, doFunc: func(context.Context, *Run) error {
				order = append(order, name)
				return nil
			}}
		}

		p := New(WithLogger(discardLogger()))
		p.AddSteps(record("a"), record("b"), record("c"))

		if err := p.Execute(context.Background(), testRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(order) != 3 || order[0] != "a" || order[2] != "c" {
			t.Errorf("order = %v", order)
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		failing := &mockStep{name: "fail", doFunc: func(context.Context, *Run) error { return boom }}
		after := &mockStep{name: "after"}

		p := New(WithLogger(discardLogger()))
		p.AddSteps(failing, after)

		if err := p.Execute(context.Background(), testRun()); !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
		if after.callCount != 0 {
			t.Error("step after failure should not run")
		}
	})

	t.Run("continues on error when configured", func(t *testing.T) {
		t.Parallel()

		first := errors.New("first")
		second := errors.New("second")
		a := &mockStep{name: "a", doFunc: func(context.Context, *Run) error { return first }}
		b := &mockStep{name: "b", doFunc: func(context.Context, *Run) error { return second }}
		c := &mockStep{name: "c"}

		p := New(WithLogger(discardLogger()), WithContinueOnError(true))
		p.AddSteps(a, b, c)

		if err := p.Execute(context.Background(), testRun()); !errors.Is(err, first) {
			t.Errorf("expected first error, got %v", err)
		}
		if c.callCount != 1 {
			t.Error("remaining steps should still run")
		}
	})

	t.Run("runs only cancel-safe steps after cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		walk := &mockStep{name: "walk"}
		rank := &mockStep{name: "rank", afterCancel: true}

		p := New(WithLogger(discardLogger()))
		p.AddSteps(walk, rank)

		run := testRun()
		err := p.Execute(ctx, run)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if walk.callCount != 0 {
			t.Error("walk should be skipped")
		}
		if rank.callCount != 1 {
			t.Error("rank should still run")
		}
		if run.Report.StopReason != model.StopReasonCancelled {
			t.Errorf("StopReason = %v, want cancelled", run.Report.StopReason)
		}
	})
}
