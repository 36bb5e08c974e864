package pipeline

import "errors"

// ErrNoOutcome is returned by RankStep when no walk has run for the target.
var ErrNoOutcome = errors.New("no walk outcome to rank")
