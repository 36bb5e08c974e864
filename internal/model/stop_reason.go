package model

import (
	"errors"
	"fmt"
)

// StopReason represents why a walk over the dependents pages ended.
//
// The zero value is StopReasonUnknown so that a freshly constructed outcome
// never claims to be complete.
type StopReason int

const (
	// StopReasonUnknown means the walk has not finished yet.
	StopReasonUnknown StopReason = iota

	// StopReasonEndOfPages means the last page had no next-page link.
	StopReasonEndOfPages

	// StopReasonSelfLink means the next-page link pointed at the page just processed.
	StopReasonSelfLink

	// StopReasonCycle means the next-page link pointed at a page processed earlier.
	StopReasonCycle

	// StopReasonPageLimit means the page ceiling was reached while more pages remained.
	StopReasonPageLimit

	// StopReasonTransportError means a page could not be fetched at all.
	StopReasonTransportError

	// StopReasonRemoteRejection means the server answered with status 400 or above.
	StopReasonRemoteRejection

	// StopReasonParseError means a page did not have the expected structure.
	StopReasonParseError

	// StopReasonDisallowed means robots.txt refused the dependents path.
	StopReasonDisallowed

	// StopReasonCancelled means the context was cancelled mid-walk.
	StopReasonCancelled
)

// ErrUnknownStopReason is returned when parsing an unrecognized stop reason.
var ErrUnknownStopReason = errors.New("unknown stop reason")

var stopReasonNames = map[StopReason]string{
	StopReasonUnknown:         "unknown",
	StopReasonEndOfPages:      "end_of_pages",
	StopReasonSelfLink:        "self_link",
	StopReasonCycle:           "cycle",
	StopReasonPageLimit:       "page_limit",
	StopReasonTransportError:  "transport_error",
	StopReasonRemoteRejection: "remote_rejection",
	StopReasonParseError:      "parse_error",
	StopReasonDisallowed:      "disallowed",
	StopReasonCancelled:       "cancelled",
}

// String returns the snake_case name of the stop reason.
func (r StopReason) String() string {
	if name, ok := stopReasonNames[r]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (r StopReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *StopReason) UnmarshalText(text []byte) error {
	parsed, err := ParseStopReason(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseStopReason converts a snake_case name back to a StopReason.
func ParseStopReason(s string) (StopReason, error) {
	for reason, name := range stopReasonNames {
		if name == s {
			return reason, nil
		}
	}
	return StopReasonUnknown, fmt.Errorf("%w: %q", ErrUnknownStopReason, s)
}

// Exhausted reports whether the walk saw every page the listing offered.
func (r StopReason) Exhausted() bool {
	switch r {
	case StopReasonEndOfPages, StopReasonSelfLink, StopReasonCycle:
		return true
	default:
		return false
	}
}

// Truncated reports whether the walk stopped at the page ceiling with pages left.
func (r StopReason) Truncated() bool {
	return r == StopReasonPageLimit
}

// Failed reports whether the walk was cut short by an error.
func (r StopReason) Failed() bool {
	switch r {
	case StopReasonTransportError, StopReasonRemoteRejection, StopReasonParseError,
		StopReasonDisallowed, StopReasonCancelled:
		return true
	default:
		return false
	}
}
