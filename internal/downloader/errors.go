package downloader

import (
	"errors"
	"fmt"
)

// Kind classifies download failures.
type Kind int

const (
	// KindUnknown is the zero value for errors this package did not produce.
	KindUnknown Kind = iota

	// KindInvalidSource marks a malformed source URL. These fail before
	// any network activity.
	KindInvalidSource

	// KindBadStatus marks a non-success HTTP response.
	KindBadStatus

	// KindNetwork marks a connection or transport failure, including a
	// stream that ended before the declared length.
	KindNetwork

	// KindIO marks a destination write or existence-check failure.
	KindIO

	// KindExhausted wraps the last attempt's error once all retry
	// attempts have failed.
	KindExhausted
)

func (k Kind) String() string {
	switch k {
	case KindInvalidSource:
		return "invalid source"
	case KindBadStatus:
		return "bad status"
	case KindNetwork:
		return "network error"
	case KindIO:
		return "io error"
	case KindExhausted:
		return "retries exhausted"
	default:
		return "unknown error"
	}
}

// Error is a download failure tied to a source URL.
type Error struct {
	Kind Kind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the outermost *Error in err's chain, or
// KindUnknown when there is none.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}
