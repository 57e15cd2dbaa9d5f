package feed

import (
	"errors"
	"fmt"
)

var ErrTransport = errors.New("metro feed transport error")

// TransportError wraps any failure talking to the feed: connection errors,
// non-2xx responses and payloads that fail to decode.
type TransportError struct {
	Path       string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("metro feed %s: status %d: %v", e.Path, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("metro feed %s: %v", e.Path, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}
