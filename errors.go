package logtrack

import (
	"context"
	"errors"
	"fmt"
)

// ErrDeadlineExceeded is returned once the overall tracking timeout
// elapses. Callers are expected to treat it as a normal stop.
var ErrDeadlineExceeded = fmt.Errorf("logtrack: tracking timeout reached: %w", context.DeadlineExceeded)

var errNilHandler = errors.New("nil line handler")

// OpenError reports a file that could not be opened for tracking. It is
// fatal to the tracker of that file only.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("unable to open %s for tracking: %s", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// HandlerError reports a line handler that failed. Index is the position
// of the handler in its registration list.
type HandlerError struct {
	Path  string
	Index int
	Line  string
	Err   error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %d failed on line from %s: %s", e.Index, e.Path, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }
