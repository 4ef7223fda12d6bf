package logtrack

import "context"

// LineHandler consumes one line of a tracked file. The line never
// carries its terminator. A returned error stops delivery to the
// remaining handlers of that line and stops the tracker.
type LineHandler interface {
	HandleLine(ctx context.Context, line string) error
}

// HandlerFunc adapts a plain function that returns immediately.
type HandlerFunc func(line string) error

func (f HandlerFunc) HandleLine(_ context.Context, line string) error {
	return f(line)
}

// ContextHandlerFunc adapts a function that may block, e.g. on I/O.
// The context it receives is never cancelled by the tracker, so a call
// that is in flight when tracking stops runs to completion.
type ContextHandlerFunc func(ctx context.Context, line string) error

func (f ContextHandlerFunc) HandleLine(ctx context.Context, line string) error {
	return f(ctx, line)
}

// Job maps file paths to the handlers invoked, in order, for each line.
type Job map[string][]LineHandler

// dispatch hands line to every handler in registration order.
func dispatch(ctx context.Context, path string, handlers []LineHandler, line string) error {
	for i, h := range handlers {
		if err := h.HandleLine(ctx, line); err != nil {
			return &HandlerError{Path: path, Index: i, Line: line, Err: err}
		}
	}
	return nil
}
