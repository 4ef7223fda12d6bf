// Copyright (c) 2013 ActiveState Software Inc. All rights reserved.

package watch

import (
	"time"

	"gopkg.in/tomb.v1"
)

// FileWatcher decides how a tracker waits between two polls of a file.
type FileWatcher interface {
	// Wait blocks until delay has elapsed, or returns tomb.ErrDying as
	// soon as t starts dying. Event driven watchers may also return
	// early when the watched file changes.
	Wait(t *tomb.Tomb, delay time.Duration) error

	// Close releases what the watcher holds. Wait must not be called
	// afterwards.
	Close() error
}
