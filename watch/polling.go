// Copyright (c) 2013 ActiveState Software Inc. All rights reserved.

package watch

import (
	"time"

	"gopkg.in/tomb.v1"
)

// PollingFileWatcher simply sleeps between polls.
type PollingFileWatcher struct {
	Filename string
}

func NewPollingFileWatcher(filename string) *PollingFileWatcher {
	return &PollingFileWatcher{Filename: filename}
}

func (fw *PollingFileWatcher) Wait(t *tomb.Tomb, delay time.Duration) error {
	return sleep(t, delay, nil)
}

func (fw *PollingFileWatcher) Close() error {
	return nil
}

// sleep waits for delay, a dying tomb, or a receive on wake.
func sleep(t *tomb.Tomb, delay time.Duration, wake <-chan struct{}) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-wake:
		return nil
	case <-t.Dying():
		return tomb.ErrDying
	}
}
