// Copyright (c) 2013 ActiveState Software Inc. All rights reserved.

package watch

import (
	"path/filepath"
	"time"

	"gopkg.in/tomb.v1"
)

// InotifyFileWatcher uses fsnotify to cut the sleep between polls short
// whenever something happens to the file. The parent directory is
// watched so that deletion and recreation are seen too.
type InotifyFileWatcher struct {
	Filename string
	changes  chan struct{}
}

func NewInotifyFileWatcher(filename string) (*InotifyFileWatcher, error) {
	abs, err := filepath.Abs(filename)
	if err != nil {
		return nil, err
	}
	changes, err := shared.Subscribe(abs)
	if err != nil {
		return nil, err
	}
	return &InotifyFileWatcher{Filename: abs, changes: changes}, nil
}

func (fw *InotifyFileWatcher) Wait(t *tomb.Tomb, delay time.Duration) error {
	return sleep(t, delay, fw.changes)
}

func (fw *InotifyFileWatcher) Close() error {
	return shared.Unsubscribe(fw.Filename, fw.changes)
}
