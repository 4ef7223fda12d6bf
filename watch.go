// Copyright (c) 2013 ActiveState Software Inc. All rights reserved.

package logtrack

import (
	log "github.com/sirupsen/logrus"

	"logtrack/watch"
)

// newFileWatcher picks how a tracker waits between polls. Notification
// based watching falls back to plain polling when it cannot be set up.
func newFileWatcher(path string, config Config, logger *log.Entry) watch.FileWatcher {
	if !config.Watch {
		return watch.NewPollingFileWatcher(path)
	}
	fw, err := watch.NewInotifyFileWatcher(path)
	if err != nil {
		logger.Warnf("not using inotify, will poll every %s: %s", config.PollDelay, err)
		return watch.NewPollingFileWatcher(path)
	}
	return fw
}
