// Copyright (c) 2013 ActiveState Software Inc. All rights reserved.

package watch

import (
	"errors"
	"path/filepath"
	"slices"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// InotifyTracker multiplexes a single fsnotify watcher between every
// InotifyFileWatcher of the process.
type InotifyTracker struct {
	mux     sync.Mutex
	watcher *fsnotify.Watcher
	dirs    map[string]int
	chans   map[string][]chan struct{}
	done    chan struct{}
}

var shared = &InotifyTracker{
	dirs:  make(map[string]int),
	chans: make(map[string][]chan struct{}),
}

// Subscribe returns a channel that receives a value whenever an event
// concerns filename. Sends never block; bursts are coalesced.
func (shared *InotifyTracker) Subscribe(filename string) (chan struct{}, error) {
	shared.mux.Lock()
	defer shared.mux.Unlock()

	// Start up shared struct if necessary
	if shared.watcher == nil {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, err
		}
		shared.watcher = watcher
		shared.done = make(chan struct{})
		go shared.run(watcher, shared.done)
	}

	dir := filepath.Dir(filename)
	if shared.dirs[dir] == 0 {
		if err := shared.watcher.Add(dir); err != nil {
			if len(shared.dirs) == 0 {
				shared.stopLocked()
			}
			return nil, err
		}
	}
	shared.dirs[dir]++

	ch := make(chan struct{}, 1)
	shared.chans[filename] = append(shared.chans[filename], ch)
	return ch, nil
}

// Unsubscribe drops ch and closes the shared watcher once nobody is left.
func (shared *InotifyTracker) Unsubscribe(filename string, ch chan struct{}) error {
	shared.mux.Lock()
	defer shared.mux.Unlock()

	subs := slices.DeleteFunc(shared.chans[filename], func(c chan struct{}) bool { return c == ch })
	if len(subs) == 0 {
		delete(shared.chans, filename)
	} else {
		shared.chans[filename] = subs
	}

	dir := filepath.Dir(filename)
	if shared.dirs[dir] == 0 {
		return nil
	}
	shared.dirs[dir]--

	var err error
	if shared.dirs[dir] == 0 {
		delete(shared.dirs, dir)
		err = shared.watcher.Remove(dir)
	}
	if len(shared.dirs) == 0 {
		shared.stopLocked()
	}
	return err
}

func (shared *InotifyTracker) stopLocked() {
	close(shared.done)
	// fsnotify stops its reader before returning from Close; never hold
	// the lock there.
	go shared.watcher.Close()
	shared.watcher = nil
}

func (shared *InotifyTracker) notify(name string) {
	shared.mux.Lock()
	subs := slices.Clone(shared.chans[name])
	shared.mux.Unlock()

	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// run forwards the events of one watcher to the subscribed channels.
func (shared *InotifyTracker) run(watcher *fsnotify.Watcher, done chan struct{}) {
	for {
		select {
		case event, open := <-watcher.Events:
			if !open {
				return
			}
			shared.notify(event.Name)

		case err, open := <-watcher.Errors:
			if !open {
				return
			}
			if !errors.Is(err, syscall.EINTR) {
				log.WithField("component", "inotify").Warnf("error in watcher: %s", err)
			}

		case <-done:
			return
		}
	}
}
