package logtrack

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"logtrack/internal/metrics"
)

// Track tracks every file of job concurrently until ctx is done, the
// configured timeout elapses, or a line handler fails.
//
// Files are independent: one that cannot be opened is logged and
// dropped while the others keep going. A handler failure on any file is
// a configuration defect and stops the whole job; its *HandlerError is
// returned. When the timeout elapses every tracker is stopped, its file
// released, and ErrDeadlineExceeded is returned.
func Track(ctx context.Context, job Job, config Config) error {
	if err := config.validate(); err != nil {
		return err
	}
	for path, handlers := range job {
		if i := slices.Index(handlers, nil); i >= 0 {
			return fmt.Errorf("handler %d for %s: %w", i, path, errNilHandler)
		}
	}
	if len(job) == 0 {
		return nil
	}

	logger := config.logger()
	if config.Timeout > 0 {
		logger.Infof("timeout for tracking %d file(s) set to %s", len(job), config.Timeout)
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, config.Timeout, ErrDeadlineExceeded)
		defer cancel()
	}

	// one deadline for the whole job, not one per file
	fileConfig := config
	fileConfig.Timeout = 0

	var (
		mu       sync.Mutex
		failures []error
	)
	g, gctx := errgroup.WithContext(ctx)

	for _, path := range slices.Sorted(maps.Keys(job)) {
		tracker, err := startTracker(ctx, path, job[path], fileConfig)
		if err != nil {
			// config and handlers were validated above
			return err
		}
		g.Go(func() error {
			err := supervise(gctx, tracker, logger)
			var handlerErr *HandlerError
			if err != nil && !errors.As(err, &handlerErr) {
				mu.Lock()
				failures = append(failures, err)
				mu.Unlock()
				return nil
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if cause := context.Cause(ctx); cause != nil {
		if errors.Is(cause, ErrDeadlineExceeded) {
			logger.Info("tracking timeout reached, all files released")
		}
		return cause
	}
	// every tracker ended on its own, which only failures do
	return errors.Join(failures...)
}

// supervise stops tracker once ctx is done and reports how it ended.
func supervise(ctx context.Context, tracker *Tracker, logger *log.Entry) error {
	metrics.TrackedFiles.Inc()
	defer metrics.TrackedFiles.Dec()

	select {
	case <-ctx.Done():
		tracker.Kill(nil)
	case <-tracker.Dying():
	}

	err := tracker.Wait()
	if err != nil {
		logger.WithField("file", tracker.Path).Errorf("stopped tracking file: %s", err)
	}
	return err
}
