package logtrack

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/tomb.v1"

	"logtrack/internal/metrics"
	"logtrack/watch"
)

// DefaultPollDelay is used when Config.PollDelay is zero.
const DefaultPollDelay = time.Second

// Config is shared by every file of a tracking operation and never
// modified once tracking has started.
type Config struct {
	// PollDelay is the wait between two checks once the end of the
	// available data has been reached.
	PollDelay time.Duration
	// Tail starts reading at the end of the file instead of the
	// beginning. Ignored for pipes.
	Tail bool
	// Timeout stops tracking after this long. Zero means never. An
	// unterminated fragment still pending at that point is delivered
	// as a last line.
	Timeout time.Duration
	// Watch lets filesystem notifications cut PollDelay short, so a
	// write can be seen even when PollDelay is longer than Timeout.
	Watch bool
	// Logger defaults to the logrus standard logger.
	Logger *log.Entry
}

func (c Config) validate() error {
	if c.PollDelay < 0 {
		return fmt.Errorf("poll delay must not be negative, got %s", c.PollDelay)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}

func (c Config) logger() *log.Entry {
	if c.Logger == nil {
		return log.NewEntry(log.StandardLogger())
	}
	return c.Logger
}

// Tracker follows a single file and hands each of its lines to the
// registered handlers.
type Tracker struct {
	Path string

	handlers []LineHandler
	config   Config
	ctx      context.Context
	logger   *log.Entry
	watcher  watch.FileWatcher
	rate     RateMonitor

	mu       sync.Mutex // guards file against the interrupt goroutine
	file     *os.File
	reader   *bufio.Reader
	identity FileIdentity
	seekable bool
	offset   int64
	pending  []byte
	deleted  bool

	tomb.Tomb // provides: Done, Kill, Dying, Dead, Wait, Err
}

// TrackFile starts tracking path in the background. Failing to open the
// file is not reported here but through Wait, as an *OpenError.
func TrackFile(path string, handlers []LineHandler, config Config) (*Tracker, error) {
	return startTracker(context.Background(), path, handlers, config)
}

func startTracker(ctx context.Context, path string, handlers []LineHandler, config Config) (*Tracker, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	if i := slices.Index(handlers, nil); i >= 0 {
		return nil, fmt.Errorf("handler %d for %s: %w", i, path, errNilHandler)
	}
	if config.PollDelay == 0 {
		config.PollDelay = DefaultPollDelay
	}

	t := &Tracker{
		Path:     path,
		handlers: slices.Clone(handlers),
		config:   config,
		ctx:      context.WithoutCancel(ctx),
		logger:   config.logger().WithField("file", path),
	}
	t.watcher = newFileWatcher(path, config, t.logger)

	go t.trackFileSync()
	go t.interruptOnDying()

	return t, nil
}

// Stop stops the tracker and waits for the file to be released. A
// fragment with no terminating newline yet is delivered as a line
// before Stop returns.
func (t *Tracker) Stop() error {
	t.Kill(nil)
	return t.Wait()
}

// Offset returns the read offset. Only meaningful once the tracker is dead.
func (t *Tracker) Offset() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.offset
}

// Identity returns the identity of the file last opened.
func (t *Tracker) Identity() FileIdentity {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.identity
}

func (t *Tracker) trackFileSync() {
	defer t.Done()
	defer t.close()

	t.Kill(t.run())
}

// interruptOnDying unblocks a read pending on a pipe.
func (t *Tracker) interruptOnDying() {
	<-t.Dying()
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file != nil {
		_ = t.file.SetReadDeadline(time.Now())
	}
}

func (t *Tracker) run() error {
	if t.config.Timeout > 0 {
		timer := time.AfterFunc(t.config.Timeout, func() { t.Kill(ErrDeadlineExceeded) })
		defer timer.Stop()
	}

	if err := t.open(); err != nil {
		t.logger.Errorf("could not open file: %s", err)
		return &OpenError{Path: t.Path, Err: err}
	}

	from := "beginning"
	if t.config.Tail {
		from = "end"
		if t.seekable {
			off, err := t.file.Seek(0, io.SeekEnd)
			if err != nil {
				return &OpenError{Path: t.Path, Err: fmt.Errorf("seek to end: %w", err)}
			}
			t.setOffset(off)
		}
	}
	t.logger.Infof("tracking started from the %s of the file", from)

	for {
		if err := t.drain(); err != nil {
			return err
		}
		if t.dying() {
			return t.flush()
		}

		state, err := classify(t.Path, t.file, t.offset)
		if err != nil {
			t.logger.Warnf("could not stat file, treating it as deleted: %s", err)
		}
		if state != Deleted {
			t.deleted = false
		}

		switch state {
		case NoChange:
			if t.watcher.Wait(&t.Tomb, t.config.PollDelay) != nil {
				return t.flush()
			}

		case Truncated:
			t.logger.Info("file has been truncated, tracking will resume from the beginning of the file")
			metrics.FileEvents.WithLabelValues(t.Path, state.String()).Inc()
			if err := t.flush(); err != nil {
				return err
			}
			if _, err := t.file.Seek(0, io.SeekStart); err != nil {
				return fmt.Errorf("seek to start of %s: %w", t.Path, err)
			}
			t.reader.Reset(t.file)
			t.setOffset(0)

		case Replaced:
			t.logger.Info("file has been replaced, tracking will resume from the beginning of the file")
			metrics.FileEvents.WithLabelValues(t.Path, state.String()).Inc()
			if err := t.flush(); err != nil {
				return err
			}
			if err := t.reopen(); err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					return &OpenError{Path: t.Path, Err: err}
				}
				// gone again before we could open it; with no file
				// open the next cycle sees it as deleted
				if t.watcher.Wait(&t.Tomb, t.config.PollDelay) != nil {
					return t.flush()
				}
			}

		case Deleted:
			// The stale handle is kept so that a recreated file is
			// seen as replaced later on.
			if !t.deleted {
				t.logger.Info("file has been deleted, tracking will resume if the file is created again")
				metrics.FileEvents.WithLabelValues(t.Path, state.String()).Inc()
				t.deleted = true
			}
			if t.watcher.Wait(&t.Tomb, t.config.PollDelay) != nil {
				return t.flush()
			}
		}
	}
}

// drain delivers every line currently available. An unterminated
// fragment at the end stays in t.pending.
func (t *Tracker) drain() error {
	if t.file == nil {
		return nil
	}
	if err := t.file.SetReadDeadline(time.Now().Add(t.config.PollDelay)); err != nil && !errors.Is(err, os.ErrNoDeadline) {
		t.logger.Debugf("could not set read deadline: %s", err)
	}
	// a stop that came before the deadline was set would go unnoticed
	if t.dying() {
		return nil
	}

	for {
		chunk, err := t.reader.ReadSlice('\n')
		if len(chunk) > 0 {
			t.pending = append(t.pending, chunk...)
			t.setOffset(t.offset + int64(len(chunk)))
		}

		switch {
		case err == nil:
			line := string(dropNewline(t.pending))
			t.pending = t.pending[:0]
			if err := t.deliver(line); err != nil {
				return err
			}
			if t.dying() {
				return nil
			}
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF), errors.Is(err, os.ErrDeadlineExceeded):
			return nil
		default:
			return fmt.Errorf("reading %s: %w", t.Path, err)
		}
	}
}

// flush delivers the pending fragment as a line of its own. It is called
// when the stream the fragment belongs to is over.
func (t *Tracker) flush() error {
	if len(t.pending) == 0 {
		return nil
	}
	line := string(t.pending)
	t.pending = t.pending[:0]
	return t.deliver(line)
}

func (t *Tracker) deliver(line string) error {
	metrics.LinesRead.WithLabelValues(t.Path).Inc()
	metrics.LineRate.WithLabelValues(t.Path).Set(float64(t.rate.Tick(time.Now())))

	if err := dispatch(t.ctx, t.Path, t.handlers, line); err != nil {
		metrics.HandlerErrors.WithLabelValues(t.Path).Inc()
		t.logger.Errorf("line handler failed: %s", err)
		return err
	}
	return nil
}

func (t *Tracker) open() error {
	f, err := os.OpenFile(t.Path, openFlags, 0)
	if err != nil {
		return err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}

	t.mu.Lock()
	t.file = f
	t.identity = identityOf(fi)
	t.offset = 0
	t.mu.Unlock()

	t.seekable = seekable(f)
	if t.reader == nil {
		t.reader = bufio.NewReader(f)
	} else {
		t.reader.Reset(f)
	}
	t.logger.Debugf("file opened for reading (dev=%d ino=%d)", t.identity.Dev, t.identity.Ino)
	return nil
}

// reopen closes the current file, then opens whatever is now at the
// path. When that fails no file is left open and the identity of the
// last one is kept.
func (t *Tracker) reopen() error {
	t.mu.Lock()
	old := t.file
	t.file = nil
	t.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			t.logger.Debugf("closing replaced file: %s", err)
		}
	}
	return t.open()
}

func (t *Tracker) close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.watcher.Close(); err != nil {
		t.logger.Debugf("closing watcher: %s", err)
	}
	if t.file == nil {
		return
	}
	if err := t.file.Close(); err != nil {
		t.logger.Warnf("closing file: %s", err)
	}
	t.file = nil
	t.logger.Debug("file closed")
}

func (t *Tracker) setOffset(off int64) {
	t.mu.Lock()
	t.offset = off
	t.mu.Unlock()
}

func (t *Tracker) dying() bool {
	select {
	case <-t.Dying():
		return true
	default:
		return false
	}
}

// dropNewline strips a terminal "\n" or "\r\n".
func dropNewline(line []byte) []byte {
	line = line[:len(line)-1]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		return line[:len(line)-1]
	}
	return line
}
