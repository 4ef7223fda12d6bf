// Package handlers builds the line handlers that definition files can
// refer to by type.
package handlers

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"sync"

	log "github.com/sirupsen/logrus"

	"logtrack"
	"logtrack/internal/metrics"
)

const (
	TypePrint = "print"
	TypeMatch = "match"
	TypeLog   = "log"
)

// Definition is one handler entry of a definition file.
type Definition struct {
	Type    string `yaml:"type"`
	Name    string `yaml:"name,omitempty"`
	Prefix  string `yaml:"prefix,omitempty"`
	Pattern string `yaml:"pattern,omitempty"`
	Level   string `yaml:"level,omitempty"`
	Log     bool   `yaml:"log,omitempty"`
}

// Options carries what built handlers write to.
type Options struct {
	Out    io.Writer
	Logger *log.Entry
}

func (o Options) out() io.Writer {
	if o.Out == nil {
		return stdout
	}
	return o.Out
}

func (o Options) logger() *log.Entry {
	if o.Logger == nil {
		return log.NewEntry(log.StandardLogger())
	}
	return o.Logger
}

// Build turns a definition into a handler.
func Build(def Definition, opts Options) (logtrack.LineHandler, error) {
	switch def.Type {
	case TypePrint:
		return newPrinter(opts.out(), def.Prefix), nil
	case TypeMatch:
		return newMatcher(def, opts.logger())
	case TypeLog:
		level := log.InfoLevel
		if def.Level != "" {
			var err error
			if level, err = log.ParseLevel(def.Level); err != nil {
				return nil, err
			}
		}
		logger := opts.logger()
		return logtrack.HandlerFunc(func(line string) error {
			logger.Log(level, def.Prefix+line)
			return nil
		}), nil
	case "":
		return nil, fmt.Errorf("handler definition has no type")
	}
	return nil, fmt.Errorf("unknown handler type %q (supported: %s, %s, %s)", def.Type, TypePrint, TypeMatch, TypeLog)
}

var stdout = SyncWriter(os.Stdout)

// SyncWriter serializes writes to w. Trackers of different files run
// concurrently and may print to the same writer.
func SyncWriter(w io.Writer) io.Writer {
	return &syncWriter{w: w}
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// printer writes each line with a single Write call.
type printer struct {
	out    io.Writer
	prefix string
}

func newPrinter(out io.Writer, prefix string) *printer {
	return &printer{out: out, prefix: prefix}
}

func (p *printer) HandleLine(_ context.Context, line string) error {
	_, err := io.WriteString(p.out, p.prefix+line+"\n")
	return err
}

type matcher struct {
	name   string
	re     *regexp.Regexp
	log    bool
	logger *log.Entry
}

func newMatcher(def Definition, logger *log.Entry) (*matcher, error) {
	if def.Pattern == "" {
		return nil, fmt.Errorf("match handler %q has no pattern", def.Name)
	}
	re, err := regexp.Compile(def.Pattern)
	if err != nil {
		return nil, fmt.Errorf("match handler %q: %w", def.Name, err)
	}
	name := def.Name
	if name == "" {
		name = def.Pattern
	}
	return &matcher{name: name, re: re, log: def.Log, logger: logger.WithField("rule", name)}, nil
}

func (m *matcher) HandleLine(_ context.Context, line string) error {
	if !m.re.MatchString(line) {
		return nil
	}
	metrics.Matches.WithLabelValues(m.name).Inc()
	if m.log {
		m.logger.Info(line)
	}
	return nil
}
