// Package cli holds the command line front end shared by the logtrack
// commands: flags with environment defaults, logging setup, and Run.
package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"logtrack/internal/parsers"
)

const envPrefix = "LOG_PARSER_"

// Options are the settings of a run.
type Options struct {
	Parsers        []string
	ConfigVariable string
	LogFilename    string
	LogLevel       string
	// PollDelay and Timeout are in seconds; a zero Timeout never expires.
	PollDelay int
	Tail      bool
	Timeout   int
	Watch     bool
}

// OptionsFromEnv returns the defaults, overridden by LOG_PARSER_*
// environment variables.
func OptionsFromEnv() (Options, error) {
	opts := Options{
		ConfigVariable: parsers.DefaultConfigVariable,
		LogLevel:       "info",
		PollDelay:      1,
	}

	if v := os.Getenv(envPrefix + "PARSERS"); v != "" {
		for _, p := range strings.Split(v, ":") {
			if p != "" {
				opts.Parsers = append(opts.Parsers, p)
			}
		}
	}
	if v := os.Getenv(envPrefix + "CONFIG_VARIABLE"); v != "" {
		opts.ConfigVariable = v
	}
	opts.LogFilename = os.Getenv(envPrefix + "LOG_FILENAME")
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		opts.LogLevel = v
	}
	opts.Tail = truthy(os.Getenv(envPrefix + "TAIL"))
	opts.Watch = truthy(os.Getenv(envPrefix + "WATCH"))

	var err error
	if opts.PollDelay, err = envInt(envPrefix+"POLL_DELAY", opts.PollDelay); err != nil {
		return opts, err
	}
	if opts.Timeout, err = envInt(envPrefix+"TIMEOUT", opts.Timeout); err != nil {
		return opts, err
	}
	return opts, nil
}

// AddFlags binds opts to flags. The current values of opts are the
// flag defaults.
func AddFlags(flags *pflag.FlagSet, opts *Options) {
	flags.VarP(&pathList{paths: &opts.Parsers}, "parsers", "p",
		"path to parser files, added to "+envPrefix+"PARSERS; a directory adds every .yaml/.yml file in it (repeatable)")
	flags.IntVar(&opts.PollDelay, "poll-delay", opts.PollDelay,
		"check if a log file has new lines every N seconds")
	flags.BoolVar(&opts.Tail, "tail", opts.Tail,
		"only parse new lines added to log files in the future")
	flags.StringVar(&opts.ConfigVariable, "config-variable", opts.ConfigVariable,
		"the name of the variable in parser files that contains the configuration")
	flags.IntVar(&opts.Timeout, "timeout", opts.Timeout,
		"exit after this many seconds have elapsed (0: no timeout)")
	flags.StringVar(&opts.LogFilename, "log-filename", opts.LogFilename,
		"write logs to this file (default: write to stdout)")
	flags.StringVar(&opts.LogLevel, "log-level", opts.LogLevel,
		"log level (trace, debug, info, warning, error, fatal, panic)")
	flags.BoolVar(&opts.Watch, "watch", opts.Watch,
		"use filesystem notifications to notice new lines before the poll delay")
}

// Validate checks what flag parsing cannot.
func (o Options) Validate() error {
	if o.PollDelay < 0 {
		return fmt.Errorf("--poll-delay must not be negative, got %d", o.PollDelay)
	}
	if o.Timeout < 0 {
		return fmt.Errorf("--timeout must not be negative, got %d", o.Timeout)
	}
	if _, err := log.ParseLevel(o.LogLevel); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	return nil
}

// pathList is a repeatable flag that appends each value verbatim, commas
// included, after the paths taken from the environment.
type pathList struct {
	paths *[]string
}

func (l *pathList) Set(path string) error {
	*l.paths = append(*l.paths, path)
	return nil
}

func (l *pathList) String() string {
	if l.paths == nil {
		return ""
	}
	return strings.Join(*l.paths, ":")
}

func (l *pathList) Type() string { return "path" }

// truthy reports whether s is one of "1", "true" or "t", in any case.
func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "t":
		return true
	}
	return false
}

func envInt(name string, def int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", name, err)
	}
	return n, nil
}
