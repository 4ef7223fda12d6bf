package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"logtrack"
	"logtrack/internal/handlers"
	"logtrack/internal/parsers"
)

// NewCommand returns the root command of logtrack. Flag defaults come
// from the environment.
func NewCommand() *cobra.Command {
	opts, envErr := OptionsFromEnv()

	cmd := &cobra.Command{
		Use:   "logtrack",
		Short: "Follow log files and hand every new line to the configured parsers",
		Long: `logtrack follows the log files named in one or more parser files and
hands each line to the handlers configured for it. Truncated, deleted,
and replaced files are followed across rotation.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if envErr != nil {
				return envErr
			}
			return Run(cmd.Context(), opts, afero.NewOsFs())
		},
	}
	AddFlags(cmd.Flags(), &opts)
	return cmd
}

// NewLogger builds the logger described by opts. The returned closer
// releases the log file, if any.
func NewLogger(opts Options) (*log.Entry, io.Closer, error) {
	level, err := log.ParseLevel(opts.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	logger := log.New()
	logger.SetLevel(level)
	logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	var closer io.Closer = io.NopCloser(nil)
	if opts.LogFilename != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.LogFilename,
			MaxSize:    100, // megabytes
			MaxBackups: 3,
		}
		logger.SetOutput(lj)
		closer = lj
	} else {
		logger.SetOutput(os.Stdout)
	}
	return log.NewEntry(logger), closer, nil
}

// Run loads the parser files of opts from fsys and tracks the log files
// they name until ctx is done or the timeout elapses, both of which are
// a normal end.
func Run(ctx context.Context, opts Options, fsys afero.Fs) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	logger, closer, err := NewLogger(opts)
	if err != nil {
		return err
	}
	defer closer.Close()

	job, err := parsers.Load(fsys, opts.Parsers, opts.ConfigVariable, handlers.Options{Logger: logger})
	if err != nil {
		logger.Errorf("could not load parsers: %s", err)
		return err
	}
	if len(job) == 0 {
		logger.Warn("no log files to track")
		return nil
	}

	config := logtrack.Config{
		PollDelay: time.Duration(opts.PollDelay) * time.Second,
		Tail:      opts.Tail,
		Timeout:   time.Duration(opts.Timeout) * time.Second,
		Watch:     opts.Watch,
		Logger:    logger,
	}

	err = logtrack.Track(ctx, job, config)
	switch {
	case err == nil:
		logger.Info("every tracked file has been released")
		return nil
	case errors.Is(err, logtrack.ErrDeadlineExceeded):
		logger.Info("stopped: tracking timeout reached")
		return nil
	case errors.Is(err, context.Canceled):
		logger.Info("stopped: interrupted")
		return nil
	}
	return err
}
