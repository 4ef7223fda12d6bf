package handlers

import (
	"bytes"
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logtrack/internal/metrics"
)

func TestPrint(t *testing.T) {
	var out bytes.Buffer
	h, err := Build(Definition{Type: TypePrint, Prefix: "app: "}, Options{Out: &out})
	require.NoError(t, err)

	require.NoError(t, h.HandleLine(context.Background(), "one"))
	require.NoError(t, h.HandleLine(context.Background(), "two"))
	assert.Equal(t, "app: one\napp: two\n", out.String())
}

func TestMatchCountsMatches(t *testing.T) {
	h, err := Build(Definition{Type: TypeMatch, Name: "handlers-test-errors", Pattern: `^ERROR\b`}, Options{})
	require.NoError(t, err)
	matches := metrics.Matches.WithLabelValues("handlers-test-errors")
	before := testutil.ToFloat64(matches)

	for _, line := range []string{"ERROR disk full", "INFO ok", "ERROR again", "not an ERROR"} {
		require.NoError(t, h.HandleLine(context.Background(), line))
	}
	assert.InDelta(t, 2, testutil.ToFloat64(matches)-before, 0)
}

func TestMatchLogsMatches(t *testing.T) {
	logger, hook := test.NewNullLogger()
	h, err := Build(Definition{Type: TypeMatch, Name: "handlers-test-log", Pattern: "warn", Log: true}, Options{Logger: log.NewEntry(logger)})
	require.NoError(t, err)

	require.NoError(t, h.HandleLine(context.Background(), "a warning"))
	require.NoError(t, h.HandleLine(context.Background(), "all good"))

	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, "a warning", hook.LastEntry().Message)
	assert.Equal(t, "handlers-test-log", hook.LastEntry().Data["rule"])
}

func TestLogHandler(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)

	h, err := Build(Definition{Type: TypeLog, Level: "warning", Prefix: "> "}, Options{Logger: log.NewEntry(logger)})
	require.NoError(t, err)
	require.NoError(t, h.HandleLine(context.Background(), "hello"))

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, log.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "> hello", hook.LastEntry().Message)
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		def  Definition
		err  string
	}{
		{name: "no type", def: Definition{}, err: "no type"},
		{name: "unknown type", def: Definition{Type: "exec"}, err: `unknown handler type "exec"`},
		{name: "match without pattern", def: Definition{Type: TypeMatch, Name: "x"}, err: "no pattern"},
		{name: "bad pattern", def: Definition{Type: TypeMatch, Pattern: "("}, err: "missing closing )"},
		{name: "bad level", def: Definition{Type: TypeLog, Level: "loud"}, err: "not a valid logrus Level"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Build(tc.def, Options{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.err)
		})
	}
}
