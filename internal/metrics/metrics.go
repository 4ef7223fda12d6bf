// Package metrics holds the Prometheus collectors the tracking engine
// reports into. Collectors are always updated; exposing them is up to
// the caller through Register.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	LinesReadMetricName     = "logtrack_lines_read_total"
	FileEventsMetricName    = "logtrack_file_events_total"
	HandlerErrorsMetricName = "logtrack_handler_errors_total"
	TrackedFilesMetricName  = "logtrack_tracked_files"
	LineRateMetricName      = "logtrack_line_rate"
	MatchesMetricName       = "logtrack_matches_total"
)

var LinesRead = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: LinesReadMetricName,
		Help: "Total lines that were read and dispatched to handlers.",
	},
	[]string{"file"},
)

var FileEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: FileEventsMetricName,
		Help: "Truncations, replacements and deletions observed on tracked files.",
	},
	[]string{"file", "state"},
)

var HandlerErrors = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: HandlerErrorsMetricName,
		Help: "Line handler failures.",
	},
	[]string{"file"},
)

var TrackedFiles = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: TrackedFilesMetricName,
		Help: "Number of files currently being tracked.",
	},
)

var LineRate = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: LineRateMetricName,
		Help: "Lines read during the current second.",
	},
	[]string{"file"},
)

var Matches = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: MatchesMetricName,
		Help: "Lines matched by match handlers.",
	},
	[]string{"rule"},
)

// Collectors returns every collector of the package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		LinesRead,
		FileEvents,
		HandlerErrors,
		TrackedFiles,
		LineRate,
		Matches,
	}
}

// Register registers every collector with reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
