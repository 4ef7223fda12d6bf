// logtrack-prometheus is logtrack with its metrics exported over HTTP
// for Prometheus to scrape.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"logtrack/internal/cli"
	"logtrack/internal/metrics"
)

const (
	portVariable = "PROMETHEUS_LOG_PARSER_CLIENT_PORT"
	defaultPort  = 8000
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "logtrack-prometheus:", err)
		stop()
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	cmd := cli.NewCommand()
	cmd.Use = "logtrack-prometheus"
	cmd.Short = "Follow log files and export parser metrics to Prometheus"

	port := defaultPort
	var portErr error
	if v := os.Getenv(portVariable); v != "" {
		port, portErr = strconv.Atoi(v)
		if portErr != nil {
			portErr = fmt.Errorf("%s: %w", portVariable, portErr)
		}
	}
	cmd.Flags().IntVar(&port, "port", port, "port the metrics are served on")

	run := cmd.RunE
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if portErr != nil {
			return portErr
		}
		reg := prometheus.NewRegistry()
		if err := metrics.Register(reg); err != nil {
			return err
		}
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		stopServer, err := serveMetrics(port, reg)
		if err != nil {
			return err
		}
		defer stopServer()
		return run(cmd, args)
	}
	return cmd
}

// serveMetrics serves reg on /metrics until the returned func is called.
func serveMetrics(port int, reg *prometheus.Registry) (func(), error) {
	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics server: %s", err)
		}
	}()
	log.Infof("serving metrics on %s/metrics", ln.Addr())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warnf("metrics server shutdown: %s", err)
		}
	}, nil
}
