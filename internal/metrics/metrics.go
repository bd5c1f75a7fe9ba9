// Package metrics exposes prometheus collectors for sweep passes and submissions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission results.
const (
	ResultSubmitted = "submitted"
	ResultFailed    = "failed"
	ResultRejected  = "rejected"
)

var (
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sweeper_submissions_total", Help: "Bundles handed to the RPC endpoint, by result"},
		[]string{"result"},
	)
	PassesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "sweeper_passes_total", Help: "Completed passes over the target list"},
	)
	LastPassTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "sweeper_last_pass_timestamp_seconds", Help: "Unix time the last pass finished"},
	)
)

func init() {
	prometheus.MustRegister(SubmissionsTotal, PassesTotal, LastPassTimestamp)
}

// Serve starts a /metrics endpoint in the background.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
