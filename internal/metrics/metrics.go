// Package metrics provides Prometheus metrics for IMAP traffic and
// path resolution.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Remote command metrics
	remoteCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imapfs_remote_commands_total",
			Help: "Total number of IMAP commands issued",
		},
		[]string{"command"},
	)

	remoteCommandErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imapfs_remote_command_errors_total",
			Help: "Total number of IMAP commands that failed",
		},
		[]string{"command"},
	)

	remoteCommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imapfs_remote_command_duration_seconds",
			Help:    "IMAP command duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	// Resolution metrics
	resolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imapfs_path_resolutions_total",
			Help: "Total number of path resolutions by resulting scope",
		},
		[]string{"scope"},
	)

	resolutionFallbacks = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "imapfs_path_resolution_fallbacks",
			Help:    "Number of fallback levels taken per resolution",
			Buckets: []float64{0, 1, 2},
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler for embedding
// applications to mount.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCommand records one issued IMAP command with its duration and
// outcome.
func ObserveCommand(command string, start time.Time, err error) {
	remoteCommandsTotal.WithLabelValues(command).Inc()
	remoteCommandDuration.WithLabelValues(command).Observe(time.Since(start).Seconds())
	if err != nil {
		remoteCommandErrors.WithLabelValues(command).Inc()
	}
}

// ObserveResolution records a completed path resolution: the scope it
// landed on ("folder", "message", "attachment", or "none") and how many
// fallback levels it took to get there.
func ObserveResolution(scope string, fallbacks int) {
	resolutionsTotal.WithLabelValues(scope).Inc()
	resolutionFallbacks.Observe(float64(fallbacks))
}
