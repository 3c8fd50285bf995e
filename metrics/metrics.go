// Package metrics contains the prometheus variables the netthru server
// exports to aid in monitoring long-running installations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels for the Sessions counter.
const (
	ResultOkay          = "okay"
	ResultAcceptError   = "accept-error"
	ResultProtocolError = "protocol-error"
	ResultTransferError = "transfer-error"
)

var (
	Sessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netthru_sessions_total",
			Help: "Number of streaming sessions handled, by result.",
		},
		[]string{"result"},
	)
	BytesStreamed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netthru_bytes_streamed_total",
			Help: "Bytes of filler data written to clients.",
		},
	)
	SessionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "netthru_session_duration_seconds",
			Help: "How long streaming sessions last.",
			Buckets: []float64{
				.1, .15, .25, .4, .6,
				1, 1.5, 2.5, 4, 6,
				10, 15, 25, 40, 60,
				100, 150},
		},
	)
	SessionRate = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "netthru_session_rate_mbps",
			Help: "Measured throughput of completed sessions.",
			Buckets: []float64{
				.1, .15, .25, .4, .6,
				1, 1.5, 2.5, 4, 6,
				10, 15, 25, 40, 60,
				100, 150, 250, 400, 600,
				1000},
		},
	)
)
