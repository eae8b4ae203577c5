package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	CommandOutcomeWritten      = "written"
	CommandOutcomeDecodeFailed = "decode_failed"
	CommandOutcomeDeviceFailed = "device_failed"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cashregisterbridge",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cashregisterbridge",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	wsConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cashregisterbridge",
			Subsystem: "websocket",
			Name:      "active_connections",
			Help:      "Currently open websocket connections.",
		},
	)
	wsSessionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "cashregisterbridge",
			Subsystem: "websocket",
			Name:      "session_duration_seconds",
			Help:      "Websocket connection lifetime in seconds.",
			Buckets:   []float64{1, 10, 60, 300, 1800, 3600, 4 * 3600, 12 * 3600},
		},
	)
	wsHandshakes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cashregisterbridge",
			Subsystem: "websocket",
			Name:      "handshakes_total",
			Help:      "Websocket handshakes by result.",
		},
		[]string{"result"},
	)
	commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cashregisterbridge",
			Subsystem: "fiscat",
			Name:      "commands_total",
			Help:      "Sale commands received by outcome.",
		},
		[]string{"outcome", "payment_kind"},
	)
	deviceWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cashregisterbridge",
			Subsystem: "device",
			Name:      "write_duration_seconds",
			Help:      "Serial device open/write/close duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"success"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			wsConnections,
			wsSessionDuration,
			wsHandshakes,
			commands,
			deviceWriteDuration,
		)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func RecordHandshake(result string) {
	RegisterMetrics()
	wsHandshakes.WithLabelValues(result).Inc()
}

func ConnectionOpened() {
	RegisterMetrics()
	wsConnections.Inc()
}

func ConnectionClosed(lifetime time.Duration) {
	RegisterMetrics()
	wsConnections.Dec()
	wsSessionDuration.Observe(lifetime.Seconds())
}

func RecordCommand(outcome, paymentKind string) {
	RegisterMetrics()
	commands.WithLabelValues(outcome, paymentKind).Inc()
}

func RecordDeviceWrite(duration time.Duration, success bool) {
	RegisterMetrics()
	deviceWriteDuration.WithLabelValues(strconv.FormatBool(success)).Observe(duration.Seconds())
}
