package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Delivery sources for frames handed out by a stream consumer.
const (
	DeliveryOnTime  = "on_time"
	DeliveryLagging = "lagging"
	DeliveryBlack   = "black"
)

var (
	registerOnce sync.Once

	streamBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jelka",
			Subsystem: "stream",
			Name:      "ingested_bytes_total",
			Help:      "Raw bytes fed into stream demultiplexers.",
		},
		[]string{"stream"},
	)
	streamFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jelka",
			Subsystem: "stream",
			Name:      "frames_decoded_total",
			Help:      "Frame records decoded into history.",
		},
		[]string{"stream"},
	)
	streamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jelka",
			Subsystem: "stream",
			Name:      "decode_errors_total",
			Help:      "Protocol lines that failed to decode.",
		},
		[]string{"stream", "record"},
	)
	streamDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jelka",
			Subsystem: "stream",
			Name:      "frames_delivered_total",
			Help:      "Frames handed to the consumer, by delivery source.",
		},
		[]string{"stream", "source"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jelka",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"stream", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jelka",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stream", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(streamBytes, streamFrames, streamErrors, streamDelivered, httpRequests, httpDuration)
	})
}

func RecordIngest(stream string, n int) {
	RegisterMetrics()
	streamBytes.WithLabelValues(stream).Add(float64(n))
}

func RecordFrames(stream string, n int) {
	RegisterMetrics()
	streamFrames.WithLabelValues(stream).Add(float64(n))
}

// RecordDecodeError counts a failed line; record is "header" or "frame".
func RecordDecodeError(stream, record string) {
	RegisterMetrics()
	streamErrors.WithLabelValues(stream, record).Inc()
}

func RecordDelivery(stream, source string) {
	RegisterMetrics()
	streamDelivered.WithLabelValues(stream, source).Inc()
}

func RecordHTTPRequest(stream, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(stream, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(stream, method, path, statusLabel).Observe(duration.Seconds())
}
