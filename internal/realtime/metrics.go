package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the realtime subsystem.
// A nil *Metrics is valid and records nothing, so tests that don't care
// about instrumentation can pass nil.
type Metrics struct {
	openConnections prometheus.Gauge
	eventsTotal     *prometheus.CounterVec
	droppedFrames   prometheus.Counter
	handshakeErrors prometheus.Counter
}

// NewMetrics registers the realtime metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		openConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "trackfit",
			Subsystem: "realtime",
			Name:      "open_connections",
			Help:      "Number of registered realtime connections",
		}),
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trackfit",
			Subsystem: "realtime",
			Name:      "events_total",
			Help:      "Total events delivered to connections, by kind",
		}, []string{"kind"}),
		droppedFrames: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "trackfit",
			Subsystem: "realtime",
			Name:      "dropped_frames_total",
			Help:      "Frames dropped because a connection's send queue was full",
		}),
		handshakeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "trackfit",
			Subsystem: "realtime",
			Name:      "handshake_errors_total",
			Help:      "Malformed or rejected handshake frames",
		}),
	}
}

func (m *Metrics) connOpened() {
	if m != nil {
		m.openConnections.Inc()
	}
}

func (m *Metrics) connClosed() {
	if m != nil {
		m.openConnections.Dec()
	}
}

func (m *Metrics) eventSent(kind string) {
	if m != nil {
		m.eventsTotal.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) droppedFrame() {
	if m != nil {
		m.droppedFrames.Inc()
	}
}

func (m *Metrics) handshakeError() {
	if m != nil {
		m.handshakeErrors.Inc()
	}
}
