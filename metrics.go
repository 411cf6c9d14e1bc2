package packetconn

import (
	"io"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "packetconn"

// Disconnect reasons used as the "reason" label of disconnects_total.
const (
	reasonStop   = "stop"
	reasonPeer   = "peer"
	reasonError  = "error"
	reasonDesync = "desync"
)

// metrics holds the Prometheus collectors of one client.
type metrics struct {
	packetsSent     prometheus.Counter
	packetsReceived prometheus.Counter
	bytesSent       prometheus.Counter
	bytesReceived   prometheus.Counter
	decodeErrors    prometheus.Counter
	writeErrors     prometheus.Counter
	connectFailures prometheus.Counter
	disconnects     *prometheus.CounterVec
	connected       prometheus.Gauge

	registry prometheus.Registerer
}

// newMetrics creates the collectors. A nil registry leaves them unregistered.
func newMetrics(registry prometheus.Registerer, clientID string) *metrics {
	factory := promauto.With(registry)
	labels := prometheus.Labels{"client_id": clientID}

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}

	return &metrics{
		registry: registry,

		packetsSent:     counter("packets_sent_total", "Total number of packets written to the server"),
		packetsReceived: counter("packets_received_total", "Total number of packets delivered to the handler"),
		bytesSent:       counter("bytes_sent_total", "Total number of frame bytes written, prefix included"),
		bytesReceived:   counter("bytes_received_total", "Total number of frame bytes read, prefix included"),
		decodeErrors:    counter("decode_errors_total", "Total number of malformed inbound packets"),
		writeErrors:     counter("write_errors_total", "Total number of failed packet writes"),
		connectFailures: counter("connect_failures_total", "Total number of failed dial attempts"),

		disconnects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "disconnects_total",
			Help:        "Total number of connection terminations by reason",
			ConstLabels: labels,
		}, []string{"reason"}),

		connected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Name:        "connected",
			Help:        "1 while the client holds an active connection",
			ConstLabels: labels,
		}),
	}
}

// unregister removes the collectors from the registry once the connection
// is closed, so clients replaced after a disconnect do not pile up series.
func (m *metrics) unregister() {
	if m.registry == nil {
		return
	}

	for _, c := range []prometheus.Collector{
		m.packetsSent, m.packetsReceived, m.bytesSent, m.bytesReceived,
		m.decodeErrors, m.writeErrors, m.connectFailures, m.disconnects, m.connected,
	} {
		m.registry.Unregister(c)
	}
}

// disconnectReason maps a termination cause to its metric label.
func disconnectReason(cause error) string {
	switch {
	case cause == nil:
		return reasonStop
	case errors.Is(cause, ErrPeerDisconnect), errors.Is(cause, io.EOF):
		return reasonPeer
	case errors.Is(cause, ErrStreamDesync), errors.Is(cause, ErrFrameTooLarge):
		return reasonDesync
	default:
		return reasonError
	}
}
