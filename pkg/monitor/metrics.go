// Package monitor exposes link statistics as Prometheus metrics and
// streams telemetry to websocket clients.
package monitor

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/robotalks/rove.go/pkg/l0/device"
	"github.com/robotalks/rove.go/pkg/l0/xfer"
)

// Metrics implements xfer.LinkObserver and motherboard.TelemetrySink.
type Metrics struct {
	Registry *prometheus.Registry

	received  *prometheus.CounterVec
	sent      *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	telemetry *prometheus.CounterVec
}

// NewMetrics creates Metrics registered to a new registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		received: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rove",
				Subsystem: "link",
				Name:      "records_received_total",
				Help:      "Records decoded from a link.",
			},
			[]string{"link"},
		),
		sent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rove",
				Subsystem: "link",
				Name:      "records_sent_total",
				Help:      "Records written to a link.",
			},
			[]string{"link"},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rove",
				Subsystem: "link",
				Name:      "frames_rejected_total",
				Help:      "Frames dropped by the decoder.",
			},
			[]string{"link", "reason"},
		),
		telemetry: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rove",
				Subsystem: "telemetry",
				Name:      "records_total",
				Help:      "Telemetry records per device kind.",
			},
			[]string{"kind"},
		),
	}
	m.Registry.MustRegister(m.received, m.sent, m.rejected, m.telemetry)
	return m
}

// Name implements Named.
func (m *Metrics) Name() string {
	return "metrics"
}

// RecordReceived implements xfer.LinkObserver.
func (m *Metrics) RecordReceived(link string) {
	m.received.WithLabelValues(link).Inc()
}

// RecordSent implements xfer.LinkObserver.
func (m *Metrics) RecordSent(link string) {
	m.sent.WithLabelValues(link).Inc()
}

// FrameRejected implements xfer.LinkObserver.
func (m *Metrics) FrameRejected(link string, status xfer.Status) {
	m.rejected.WithLabelValues(link, status.String()).Inc()
}

// HandleTelemetry implements motherboard.TelemetrySink.
func (m *Metrics) HandleTelemetry(ctx context.Context, kind device.Kind, record []byte) error {
	m.telemetry.WithLabelValues(string(kind)).Inc()
	return nil
}
