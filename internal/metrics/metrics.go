// Package metrics provides Prometheus metrics for the access-control core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricFramesTotal       = "portero_wiegand_frames_total"
	MetricParityErrorsTotal = "portero_wiegand_parity_errors_total"
	MetricQueueDroppedTotal = "portero_queue_dropped_total"
	MetricDecisionsTotal    = "portero_access_decisions_total"
	MetricRelayErrorsTotal  = "portero_relay_errors_total"
)

// Frame outcome label values.
const (
	FrameDecoded      = "decoded"
	FrameBadLength    = "bad_length"
	FrameExtractError = "extract_error"
)

// Metrics contains the core's Prometheus collectors.  All operations are
// safe for concurrent use.
type Metrics struct {
	frames     *prometheus.CounterVec
	parity     prometheus.Counter
	queueDrops prometheus.Counter
	decisions  *prometheus.CounterVec
	relayErrs  prometheus.Counter
}

// New creates the collectors without registering them; call Register to
// attach them to a registry.
func New() *Metrics {
	return &Metrics{
		frames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricFramesTotal,
				Help: "Total delimited Wiegand frames by decode outcome",
			},
			[]string{"outcome"},
		),
		parity: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricParityErrorsTotal,
				Help: "Total frames with at least one parity-bit failure",
			},
		),
		queueDrops: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricQueueDroppedTotal,
				Help: "Total credentials dropped because the queue was full",
			},
		),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricDecisionsTotal,
				Help: "Total access decisions by reason",
			},
			[]string{"reason"},
		),
		relayErrs: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricRelayErrorsTotal,
				Help: "Total failed relay write operations",
			},
		),
	}
}

// Register registers all collectors with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.frames, m.parity, m.queueDrops, m.decisions, m.relayErrs,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) FrameObserved(outcome string) { m.frames.WithLabelValues(outcome).Inc() }
func (m *Metrics) ParityError()                 { m.parity.Inc() }
func (m *Metrics) QueueDropped()                { m.queueDrops.Inc() }
func (m *Metrics) Decision(reason string)       { m.decisions.WithLabelValues(reason).Inc() }
func (m *Metrics) RelayError()                  { m.relayErrs.Inc() }

// Nop returns a Metrics that records into unregistered collectors.
// Convenient default for tests and for wiring components before the
// registry exists.
func Nop() *Metrics { return New() }
