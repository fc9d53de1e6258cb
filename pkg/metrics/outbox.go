package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics tracks the publisher's backlog and outcomes.
type OutboxMetrics struct {
	depth     prometheus.Gauge
	published prometheus.Counter
	failed    prometheus.Counter
}

// NewOutboxMetrics registers the outbox metrics on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	depth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "outbox_unpublished_events",
		Help: "Events awaiting publication.",
	})
	published := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_published_total",
		Help: "Events published to the broker.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_publish_failures_total",
		Help: "Publish attempts that errored.",
	})
	reg.MustRegister(depth, published, failed)
	return &OutboxMetrics{depth: depth, published: published, failed: failed}
}

func (o *OutboxMetrics) SetDepth(n float64) {
	if o == nil || o.depth == nil {
		return
	}
	o.depth.Set(n)
}

func (o *OutboxMetrics) IncPublished() {
	if o == nil || o.published == nil {
		return
	}
	o.published.Inc()
}

func (o *OutboxMetrics) IncFailed() {
	if o == nil || o.failed == nil {
		return
	}
	o.failed.Inc()
}
