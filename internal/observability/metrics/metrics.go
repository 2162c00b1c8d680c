package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for the availability and
// booking flows.
type SchedulingMetrics struct {
	checksTotal     *prometheus.CounterVec
	slotListLatency *prometheus.HistogramVec
	writesTotal     *prometheus.CounterVec
	mirrorFailures  *prometheus.CounterVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		checksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookably",
			Subsystem: "availability",
			Name:      "checks_total",
			Help:      "Availability checks by outcome and failing stage",
		}, []string{"outcome", "stage"}),
		slotListLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bookably",
			Subsystem: "slots",
			Name:      "list_latency_seconds",
			Help:      "Latency of slot listing computations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"cached"}),
		writesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookably",
			Subsystem: "bookings",
			Name:      "writes_total",
			Help:      "Booking write operations by kind and status",
		}, []string{"op", "status"}),
		mirrorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookably",
			Subsystem: "bookings",
			Name:      "calendar_mirror_failures_total",
			Help:      "Best-effort Google Calendar mirror calls that failed",
		}, []string{"op"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.checksTotal, m.slotListLatency, m.writesTotal, m.mirrorFailures)
	return m
}

// ObserveCheck records one availability decision. Stage is the failing stage
// label, or "none" when the check passed.
func (m *SchedulingMetrics) ObserveCheck(outcome, stage string) {
	if m == nil {
		return
	}
	m.checksTotal.WithLabelValues(outcome, stage).Inc()
}

func (m *SchedulingMetrics) ObserveSlotListing(cached bool, seconds float64) {
	if m == nil {
		return
	}
	label := "false"
	if cached {
		label = "true"
	}
	m.slotListLatency.WithLabelValues(label).Observe(seconds)
}

func (m *SchedulingMetrics) ObserveWrite(op, status string) {
	if m == nil {
		return
	}
	m.writesTotal.WithLabelValues(op, status).Inc()
}

func (m *SchedulingMetrics) ObserveMirrorFailure(op string) {
	if m == nil {
		return
	}
	m.mirrorFailures.WithLabelValues(op).Inc()
}
