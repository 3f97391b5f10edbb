package metrics

import "github.com/prometheus/client_golang/prometheus"

// Lifecycle exposes counters/histograms for appointment transitions and slot
// queries. A nil *Lifecycle is valid and records nothing.
type Lifecycle struct {
	transitions   *prometheus.CounterVec
	slotQuery     prometheus.Histogram
	slotsReturned prometheus.Histogram
}

func NewLifecycle(reg prometheus.Registerer) *Lifecycle {
	m := &Lifecycle{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "lifecycle_transitions_total",
			Help:      "Appointment lifecycle transitions by outcome",
		}, []string{"transition", "outcome"}),
		slotQuery: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "slot_query_seconds",
			Help:      "Latency of available slot queries",
			Buckets:   prometheus.DefBuckets,
		}),
		slotsReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "slots_returned",
			Help:      "Number of slots returned per query",
			Buckets:   []float64{0, 1, 4, 8, 16, 24, 32, 48},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitions, m.slotQuery, m.slotsReturned)
	return m
}

// ObserveTransition records one transition attempt. outcome is "ok" or the
// error kind that stopped it.
func (m *Lifecycle) ObserveTransition(transition, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(transition, outcome).Inc()
}

func (m *Lifecycle) ObserveSlotQuery(seconds float64, slots int) {
	if m == nil {
		return
	}
	m.slotQuery.Observe(seconds)
	m.slotsReturned.Observe(float64(slots))
}
