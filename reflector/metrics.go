package reflector

import "github.com/prometheus/client_golang/prometheus"

// metrics holds the Reflector's collectors. A nil *metrics is valid and
// records nothing, so call sites never branch on whether metrics were
// requested.
type metrics struct {
	relists     prometheus.Counter
	desyncs     prometheus.Counter
	events      *prometheus.CounterVec
	cachedItems prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer, name string) *metrics {
	if reg == nil {
		return nil
	}

	labels := prometheus.Labels{"reflector": name}
	m := &metrics{
		relists: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "kubewatch_reflector_relists_total",
			Help:        "Number of full listings performed.",
			ConstLabels: labels,
		}),
		desyncs: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "kubewatch_reflector_desyncs_total",
			Help:        "Number of times an expired watch forced a full resync.",
			ConstLabels: labels,
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "kubewatch_reflector_events_total",
			Help:        "Events appended to the change history, by type.",
			ConstLabels: labels,
		}, []string{"type"}),
		cachedItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "kubewatch_reflector_cached_items",
			Help:        "Items currently held in the local cache.",
			ConstLabels: labels,
		}),
	}

	reg.MustRegister(m.relists, m.desyncs, m.events, m.cachedItems)
	return m
}

func (m *metrics) relist() {
	if m == nil {
		return
	}
	m.relists.Inc()
}

func (m *metrics) desync() {
	if m == nil {
		return
	}
	m.desyncs.Inc()
}

func (m *metrics) event(t EventType) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(string(t)).Inc()
}

func (m *metrics) setCached(n int) {
	if m == nil {
		return
	}
	m.cachedItems.Set(float64(n))
}
