package memory

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains Prometheus metrics for registry allocations
type Metrics struct {
	allocationsTotal *prometheus.CounterVec
	releasesTotal    *prometheus.CounterVec
	elementsTotal    *prometheus.CounterVec
	liveObjects      *prometheus.GaugeVec
	liveElements     prometheus.Gauge
}

// NewMetrics creates the registry metrics and registers them with registerer.
// A nil registerer leaves them unregistered, which tests use.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		allocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "world_bridge_allocations_total",
				Help: "Total number of registered allocations",
			},
			[]string{"kind"}, // buffer, grid
		),
		releasesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "world_bridge_releases_total",
				Help: "Total number of released allocations",
			},
			[]string{"kind"},
		),
		elementsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "world_bridge_allocated_elements_total",
				Help: "Total number of float64 values allocated",
			},
			[]string{"kind"},
		),
		liveObjects: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "world_bridge_live_objects",
				Help: "Number of allocations not yet released",
			},
			[]string{"kind"},
		),
		liveElements: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "world_bridge_live_elements",
				Help: "Number of float64 values owned by live allocations",
			},
		),
	}
	if registerer != nil {
		if err := registerer.Register(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) allocated(obj Object) {
	if m == nil {
		return
	}
	kind := string(obj.Kind())
	m.allocationsTotal.WithLabelValues(kind).Inc()
	m.elementsTotal.WithLabelValues(kind).Add(float64(obj.Elements()))
	m.liveObjects.WithLabelValues(kind).Inc()
	m.liveElements.Add(float64(obj.Elements()))
}

func (m *Metrics) released(kind Kind, elements int) {
	if m == nil {
		return
	}
	m.releasesTotal.WithLabelValues(string(kind)).Inc()
	m.liveObjects.WithLabelValues(string(kind)).Dec()
	m.liveElements.Sub(float64(elements))
}

// Describe implements prometheus.Collector
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.allocationsTotal.Describe(ch)
	m.releasesTotal.Describe(ch)
	m.elementsTotal.Describe(ch)
	m.liveObjects.Describe(ch)
	m.liveElements.Describe(ch)
}

// Collect implements prometheus.Collector
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.allocationsTotal.Collect(ch)
	m.releasesTotal.Collect(ch)
	m.elementsTotal.Collect(ch)
	m.liveObjects.Collect(ch)
	m.liveElements.Collect(ch)
}
