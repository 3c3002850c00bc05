package activity

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports tracker state to Prometheus. Register it with
// Tracker.Subscribe.
type Metrics struct {
	status      *prometheus.GaugeVec
	transitions *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. The status
// gauge starts at initial, normally the tracker's current Status.
func NewMetrics(reg prometheus.Registerer, initial Status) (*Metrics, error) {
	m := &Metrics{
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "perch",
			Subsystem: "activity",
			Name:      "status",
			Help:      "Current activity status (1 for the active status, 0 otherwise).",
		}, []string{"status"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "perch",
			Subsystem: "activity",
			Name:      "transitions_total",
			Help:      "Activity status transitions.",
		}, []string{"from", "to", "auto"}),
	}
	for _, c := range []prometheus.Collector{m.status, m.transitions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	m.set(initial)
	return m, nil
}

// OnChange implements Observer.
func (m *Metrics) OnChange(c Change) {
	m.transitions.WithLabelValues(c.From.String(), c.To.String(), strconv.FormatBool(c.Auto)).Inc()
	m.set(c.To)
}

func (m *Metrics) set(current Status) {
	for _, s := range Statuses() {
		v := 0.0
		if s == current {
			v = 1
		}
		m.status.WithLabelValues(s.String()).Set(v)
	}
}
