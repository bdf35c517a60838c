package scheduler

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the scheduler's prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	active  prometheus.Gauge
	ticks   *prometheus.CounterVec
	expired prometheus.Counter
	stale   prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg when non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_tasks_active",
			Help: "Tasks currently scheduled and not yet expired.",
		}),
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_ticks_total",
			Help: "Active ticks executed, by task kind.",
		}, []string{"kind"}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_expired_total",
			Help: "Countdown tasks that reached zero.",
		}),
		stale: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_stale_ticks_total",
			Help: "Timer fires dropped because their task was already gone.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.active, m.ticks, m.expired, m.stale)
	}
	return m
}

func (m *Metrics) taskStarted() {
	if m == nil {
		return
	}
	m.active.Inc()
}

func (m *Metrics) taskStopped() {
	if m == nil {
		return
	}
	m.active.Dec()
}

func (m *Metrics) taskExpired() {
	if m == nil {
		return
	}
	m.active.Dec()
	m.expired.Inc()
}

func (m *Metrics) tick(k Kind) {
	if m == nil {
		return
	}
	m.ticks.WithLabelValues(k.String()).Inc()
}

func (m *Metrics) staleTick() {
	if m == nil {
		return
	}
	m.stale.Inc()
}
