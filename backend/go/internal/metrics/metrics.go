package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors that report task server activity.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	tasksTotal     *prometheus.CounterVec
	taskDuration   *prometheus.HistogramVec
	agentRuns      *prometheus.CounterVec
	sessionsActive prometheus.Gauge
	sinkDropped    prometheus.Counter
}

var (
	defaultOnce   sync.Once
	sharedMetrics *Metrics
)

// Default returns the instance registered with the global Prometheus registry.
// Collectors are created once so repeated server construction does not panic.
func Default() *Metrics {
	defaultOnce.Do(func() {
		sharedMetrics = MustNew(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNew constructs Metrics registered with reg. Tests pass a fresh
// prometheus.NewRegistry(). Registration errors panic.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		tasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "agentdeck",
				Subsystem: "tasks",
				Name:      "finished_total",
				Help:      "Tasks that reached a terminal status.",
			},
			[]string{"status"},
		),
		taskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "agentdeck",
				Subsystem: "tasks",
				Name:      "duration_seconds",
				Help:      "Wall time from task creation to terminal status.",
				Buckets:   []float64{0.5, 1, 2.5, 5, 7.5, 10, 15, 30},
			},
			[]string{"status"},
		),
		agentRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "agentdeck",
				Subsystem: "agents",
				Name:      "runs_total",
				Help:      "Simulated agent runs by agent type and outcome.",
			},
			[]string{"agent", "outcome"},
		),
		sessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "agentdeck",
				Subsystem: "sessions",
				Name:      "active",
				Help:      "Open event channel connections.",
			},
		),
		sinkDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "agentdeck",
				Subsystem: "events",
				Name:      "mirror_dropped_total",
				Help:      "Task events that could not be mirrored to the event sink.",
			},
		),
	}
	reg.MustRegister(m.tasksTotal, m.taskDuration, m.agentRuns, m.sessionsActive, m.sinkDropped)
	return m
}

// ObserveTask records a task that reached status after d.
func (m *Metrics) ObserveTask(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.tasksTotal.WithLabelValues(status).Inc()
	m.taskDuration.WithLabelValues(status).Observe(d.Seconds())
}

// IncAgentRun counts one simulated agent run.
func (m *Metrics) IncAgentRun(agent, outcome string) {
	if m == nil {
		return
	}
	m.agentRuns.WithLabelValues(agent, outcome).Inc()
}

// SessionOpened increments the open session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
}

// SessionClosed decrements the open session gauge.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}

// IncMirrorDropped counts one event the mirror could not deliver.
func (m *Metrics) IncMirrorDropped() {
	if m == nil {
		return
	}
	m.sinkDropped.Inc()
}
