// Package metrics exports prometheus collectors for the event bus and the
// session tick loop.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zeusync/runhole/internal/core/events/bus"
	"github.com/zeusync/runhole/internal/core/session"
)

const namespace = "runhole"

var (
	_ bus.EventBusObserver = (*Metrics)(nil)
	_ session.TickObserver = (*Metrics)(nil)
)

type Metrics struct {
	registry *prometheus.Registry

	published     *prometheus.CounterVec
	handlerErrors *prometheus.CounterVec
	delivery      prometheus.Histogram

	ticks        prometheus.Counter
	tickDuration prometheus.Histogram
	sessions     prometheus.Gauge
	gameOver     *prometheus.CounterVec
	walls        *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "events_published_total",
			Help:      "Events published on the bus by type.",
		}, []string{"type"}),
		handlerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "handler_errors_total",
			Help:      "Deliveries where at least one handler failed.",
		}, []string{"type"}),
		delivery: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "delivery_duration_seconds",
			Help:      "Time spent running handlers for one event.",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "ticks_total",
			Help:      "Simulation ticks run across all sessions.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "tick_duration_seconds",
			Help:      "Wall time of one simulation tick.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05},
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Sessions currently running.",
		}),
		gameOver: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "ended_total",
			Help:      "Finished runs by end reason.",
		}, []string{"end"}),
		walls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "walls_passed_total",
			Help:      "Walls passed, split by whether every hole cell was traced.",
		}, []string{"perfect"}),
	}

	m.registry.MustRegister(
		m.published, m.handlerErrors, m.delivery,
		m.ticks, m.tickDuration, m.sessions, m.gameOver, m.walls,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) OnPublish(_, eventType string, event bus.Event) {
	m.published.WithLabelValues(eventType).Inc()
	if wp, ok := event.Data().(session.WallPassed); ok {
		if wp.Perfect {
			m.walls.WithLabelValues("true").Inc()
		} else {
			m.walls.WithLabelValues("false").Inc()
		}
	}
}

func (m *Metrics) OnDelivered(_, eventType string, _ int, err error, duration time.Duration) {
	m.delivery.Observe(duration.Seconds())
	if err != nil {
		m.handlerErrors.WithLabelValues(eventType).Inc()
	}
}

func (m *Metrics) ObserveTick(snap session.Snapshot, took time.Duration) {
	if took > 0 {
		m.ticks.Inc()
		m.tickDuration.Observe(took.Seconds())
	}
	if snap.Over {
		m.gameOver.WithLabelValues(snap.End.String()).Inc()
	}
}

func (m *Metrics) SessionOpened() { m.sessions.Inc() }
func (m *Metrics) SessionClosed() { m.sessions.Dec() }
