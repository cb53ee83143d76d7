package events

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector defines the interface for collecting game metrics
type MetricsCollector interface {
	SessionStarted()
	SessionEnded()
	GoalScored(side int)
	Tick()
	FrameDropped()
	ProtocolError(reason string)
	WaitingPlayers(n int)
	ConnectionOpened()
	ConnectionClosed()
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) SessionStarted()             {}
func (NoOpMetricsCollector) SessionEnded()               {}
func (NoOpMetricsCollector) GoalScored(side int)         {}
func (NoOpMetricsCollector) Tick()                       {}
func (NoOpMetricsCollector) FrameDropped()               {}
func (NoOpMetricsCollector) ProtocolError(reason string) {}
func (NoOpMetricsCollector) WaitingPlayers(n int)        {}
func (NoOpMetricsCollector) ConnectionOpened()           {}
func (NoOpMetricsCollector) ConnectionClosed()           {}

// PrometheusMetrics implements MetricsCollector using Prometheus
type PrometheusMetrics struct {
	activeSessions  prometheus.Gauge
	sessionsTotal   prometheus.Counter
	goals           *prometheus.CounterVec
	ticks           prometheus.Counter
	droppedFrames   prometheus.Counter
	protocolErrors  *prometheus.CounterVec
	waitingPlayers  prometheus.Gauge
	openConnections prometheus.Gauge
}

// NewPrometheusMetrics creates the collectors and registers them on reg
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "airhockey",
			Name:      "active_sessions",
			Help:      "Sessions currently in the ACTIVE state.",
		}),
		sessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "airhockey",
			Name:      "sessions_created_total",
			Help:      "Sessions created by the matchmaker.",
		}),
		goals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airhockey",
			Name:      "goals_total",
			Help:      "Goals scored, by scoring side.",
		}, []string{"side"}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "airhockey",
			Name:      "ticks_total",
			Help:      "Simulation ticks run across all sessions.",
		}),
		droppedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "airhockey",
			Name:      "dropped_frames_total",
			Help:      "Outbound frames dropped because a client send buffer was full.",
		}),
		protocolErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airhockey",
			Name:      "protocol_errors_total",
			Help:      "Inbound frames rejected, by reason.",
		}, []string{"reason"}),
		waitingPlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "airhockey",
			Name:      "waiting_players",
			Help:      "Connections parked in the matchmaker (0 or 1).",
		}),
		openConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "airhockey",
			Name:      "open_connections",
			Help:      "Open WebSocket connections.",
		}),
	}

	reg.MustRegister(
		m.activeSessions,
		m.sessionsTotal,
		m.goals,
		m.ticks,
		m.droppedFrames,
		m.protocolErrors,
		m.waitingPlayers,
		m.openConnections,
	)
	return m
}

func (m *PrometheusMetrics) SessionStarted() {
	m.sessionsTotal.Inc()
	m.activeSessions.Inc()
}

func (m *PrometheusMetrics) SessionEnded()       { m.activeSessions.Dec() }
func (m *PrometheusMetrics) GoalScored(side int) { m.goals.WithLabelValues(strconv.Itoa(side)).Inc() }
func (m *PrometheusMetrics) Tick()               { m.ticks.Inc() }
func (m *PrometheusMetrics) FrameDropped()       { m.droppedFrames.Inc() }

func (m *PrometheusMetrics) ProtocolError(reason string) {
	m.protocolErrors.WithLabelValues(reason).Inc()
}

func (m *PrometheusMetrics) WaitingPlayers(n int) { m.waitingPlayers.Set(float64(n)) }
func (m *PrometheusMetrics) ConnectionOpened()    { m.openConnections.Inc() }
func (m *PrometheusMetrics) ConnectionClosed()    { m.openConnections.Dec() }
