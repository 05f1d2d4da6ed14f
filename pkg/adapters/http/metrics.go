package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// serverMetrics are the harness-level Prometheus collectors, registered on
// the server's own registry so parallel servers never collide.
type serverMetrics struct {
	commands       *prometheus.CounterVec
	beatsShown     prometheus.Counter
	sessionsActive prometheus.Gauge
}

func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)
	return &serverMetrics{
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cadence",
			Subsystem: "http",
			Name:      "commands_total",
			Help:      "Commands applied, labeled by verb.",
		}, []string{"command"}),
		beatsShown: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cadence",
			Name:      "beats_shown_total",
			Help:      "Beats rendered across all sessions.",
		}),
		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "cadence",
			Subsystem: "http",
			Name:      "sessions_active",
			Help:      "Live playthroughs currently held in memory.",
		}),
	}
}
