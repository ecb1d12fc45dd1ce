package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/meszmate/imap-flow/server"
)

// Metrics is a CommandInterceptor that records command counts, error
// counts, in-flight counts, and latency histograms via
// prometheus/client_golang. Register it once per process (it owns its
// own collectors) and attach it to every Conn worth observing.
type Metrics struct {
	commandsTotal  *prometheus.CounterVec
	commandErrors  *prometheus.CounterVec
	activeCommands prometheus.Gauge
	commandLatency *prometheus.HistogramVec
}

// NewMetrics creates and registers a Metrics collector against reg. A
// nil reg registers against prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "imapflow",
			Subsystem: "server",
			Name:      "commands_total",
			Help:      "Total number of IMAP commands processed, by command name.",
		}, []string{"command"}),
		commandErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "imapflow",
			Subsystem: "server",
			Name:      "command_errors_total",
			Help:      "Total number of IMAP commands that completed with NO/BAD, by command name.",
		}, []string{"command"}),
		activeCommands: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "imapflow",
			Subsystem: "server",
			Name:      "active_commands",
			Help:      "Number of commands currently being dispatched.",
		}),
		commandLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "imapflow",
			Subsystem: "server",
			Name:      "command_duration_seconds",
			Help:      "Command dispatch latency in seconds, by command name.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
	}

	reg.MustRegister(m.commandsTotal, m.commandErrors, m.activeCommands, m.commandLatency)
	return m
}

// CommandErrorsVec exposes the underlying error counter vector for
// callers that want to inspect or export it directly (tests, custom
// dashboards) beyond what the registry's Gather already provides.
func (m *Metrics) CommandErrorsVec() *prometheus.CounterVec {
	return m.commandErrors
}

func (m *Metrics) Before(c *server.Conn, tag, name string) error {
	m.commandsTotal.WithLabelValues(name).Inc()
	m.activeCommands.Inc()
	return nil
}

func (m *Metrics) After(c *server.Conn, tag, name string, dur time.Duration, err error) {
	m.activeCommands.Dec()
	m.commandLatency.WithLabelValues(name).Observe(dur.Seconds())
	if err != nil {
		m.commandErrors.WithLabelValues(name).Inc()
	}
}
