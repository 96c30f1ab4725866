// Package metrics records engine activity as Prometheus metrics and serves
// them, together with the current session state, over a small HTTP server.
package metrics

import (
	"github.com/JesseRWeigel/stay-focused/pkg/engine"
	"github.com/prometheus/client_golang/prometheus"
)

var _ engine.Recorder = (*Collector)(nil)

var phases = []string{
	engine.PhaseUnbound.String(),
	engine.PhaseBound.String(),
	engine.PhaseAuthenticating.String(),
	engine.PhaseAuthenticated.String(),
}

// Collector implements engine.Recorder with Prometheus collectors.
type Collector struct {
	focus      prometheus.Gauge
	samples    prometheus.Counter
	alert      prometheus.Gauge
	alerts     prometheus.Counter
	logins     *prometheus.CounterVec
	reconnects prometheus.Counter
	streamLost prometheus.Counter
	phase      *prometheus.GaugeVec
}

// NewCollector creates a Collector and registers it on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		focus: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stayfocused_focus_probability",
			Help: "Latest focus probability, rounded to two decimals.",
		}),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stayfocused_focus_samples_total",
			Help: "Focus samples accepted.",
		}),
		alert: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stayfocused_alert_active",
			Help: "1 while the low-focus alert is active.",
		}),
		alerts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stayfocused_alerts_total",
			Help: "Transitions from calm to alert.",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stayfocused_logins_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stayfocused_stream_reconnects_total",
			Help: "Focus stream reconnect attempts.",
		}),
		streamLost: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stayfocused_stream_lost_total",
			Help: "Focus streams given up after exhausting reconnects.",
		}),
		phase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stayfocused_auth_phase",
			Help: "1 for the current auth phase, 0 otherwise.",
		}, []string{"phase"}),
	}

	reg.MustRegister(
		c.focus,
		c.samples,
		c.alert,
		c.alerts,
		c.logins,
		c.reconnects,
		c.streamLost,
		c.phase,
	)

	c.RecordPhase(engine.PhaseUnbound.String())

	return c
}

func (c *Collector) RecordFocusSample(p float64) {
	c.focus.Set(p)
	c.samples.Inc()
}

func (c *Collector) RecordAlert(alert bool) {
	if alert {
		c.alert.Set(1)
		c.alerts.Inc()
		return
	}
	c.alert.Set(0)
}

func (c *Collector) RecordLogin(ok bool) {
	result := "failure"
	if ok {
		result = "success"
	}
	c.logins.WithLabelValues(result).Inc()
}

func (c *Collector) RecordReconnect() { c.reconnects.Inc() }

func (c *Collector) RecordStreamLost() { c.streamLost.Inc() }

// RecordPhase marks phase as current and every other phase as inactive.
func (c *Collector) RecordPhase(phase string) {
	for _, p := range phases {
		v := 0.0
		if p == phase {
			v = 1
		}
		c.phase.WithLabelValues(p).Set(v)
	}
}
