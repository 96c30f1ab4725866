package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gather returns the metric family called name.
func gather(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}

	t.Fatalf("metric %s not found", name)

	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestCollector_FocusSamples(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFocusSample(0.42)
	c.RecordFocusSample(0.17)

	assert.InDelta(t, 0.17, gather(t, reg, "stayfocused_focus_probability").GetMetric()[0].GetGauge().GetValue(), 1e-9)
	assert.InDelta(t, 2, gather(t, reg, "stayfocused_focus_samples_total").GetMetric()[0].GetCounter().GetValue(), 1e-9)
}

func TestCollector_Alert(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAlert(true)
	c.RecordAlert(false)
	c.RecordAlert(true)

	assert.InDelta(t, 1, gather(t, reg, "stayfocused_alert_active").GetMetric()[0].GetGauge().GetValue(), 1e-9)
	assert.InDelta(t, 2, gather(t, reg, "stayfocused_alerts_total").GetMetric()[0].GetCounter().GetValue(), 1e-9)
}

func TestCollector_Logins(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLogin(false)
	c.RecordLogin(false)
	c.RecordLogin(true)

	got := map[string]float64{}
	for _, m := range gather(t, reg, "stayfocused_logins_total").GetMetric() {
		got[labelValue(m, "result")] = m.GetCounter().GetValue()
	}

	assert.Equal(t, map[string]float64{"failure": 2, "success": 1}, got)
}

func TestCollector_Stream(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordReconnect()
	c.RecordReconnect()
	c.RecordStreamLost()

	assert.InDelta(t, 2, gather(t, reg, "stayfocused_stream_reconnects_total").GetMetric()[0].GetCounter().GetValue(), 1e-9)
	assert.InDelta(t, 1, gather(t, reg, "stayfocused_stream_lost_total").GetMetric()[0].GetCounter().GetValue(), 1e-9)
}

func TestCollector_Phase(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	current := func() string {
		for _, m := range gather(t, reg, "stayfocused_auth_phase").GetMetric() {
			if m.GetGauge().GetValue() == 1 {
				return labelValue(m, "phase")
			}
		}
		return ""
	}

	assert.Equal(t, "unbound", current())

	c.RecordPhase("authenticated")
	assert.Equal(t, "authenticated", current())
	assert.Len(t, gather(t, reg, "stayfocused_auth_phase").GetMetric(), 4)
}
