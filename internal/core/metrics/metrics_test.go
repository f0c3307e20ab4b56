package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryMetrics_Counters(t *testing.T) {
	m := NewMemoryMetrics(context.Background())
	defer m.Close()

	require.NoError(t, m.IncrementCounter("connect_attempts_total", map[string]string{"role": "host"}))
	require.NoError(t, m.AddCounter("connect_attempts_total", 2, map[string]string{"role": "host"}))
	require.NoError(t, m.IncrementCounter("connect_attempts_total", map[string]string{"role": "guest"}))

	host, _ := m.GetCounter("connect_attempts_total", map[string]string{"role": "host"})
	guest, _ := m.GetCounter("connect_attempts_total", map[string]string{"role": "guest"})
	assert.Equal(t, 3.0, host)
	assert.Equal(t, 1.0, guest)

	assert.Error(t, m.AddCounter("connect_attempts_total", -1, nil))
}

func TestMemoryMetrics_LabelOrderIrrelevant(t *testing.T) {
	m := NewMemoryMetrics(context.Background())
	defer m.Close()

	require.NoError(t, m.SetGauge("g", 4, map[string]string{"a": "1", "b": "2"}))
	v, _ := m.GetGauge("g", map[string]string{"b": "2", "a": "1"})
	assert.Equal(t, 4.0, v)
}

func TestPrometheusMetrics_CounterGaugeHistogram(t *testing.T) {
	m := NewPrometheusMetrics(context.Background(), Namespace)
	defer m.Close()

	require.NoError(t, m.IncrementCounter("instance_deaths_total", nil))
	require.NoError(t, m.AddCounter("instance_deaths_total", 2, nil))
	v, err := m.GetCounter("instance_deaths_total", nil)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	require.NoError(t, m.SetGauge("session_peers", 5, nil))
	g, err := m.GetGauge("session_peers", nil)
	require.NoError(t, err)
	assert.Equal(t, 5.0, g)

	require.NoError(t, m.ObserveHistogram("status_poll_duration_seconds", 0.01, nil))

	// 标签集合不一致
	assert.Error(t, m.IncrementCounter("instance_deaths_total", map[string]string{"x": "y"}))
	// 同名不同类型
	assert.Error(t, m.SetGauge("instance_deaths_total", 1, nil))
}

func TestPrometheusMetrics_Handler(t *testing.T) {
	m := NewPrometheusMetrics(context.Background(), Namespace)
	defer m.Close()
	require.NoError(t, m.IncrementCounter("connect_failures_total", map[string]string{"code": "START_FAILED"}))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `lanlink_connect_failures_total{code="START_FAILED"} 1`)
}

func TestMetricsFactory(t *testing.T) {
	f := NewMetricsFactory(context.Background())

	mem, err := f.CreateMetrics(MetricsTypeMemory)
	require.NoError(t, err)
	assert.IsType(t, &MemoryMetrics{}, mem)

	prom, err := f.CreateMetrics(MetricsTypePrometheus)
	require.NoError(t, err)
	assert.IsType(t, &PrometheusMetrics{}, prom)

	_, err = f.CreateMetrics("statsd")
	assert.Error(t, err)
}

func TestSessionHelpers_UseGlobal(t *testing.T) {
	old := ResetGlobalMetrics()
	defer func() {
		if old != nil {
			_ = SetGlobalMetrics(old)
		}
	}()

	// 未设置时不报错
	assert.NoError(t, IncInstanceDeath())

	m := NewMemoryMetrics(context.Background())
	defer m.Close()
	require.NoError(t, SetGlobalMetrics(m))
	assert.ErrorIs(t, SetGlobalMetrics(nil), ErrNilMetrics)

	require.NoError(t, SetSessionState("CONNECTED", []string{"DISCONNECTED", "CONNECTED"}))
	require.NoError(t, SetPeerCount(2))
	require.NoError(t, IncSkippedPoll("short"))
	require.NoError(t, ObservePollDuration(20*time.Millisecond))

	connected, _ := m.GetGauge(MetricSessionState, map[string]string{"state": "CONNECTED"})
	disconnected, _ := m.GetGauge(MetricSessionState, map[string]string{"state": "DISCONNECTED"})
	peers, _ := m.GetGauge(MetricSessionPeers, nil)
	skipped, _ := m.GetCounter(MetricSkippedPolls, map[string]string{"reason": "short"})

	assert.Equal(t, 1.0, connected)
	assert.Equal(t, 0.0, disconnected)
	assert.Equal(t, 2.0, peers)
	assert.Equal(t, 1.0, skipped)
	assert.Equal(t, 1, m.ObservationCount(MetricPollDuration, nil))
}
